package repository

import (
	"cmp"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"taxtracker/internal/model"
	"taxtracker/internal/taxengine"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed rulesets.yaml
var defaultRulesets []byte

// ErrRulesetNotFound means no configured ruleset covers the class and tax
// year. The request is well formed but the catalog has a gap.
var ErrRulesetNotFound = errors.New("no tax ruleset configured")

const unboundedBound = "unbounded"

type RulesetRepository interface {
	FindActive(class model.TaxpayerClass, taxYear int) (*model.Ruleset, error)
	List() []model.Ruleset
}

type rulesetRepository struct {
	rulesets []model.Ruleset
}

// --- YAML DTOs ---

type rulesetFile struct {
	Rulesets []rulesetEntry `yaml:"rulesets"`
}

type rulesetEntry struct {
	Version       string         `yaml:"version"`
	TaxType       string         `yaml:"tax_type"`
	Class         string         `yaml:"class"`
	TaxYear       int            `yaml:"tax_year"`
	Kind          string         `yaml:"kind"`
	EffectiveFrom string         `yaml:"effective_from"` // YYYY-MM-DD
	EffectiveTo   string         `yaml:"effective_to"`   // YYYY-MM-DD, optional
	Description   string         `yaml:"description"`
	Brackets      []bracketEntry `yaml:"brackets"`
	Threshold     string         `yaml:"threshold"`
	BelowRate     string         `yaml:"below_rate"`
	AboveRate     string         `yaml:"above_rate"`
}

type bracketEntry struct {
	UpperBound string `yaml:"upper_bound"` // amount or "unbounded"
	Rate       string `yaml:"rate"`
}

// NewRulesetRepository loads rulesets from path, or the built-in catalog when path is empty
func NewRulesetRepository(path string) (RulesetRepository, error) {
	data := defaultRulesets
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read ruleset file: %w", err)
		}
	}
	return ParseRulesets(data)
}

// ParseRulesets decodes and validates a YAML ruleset catalog
func ParseRulesets(data []byte) (RulesetRepository, error) {
	var file rulesetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode rulesets: %w", err)
	}

	rulesets := make([]model.Ruleset, 0, len(file.Rulesets))
	for i, entry := range file.Rulesets {
		rs, err := entry.toModel()
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", taxengine.ErrInvalidRuleset, i, err)
		}
		if err := taxengine.Validate(rs); err != nil {
			return nil, err
		}
		if err := checkOverlap(rulesets, rs); err != nil {
			return nil, err
		}
		rulesets = append(rulesets, rs)
	}

	return &rulesetRepository{rulesets: rulesets}, nil
}

// FindActive returns the ruleset for the class and tax year. Without an exact
// year match it falls back to the latest ruleset in force on January 1st.
func (r *rulesetRepository) FindActive(class model.TaxpayerClass, taxYear int) (*model.Ruleset, error) {
	var (
		fallback *model.Ruleset
		jan1     = time.Date(taxYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	)
	for i := range r.rulesets {
		rs := &r.rulesets[i]
		if rs.Class != class {
			continue
		}
		if rs.TaxYear == taxYear {
			out := *rs
			return &out, nil
		}
		if rs.CoversDate(jan1) && (fallback == nil || rs.EffectiveFrom.After(fallback.EffectiveFrom)) {
			fallback = rs
		}
	}
	if fallback == nil {
		return nil, fmt.Errorf("%w for %s in %d", ErrRulesetNotFound, class, taxYear)
	}
	out := *fallback
	return &out, nil
}

// List returns every ruleset, newest tax year first
func (r *rulesetRepository) List() []model.Ruleset {
	out := slices.Clone(r.rulesets)
	slices.SortStableFunc(out, func(a, b model.Ruleset) int {
		return cmp.Compare(b.TaxYear, a.TaxYear)
	})
	return out
}

// --- Helpers ---

func (e rulesetEntry) toModel() (model.Ruleset, error) {
	class, ok := model.ParseTaxpayerClass(e.Class)
	if !ok {
		return model.Ruleset{}, fmt.Errorf("unknown class %q", e.Class)
	}
	if e.Version == "" {
		return model.Ruleset{}, errors.New("version is required")
	}

	effectiveFrom, err := time.Parse(time.DateOnly, e.EffectiveFrom)
	if err != nil {
		return model.Ruleset{}, fmt.Errorf("invalid effective_from date format (expected YYYY-MM-DD): %w", err)
	}
	var effectiveTo *time.Time
	if e.EffectiveTo != "" {
		t, err := time.Parse(time.DateOnly, e.EffectiveTo)
		if err != nil {
			return model.Ruleset{}, fmt.Errorf("invalid effective_to date format (expected YYYY-MM-DD): %w", err)
		}
		effectiveTo = &t
	}

	rs := model.Ruleset{
		Version:       e.Version,
		TaxType:       strings.ToUpper(e.TaxType),
		Class:         class,
		TaxYear:       e.TaxYear,
		Kind:          model.RuleKind(e.Kind),
		EffectiveFrom: effectiveFrom,
		EffectiveTo:   effectiveTo,
		Description:   e.Description,
	}

	switch rs.Kind {
	case model.RuleKindProgressive:
		for i, b := range e.Brackets {
			bracket, err := b.toModel()
			if err != nil {
				return model.Ruleset{}, fmt.Errorf("bracket %d: %w", i, err)
			}
			rs.Brackets = append(rs.Brackets, bracket)
		}
	case model.RuleKindFlatThreshold:
		if rs.Threshold, err = parseAmount("threshold", e.Threshold); err != nil {
			return model.Ruleset{}, err
		}
		if rs.BelowRate, err = parseAmount("below_rate", e.BelowRate); err != nil {
			return model.Ruleset{}, err
		}
		if rs.AboveRate, err = parseAmount("above_rate", e.AboveRate); err != nil {
			return model.Ruleset{}, err
		}
	}
	return rs, nil
}

func (b bracketEntry) toModel() (model.Bracket, error) {
	rate, err := parseAmount("rate", b.Rate)
	if err != nil {
		return model.Bracket{}, err
	}
	if strings.EqualFold(strings.TrimSpace(b.UpperBound), unboundedBound) {
		return model.Bracket{Rate: rate}, nil
	}
	upper, err := parseAmount("upper_bound", b.UpperBound)
	if err != nil {
		return model.Bracket{}, err
	}
	return model.Bracket{UpperBound: &upper, Rate: rate}, nil
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s value %q: %w", field, s, err)
	}
	return d, nil
}

func checkOverlap(existing []model.Ruleset, rs model.Ruleset) error {
	for _, other := range existing {
		if other.Version == rs.Version {
			return fmt.Errorf("%w: duplicate version %q", taxengine.ErrInvalidRuleset, rs.Version)
		}
		if other.Class == rs.Class && other.TaxYear == rs.TaxYear {
			return fmt.Errorf("%w: a ruleset for %s already exists for tax year %d (%s)",
				taxengine.ErrInvalidRuleset, rs.Class, rs.TaxYear, other.Version)
		}
	}
	return nil
}
