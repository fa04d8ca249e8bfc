package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Fields is a loosely typed upstream JSON object whose field names vary
// between API revisions. Every accessor takes keys in priority order and
// returns the first usable value.
type Fields map[string]any

// ParseFields decodes a JSON object keeping numbers exact
func ParseFields(data []byte) (Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var f Fields
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	return f, nil
}

// String returns the first non-empty value, stringified
func (f Fields) String(keys ...string) string {
	for _, k := range keys {
		if s := stringify(f[k]); s != "" {
			return s
		}
	}
	return ""
}

// Decimal returns the first non-zero numeric value (number or numeric string)
func (f Fields) Decimal(keys ...string) decimal.Decimal {
	for _, k := range keys {
		d, ok := toDecimal(f[k])
		if ok && !d.IsZero() {
			return d
		}
	}
	return decimal.Zero
}

// Bool returns the first boolean-ish value present
func (f Fields) Bool(keys ...string) bool {
	for _, k := range keys {
		switch v := f[k].(type) {
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return b
			}
		}
	}
	return false
}

// Time returns the first value parseable as RFC3339 or YYYY-MM-DD
func (f Fields) Time(keys ...string) *time.Time {
	for _, k := range keys {
		s := stringify(f[k])
		if s == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return &t
			}
		}
	}
	return nil
}

// Object returns the first nested object among keys
func (f Fields) Object(keys ...string) Fields {
	for _, k := range keys {
		switch m := f[k].(type) {
		case map[string]any:
			return Fields(m)
		case Fields:
			return m
		}
	}
	return nil
}

// FirstNonEmpty returns the first non-blank string
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		return d, err == nil
	}
	return decimal.Zero, false
}
