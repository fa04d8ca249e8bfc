package model

import "strings"

// TaxpayerClass selects which ruleset applies to a user
type TaxpayerClass string

const (
	TaxpayerIndividual TaxpayerClass = "individual"
	TaxpayerBusiness   TaxpayerClass = "business"
)

// Tax type codes sent to the record API
const (
	TaxTypePIT = "PIT" // personal income tax
	TaxTypeCIT = "CIT" // company income tax
)

// ParseTaxpayerClass maps an upstream account-type string to a class.
// ok is false for empty or unknown values.
func ParseTaxpayerClass(s string) (TaxpayerClass, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "individual", "personal":
		return TaxpayerIndividual, true
	case "business", "company", "corporate":
		return TaxpayerBusiness, true
	}
	return "", false
}

func (c TaxpayerClass) Valid() bool {
	return c == TaxpayerIndividual || c == TaxpayerBusiness
}

// TaxType returns the record API tax type for the class
func (c TaxpayerClass) TaxType() string {
	if c == TaxpayerBusiness {
		return TaxTypeCIT
	}
	return TaxTypePIT
}

func (c TaxpayerClass) String() string {
	return string(c)
}
