package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTaxpayerClass(t *testing.T) {
	tests := []struct {
		in   string
		want TaxpayerClass
		ok   bool
	}{
		{"individual", TaxpayerIndividual, true},
		{" Business ", TaxpayerBusiness, true},
		{"COMPANY", TaxpayerBusiness, true},
		{"personal", TaxpayerIndividual, true},
		{"user", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseTaxpayerClass(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestTaxpayerClass_TaxType(t *testing.T) {
	assert.Equal(t, TaxTypePIT, TaxpayerIndividual.TaxType())
	assert.Equal(t, TaxTypeCIT, TaxpayerBusiness.TaxType())
	assert.False(t, TaxpayerClass("other").Valid())
}

func TestNewIdentity_Spellings(t *testing.T) {
	a := NewIdentity(UpstreamLoginResponse{
		Token: "t",
		User:  Fields{"_id": "u1", "fullName": "Ada", "account_type": "business"},
	})
	b := NewIdentity(UpstreamLoginResponse{
		Token: "t",
		User:  Fields{"id": "u1", "name": "Ada", "role": "business"},
	})

	assert.Equal(t, a, b)
	assert.Equal(t, Identity{UserID: "u1", DisplayName: "Ada", TaxpayerClass: TaxpayerBusiness, AuthToken: "t"}, a)
}

func TestNewIdentity_Defaults(t *testing.T) {
	id := NewIdentity(UpstreamLoginResponse{User: Fields{"role": "admin"}})

	assert.Equal(t, DefaultIdentity(), id)
	assert.False(t, id.Authenticated())
}

func TestResolveDisplayName_Priority(t *testing.T) {
	record := Fields{"username": "ada99", "fullname": "Ada Lovelace"}

	assert.Equal(t, "Ada Lovelace", ResolveDisplayName(record, "legacy"))
	assert.Equal(t, "legacy", ResolveDisplayName(nil, "", "legacy"))
	assert.Equal(t, DefaultDisplayName, ResolveDisplayName(nil))
}

func TestUpstreamLoginResponse_AccessToken(t *testing.T) {
	r := UpstreamLoginResponse{Data: Fields{"accessToken": "at"}}
	assert.Equal(t, "at", r.AuthToken())
	assert.Empty(t, r.UserFields())
}
