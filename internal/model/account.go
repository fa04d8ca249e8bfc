package model

// Credentials is the body of POST /auth/sign_in
type Credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SignUpRequest is the body of POST /auth/sign_up/{accountType}
type SignUpRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=6"`
	Income       string `json:"income,omitempty"`
	TIN          string `json:"tin,omitempty"`
	BusinessType string `json:"businessType,omitempty"`
}

// ProfileUpdate is the body of PATCH /auth/{accountType}/profile
type ProfileUpdate struct {
	Fullname          string `json:"fullname" binding:"required"`
	AnnualIncomeRange string `json:"annualIncomeRange,omitempty"`
	TIN               string `json:"tin,omitempty"`
}

// ReminderPreference is the body of PUT /auth/preferences/reminders
type ReminderPreference struct {
	TaxReminder bool `json:"tax_reminder"`
}
