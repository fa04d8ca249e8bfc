package model

// DefaultDisplayName is shown when no upstream name field is present
const DefaultDisplayName = "User"

// Upstream field spellings, highest priority first
var (
	UserIDKeys      = []string{"id", "_id", "userId"}
	DisplayNameKeys = []string{"fullname", "fullName", "name", "username"}
	ClassKeys       = []string{"accountType", "account_type", "role"}
	EmailKeys       = []string{"email"}
)

// Identity is the canonical authenticated user. It is the only source of the
// taxpayer class and user id used by calculations and submissions.
type Identity struct {
	UserID        string        `json:"user_id"`
	DisplayName   string        `json:"display_name"`
	TaxpayerClass TaxpayerClass `json:"taxpayer_class"`
	AuthToken     string        `json:"-"`
	Email         string        `json:"email,omitempty"`
}

// DefaultIdentity is the all-default shape returned when nothing is stored
func DefaultIdentity() Identity {
	return Identity{
		DisplayName:   DefaultDisplayName,
		TaxpayerClass: TaxpayerIndividual,
	}
}

// Authenticated reports whether the identity can make authenticated calls
func (i Identity) Authenticated() bool {
	return i.UserID != "" && i.AuthToken != ""
}

// UpstreamLoginResponse is the sign-in payload from the remote API.
// Older revisions nest token and user under data.
type UpstreamLoginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token,omitempty"`
	User    Fields `json:"user,omitempty"`
	Data    Fields `json:"data,omitempty"`
}

// UserFields returns the upstream user object wherever it was placed
func (r UpstreamLoginResponse) UserFields() Fields {
	if len(r.User) > 0 {
		return r.User
	}
	if u := r.Data.Object("user"); u != nil {
		return u
	}
	return Fields{}
}

// AuthToken returns the session token wherever it was placed
func (r UpstreamLoginResponse) AuthToken() string {
	return FirstNonEmpty(r.Token, r.Data.String("token", "accessToken"))
}

// ResolveUserID tries the record's id fields, then legacy scalar values
func ResolveUserID(record Fields, legacy ...string) string {
	return FirstNonEmpty(append([]string{record.String(UserIDKeys...)}, legacy...)...)
}

// ResolveDisplayName tries the record's name fields, then legacy scalar values, then "User"
func ResolveDisplayName(record Fields, legacy ...string) string {
	name := FirstNonEmpty(append([]string{record.String(DisplayNameKeys...)}, legacy...)...)
	if name == "" {
		return DefaultDisplayName
	}
	return name
}

// ResolveTaxpayerClass returns the first value that names a known class.
// Values such as a "user" role are skipped rather than trusted.
func ResolveTaxpayerClass(record Fields, legacy ...string) TaxpayerClass {
	for _, k := range ClassKeys {
		if c, ok := ParseTaxpayerClass(record.String(k)); ok {
			return c
		}
	}
	for _, v := range legacy {
		if c, ok := ParseTaxpayerClass(v); ok {
			return c
		}
	}
	return TaxpayerIndividual
}

// ResolveEmail tries the record's email, then legacy scalar values
func ResolveEmail(record Fields, legacy ...string) string {
	return FirstNonEmpty(append([]string{record.String(EmailKeys...)}, legacy...)...)
}

// NewIdentity normalizes an upstream login payload
func NewIdentity(raw UpstreamLoginResponse) Identity {
	user := raw.UserFields()
	return Identity{
		UserID:        ResolveUserID(user),
		DisplayName:   ResolveDisplayName(user),
		TaxpayerClass: ResolveTaxpayerClass(user),
		AuthToken:     raw.AuthToken(),
		Email:         ResolveEmail(user),
	}
}
