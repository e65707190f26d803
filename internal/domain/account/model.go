package account

import (
	"regexp"
	"strings"

	"github.com/barangay/egov/internal/platform/validate"
)

// ResourceVerification is the mutation family for phone verification.
const ResourceVerification = "account.phone_verification"

var codePattern = regexp.MustCompile(`^\d{4,8}$`)

// SendRequest asks the backend to text a verification code.
type SendRequest struct {
	Phone string `json:"phone"`
}

func (r SendRequest) Normalize() SendRequest {
	r.Phone = validate.NormalizePhone(r.Phone)
	return r
}

func (r SendRequest) Validate() validate.Errors {
	e := validate.Errors{}
	if validate.Required(e, "phone", r.Phone) {
		validate.Phone(e, "phone", r.Phone)
	}
	return e
}

// VerifyRequest carries the code the user typed. It is forwarded to the
// backend as-is and never compared here.
type VerifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"otp"`
}

func (r VerifyRequest) Normalize() VerifyRequest {
	r.Phone = validate.NormalizePhone(r.Phone)
	r.Code = strings.TrimSpace(r.Code)
	return r
}

func (r VerifyRequest) Validate() validate.Errors {
	e := validate.Errors{}
	if validate.Required(e, "phone", r.Phone) {
		validate.Phone(e, "phone", r.Phone)
	}
	if validate.Required(e, "otp", r.Code) && !codePattern.MatchString(r.Code) {
		e.Add("otp", "Enter the code from the text message")
	}
	return e
}

// Sent is returned after a code was sent. It never includes the code.
type Sent struct {
	Phone          string `json:"phone"`
	RetryAfterSecs int    `json:"retry_after_seconds"`
}

// Verification is the backend's verdict on a code.
type Verification struct {
	Phone    string `json:"phone"`
	Verified bool   `json:"verified"`
}
