package account

import (
	"context"

	"github.com/barangay/egov/internal/platform/apiclient"
)

// API is the account area of the backend.
type API struct {
	c *apiclient.Client
}

func NewAPI(c *apiclient.Client) *API {
	return &API{c: c}
}

// SendCode asks the backend to text a code to phone. The response body is
// discarded so a code echoed back by the backend never leaves this package.
func (a *API) SendCode(ctx context.Context, phone string) error {
	return a.c.Post(ctx, "phone-verification", SendRequest{Phone: phone}, nil)
}

func (a *API) VerifyCode(ctx context.Context, r VerifyRequest) (Verification, error) {
	var out struct {
		Verified bool `json:"verified"`
	}
	if err := a.c.Post(ctx, "phone-verification/verify", r, &out); err != nil {
		return Verification{}, err
	}
	return Verification{Phone: r.Phone, Verified: out.Verified}, nil
}
