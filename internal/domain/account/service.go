package account

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/query"
)

// DefaultCooldown is the wait between two codes sent to one phone.
const DefaultCooldown = 60 * time.Second

type Error struct {
	Code int
	Msg  string
}

func (e *Error) Error() string   { return e.Msg }
func (e *Error) StatusCode() int { return e.Code }

// ErrCodeRejected is returned when the backend does not accept the code.
var ErrCodeRejected = &Error{Code: http.StatusUnprocessableEntity, Msg: "the verification code is incorrect or has expired"}

// CooldownError is returned when a code was sent to the phone too recently.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("please wait %d seconds before requesting another code", seconds(e.RetryAfter))
}

func (e *CooldownError) StatusCode() int { return http.StatusTooManyRequests }

func seconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

// Service proxies phone verification. Codes are checked by the backend only.
type Service struct {
	api       *API
	cooldowns Cooldowns
	cooldown  time.Duration
	now       func() time.Time
}

func NewService(api *API, cooldowns Cooldowns, cooldown time.Duration) *Service {
	if cooldowns == nil {
		cooldowns = NewMemoryCooldowns()
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Service{api: api, cooldowns: cooldowns, cooldown: cooldown, now: time.Now}
}

// SendCode texts a verification code unless the phone is still cooling down.
// A failed send does not start the cooldown.
func (s *Service) SendCode(ctx context.Context, ac *appctx.Context, r SendRequest) (Sent, error) {
	r = r.Normalize()
	if err := r.Validate().Err(); err != nil {
		return Sent{}, err
	}
	now := s.now()
	wait, err := s.cooldowns.Reserve(ctx, r.Phone, now, s.cooldown)
	if err != nil {
		return Sent{}, err
	}
	if wait > 0 {
		return Sent{}, &CooldownError{RetryAfter: wait}
	}
	_, err = query.Mutate(ctx, ac.Query, ac.Toasts, query.Mutation[string, struct{}]{
		Resource: ResourceVerification,
		Do: func(ctx context.Context, phone string) (struct{}, error) {
			return struct{}{}, s.api.SendCode(ctx, phone)
		},
		Success: "Verification code sent",
		Failure: "Failed to send verification code. Please try again.",
	}, r.Phone)
	if err != nil {
		if rerr := s.cooldowns.Release(ctx, r.Phone, now); rerr != nil {
			ac.Logger.Warn().Err(rerr).Str("phone", r.Phone).Msg("release otp cooldown")
		}
		return Sent{}, err
	}
	ac.Logger.Info().Str("phone", r.Phone).Msg("verification code sent")
	return Sent{Phone: r.Phone, RetryAfterSecs: seconds(s.cooldown)}, nil
}

// VerifyCode forwards the code to the backend and reports its verdict.
func (s *Service) VerifyCode(ctx context.Context, ac *appctx.Context, r VerifyRequest) (Verification, error) {
	r = r.Normalize()
	if err := r.Validate().Err(); err != nil {
		return Verification{}, err
	}
	v, err := query.Mutate(ctx, ac.Query, ac.Toasts, query.Mutation[VerifyRequest, Verification]{
		Resource: ResourceVerification,
		Do:       s.api.VerifyCode,
		Failure:  "Failed to verify the code. Please try again.",
	}, r)
	if err != nil {
		return Verification{}, err
	}
	if !v.Verified {
		ac.Toasts.Error("The verification code is incorrect or has expired.")
		return v, ErrCodeRejected
	}
	ac.Toasts.Success("Phone number verified")
	return v, nil
}
