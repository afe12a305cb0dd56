package app

import (
	"strings"

	"github.com/eventpress/eventpress/internal/services"
)

// ClaimOptions converts StaffConfig into claim flow options. A non-positive
// verification.max_attempts disables the attempt cap; zero durations keep the flow defaults.
func (c StaffConfig) ClaimOptions() []services.ClaimOption {
	return []services.ClaimOption{
		services.WithClaimExpiryEnforcement(c.EnforceExpiry),
		services.WithClaimSessionTTL(c.ClaimSessionTTL),
		services.WithClaimAttemptLimit(c.Verification.MaxAttempts, c.Verification.Window),
	}
}

// NotifierBaseURL returns the public base URL used in claim links, without a trailing slash.
func (c StaffConfig) NotifierBaseURL() string {
	return strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
}
