package sync

import (
	"fmt"
	"strings"
)

// ZoneResolutionError indicates the regional zone for a tenant could not be
// determined. It is fatal for the run and is never retried at this layer.
type ZoneResolutionError struct {
	TenantID string
	Cause    error
}

func (e *ZoneResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve zone for tenant %s: %v", e.TenantID, e.Cause)
}

func (e *ZoneResolutionError) Unwrap() error { return e.Cause }

// AuthError indicates a session could not be acquired after trying at most
// two endpoint variants. VendorMessage carries the last diagnostic message
// returned by the vendor so callers can suggest corrective action
// (e.g. "this looks like a production key, use the other credential type").
type AuthError struct {
	VendorMessage string
	Variant       Variant
	Cause         error
}

func (e *AuthError) Error() string {
	if e.VendorMessage != "" {
		return fmt.Sprintf("login failed on %s variant: %s", e.Variant, e.VendorMessage)
	}
	return fmt.Sprintf("login failed on %s variant: %v", e.Variant, e.Cause)
}

func (e *AuthError) Unwrap() error { return e.Cause }

// MissingRequiredFieldError indicates one or more required target fields have
// no source column mapped to them. The run must not start in this state.
type MissingRequiredFieldError struct {
	Fields []string
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("required fields have no mapped source column: %s", strings.Join(e.Fields, ", "))
}

// QuotaExceededError indicates the record set exceeds the vendor's per-run
// upload quota. Raised before any network call is made.
type QuotaExceededError struct {
	Records int
	Limit   int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("record count %d exceeds per-run quota of %d", e.Records, e.Limit)
}
