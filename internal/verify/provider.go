package verify

import (
	"context"
	"errors"
)

// StatusPending is what a healthy provider reports after dispatching a code.
const StatusPending = "pending"

var (
	// ErrProviderUnavailable indicates the provider could not be reached or is
	// misconfigured. Surfaces as a server-side failure.
	ErrProviderUnavailable = errors.New("verification provider unavailable")

	// ErrProviderRejected indicates the provider rejected the request itself:
	// bad number, unsupported region, malformed or already-consumed code. This
	// is distinct from a clean not-approved check result.
	ErrProviderRejected = errors.New("verification provider rejected request")
)

// Provider dispatches and checks one-time codes. Implementations hold no
// local verification state; every call is a pass-through to the external
// service with a mapped error taxonomy.
type Provider interface {
	// Initiate asks the provider to send a code to the phone and returns the
	// provider's delivery status (normally "pending").
	Initiate(ctx context.Context, phone string) (status string, err error)

	// Check validates a submitted code. A wrong code is (false, nil), not an
	// error; errors mean the check itself could not be performed.
	Check(ctx context.Context, phone, code string) (approved bool, err error)
}
