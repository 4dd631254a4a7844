package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brahmamatch/server/internal/logging"
	"github.com/brahmamatch/server/internal/repo"
	"github.com/brahmamatch/server/internal/verify"
)

func newTestService(t *testing.T, provider verify.Provider) (*Service, repo.IdentityRepo) {
	t.Helper()
	identities := repo.NewMemoryIdentityRepo()
	tokens, err := NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)
	svc := NewService(provider, tokens, NewReconciler(identities), "+91", logging.Discard())
	return svc, identities
}

func TestSendOTPNormalizesAndRecords(t *testing.T) {
	svc, identities := newTestService(t, verify.NewStaticProvider(""))
	ctx := context.Background()

	status, err := svc.SendOTP(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, verify.StatusPending, status)

	ident, err := identities.GetByPhone(ctx, "+919876543210")
	require.NoError(t, err)
	assert.False(t, ident.IsVerified)
}

func TestVerifyOTPApprovedIssuesToken(t *testing.T) {
	svc, _ := newTestService(t, verify.NewStaticProvider(""))
	ctx := context.Background()

	_, err := svc.SendOTP(ctx, "9876543210")
	require.NoError(t, err)

	ident, token, err := svc.VerifyOTP(ctx, "9876543210", verify.DevCode)
	require.NoError(t, err)
	require.True(t, ident.HasUserID())
	assert.True(t, ident.IsVerified)

	subject, err := svc.tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "+919876543210", subject)
}

func TestVerifyOTPWrongCodeRejected(t *testing.T) {
	svc, identities := newTestService(t, verify.NewStaticProvider(""))
	ctx := context.Background()

	_, err := svc.SendOTP(ctx, "9876543210")
	require.NoError(t, err)

	_, _, err = svc.VerifyOTP(ctx, "9876543210", "000000")
	assert.ErrorIs(t, err, ErrVerificationRejected)

	ident, err := identities.GetByPhone(ctx, "+919876543210")
	require.NoError(t, err)
	assert.False(t, ident.IsVerified)
	assert.False(t, ident.HasUserID())
}

type failingProvider struct{ err error }

func (f failingProvider) Initiate(context.Context, string) (string, error) { return "", f.err }
func (f failingProvider) Check(context.Context, string, string) (bool, error) {
	return false, f.err
}

func TestSendOTPProviderFailurePropagates(t *testing.T) {
	svc, identities := newTestService(t, failingProvider{err: verify.ErrProviderUnavailable})
	ctx := context.Background()

	_, err := svc.SendOTP(ctx, "9876543210")
	assert.True(t, errors.Is(err, verify.ErrProviderUnavailable))

	// The send-attempt upsert is already applied and idempotent; that is the
	// only state left behind.
	ident, err := identities.GetByPhone(ctx, "+919876543210")
	require.NoError(t, err)
	assert.False(t, ident.IsVerified)
}

func TestVerifyOTPProviderErrorNotRetried(t *testing.T) {
	svc, identities := newTestService(t, failingProvider{err: verify.ErrProviderRejected})
	ctx := context.Background()

	_, _, err := svc.VerifyOTP(ctx, "9876543210", "123456")
	assert.True(t, errors.Is(err, verify.ErrProviderRejected))

	_, err = identities.GetByPhone(ctx, "+919876543210")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}
