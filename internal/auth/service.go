package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/brahmamatch/server/internal/logging"
	"github.com/brahmamatch/server/internal/model"
	"github.com/brahmamatch/server/internal/phone"
	"github.com/brahmamatch/server/internal/verify"
)

// Service orchestrates the send/verify flows: normalization, the provider
// gateway, identity reconciliation and token issuance.
type Service struct {
	provider    verify.Provider
	tokens      *TokenService
	reconciler  *Reconciler
	countryCode string
	logger      zerolog.Logger
}

// NewService creates the auth service.
func NewService(provider verify.Provider, tokens *TokenService, reconciler *Reconciler, countryCode string, logger zerolog.Logger) *Service {
	return &Service{
		provider:    provider,
		tokens:      tokens,
		reconciler:  reconciler,
		countryCode: countryCode,
		logger:      logger,
	}
}

// Normalize maps raw phone input through the configured default country code.
func (s *Service) Normalize(raw string) string {
	return phone.Normalize(raw, s.countryCode)
}

// SendOTP upserts the identity placeholder and asks the provider to dispatch
// a code. Returns the provider's delivery status ("pending" on success).
func (s *Service) SendOTP(ctx context.Context, rawPhone string) (string, error) {
	normalized := s.Normalize(rawPhone)
	now := time.Now().UTC()

	if err := s.reconciler.InitiateSend(ctx, normalized, now); err != nil {
		return "", fmt.Errorf("record send attempt: %w", err)
	}

	status, err := s.provider.Initiate(ctx, normalized)
	if err != nil {
		return "", err
	}

	s.logger.Info().
		Str("phone", logging.MaskPhone(normalized)).
		Str("status", status).
		Msg("otp send attempted")
	return status, nil
}

// VerifyOTP checks the code with the provider, reconciles the identity and
// issues a session token. Provider failures are not retried; resubmitting a
// consumed code is the client's call.
func (s *Service) VerifyOTP(ctx context.Context, rawPhone, code string) (model.Identity, string, error) {
	normalized := s.Normalize(rawPhone)
	now := time.Now().UTC()

	approved, err := s.provider.Check(ctx, normalized, code)
	if err != nil {
		return model.Identity{}, "", err
	}

	ident, err := s.reconciler.CompleteVerification(ctx, normalized, approved, now)
	if err != nil {
		return model.Identity{}, "", err
	}

	token, err := s.tokens.Issue(normalized)
	if err != nil {
		return model.Identity{}, "", fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info().
		Str("phone", logging.MaskPhone(normalized)).
		Msg("verification approved, session issued")
	return ident, token, nil
}
