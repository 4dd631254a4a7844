package verify

import "context"

// DevCode is the code the static provider accepts.
const DevCode = "123456"

// StaticProvider approves a single fixed code without contacting any external
// service. Used in OTP_DEV_MODE and in tests.
type StaticProvider struct {
	code string
}

// NewStaticProvider returns a provider accepting only the given code, or
// DevCode when empty.
func NewStaticProvider(code string) *StaticProvider {
	if code == "" {
		code = DevCode
	}
	return &StaticProvider{code: code}
}

func (s *StaticProvider) Initiate(_ context.Context, _ string) (string, error) {
	return StatusPending, nil
}

func (s *StaticProvider) Check(_ context.Context, _ string, code string) (bool, error) {
	return code == s.code, nil
}
