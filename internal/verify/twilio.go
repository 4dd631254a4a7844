package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/brahmamatch/server/internal/logging"
)

const (
	defaultBaseURL = "https://verify.twilio.com/v2"
	statusApproved = "approved"
)

// TwilioVerify implements Provider against the Twilio Verify v2 REST API.
type TwilioVerify struct {
	accountSID string
	authToken  string
	serviceSID string
	baseURL    string
	client     *http.Client
	logger     zerolog.Logger
}

// NewTwilioVerify creates a Twilio Verify gateway. All three identifiers are
// required; config enforces this at startup.
func NewTwilioVerify(accountSID, authToken, serviceSID string, logger zerolog.Logger) *TwilioVerify {
	return &TwilioVerify{
		accountSID: accountSID,
		authToken:  authToken,
		serviceSID: serviceSID,
		baseURL:    defaultBaseURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// verificationResponse is the subset of Twilio's response body we consume.
type verificationResponse struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Initiate starts a verification for the phone over the sms channel.
func (t *TwilioVerify) Initiate(ctx context.Context, phone string) (string, error) {
	form := url.Values{}
	form.Set("To", phone)
	form.Set("Channel", "sms")

	res, err := t.post(ctx, t.baseURL+"/Services/"+t.serviceSID+"/Verifications", form)
	if err != nil {
		return "", err
	}

	t.logger.Debug().
		Str("phone", logging.MaskPhone(phone)).
		Str("status", res.Status).
		Msg("verification initiated")
	return res.Status, nil
}

// Check submits a code for verification. Any status other than "approved" is
// a clean not-approved result.
func (t *TwilioVerify) Check(ctx context.Context, phone, code string) (bool, error) {
	form := url.Values{}
	form.Set("To", phone)
	form.Set("Code", code)

	res, err := t.post(ctx, t.baseURL+"/Services/"+t.serviceSID+"/VerificationCheck", form)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(res.Status, statusApproved), nil
}

// post performs one authenticated form POST and maps transport and API errors
// onto the provider error taxonomy.
func (t *TwilioVerify) post(ctx context.Context, endpoint string, form url.Values) (*verificationResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrProviderUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.accountSID, t.authToken)

	resp, err := t.client.Do(req)
	if err != nil {
		// Timeouts and connection failures leave no partial state behind.
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	var body verificationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil && resp.StatusCode < 300 {
		return nil, fmt.Errorf("%w: decode response: %v", ErrProviderUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return &body, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		t.logger.Warn().
			Int("http_status", resp.StatusCode).
			Int("twilio_code", body.Code).
			Msg("twilio rejected verification request")
		return nil, fmt.Errorf("%w: twilio code %d", ErrProviderRejected, body.Code)
	default:
		return nil, fmt.Errorf("%w: twilio http %d", ErrProviderUnavailable, resp.StatusCode)
	}
}
