package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/leasedesk/leasedesk/internal/config"
)

const (
	defaultStripeBaseURL = "https://api.stripe.com"

	// Signatures older than this are rejected to blunt replay.
	signatureTolerance = 5 * time.Minute
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// StripeProvider talks to the Stripe REST API directly: form-encoded session
// creation and HMAC-SHA256 webhook verification over "t.payload" against the
// v1 signatures.
type StripeProvider struct {
	secretKey     string
	webhookSecret string
	successURL    string
	cancelURL     string
	baseURL       string
	httpClient    *http.Client
	now           func() time.Time
}

type StripeOption func(*StripeProvider)

// WithStripeBaseURL points the provider at a different API host, used in tests.
func WithStripeBaseURL(url string) StripeOption {
	return func(p *StripeProvider) { p.baseURL = url }
}

func NewStripeProvider(cfg config.StripeConfig, opts ...StripeOption) *StripeProvider {
	p := &StripeProvider{
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		baseURL:       defaultStripeBaseURL,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, email, priceID string) (string, error) {
	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("success_url", p.successURL)
	form.Set("cancel_url", p.cancelURL)
	form.Set("customer_email", email)
	form.Set("line_items[0][price]", priceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("allow_promotion_codes", "true")

	return p.createSession(ctx, "/v1/checkout/sessions", form)
}

func (p *StripeProvider) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("return_url", p.successURL)

	return p.createSession(ctx, "/v1/billing_portal/sessions", form)
}

func (p *StripeProvider) createSession(ctx context.Context, path string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling stripe: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading stripe response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("stripe returned status %d: %s", resp.StatusCode, body)
	}

	var session struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &session); err != nil {
		return "", fmt.Errorf("decoding stripe session: %w", err)
	}
	if session.URL == "" {
		return "", fmt.Errorf("stripe session has no url")
	}
	return session.URL, nil
}

func (p *StripeProvider) VerifyWebhook(payload []byte, sigHeader string) error {
	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return ErrInvalidSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	age := p.now().Sub(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return ErrInvalidSignature
	}

	signed := timestamp + "." + string(payload)
	mac := hmac.New(sha256.New, []byte(p.webhookSecret))
	mac.Write([]byte(signed))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return ErrInvalidSignature
}

func parseSignatureHeader(header string) (string, []string, error) {
	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		switch strings.TrimSpace(keyValue[0]) {
		case "t":
			timestamp = strings.TrimSpace(keyValue[1])
		case "v1":
			signatures = append(signatures, strings.TrimSpace(keyValue[1]))
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("malformed signature header")
	}
	return timestamp, signatures, nil
}

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type stripeObject struct {
	Customer        string `json:"customer"`
	CustomerEmail   string `json:"customer_email"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	Items struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

func (p *StripeProvider) ParseEvent(payload []byte) (*Event, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decoding webhook payload: %w", err)
	}
	if event.ID == "" || event.Type == "" {
		return nil, fmt.Errorf("webhook payload missing id or type")
	}

	var obj stripeObject
	if len(event.Data.Object) > 0 {
		if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
			return nil, fmt.Errorf("decoding event object: %w", err)
		}
	}

	out := &Event{
		Type:          event.Type,
		CustomerID:    obj.Customer,
		CustomerEmail: obj.CustomerEmail,
	}
	if out.CustomerEmail == "" {
		out.CustomerEmail = obj.CustomerDetails.Email
	}
	if len(obj.Items.Data) > 0 {
		out.PriceID = obj.Items.Data[0].Price.ID
	}
	return out, nil
}
