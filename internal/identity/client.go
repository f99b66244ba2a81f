// Package identity is the outbound client for the identity service: account
// creation, credential login, and admin-side account lookup.
//
// Responses are passed through to callers verbatim on success. Failures keep
// the raw upstream body attached so classification happens in one place, the
// upstream translator.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	dErrors "keeply/pkg/domain-errors"
	"keeply/pkg/platform/httputil"
	"keeply/pkg/platform/retry"
	"keeply/pkg/platform/sentinel"

	"keeply/internal/platform/config"
	"keeply/internal/upstream"
	"keeply/internal/registration/models"
)

const (
	signupPath    = "/auth/v1/signup"
	tokenPath     = "/auth/v1/token?grant_type=password"
	adminUserPath = "/auth/v1/admin/users/"
)

// Client talks to the identity service. Signup and Login authenticate with
// the public anon key; the admin lookup uses the service-role key.
type Client struct {
	baseURL    string
	anonKey    string
	serviceKey string
	httpClient *http.Client
	policy     retry.Policy
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport, for tests and custom timeouts.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryPolicy replaces the transient-failure policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// NewClient builds a Client from the identity configuration.
func NewClient(cfg config.Identity, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    cfg.URL,
		anonKey:    cfg.AnonKey,
		serviceKey: cfg.ServiceKey,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		policy:     retry.Policy{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Signup creates an identity account. Profile fields travel as signup
// metadata so the identity service stores them with the account from the
// start; blank optionals are sent as explicit nulls.
func (c *Client) Signup(ctx context.Context, reg models.NormalizedRegistration, legal models.LegalVersions) (*models.Account, error) {
	payload := map[string]any{
		"email":    reg.Email,
		"password": reg.Password,
		"data": map[string]any{
			"full_name":               reg.FullName,
			"cpf":                     nullable(reg.CPF),
			"phone_number":            nullable(reg.PhoneNumber),
			"birth_date":              nullable(reg.BirthDate),
			"accepted_terms":          reg.AcceptedTerms,
			"accepted_terms_version":  legal.Terms,
			"accepted_privacy_policy": reg.AcceptedPrivacyPolicy,
			"privacy_policy_version":  legal.Privacy,
		},
	}

	body, err := retry.Do(ctx, c.policy, func(ctx context.Context) ([]byte, error) {
		return c.post(ctx, signupPath, c.anonKey, payload)
	})
	if err != nil {
		return nil, c.classify(ctx, err, "Falha de rede ao criar usuário no Supabase.")
	}

	parsed, err := parseObject(body, "Supabase retornou resposta inválida no cadastro.")
	if err != nil {
		return nil, err
	}
	return &models.Account{ID: accountID(parsed), Body: parsed}, nil
}

// Login exchanges credentials for a session. The response body is returned
// to the caller exactly as the identity service produced it.
func (c *Client) Login(ctx context.Context, email, password string) (map[string]any, error) {
	payload := map[string]any{"email": email, "password": password}

	body, err := retry.Do(ctx, c.policy, func(ctx context.Context) ([]byte, error) {
		return c.post(ctx, tokenPath, c.anonKey, payload)
	})
	if err != nil {
		return nil, c.classify(ctx, err, "Falha de rede ao autenticar no Supabase.")
	}
	return parseObject(body, "Supabase retornou resposta inválida no login.")
}

// FetchUser probes the admin endpoint for an account id. It returns nil when
// the account is visible, sentinel.ErrNotFound on 404, and the raw transport
// or status error otherwise; interpreting anything beyond the 404 is the
// caller's business.
func (c *Client) FetchUser(ctx context.Context, accountID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+adminUserPath+url.PathEscape(accountID), nil)
	if err != nil {
		return fmt.Errorf("identity: build request: %w", err)
	}
	c.authorize(req, c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return sentinel.ErrNotFound
	default:
		return &httputil.StatusError{Status: resp.StatusCode, Body: body}
	}
}

// maxBodySize bounds upstream bodies read into memory.
const maxBodySize = 1 << 20

func (c *Client) post(ctx context.Context, path, key string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("identity: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("identity: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req, key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("identity: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httputil.StatusError{Status: resp.StatusCode, Body: body}
	}
	return body, nil
}

func (c *Client) authorize(req *http.Request, key string) {
	req.Header.Set("apikey", key)
	req.Header.Set("Authorization", "Bearer "+key)
}

// classify routes a final non-2xx status through the shared translator and
// wraps transport failures as network errors with a stable caller message.
func (c *Client) classify(ctx context.Context, err error, networkMsg string) error {
	var se *httputil.StatusError
	if errors.As(err, &se) {
		return upstream.IdentityError(se)
	}
	c.logger.WarnContext(ctx, "identity call failed at transport level", "error", err)
	return dErrors.Wrap(err, dErrors.CodeNetworkFailure, networkMsg)
}

func parseObject(body []byte, protocolMsg string) (map[string]any, error) {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil || parsed == nil {
		return nil, dErrors.New(dErrors.CodeUpstreamProtocol, protocolMsg)
	}
	return parsed, nil
}

// accountID digs the created account's id out of the signup response. The
// identity service nests it under "user" in session responses and at the top
// level when email confirmation is pending, so both spots are checked.
func accountID(body map[string]any) string {
	if user, ok := body["user"].(map[string]any); ok {
		if id, ok := user["id"].(string); ok && id != "" {
			return id
		}
	}
	if id, ok := body["id"].(string); ok {
		return id
	}
	return ""
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
