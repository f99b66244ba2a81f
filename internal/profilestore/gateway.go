// Package profilestore persists the registration profile row through a
// PostgREST-style endpoint.
//
// Persistence runs as a two-phase sequence that absorbs the identity
// service's replication lag. Phase one polls the admin lookup until the
// account is visible; phase two upserts the row, retrying only on the
// foreign-key race where the profile schema has not yet seen the account.
// Each phase is bounded and never re-entered.
package profilestore

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
	"strings"
	"time"

	dErrors "keeply/pkg/domain-errors"
	"keeply/pkg/platform/httputil"
	"keeply/pkg/platform/retry"
	"keeply/pkg/platform/sentinel"

	"keeply/internal/registration/models"
	"keeply/internal/upstream"
)

const (
	upsertPath = "/rest/v1/auth_info?on_conflict=id"

	maxVisibilityChecks = 10
	visibilityBaseDelay = 120 * time.Millisecond

	maxUpsertAttempts = 5
	upsertBaseDelay   = 150 * time.Millisecond

	maxBodySize = 1 << 20
)

// VisibilityChecker reports whether an identity account can be seen by the
// admin surface yet: nil means visible, sentinel.ErrNotFound means not yet.
type VisibilityChecker interface {
	FetchUser(ctx context.Context, accountID string) error
}

// Gateway writes profile rows keyed by identity account id.
type Gateway struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	visibility VisibilityChecker
	logger     *slog.Logger
	sleep      retry.SleepFunc
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *Gateway) { g.httpClient = hc }
}

// WithSleep replaces the inter-attempt sleep, for tests.
func WithSleep(sleep retry.SleepFunc) Option {
	return func(g *Gateway) { g.sleep = sleep }
}

// NewGateway builds a Gateway. The visibility checker is the identity
// client's admin lookup.
func NewGateway(baseURL, serviceKey string, visibility VisibilityChecker, logger *slog.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		visibility: visibility,
		logger:     logger,
		sleep:      retry.Sleep,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Upsert persists rec after the owning account becomes visible. On success
// the row is in place. On failure the returned error carries the caller
// classification; a still-converging error means the account exists but the
// row could not be confirmed in time.
func (g *Gateway) Upsert(ctx context.Context, rec models.ProfileRecord) error {
	if err := g.waitUntilVisible(ctx, rec.ID); err != nil {
		return err
	}
	return g.upsertWithRetry(ctx, rec)
}

// waitUntilVisible polls the admin lookup with a linearly growing delay.
// Any response other than a 404 counts as visible: a degraded admin surface
// must not block persistence, the upsert itself will surface real problems.
func (g *Gateway) waitUntilVisible(ctx context.Context, accountID string) error {
	for attempt := 1; attempt <= maxVisibilityChecks; attempt++ {
		err := g.visibility.FetchUser(ctx, accountID)
		if err == nil {
			return nil
		}

		if errors.Is(err, sentinel.ErrNotFound) {
			if attempt == maxVisibilityChecks {
				g.logger.WarnContext(ctx, "account never became visible",
					"account_id", accountID, "checks", maxVisibilityChecks)
				return dErrors.New(dErrors.CodeStillConverging,
					"Usuário ainda não disponível no Auth. Tente novamente em alguns segundos.").
					WithStatus(http.StatusBadGateway)
			}
			if serr := g.sleep(ctx, time.Duration(attempt)*visibilityBaseDelay); serr != nil {
				return serr
			}
			continue
		}

		var se *httputil.StatusError
		if errors.As(err, &se) {
			g.logger.WarnContext(ctx, "visibility check returned unexpected status, proceeding",
				"account_id", accountID, "status", se.Status)
			return nil
		}

		if attempt == maxVisibilityChecks {
			return dErrors.Wrap(err, dErrors.CodeNetworkFailure,
				"Falha de rede ao confirmar criação do usuário no Auth.")
		}
		if serr := g.sleep(ctx, time.Duration(attempt)*visibilityBaseDelay); serr != nil {
			return serr
		}
	}
	return nil
}

// upsertWithRetry sends the row, retrying only the foreign-key violation
// that means the account row has not replicated into the profile schema yet.
// Every other failure is terminal on first sight.
func (g *Gateway) upsertWithRetry(ctx context.Context, rec models.ProfileRecord) error {
	for attempt := 1; attempt <= maxUpsertAttempts; attempt++ {
		err := g.doUpsert(ctx, rec)
		if err == nil {
			return nil
		}

		var se *httputil.StatusError
		if errors.As(err, &se) {
			if isAccountFKViolation(se.Body) && attempt < maxUpsertAttempts {
				g.logger.InfoContext(ctx, "profile row raced account replication, retrying",
					"account_id", rec.ID, "attempt", attempt)
				if serr := g.sleep(ctx, time.Duration(attempt)*upsertBaseDelay); serr != nil {
					return serr
				}
				continue
			}
			return upstream.StoreError(se)
		}

		if attempt == maxUpsertAttempts {
			return dErrors.Wrap(err, dErrors.CodeNetworkFailure,
				"Falha de rede ao persistir auth_info.")
		}
		if serr := g.sleep(ctx, time.Duration(attempt)*upsertBaseDelay); serr != nil {
			return serr
		}
	}
	return nil
}

// Status reports whether the profile row landed. A missing row means a
// degraded registration whose persistence has not caught up yet.
type Status struct {
	Exists           bool
	ProfileCompleted bool
}

// Fetch reads the row for an account id.
func (g *Gateway) Fetch(ctx context.Context, accountID string) (Status, error) {
	u := g.baseURL + "/rest/v1/auth_info?select=id,profile_completed&id=eq." + url.QueryEscape(accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Status{}, fmt.Errorf("profilestore: build request: %w", err)
	}
	req.Header.Set("apikey", g.serviceKey)
	req.Header.Set("Authorization", "Bearer "+g.serviceKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Status{}, dErrors.Wrap(err, dErrors.CodeNetworkFailure,
			"Falha de rede ao consultar auth_info.")
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Status{}, upstream.StoreError(&httputil.StatusError{Status: resp.StatusCode, Body: body})
	}

	var rows []struct {
		ID               string `json:"id"`
		ProfileCompleted bool   `json:"profile_completed"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return Status{}, dErrors.New(dErrors.CodeUpstreamProtocol,
			"Resposta inválida ao consultar auth_info.")
	}
	if len(rows) == 0 {
		return Status{Exists: false}, nil
	}
	return Status{Exists: true, ProfileCompleted: rows[0].ProfileCompleted}, nil
}

func (g *Gateway) doUpsert(ctx context.Context, rec models.ProfileRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("profilestore: encode row: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+upsertPath, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("profilestore: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", g.serviceKey)
	req.Header.Set("Authorization", "Bearer "+g.serviceKey)
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httputil.StatusError{Status: resp.StatusCode, Body: body}
	}
	return nil
}

func isAccountFKViolation(body []byte) bool {
	return strings.Contains(strings.ToLower(string(body)), "auth_info_id_fkey")
}
