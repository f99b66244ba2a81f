// Package service orchestrates registration: identity account creation
// first, profile persistence second, with the degraded-success rule in
// between. Once the identity account exists, no later failure in the profile
// phase may surface to the caller as a hard error unless it is terminal and
// attributable to the caller's data.
package service

import (
	"context"
	"log/slog"
	"maps"
	"time"

	dErrors "keeply/pkg/domain-errors"
	"keeply/pkg/requestcontext"

	"keeply/internal/audit"
	"keeply/internal/registration/metrics"
	"keeply/internal/registration/models"
)

// pendingMessage tells the caller the account exists and the profile is
// still being finalized.
const pendingMessage = "Cadastro criado. Finalização do perfil em processamento."

// IdentityGateway creates accounts and exchanges credentials.
type IdentityGateway interface {
	Signup(ctx context.Context, reg models.NormalizedRegistration, legal models.LegalVersions) (*models.Account, error)
	Login(ctx context.Context, email, password string) (map[string]any, error)
}

// ProfileStore persists the profile row once the account is visible.
type ProfileStore interface {
	Upsert(ctx context.Context, rec models.ProfileRecord) error
}

// Trail records attempt outcomes.
type Trail interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service is the registration orchestrator.
type Service struct {
	identity IdentityGateway
	profiles ProfileStore
	trail    Trail
	metrics  *metrics.Metrics
	legal    models.LegalVersions
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the consent-timestamp clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(identity IdentityGateway, profiles ProfileStore, trail Trail, m *metrics.Metrics, legal models.LegalVersions, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		identity: identity,
		profiles: profiles,
		trail:    trail,
		metrics:  m,
		legal:    legal,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register runs the full registration. The returned outcome's body is the
// identity service's signup response, augmented with a pending marker when
// profile persistence could not be confirmed in time.
func (s *Service) Register(ctx context.Context, req models.RegistrationRequest) (*models.Outcome, error) {
	started := s.now()
	reg := req.Normalize()

	account, err := s.identity.Signup(ctx, reg, s.legal)
	if err != nil {
		s.finishRegistration(ctx, started, audit.Event{Outcome: audit.OutcomeFailure, Email: reg.Email}, err)
		return nil, err
	}
	if account.ID == "" {
		err := dErrors.New(dErrors.CodeUpstreamProtocol,
			"Não foi possível obter o ID do usuário no Supabase.")
		s.finishRegistration(ctx, started, audit.Event{Outcome: audit.OutcomeFailure, Email: reg.Email}, err)
		return nil, err
	}

	rec := models.NewProfileRecord(account.ID, reg, s.legal, s.now().UTC())
	switch err := s.profiles.Upsert(ctx, rec); {
	case err == nil:
		s.finishRegistration(ctx, started, audit.Event{
			Outcome: audit.OutcomeSuccess, AccountID: account.ID, Email: reg.Email,
		}, nil)
		return &models.Outcome{Body: account.Body}, nil

	case dErrors.HasCode(err, dErrors.CodeStillConverging):
		// The account is real; the profile row will land on a later login
		// or a background reconciliation. Tell the caller it worked.
		s.logger.WarnContext(ctx, "profile persistence still converging, degrading to pending",
			"account_id", account.ID, "error", err)
		s.finishRegistration(ctx, started, audit.Event{
			Outcome: audit.OutcomePending, AccountID: account.ID, Email: reg.Email,
		}, err)
		body := maps.Clone(account.Body)
		body["auth_info_status"] = "pending"
		body["auth_info_message"] = pendingMessage
		return &models.Outcome{Body: body, Pending: true}, nil

	default:
		s.finishRegistration(ctx, started, audit.Event{
			Outcome: audit.OutcomeFailure, AccountID: account.ID, Email: reg.Email,
		}, err)
		return nil, err
	}
}

// Login exchanges credentials through the identity service, passing the
// session body through untouched.
func (s *Service) Login(ctx context.Context, email, password string) (map[string]any, error) {
	body, err := s.identity.Login(ctx, email, password)
	if err != nil {
		s.metrics.IncrementLogin(audit.OutcomeFailure)
		s.trail.Emit(ctx, audit.Event{
			RequestID: requestcontext.RequestID(ctx),
			Action:    audit.ActionLogin,
			Outcome:   audit.OutcomeFailure,
			Email:     email,
			ErrorCode: string(dErrors.CodeOf(err)),
			Status:    dErrors.HTTPStatus(err),
		})
		return nil, err
	}
	s.metrics.IncrementLogin(audit.OutcomeSuccess)
	s.trail.Emit(ctx, audit.Event{
		RequestID: requestcontext.RequestID(ctx),
		Action:    audit.ActionLogin,
		Outcome:   audit.OutcomeSuccess,
		Email:     email,
	})
	return body, nil
}

func (s *Service) finishRegistration(ctx context.Context, started time.Time, event audit.Event, err error) {
	event.RequestID = requestcontext.RequestID(ctx)
	event.Action = audit.ActionRegistration
	event.Duration = s.now().Sub(started)
	if err != nil {
		event.ErrorCode = string(dErrors.CodeOf(err))
		event.Status = dErrors.HTTPStatus(err)
	}
	s.metrics.IncrementRegistration(event.Outcome, event.ErrorCode)
	s.metrics.ObserveRegisterLatency(event.Duration)
	s.trail.Emit(ctx, event)
}
