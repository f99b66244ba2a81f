package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "keeply/pkg/domain-errors"

	"keeply/internal/audit"
	"keeply/internal/platform/logger"
	"keeply/internal/registration/metrics"
	"keeply/internal/registration/models"
)

type fakeIdentity struct {
	account  *models.Account
	signupEr error
	session  map[string]any
	loginErr error

	signupCalls int
	gotReg      models.NormalizedRegistration
	gotLegal    models.LegalVersions
}

func (f *fakeIdentity) Signup(_ context.Context, reg models.NormalizedRegistration, legal models.LegalVersions) (*models.Account, error) {
	f.signupCalls++
	f.gotReg, f.gotLegal = reg, legal
	return f.account, f.signupEr
}

func (f *fakeIdentity) Login(context.Context, string, string) (map[string]any, error) {
	return f.session, f.loginErr
}

type fakeProfiles struct {
	err    error
	calls  int
	gotRec models.ProfileRecord
}

func (f *fakeProfiles) Upsert(_ context.Context, rec models.ProfileRecord) error {
	f.calls++
	f.gotRec = rec
	return f.err
}

type captureTrail struct {
	events []audit.Event
}

func (t *captureTrail) Emit(_ context.Context, event audit.Event) {
	t.events = append(t.events, event)
}

var testMetrics = metrics.NewWith(prometheus.NewRegistry())

func validRequest() models.RegistrationRequest {
	return models.RegistrationRequest{
		Email:                 "ana@example.com",
		Password:              "s3nhaforte",
		FullName:              "Ana Souza",
		CPF:                   "529.982.247-25",
		PhoneNumber:           "11987654321",
		BirthDate:             "1990-04-12",
		AcceptedTerms:         true,
		AcceptedPrivacyPolicy: true,
	}
}

func newService(identity *fakeIdentity, profiles *fakeProfiles, trail *captureTrail) *Service {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return NewService(identity, profiles, trail, testMetrics,
		models.LegalVersions{Terms: "v2", Privacy: "v3"},
		logger.New(),
		WithClock(func() time.Time { return fixed }),
	)
}

func TestRegister_HappyPath(t *testing.T) {
	identity := &fakeIdentity{account: &models.Account{
		ID:   "acc-1",
		Body: map[string]any{"access_token": "tok", "user": map[string]any{"id": "acc-1"}},
	}}
	profiles := &fakeProfiles{}
	trail := &captureTrail{}

	outcome, err := newService(identity, profiles, trail).Register(context.Background(), validRequest())
	require.NoError(t, err)
	assert.False(t, outcome.Pending)
	assert.Equal(t, "tok", outcome.Body["access_token"])
	assert.NotContains(t, outcome.Body, "auth_info_status")

	assert.Equal(t, "52998224725", identity.gotReg.CPF, "signup receives the normalized form")
	assert.Equal(t, "v2", identity.gotLegal.Terms)

	require.Equal(t, 1, profiles.calls)
	assert.Equal(t, "acc-1", profiles.gotRec.ID)
	assert.True(t, profiles.gotRec.ProfileCompleted)
	require.NotNil(t, profiles.gotRec.AcceptedTermsAt)

	require.Len(t, trail.events, 1)
	assert.Equal(t, audit.ActionRegistration, trail.events[0].Action)
	assert.Equal(t, audit.OutcomeSuccess, trail.events[0].Outcome)
	assert.Equal(t, "acc-1", trail.events[0].AccountID)
}

func TestRegister_StillConvergingDegradesToPending(t *testing.T) {
	body := map[string]any{"access_token": "tok"}
	identity := &fakeIdentity{account: &models.Account{ID: "acc-1", Body: body}}
	profiles := &fakeProfiles{err: dErrors.New(dErrors.CodeStillConverging,
		"Cadastro ainda em processamento. Tente novamente em alguns segundos.")}
	trail := &captureTrail{}

	outcome, err := newService(identity, profiles, trail).Register(context.Background(), validRequest())
	require.NoError(t, err, "an existing account must never surface as failure")
	assert.True(t, outcome.Pending)
	assert.Equal(t, "pending", outcome.Body["auth_info_status"])
	assert.Equal(t, "Cadastro criado. Finalização do perfil em processamento.", outcome.Body["auth_info_message"])
	assert.Equal(t, "tok", outcome.Body["access_token"])
	assert.NotContains(t, body, "auth_info_status", "the original signup body stays untouched")

	require.Len(t, trail.events, 1)
	assert.Equal(t, audit.OutcomePending, trail.events[0].Outcome)
	assert.Equal(t, "still_converging", trail.events[0].ErrorCode)
}

func TestRegister_TerminalStoreErrorPropagates(t *testing.T) {
	identity := &fakeIdentity{account: &models.Account{ID: "acc-1", Body: map[string]any{}}}
	storeErr := dErrors.New(dErrors.CodeConflict, "Telefone já cadastrado.")
	profiles := &fakeProfiles{err: storeErr}
	trail := &captureTrail{}

	_, err := newService(identity, profiles, trail).Register(context.Background(), validRequest())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	assert.Equal(t, "Telefone já cadastrado.", dErrors.MessageFor(err))

	require.Len(t, trail.events, 1)
	assert.Equal(t, audit.OutcomeFailure, trail.events[0].Outcome)
	assert.Equal(t, http.StatusConflict, trail.events[0].Status)
}

func TestRegister_SignupFailureSkipsProfilePhase(t *testing.T) {
	identity := &fakeIdentity{signupEr: dErrors.New(dErrors.CodeConflict, "E-mail já cadastrado.")}
	profiles := &fakeProfiles{}
	trail := &captureTrail{}

	_, err := newService(identity, profiles, trail).Register(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, 0, profiles.calls)
	require.Len(t, trail.events, 1)
	assert.Equal(t, audit.OutcomeFailure, trail.events[0].Outcome)
	assert.Empty(t, trail.events[0].AccountID)
}

func TestRegister_MissingAccountIDIsProtocolError(t *testing.T) {
	identity := &fakeIdentity{account: &models.Account{ID: "", Body: map[string]any{"msg": "ok"}}}
	profiles := &fakeProfiles{}
	trail := &captureTrail{}

	_, err := newService(identity, profiles, trail).Register(context.Background(), validRequest())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUpstreamProtocol))
	assert.Equal(t, http.StatusBadGateway, dErrors.HTTPStatus(err))
	assert.Equal(t, 0, profiles.calls)
}

func TestLogin_PassesBodyThrough(t *testing.T) {
	identity := &fakeIdentity{session: map[string]any{"access_token": "tok"}}
	trail := &captureTrail{}

	body, err := newService(identity, &fakeProfiles{}, trail).Login(context.Background(), "ana@example.com", "s3nhaforte")
	require.NoError(t, err)
	assert.Equal(t, "tok", body["access_token"])
	require.Len(t, trail.events, 1)
	assert.Equal(t, audit.ActionLogin, trail.events[0].Action)
	assert.Equal(t, audit.OutcomeSuccess, trail.events[0].Outcome)
}

func TestLogin_FailurePropagatesUnchanged(t *testing.T) {
	loginErr := dErrors.New(dErrors.CodeUnauthorized, "Credenciais inválidas.")
	identity := &fakeIdentity{loginErr: loginErr}
	trail := &captureTrail{}

	_, err := newService(identity, &fakeProfiles{}, trail).Login(context.Background(), "ana@example.com", "errada")
	require.Same(t, loginErr, err)
	require.Len(t, trail.events, 1)
	assert.Equal(t, audit.OutcomeFailure, trail.events[0].Outcome)
	assert.Equal(t, "unauthorized", trail.events[0].ErrorCode)
}
