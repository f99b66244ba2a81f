package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() RegistrationRequest {
	return RegistrationRequest{
		Email:                 "Ana@Example.com ",
		Password:              "s3nhaforte",
		FullName:              "  Ana Souza  ",
		CPF:                   "529.982.247-25",
		PhoneNumber:           "(11) 98765-4321",
		BirthDate:             "1990-04-12",
		AcceptedTerms:         true,
		AcceptedPrivacyPolicy: true,
	}
}

func TestValidate_AcceptsCompleteRequest(t *testing.T) {
	assert.Empty(t, validRequest().Validate())
}

func TestValidate_CollectsFieldMessages(t *testing.T) {
	req := RegistrationRequest{
		Email:       "not-an-email",
		Password:    "curta",
		FullName:    "Jo",
		CPF:         "12345678901",
		PhoneNumber: "123",
		BirthDate:   "2999-01-01",
	}

	fields := req.Validate()
	assert.Equal(t, "E-mail inválido.", fields["email"])
	assert.Equal(t, "Senha deve ter ao menos 8 caracteres.", fields["password"])
	assert.Equal(t, "Nome completo deve ter ao menos 3 caracteres.", fields["fullName"])
	assert.Equal(t, "CPF inválido.", fields["cpf"])
	assert.Equal(t, "Telefone inválido. Use de 10 a 15 dígitos.", fields["phoneNumber"])
	assert.Equal(t, "Data de nascimento deve ser no passado.", fields["birthDate"])
	assert.Equal(t, "É necessário aceitar os termos.", fields["acceptedTerms"])
	assert.Equal(t, "É necessário aceitar a política de privacidade.", fields["acceptedPrivacyPolicy"])
}

func TestValidate_OptionalFieldsMayBeBlank(t *testing.T) {
	req := validRequest()
	req.CPF, req.PhoneNumber, req.BirthDate = "", "", ""
	assert.Empty(t, req.Validate())
}

func TestNormalize_CanonicalForm(t *testing.T) {
	got := validRequest().Normalize()
	assert.Equal(t, "ana@example.com", got.Email)
	assert.Equal(t, "Ana Souza", got.FullName)
	assert.Equal(t, "52998224725", got.CPF)
	assert.Equal(t, "11987654321", got.PhoneNumber)
}

func TestNewProfileRecord_CompleteProfile(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := NewProfileRecord("acc-1", validRequest().Normalize(), LegalVersions{Terms: "v2", Privacy: "v3"}, now)

	assert.Equal(t, "acc-1", rec.ID)
	assert.True(t, rec.ProfileCompleted)
	require.NotNil(t, rec.CPF)
	assert.Equal(t, "52998224725", *rec.CPF)
	require.NotNil(t, rec.AcceptedTermsAt)
	assert.Equal(t, now, *rec.AcceptedTermsAt)
	require.NotNil(t, rec.AcceptedTermsVersion)
	assert.Equal(t, "v2", *rec.AcceptedTermsVersion)
	require.NotNil(t, rec.PrivacyPolicyVersion)
	assert.Equal(t, "v3", *rec.PrivacyPolicyVersion)
}

func TestNewProfileRecord_MissingOptionalMeansIncomplete(t *testing.T) {
	req := validRequest()
	req.CPF = ""
	rec := NewProfileRecord("acc-1", req.Normalize(), LegalVersions{}, time.Now())

	assert.False(t, rec.ProfileCompleted)
	assert.Nil(t, rec.CPF)
}

func TestNewProfileRecord_ConsentTimestampsFollowFlags(t *testing.T) {
	reg := validRequest().Normalize()
	reg.AcceptedTerms = false
	rec := NewProfileRecord("acc-1", reg, LegalVersions{Terms: "v2"}, time.Now())

	assert.Nil(t, rec.AcceptedTermsAt)
	assert.Nil(t, rec.AcceptedTermsVersion)
	assert.NotNil(t, rec.AcceptedPrivacyPolicyAt)
}
