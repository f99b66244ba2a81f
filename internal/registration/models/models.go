// Package models holds the registration domain values shared by the
// gateways, the orchestrating service, and the HTTP layer.
package models

import (
	"net/mail"
	"strings"
	"time"

	"keeply/pkg/domain"
)

// RegistrationRequest is the raw caller input. It is normalized once and
// discarded.
type RegistrationRequest struct {
	Email                 string `json:"email"`
	Password              string `json:"password"`
	FullName              string `json:"fullName"`
	CPF                   string `json:"cpf"`
	PhoneNumber           string `json:"phoneNumber"`
	BirthDate             string `json:"birthDate"`
	AcceptedTerms         bool   `json:"acceptedTerms"`
	AcceptedPrivacyPolicy bool   `json:"acceptedPrivacyPolicy"`
}

// Validate checks the raw request and returns per-field messages, first
// message per field. An empty map means the request is acceptable.
func (r RegistrationRequest) Validate() map[string]string {
	fields := make(map[string]string)

	if _, err := mail.ParseAddress(domain.NormalizeEmail(r.Email)); err != nil {
		fields["email"] = "E-mail inválido."
	}
	if len(r.Password) < 8 {
		fields["password"] = "Senha deve ter ao menos 8 caracteres."
	}
	if len([]rune(strings.TrimSpace(r.FullName))) < 3 {
		fields["fullName"] = "Nome completo deve ter ao menos 3 caracteres."
	}
	if !domain.ValidCPF(domain.OnlyDigits(r.CPF)) {
		fields["cpf"] = "CPF inválido."
	}
	if !domain.ValidPhone(domain.OnlyDigits(r.PhoneNumber)) {
		fields["phoneNumber"] = "Telefone inválido. Use de 10 a 15 dígitos."
	}
	if r.BirthDate != "" {
		born, err := time.Parse("2006-01-02", r.BirthDate)
		if err != nil || !born.Before(time.Now()) {
			fields["birthDate"] = "Data de nascimento deve ser no passado."
		}
	}
	if !r.AcceptedTerms {
		fields["acceptedTerms"] = "É necessário aceitar os termos."
	}
	if !r.AcceptedPrivacyPolicy {
		fields["acceptedPrivacyPolicy"] = "É necessário aceitar a política de privacidade."
	}
	return fields
}

// Normalize produces the canonical form: email trimmed and lowercased, name
// trimmed, CPF and phone reduced to digits only. The result is treated as
// immutable from here on.
func (r RegistrationRequest) Normalize() NormalizedRegistration {
	return NormalizedRegistration{
		Email:                 domain.NormalizeEmail(r.Email),
		Password:              r.Password,
		FullName:              strings.TrimSpace(r.FullName),
		CPF:                   domain.OnlyDigits(r.CPF),
		PhoneNumber:           domain.OnlyDigits(r.PhoneNumber),
		BirthDate:             r.BirthDate,
		AcceptedTerms:         r.AcceptedTerms,
		AcceptedPrivacyPolicy: r.AcceptedPrivacyPolicy,
	}
}

// NormalizedRegistration is the canonical registration value.
type NormalizedRegistration struct {
	Email                 string
	Password              string
	FullName              string
	CPF                   string
	PhoneNumber           string
	BirthDate             string
	AcceptedTerms         bool
	AcceptedPrivacyPolicy bool
}

// Account is the identity service's view of a created account: the opaque
// identifier plus the raw signup response body, returned to the caller
// verbatim on the happy path.
type Account struct {
	ID   string
	Body map[string]any
}

// LegalVersions carries the externally supplied legal-document versions
// recorded alongside accepted consents.
type LegalVersions struct {
	Terms   string
	Privacy string
}

// ProfileRecord is the profile-store row keyed by the identity account id.
// Consent timestamp and version fields are set if and only if the matching
// flag is true; the store enforces the same rule with check constraints.
type ProfileRecord struct {
	ID                      string     `json:"id"`
	FullName                string     `json:"full_name"`
	CPF                     *string    `json:"cpf"`
	PhoneNumber             *string    `json:"phone_number"`
	BirthDate               *string    `json:"birth_date"`
	AcceptedTerms           bool       `json:"accepted_terms"`
	AcceptedTermsAt         *time.Time `json:"accepted_terms_at"`
	AcceptedTermsVersion    *string    `json:"accepted_terms_version"`
	AcceptedPrivacyPolicy   bool       `json:"accepted_privacy_policy"`
	AcceptedPrivacyPolicyAt *time.Time `json:"accepted_privacy_policy_at"`
	PrivacyPolicyVersion    *string    `json:"privacy_policy_version"`
	ProfileCompleted        bool       `json:"profile_completed"`
}

// NewProfileRecord derives the store row from the normalized registration.
// profile_completed is a pure function of the four completeness fields.
func NewProfileRecord(accountID string, r NormalizedRegistration, legal LegalVersions, now time.Time) ProfileRecord {
	rec := ProfileRecord{
		ID:                    accountID,
		FullName:              r.FullName,
		CPF:                   optional(r.CPF),
		PhoneNumber:           optional(r.PhoneNumber),
		BirthDate:             optional(r.BirthDate),
		AcceptedTerms:         r.AcceptedTerms,
		AcceptedPrivacyPolicy: r.AcceptedPrivacyPolicy,
		ProfileCompleted:      r.FullName != "" && r.CPF != "" && r.PhoneNumber != "" && r.BirthDate != "",
	}
	if r.AcceptedTerms {
		rec.AcceptedTermsAt = &now
		rec.AcceptedTermsVersion = &legal.Terms
	}
	if r.AcceptedPrivacyPolicy {
		rec.AcceptedPrivacyPolicyAt = &now
		rec.PrivacyPolicyVersion = &legal.Privacy
	}
	return rec
}

// Outcome is the caller-visible result of a registration. A pending outcome
// means the identity account exists but profile persistence has not been
// confirmed synchronously; it is still a success to the caller.
type Outcome struct {
	Body    map[string]any
	Pending bool
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

