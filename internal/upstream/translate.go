// Package upstream normalizes the two unrelated upstream error shapes —
// identity-service auth bodies and profile-store constraint bodies — into
// the single domain-error taxonomy the rest of the service speaks.
package upstream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	dErrors "keeply/pkg/domain-errors"
	"keeply/pkg/platform/httputil"
)

// rule matches a lowercased upstream message (optionally gated on the
// upstream status) and yields the translated error.
type rule struct {
	match   func(msg string, status int) bool
	code    dErrors.Code
	status  int
	message string
}

func contains(substr string) func(string, int) bool {
	return func(msg string, _ int) bool { return strings.Contains(msg, substr) }
}

func containsAny(subs ...string) func(string, int) bool {
	return func(msg string, _ int) bool {
		for _, s := range subs {
			if strings.Contains(msg, s) {
				return true
			}
		}
		return false
	}
}

// rules is the ordered translation table, first match wins. Constraint-name
// rules precede generic catch-alls. The literal strings are an accepted
// maintenance surface: if an upstream service rewords a message, it falls
// through to pass-through and loses only its specific classification.
var rules = []rule{
	{
		match: func(msg string, _ int) bool {
			return strings.Contains(msg, "user already registered") ||
				(strings.Contains(msg, "email") && strings.Contains(msg, "already"))
		},
		code: dErrors.CodeConflict, status: http.StatusConflict,
		message: "E-mail já cadastrado.",
	},
	{
		match: func(msg string, status int) bool {
			return status == http.StatusBadRequest && strings.Contains(msg, "invalid login credentials")
		},
		code: dErrors.CodeUnauthorized, status: http.StatusUnauthorized,
		message: "Credenciais inválidas.",
	},
	{
		match: contains("uq_auth_info_cpf"),
		code:  dErrors.CodeConflict, status: http.StatusConflict,
		message: "CPF já cadastrado.",
	},
	{
		match: contains("uq_auth_info_phone_number"),
		code:  dErrors.CodeConflict, status: http.StatusConflict,
		message: "Telefone já cadastrado.",
	},
	{
		match: contains("users_email_key"),
		code:  dErrors.CodeConflict, status: http.StatusConflict,
		message: "E-mail já cadastrado.",
	},
	{
		match: contains("auth_info_id_fkey"),
		code:  dErrors.CodeStillConverging, status: http.StatusConflict,
		message: "Cadastro ainda em processamento. Tente novamente em alguns segundos.",
	},
	{
		match: containsAny("auth_info_cpf_valid", "cpf inválido", "cpf invalido"),
		code:  dErrors.CodeInvalidInput, status: http.StatusBadRequest,
		message: "CPF inválido.",
	},
	{
		match: contains("auth_info_cpf_format"),
		code:  dErrors.CodeInvalidInput, status: http.StatusBadRequest,
		message: "CPF deve conter 11 dígitos.",
	},
	{
		match: contains("auth_info_phone_format"),
		code:  dErrors.CodeInvalidInput, status: http.StatusBadRequest,
		message: "Telefone inválido. Use de 10 a 15 dígitos.",
	},
	{
		match: contains("auth_info_full_name_minlen"),
		code:  dErrors.CodeInvalidInput, status: http.StatusBadRequest,
		message: "Nome completo deve ter ao menos 3 caracteres.",
	},
	{
		match: contains("auth_info_terms_timestamp_if_true"),
		code:  dErrors.CodeInvalidInput, status: http.StatusBadRequest,
		message: "Termos de uso precisam estar corretamente aceitos.",
	},
	{
		match: contains("auth_info_privacy_timestamp_if_true"),
		code:  dErrors.CodeInvalidInput, status: http.StatusBadRequest,
		message: "Política de privacidade precisa estar corretamente aceita.",
	},
	{
		match: contains("duplicate key value violates unique constraint"),
		code:  dErrors.CodeConflict, status: http.StatusConflict,
		message: "Já existe cadastro com um dado único informado.",
	},
}

// translate runs the shared ordered-rule matcher. message keeps its original
// casing for pass-through; matching happens on the lowercased text.
func translate(status int, message string) *dErrors.Error {
	lower := strings.ToLower(message)
	for _, r := range rules {
		if r.match(lower, status) {
			return dErrors.New(r.code, r.message).WithStatus(r.status)
		}
	}
	return dErrors.New(dErrors.CodeUnclassified, message).WithStatus(status)
}

// IdentityError translates a non-2xx identity-service response. Auth error
// bodies expose the message under several alternative keys; the first
// non-empty wins.
func IdentityError(se *httputil.StatusError) *dErrors.Error {
	raw := strings.TrimSpace(string(se.Body))
	if raw == "" {
		return dErrors.New(dErrors.CodeUnclassified, "Erro no Supabase Auth.").WithStatus(se.Status)
	}
	msg := extractMessage(se.Body, "msg", "message", "error_description", "error")
	if msg == "" {
		msg = raw
	}
	return translate(se.Status, msg)
}

// StoreError translates a non-2xx profile-store response. PostgREST bodies
// expose message, details and hint; the raw body is the last resort, since
// constraint names may only appear there.
func StoreError(se *httputil.StatusError) *dErrors.Error {
	raw := strings.TrimSpace(string(se.Body))
	if raw == "" {
		return dErrors.New(dErrors.CodeUnclassified, "Erro ao persistir auth_info.").WithStatus(se.Status)
	}
	msg := extractMessage(se.Body, "message", "details", "hint")
	if msg == "" {
		msg = raw
	}
	return translate(se.Status, msg)
}

// extractMessage parses body as a JSON object and returns the first
// non-empty value among keys. A body that is not a JSON object yields the
// raw text.
func extractMessage(body []byte, keys ...string) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return trimmed
	}
	for _, key := range keys {
		if v, ok := obj[key]; ok && v != nil {
			s := asString(v)
			if strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
