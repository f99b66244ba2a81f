package audit

import "time"

// Actions recorded on the trail.
const (
	ActionRegistration = "registration"
	ActionLogin        = "login"
)

// Outcomes of an attempt. Pending means the identity account exists but the
// profile row was not confirmed synchronously.
const (
	OutcomeSuccess = "success"
	OutcomePending = "pending"
	OutcomeFailure = "failure"
)

// Event captures one registration or login attempt. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string
	Timestamp time.Time
	RequestID string
	Action    string
	Outcome   string
	AccountID string
	Email     string
	ErrorCode string
	Status    int
	Duration  time.Duration
}
