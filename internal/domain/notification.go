package domain

import (
	"net/mail"
	"strings"
	"time"
)

// WebappURLKey is the app_config key holding the base URL used in every
// call-to-action link.
const WebappURLKey = "webapp_url"

// QueueItem is one row of the notification_queue table: a single pending or
// completed email job. Column names are shared with the web application that
// produces the rows.
type QueueItem struct {
	ID           string     `json:"id"`
	UserID       *string    `json:"user_id,omitempty"`
	Email        string     `json:"email"`
	Subject      string     `json:"subject"`
	IsNewUser    bool       `json:"is_new_user"`
	HasWorkedOut bool       `json:"has_worked_out"`
	PulseLevel   int        `json:"pulse_level"`
	ActiveUsers  int        `json:"active_users"`
	CreatedAt    time.Time  `json:"created_at"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
	Error        *string    `json:"error,omitempty"`
	ClaimedAt    *time.Time `json:"claimed_at,omitempty"`
	ClaimedBy    *string    `json:"claimed_by,omitempty"`
}

// IsPending reports whether the row is still waiting for a terminal outcome.
func (q *QueueItem) IsPending() bool { return q.ProcessedAt == nil }

// IsFailed reports whether the row is terminal with a recorded error.
func (q *QueueItem) IsFailed() bool { return q.ProcessedAt != nil && q.Error != nil }

// EnqueueRequest is the inbound payload used to place a notification on the
// queue (the application's "send me a test notification" path and operators).
type EnqueueRequest struct {
	UserID       *string `json:"user_id,omitempty"`
	Email        string  `json:"email"`
	Subject      string  `json:"subject"`
	IsNewUser    bool    `json:"is_new_user"`
	HasWorkedOut bool    `json:"has_worked_out"`
	PulseLevel   int     `json:"pulse_level"`
	ActiveUsers  int     `json:"active_users"`
}

func (r *EnqueueRequest) Validate() error {
	email := strings.TrimSpace(r.Email)
	if email == "" {
		return ErrInvalidRecipient
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidRecipient
	}
	if r.PulseLevel < 0 || r.ActiveUsers < 0 {
		return ErrInvalidCounter
	}
	return nil
}

// DispatchRequest is the envelope sent by the external scheduler. NextRun is
// informational only.
type DispatchRequest struct {
	NextRun string `json:"next_run,omitempty"`
}

// RunResult summarises one dispatcher invocation. StatusCode follows HTTP
// semantics: 200 for a completed pass (even when some items failed) and 500
// for a fatal error that aborted the run.
type RunResult struct {
	StatusCode int
	Message    string
	Error      string

	Fetched        int
	Sent           int
	Failed         int
	PersistErrored int
}

// Body returns the JSON body for the result: {"message": ...} or {"error": ...}.
func (r RunResult) Body() map[string]string {
	if r.Error != "" {
		return map[string]string{"error": r.Error}
	}
	return map[string]string{"message": r.Message}
}
