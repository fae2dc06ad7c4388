package domain_test

import (
	"testing"
	"time"

	"github.com/pulse-fitness/notifier/internal/domain"
)

func TestEnqueueRequest_Validate(t *testing.T) {
	valid := domain.EnqueueRequest{
		Email:       "a@x.com",
		Subject:     "Time to move",
		PulseLevel:  3,
		ActiveUsers: 2,
	}

	t.Run("valid request passes", func(t *testing.T) {
		if err := valid.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("empty email", func(t *testing.T) {
		r := valid
		r.Email = "  "
		if err := r.Validate(); err != domain.ErrInvalidRecipient {
			t.Fatalf("expected ErrInvalidRecipient, got %v", err)
		}
	})

	t.Run("malformed email", func(t *testing.T) {
		r := valid
		r.Email = "not-an-address"
		if err := r.Validate(); err != domain.ErrInvalidRecipient {
			t.Fatalf("expected ErrInvalidRecipient, got %v", err)
		}
	})

	t.Run("negative pulse level", func(t *testing.T) {
		r := valid
		r.PulseLevel = -1
		if err := r.Validate(); err != domain.ErrInvalidCounter {
			t.Fatalf("expected ErrInvalidCounter, got %v", err)
		}
	})

	t.Run("negative active users", func(t *testing.T) {
		r := valid
		r.ActiveUsers = -4
		if err := r.Validate(); err != domain.ErrInvalidCounter {
			t.Fatalf("expected ErrInvalidCounter, got %v", err)
		}
	})

	t.Run("empty subject is allowed", func(t *testing.T) {
		r := valid
		r.Subject = ""
		if err := r.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestSelectVariant(t *testing.T) {
	tests := []struct {
		name string
		item domain.QueueItem
		want domain.Variant
	}{
		{"new user wins over everything", domain.QueueItem{IsNewUser: true, HasWorkedOut: true, ActiveUsers: 9}, domain.VariantWelcome},
		{"worked out", domain.QueueItem{HasWorkedOut: true, PulseLevel: 42, ActiveUsers: 3}, domain.VariantCongratulations},
		{"friends active", domain.QueueItem{ActiveUsers: 1}, domain.VariantReminderSocial},
		{"nobody active", domain.QueueItem{}, domain.VariantReminder},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := domain.SelectVariant(&tc.item); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestVariant_IsValid(t *testing.T) {
	for _, v := range domain.Variants() {
		if !v.IsValid() {
			t.Fatalf("expected %s to be valid", v)
		}
	}
	for _, v := range []domain.Variant{"", "digest", "Welcome"} {
		if v.IsValid() {
			t.Fatalf("expected %q to be invalid", v)
		}
	}
}

func TestSelectVariant_AlwaysValid(t *testing.T) {
	for _, item := range []domain.QueueItem{{IsNewUser: true}, {HasWorkedOut: true}, {ActiveUsers: 2}, {}} {
		if v := domain.SelectVariant(&item); !v.IsValid() {
			t.Fatalf("SelectVariant returned invalid variant %q", v)
		}
	}
}

func TestSelectVariant_IgnoresPulseLevel(t *testing.T) {
	a := domain.QueueItem{PulseLevel: 1}
	b := domain.QueueItem{PulseLevel: 999}
	if domain.SelectVariant(&a) != domain.SelectVariant(&b) {
		t.Fatal("pulse level must not influence variant selection")
	}
}

func TestQueueItem_States(t *testing.T) {
	now := time.Now()
	msg := "smtp: 550 mailbox unavailable"

	pending := domain.QueueItem{}
	if !pending.IsPending() || pending.IsFailed() {
		t.Fatal("fresh row should be pending and not failed")
	}

	sent := domain.QueueItem{ProcessedAt: &now}
	if sent.IsPending() || sent.IsFailed() {
		t.Fatal("processed row without error should be terminal and not failed")
	}

	failed := domain.QueueItem{ProcessedAt: &now, Error: &msg}
	if !failed.IsFailed() {
		t.Fatal("processed row with error should be failed")
	}
}

func TestRunResult_Body(t *testing.T) {
	ok := domain.RunResult{StatusCode: 200, Message: "Processed 2 notifications"}
	if got := ok.Body(); got["message"] != "Processed 2 notifications" || len(got) != 1 {
		t.Fatalf("unexpected body: %v", got)
	}

	fatal := domain.RunResult{StatusCode: 500, Error: "app config value is missing"}
	if got := fatal.Body(); got["error"] != "app config value is missing" || len(got) != 1 {
		t.Fatalf("unexpected body: %v", got)
	}
}
