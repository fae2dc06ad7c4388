package domain

// Variant selects one of the four email templates.
type Variant string

const (
	VariantWelcome         Variant = "welcome"
	VariantCongratulations Variant = "congratulations"
	VariantReminderSocial  Variant = "reminder_social"
	VariantReminder        Variant = "reminder"
)

// IsValid reports whether v names one of the four templates.
func (v Variant) IsValid() bool {
	switch v {
	case VariantWelcome, VariantCongratulations, VariantReminderSocial, VariantReminder:
		return true
	}
	return false
}

// SelectVariant picks the template for a queue row. It depends only on
// is_new_user, has_worked_out and active_users, in that precedence order.
func SelectVariant(q *QueueItem) Variant {
	switch {
	case q.IsNewUser:
		return VariantWelcome
	case q.HasWorkedOut:
		return VariantCongratulations
	case q.ActiveUsers > 0:
		return VariantReminderSocial
	default:
		return VariantReminder
	}
}

// Variants lists every variant, in precedence order.
func Variants() []Variant {
	return []Variant{VariantWelcome, VariantCongratulations, VariantReminderSocial, VariantReminder}
}
