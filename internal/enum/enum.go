package enum

// ── Group A: State machines ──

const (
	SubmissionStatusIdle       = "idle"
	SubmissionStatusSubmitting = "submitting"
	SubmissionStatusSuccess    = "success"
	SubmissionStatusFailed     = "failed"
)

// Journal rows (CHECK constrained in DB).
const (
	JournalStatusSucceeded = "SUCCEEDED"
	JournalStatusFailed    = "FAILED"
)

const (
	JournalKindOrder       = "ORDER"
	JournalKindCustomOrder = "CUSTOM_ORDER"
)

// ── Group B: Domains fixed by the storefront ──

const (
	CardColorBlack = "black"
	CardColorWhite = "white"
)

const (
	PaymentMethodCash   = "cash"
	PaymentMethodOnline = "online" // reserved, not submittable yet
)

const (
	NotificationValidation = "validation"
	NotificationFee        = "fee"
	NotificationSubmission = "submission"
)

// ── Group C: Borderline ──

const (
	AdminRoleAdmin = "ADMIN"
	AdminRoleStaff = "STAFF"
)

const Currency = "JOD"
