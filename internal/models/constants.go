package models

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Sync task types.
const (
	TaskSMSConfirmation = "sms_confirmation"
	TaskSheetsUpsert    = "sheets_upsert"
	TaskTelegramNotify  = "telegram_notify"
)

// Sync task statuses.
const (
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusRetry      = "retry"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

const (
	// EligibilityPermissive lets staff without eligibility rows perform every service.
	EligibilityPermissive = "permissive"
	// EligibilityStrict means no rows, no services.
	EligibilityStrict = "strict"
)

const (
	// DefaultMaxBookingDays limits how far ahead a booking may be made.
	DefaultMaxBookingDays = 365

	// DefaultOpenHour and DefaultCloseHour apply when no opening hours are configured.
	DefaultOpenHour  = 9
	DefaultCloseHour = 19

	// DefaultSlotCacheTTL in seconds
	DefaultSlotCacheTTL = 5 * 60

	WorkerQueueSize = 1000

	// SheetsCacheTTL time to live of the sheets row cache, seconds
	SheetsCacheTTL = 60 * 60
)
