package constants

// Context keys
const (
	ContextKeyUserID   = "user_id"
	ContextKeyUserRole = "user_role"
	ContextKeyTask     = "task"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	// DefaultHistoryLimit caps machinery history responses when no limit is given.
	DefaultHistoryLimit = 50
)

// Validation
const (
	MinPasswordLength = 8
	MaxTitleLength    = 255

	MaxAIGeneratedTasks = 20
)

// Uploads
const (
	UploadFormField   = "file"
	PDFContentType    = "application/pdf"
	DefaultUploadSize = 10 << 20
)

// Notification rooms
const (
	RoomSupervisors = "supervisors"
	RoomUserPrefix  = "user:"
)
