package repository

import (
	"context"
	"time"

	"github.com/parks-gardens/fieldops-api/internal/models"
	"github.com/parks-gardens/fieldops-api/internal/utils"
	"gorm.io/gorm"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks matching every set filter field, with the
	// assignee and safety documents preloaded
	List(filter TaskFilter) ([]models.Task, error)

	// Update writes every column of the task, leaving associations alone
	Update(task *models.Task) error

	// UpdateFields writes only the given columns
	UpdateFields(task *models.Task, fields map[string]interface{}) error

	// Delete removes a task together with its machinery usage and acknowledgments
	Delete(id uint64) (int64, error)

	// FindByAssignee lists every task assigned to a user
	FindByAssignee(userID uint64) ([]models.Task, error)

	// MarkNeedsReschedulingForAssignee moves the user's open tasks to
	// needs-rescheduling with the given reason
	MarkNeedsReschedulingForAssignee(userID uint64, reason string) (int64, error)

	// UnassignAll clears the assignee on every task assigned to the user
	UnassignAll(userID uint64) (int64, error)

	// CountByStatus counts tasks scheduled in [from, to) grouped by status
	CountByStatus(from, to time.Time) (map[models.TaskStatus]int64, error)

	// CountReferencing counts tasks that attach the given safety document
	CountReferencing(docType models.DocumentType, id uint64) (int64, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	AssignedTo    *uint64
	Status        *models.TaskStatus
	ScheduledFrom *time.Time
	ScheduledTo   *time.Time
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// EmailTaken reports whether another user already has the email
	EmailTaken(email string, exceptID uint64) (bool, error)

	// ListByRole lists users with the role ordered by name
	ListByRole(role models.UserRole) ([]models.User, error)

	// ListAll lists every user ordered by role then name
	ListAll() ([]models.User, error)

	// Update writes every column of the user
	Update(user *models.User) error

	// Delete removes a user
	Delete(id uint64) (int64, error)
}

// DocumentRepository defines data access shared by risk assessments and SWMS
type DocumentRepository[T models.SafetyDocument] interface {
	// List lists every document in the given order
	List(order string) ([]T, error)

	// FindByID finds a document by ID
	FindByID(id uint64) (*T, error)

	// Create creates a new document
	Create(doc *T) error

	// Update writes every column of the document
	Update(doc *T) error

	// Delete removes a document
	Delete(id uint64) (int64, error)

	// SetFile records an uploaded file against the document
	SetFile(id uint64, file FileInfo) error
}

// FileInfo describes a stored document file
type FileInfo struct {
	Path       string
	Size       int64
	UploadedBy uint64
	UploadedAt time.Time
}

// EquipmentRepository defines the interface for machinery data access
type EquipmentRepository interface {
	// ListWithUsage lists equipment with usage totals, ordered by name
	ListWithUsage(filter EquipmentFilter) ([]EquipmentUsage, error)

	// FindByID finds equipment by ID
	FindByID(id uint64) (*models.Equipment, error)

	// Create creates new equipment
	Create(equipment *models.Equipment) error

	// Update writes every column of the equipment
	Update(equipment *models.Equipment) error

	// Delete removes equipment and its usage records
	Delete(id uint64) (int64, error)

	// History lists usage records for the equipment, newest first
	History(equipmentID uint64, params utils.PaginationParams) ([]MachineryHistoryRow, int64, error)

	// AddUsage records equipment used on a task
	AddUsage(usage *models.TaskMachinery) error

	// FindUsage finds a usage record on a task
	FindUsage(taskID, usageID uint64) (*models.TaskMachinery, error)

	// ReturnUsage stamps a usage record as returned
	ReturnUsage(usage *models.TaskMachinery) error

	// CountOpenUsage counts usage records of the equipment not yet returned
	CountOpenUsage(equipmentID uint64) (int64, error)
}

// EquipmentFilter holds filtering options for listing machinery
type EquipmentFilter struct {
	Classification string
	Status         string
	Category       string
}

// EquipmentUsage is equipment with aggregated task usage
type EquipmentUsage struct {
	models.Equipment `gorm:"embedded"`
	TaskCount        int64   `json:"task_count"`
	TotalTaskHours   float64 `json:"total_task_hours"`
}

// MachineryHistoryRow is one task a piece of equipment was used on
type MachineryHistoryRow struct {
	UsageID        uint64     `json:"usage_id"`
	TaskID         uint64     `json:"id"`
	Title          string     `json:"title"`
	Location       string     `json:"location"`
	ScheduledDate  *time.Time `json:"scheduled_date"`
	Status         string     `json:"status"`
	HoursUsed      float64    `json:"hours_used"`
	AssignedAt     time.Time  `json:"assigned_at"`
	ReturnedAt     *time.Time `json:"returned_at"`
	Notes          string     `json:"notes"`
	CostCode       string     `json:"cost_code"`
	DepartmentCode string     `json:"department_code"`
	ProjectCode    string     `json:"project_code"`
	AssignedToName *string    `json:"assigned_to_name"`
}

// AcknowledgmentRepository defines the interface for acknowledgment records
type AcknowledgmentRepository interface {
	// Create records an acknowledgment
	Create(ack *models.SafetyAcknowledgment) error

	// FindByIDs loads acknowledgments by ID
	FindByIDs(ids []uint64) ([]models.SafetyAcknowledgment, error)
}

// OutboxRepository defines the interface for the notification outbox
type OutboxRepository interface {
	// Append stores events for later dispatch
	Append(events ...*models.OutboxEvent) error

	// FetchPending returns undispatched events with fewer than maxAttempts
	// failed attempts, oldest first
	FetchPending(limit, maxAttempts int) ([]models.OutboxEvent, error)

	// MarkDispatched stamps events as delivered to the hub
	MarkDispatched(ids []uint64, at time.Time) error

	// MarkFailed records a failed dispatch attempt
	MarkFailed(id uint64, cause error) error
}

// Repositories bundles every repository over one database handle.
type Repositories struct {
	db *gorm.DB

	Users           UserRepository
	Tasks           TaskRepository
	RiskAssessments DocumentRepository[models.RiskAssessment]
	SWMS            DocumentRepository[models.SWMSDocument]
	Equipment       EquipmentRepository
	Acknowledgments AcknowledgmentRepository
	Outbox          OutboxRepository
}

// New creates the repository bundle
func New(db *gorm.DB) *Repositories {
	return &Repositories{
		db:              db,
		Users:           NewUserRepository(db),
		Tasks:           NewTaskRepository(db),
		RiskAssessments: NewDocumentRepository[models.RiskAssessment](db),
		SWMS:            NewDocumentRepository[models.SWMSDocument](db),
		Equipment:       NewEquipmentRepository(db),
		Acknowledgments: NewAcknowledgmentRepository(db),
		Outbox:          NewOutboxRepository(db),
	}
}

// WithContext returns a bundle whose queries carry ctx
func (r *Repositories) WithContext(ctx context.Context) *Repositories {
	return New(r.db.WithContext(ctx))
}

// Transaction runs fn with repositories bound to a single transaction.
// Any error returned by fn rolls the transaction back.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}
