package models

import "time"

type EquipmentStatus string

const (
	EquipmentAvailable    EquipmentStatus = "available"
	EquipmentInUse        EquipmentStatus = "in-use"
	EquipmentMaintenance  EquipmentStatus = "maintenance"
	EquipmentOutOfService EquipmentStatus = "out-of-service"
)

func (s EquipmentStatus) Valid() bool {
	switch s {
	case EquipmentAvailable, EquipmentInUse, EquipmentMaintenance, EquipmentOutOfService:
		return true
	}
	return false
}

type Equipment struct {
	ID             uint64          `gorm:"primarykey" json:"id"`
	Name           string          `gorm:"type:varchar(255);not null" json:"name"`
	Type           string          `gorm:"type:varchar(100)" json:"type"`
	Classification string          `gorm:"type:varchar(50);index" json:"classification"`
	Category       string          `gorm:"type:varchar(100);index" json:"category"`
	Manufacturer   string          `gorm:"type:varchar(100)" json:"manufacturer"`
	Model          string          `gorm:"type:varchar(100)" json:"model"`
	AssetNumber    string          `gorm:"type:varchar(50)" json:"asset_number"`
	CostCode       string          `gorm:"type:varchar(50)" json:"cost_code"`
	HourlyRate     float64         `json:"hourly_rate"`
	Status         EquipmentStatus `gorm:"type:varchar(20);not null;default:'available';index" json:"status"`
	Location       string          `gorm:"type:varchar(255)" json:"location"`
	Notes          string          `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (Equipment) TableName() string { return "equipment" }

// TaskMachinery is one use of a piece of equipment on a task.
type TaskMachinery struct {
	ID             uint64     `gorm:"primarykey" json:"id"`
	TaskID         uint64     `gorm:"not null;index" json:"task_id"`
	EquipmentID    uint64     `gorm:"not null;index" json:"equipment_id"`
	HoursUsed      float64    `json:"hours_used"`
	AssignedAt     time.Time  `json:"assigned_at"`
	ReturnedAt     *time.Time `json:"returned_at"`
	Notes          string     `gorm:"type:text" json:"notes"`
	CostCode       string     `gorm:"type:varchar(50)" json:"cost_code"`
	DepartmentCode string     `gorm:"type:varchar(50)" json:"department_code"`
	ProjectCode    string     `gorm:"type:varchar(50)" json:"project_code"`

	// Relations
	Task      Task      `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
	Equipment Equipment `gorm:"foreignKey:EquipmentID;constraint:OnDelete:CASCADE" json:"-"`
}

func (TaskMachinery) TableName() string { return "task_machinery" }
