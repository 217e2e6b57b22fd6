package models

import (
	"time"

	"gorm.io/datatypes"
)

type DocumentType string

const (
	DocumentTypeRiskAssessment DocumentType = "risk_assessment"
	DocumentTypeSWMS           DocumentType = "swms"
)

func (t DocumentType) Valid() bool {
	return t == DocumentTypeRiskAssessment || t == DocumentTypeSWMS
}

// CodePrefix is the register prefix of generated document codes.
func (t DocumentType) CodePrefix() string {
	if t == DocumentTypeSWMS {
		return "SWMS"
	}
	return "RA"
}

// Label is the human-readable name used in messages.
func (t DocumentType) Label() string {
	if t == DocumentTypeSWMS {
		return "SWMS"
	}
	return "Risk assessment"
}

// DocumentRef points at one safety document of a given type.
type DocumentRef struct {
	Type DocumentType `json:"document_type"`
	ID   uint64       `json:"document_id"`
}

type ApprovalStatus string

const (
	ApprovalDraft    ApprovalStatus = "draft"
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalArchived ApprovalStatus = "archived"
)

// DocumentInfo is the part of a safety document the file and lifecycle
// handling needs, independent of the document type.
type DocumentInfo struct {
	ID             uint64
	Title          string
	DocumentCode   string
	ApprovalStatus ApprovalStatus
	FilePath       *string
}

// SafetyDocument is implemented by RiskAssessment and SWMSDocument.
type SafetyDocument interface {
	Kind() DocumentType
	Info() DocumentInfo
}

type RiskAssessment struct {
	ID             uint64                     `gorm:"primarykey" json:"id"`
	Title          string                     `gorm:"type:varchar(255);not null" json:"title"`
	DocumentCode   string                     `gorm:"type:varchar(50);index" json:"document_code"`
	Category       string                     `gorm:"type:varchar(100)" json:"category"`
	RiskLevel      string                     `gorm:"type:varchar(20)" json:"risk_level"`
	ReviewDate     *time.Time                 `json:"review_date"`
	ApprovalStatus ApprovalStatus             `gorm:"type:varchar(20);not null;default:'draft'" json:"approval_status"`
	Description    string                     `gorm:"type:text" json:"description"`
	Hazards        datatypes.JSONSlice[string] `json:"hazards"`
	Controls       datatypes.JSONSlice[string] `json:"controls"`
	FilePath       *string                    `gorm:"type:varchar(512)" json:"file_path"`
	FileSize       *int64                     `json:"file_size"`
	UploadDate     *time.Time                 `json:"upload_date"`
	UploadedBy     uint64                     `json:"uploaded_by"`
	CreatedAt      time.Time                  `json:"created_at"`
	UpdatedAt      time.Time                  `json:"updated_at"`
}

func (RiskAssessment) TableName() string { return "risk_assessments" }

func (RiskAssessment) Kind() DocumentType { return DocumentTypeRiskAssessment }

func (r RiskAssessment) Info() DocumentInfo {
	return DocumentInfo{ID: r.ID, Title: r.Title, DocumentCode: r.DocumentCode, ApprovalStatus: r.ApprovalStatus, FilePath: r.FilePath}
}

type SWMSDocument struct {
	ID             uint64                     `gorm:"primarykey" json:"id"`
	Title          string                     `gorm:"type:varchar(255);not null" json:"title"`
	DocumentCode   string                     `gorm:"type:varchar(50);index" json:"document_code"`
	ActivityType   string                     `gorm:"type:varchar(100)" json:"activity_type"`
	RiskLevel      string                     `gorm:"type:varchar(20)" json:"risk_level"`
	ReviewDate     *time.Time                 `json:"review_date"`
	ApprovalStatus ApprovalStatus             `gorm:"type:varchar(20);not null;default:'draft'" json:"approval_status"`
	Description    string                     `gorm:"type:text" json:"description"`
	Steps          datatypes.JSONSlice[string] `json:"steps"`
	PPE            datatypes.JSONSlice[string] `gorm:"column:ppe" json:"ppe"`
	FilePath       *string                    `gorm:"type:varchar(512)" json:"file_path"`
	FileSize       *int64                     `json:"file_size"`
	UploadDate     *time.Time                 `json:"upload_date"`
	UploadedBy     uint64                     `json:"uploaded_by"`
	CreatedAt      time.Time                  `json:"created_at"`
	UpdatedAt      time.Time                  `json:"updated_at"`
}

func (SWMSDocument) TableName() string { return "swms_documents" }

func (SWMSDocument) Kind() DocumentType { return DocumentTypeSWMS }

func (s SWMSDocument) Info() DocumentInfo {
	return DocumentInfo{ID: s.ID, Title: s.Title, DocumentCode: s.DocumentCode, ApprovalStatus: s.ApprovalStatus, FilePath: s.FilePath}
}

// SafetyAcknowledgment records that a user read a safety document for a task.
// Starting a task requires one record per attached document.
type SafetyAcknowledgment struct {
	ID             uint64       `gorm:"primarykey" json:"id"`
	TaskID         uint64       `gorm:"not null;index" json:"task_id"`
	UserID         uint64       `gorm:"not null;index" json:"user_id"`
	DocumentType   DocumentType `gorm:"type:varchar(20);not null" json:"document_type"`
	DocumentID     uint64       `gorm:"not null" json:"document_id"`
	AcknowledgedAt time.Time    `gorm:"not null" json:"acknowledged_at"`
}

// DocumentFields is the writable field set of a safety document. Fields a
// document kind doesn't carry are ignored by that kind.
type DocumentFields struct {
	Title          string         `json:"title"`
	DocumentCode   string         `json:"document_code"`
	Category       string         `json:"category"`
	ActivityType   string         `json:"activity_type"`
	RiskLevel      string         `json:"risk_level"`
	ReviewDate     *time.Time     `json:"review_date"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	Description    string         `json:"description"`
	Hazards        []string       `json:"hazards"`
	Controls       []string       `json:"controls"`
	Steps          []string       `json:"steps"`
	PPE            []string       `json:"ppe"`
}

// Valid reports whether s is a known approval status.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalDraft, ApprovalPending, ApprovalApproved, ApprovalArchived:
		return true
	}
	return false
}

// MutableDocument is a pointer to a safety document that can take writes.
type MutableDocument[T any] interface {
	*T
	SafetyDocument
	ApplyFields(f DocumentFields)
}

func (r *RiskAssessment) ApplyFields(f DocumentFields) {
	r.Title = f.Title
	r.DocumentCode = f.DocumentCode
	r.Category = f.Category
	r.RiskLevel = f.RiskLevel
	r.ReviewDate = f.ReviewDate
	r.ApprovalStatus = f.ApprovalStatus
	r.Description = f.Description
	r.Hazards = f.Hazards
	r.Controls = f.Controls
}

func (s *SWMSDocument) ApplyFields(f DocumentFields) {
	s.Title = f.Title
	s.DocumentCode = f.DocumentCode
	s.ActivityType = f.ActivityType
	s.RiskLevel = f.RiskLevel
	s.ReviewDate = f.ReviewDate
	s.ApprovalStatus = f.ApprovalStatus
	s.Description = f.Description
	s.Steps = f.Steps
	s.PPE = f.PPE
}
