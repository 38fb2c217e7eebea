package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FormTypeQuote identifies quote-creation submissions
const FormTypeQuote = "devis_cecb"

// SubmissionStatus tracks a quote request through the workflow
type SubmissionStatus string

const (
	SubmissionSubmitted    SubmissionStatus = "submitted"
	SubmissionQuoteCreated SubmissionStatus = "quote_created"
	SubmissionError        SubmissionStatus = "error"
)

// IsValid checks if the SubmissionStatus is a valid enum value
func (s SubmissionStatus) IsValid() bool {
	switch s {
	case SubmissionSubmitted, SubmissionQuoteCreated, SubmissionError:
		return true
	}
	return false
}

// FormSubmission is the audit record of one quote request
type FormSubmission struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Operator        string           `gorm:"type:varchar(100);not null;index"`
	FormType        string           `gorm:"type:varchar(50);not null;column:form_type"`
	FormData        string           `gorm:"type:text;not null;column:form_data"`
	ExternalQuoteID *int             `gorm:"column:external_quote_id"`
	DocumentNumber  string           `gorm:"type:varchar(50);column:document_number"`
	Status          SubmissionStatus `gorm:"type:varchar(20);not null;index"`
	ErrorMessage    string           `gorm:"type:text;column:error_message"`
	CertificateType CertificateType  `gorm:"type:varchar(30);column:certificate_type"`
	ClientName      string           `gorm:"type:varchar(200);column:client_name"`
	BuildingAddress string           `gorm:"type:varchar(300);column:building_address"`
	ArchiveKey      string           `gorm:"type:varchar(300);column:archive_key"`
	CreatedAt       time.Time        `gorm:"not null;index"`
	UpdatedAt       time.Time        `gorm:"not null"`
}

// TableName overrides the default table name
func (FormSubmission) TableName() string {
	return "quote_submissions"
}

// BeforeCreate assigns the id client-side so every dialect behaves the same
func (s *FormSubmission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
