package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateQuoteRequest is the inbound quote form
type CreateQuoteRequest struct {
	ContactType string `json:"contactType" validate:"required"`
	Salutation  string `json:"salutation,omitempty" validate:"omitempty,oneof=Mme M. Mx"`
	FirstName   string `json:"firstName" validate:"required,max=100"`
	LastName    string `json:"lastName" validate:"required,max=100"`
	CompanyName string `json:"companyName,omitempty" validate:"max=200"`
	Email       string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone       string `json:"phone,omitempty" validate:"max=40"`

	Street   string `json:"street" validate:"required,max=200"`
	Postcode string `json:"postcode" validate:"required"`
	Locality string `json:"locality" validate:"required,max=100"`

	BuildingStreet   string `json:"buildingStreet,omitempty" validate:"max=200"`
	BuildingPostcode string `json:"buildingPostcode,omitempty"`
	BuildingLocality string `json:"buildingLocality,omitempty" validate:"max=100"`

	CertificateType string `json:"certificateType" validate:"required"`
	BasementState   string `json:"basementState,omitempty"`
	AtticState      string `json:"atticState,omitempty"`
	Deadline        string `json:"deadline,omitempty"`
	Floors          *int   `json:"floors,omitempty" validate:"omitempty,gte=0,lte=200"`

	CustomMessage string `json:"customMessage,omitempty" validate:"max=4000"`

	PreExistingCertificate      bool            `json:"preExistingCertificate,omitempty"`
	ExistingCertificateDiscount decimal.Decimal `json:"existingCertificateDiscount"`
}

// SubmissionDTO is the API view of an audit record
type SubmissionDTO struct {
	ID              uuid.UUID        `json:"id"`
	Operator        string           `json:"operator"`
	Status          SubmissionStatus `json:"status"`
	CertificateType CertificateType  `json:"certificateType,omitempty"`
	ClientName      string           `json:"clientName,omitempty"`
	BuildingAddress string           `json:"buildingAddress,omitempty"`
	QuoteID         *int             `json:"quoteId,omitempty"`
	DocumentNumber  string           `json:"documentNumber,omitempty"`
	ErrorMessage    string           `json:"errorMessage,omitempty"`
	ArchiveKey      string           `json:"archiveKey,omitempty"`
	FormData        interface{}      `json:"formData,omitempty"`
	CreatedAt       string           `json:"createdAt"` // ISO 8601
	UpdatedAt       string           `json:"updatedAt"` // ISO 8601
}

// CacheStatsDTO reports building cache counters
type CacheStatsDTO struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Size      int    `json:"size"`
	Capacity  int    `json:"capacity"`
}

// PaginatedResponse wraps a page of results
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}
