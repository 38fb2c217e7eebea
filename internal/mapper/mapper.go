package mapper

import (
	"encoding/json"

	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/eta-consult/quote-api/internal/geodata"
)

// ToSubmissionDTO converts FormSubmission to SubmissionDTO.
// The stored form JSON is embedded as-is; unparseable data is returned as a string.
func ToSubmissionDTO(s *domain.FormSubmission, includeFormData bool) domain.SubmissionDTO {
	dto := domain.SubmissionDTO{
		ID:              s.ID,
		Operator:        s.Operator,
		Status:          s.Status,
		CertificateType: s.CertificateType,
		ClientName:      s.ClientName,
		BuildingAddress: s.BuildingAddress,
		QuoteID:         s.ExternalQuoteID,
		DocumentNumber:  s.DocumentNumber,
		ErrorMessage:    s.ErrorMessage,
		ArchiveKey:      s.ArchiveKey,
		CreatedAt:       s.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:       s.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}

	if includeFormData && s.FormData != "" {
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(s.FormData), &data); err == nil {
			dto.FormData = data
		} else {
			dto.FormData = s.FormData
		}
	}
	return dto
}

// ToCacheStatsDTO converts building cache counters
func ToCacheStatsDTO(stats geodata.CacheStats) domain.CacheStatsDTO {
	return domain.CacheStatsDTO{
		Hits:      stats.Hits,
		Misses:    stats.Misses,
		Evictions: stats.Evictions,
		Size:      stats.Size,
		Capacity:  stats.Capacity,
	}
}

// ToCreateQuoteRequest rebuilds a request from a validated form, for replay and CLI output
func ToCreateQuoteRequest(form domain.FormInput) domain.CreateQuoteRequest {
	return domain.CreateQuoteRequest{
		ContactType:                 string(form.ContactType),
		Salutation:                  string(form.Salutation),
		FirstName:                   form.FirstName,
		LastName:                    form.LastName,
		CompanyName:                 form.CompanyName,
		Email:                       form.Email,
		Phone:                       form.Phone,
		Street:                      form.BillingAddress.Street,
		Postcode:                    form.BillingAddress.Postcode,
		Locality:                    form.BillingAddress.Locality,
		BuildingStreet:              form.BuildingAddress.Street,
		BuildingPostcode:            form.BuildingAddress.Postcode,
		BuildingLocality:            form.BuildingAddress.Locality,
		CertificateType:             string(form.CertificateType),
		BasementState:               string(form.BasementState),
		AtticState:                  string(form.AtticState),
		Deadline:                    string(form.Deadline),
		Floors:                      form.FloorsOverride,
		CustomMessage:               form.CustomMessage,
		PreExistingCertificate:      form.PreExistingCertificate,
		ExistingCertificateDiscount: form.ExistingCertificateDiscount,
	}
}
