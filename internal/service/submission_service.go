package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/eta-consult/quote-api/internal/mapper"
	"github.com/eta-consult/quote-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubmissionService records quote requests and their outcome.
// With a nil repository every write is a no-op and reads report the trail as disabled.
type SubmissionService struct {
	repo   *repository.SubmissionRepository
	logger *zap.Logger
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(repo *repository.SubmissionRepository, logger *zap.Logger) *SubmissionService {
	return &SubmissionService{repo: repo, logger: logger}
}

// Enabled reports whether submissions are persisted
func (s *SubmissionService) Enabled() bool {
	return s != nil && s.repo != nil
}

// Start records a new submission in the "submitted" state
func (s *SubmissionService) Start(ctx context.Context, id uuid.UUID, form domain.FormInput) error {
	if !s.Enabled() {
		return nil
	}

	data, err := json.Marshal(mapper.ToCreateQuoteRequest(form))
	if err != nil {
		return fmt.Errorf("failed to encode form data: %w", err)
	}

	submission := &domain.FormSubmission{
		ID:              id,
		Operator:        form.Operator,
		FormType:        domain.FormTypeQuote,
		FormData:        string(data),
		Status:          domain.SubmissionSubmitted,
		CertificateType: form.CertificateType,
		ClientName:      form.ClientName(),
		BuildingAddress: form.BuildingAddress.String(),
	}
	if err := s.repo.Create(ctx, submission); err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

// MarkCreated stores the accounting identifiers and archive location
func (s *SubmissionService) MarkCreated(ctx context.Context, id uuid.UUID, receipt domain.QuoteReceipt, archiveKey string) error {
	return s.update(ctx, id, func(sub *domain.FormSubmission) {
		quoteID := receipt.ID
		sub.ExternalQuoteID = &quoteID
		sub.DocumentNumber = receipt.DocumentNr
		sub.ArchiveKey = archiveKey
		sub.Status = domain.SubmissionQuoteCreated
		sub.ErrorMessage = ""
	})
}

// MarkFailed records the failure reason for operator follow-up
func (s *SubmissionService) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	return s.update(ctx, id, func(sub *domain.FormSubmission) {
		sub.Status = domain.SubmissionError
		sub.ErrorMessage = cause.Error()
	})
}

func (s *SubmissionService) update(ctx context.Context, id uuid.UUID, apply func(*domain.FormSubmission)) error {
	if !s.Enabled() {
		return nil
	}
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	apply(sub)
	if err := s.repo.Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	return nil
}

// GetByID returns one submission including its form data
func (s *SubmissionService) GetByID(ctx context.Context, id uuid.UUID) (*domain.SubmissionDTO, error) {
	if !s.Enabled() {
		return nil, domain.ErrSubmissionNotFound
	}
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToSubmissionDTO(sub, true)
	return &dto, nil
}

// List returns a page of submissions, newest first
func (s *SubmissionService) List(ctx context.Context, filter *repository.SubmissionFilter, page, pageSize int) (*domain.PaginatedResponse, error) {
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 200 {
		pageSize = 200
	}
	if page < 1 {
		page = 1
	}
	if !s.Enabled() {
		return &domain.PaginatedResponse{Data: []domain.SubmissionDTO{}, Page: page, PageSize: pageSize}, nil
	}

	subs, total, err := s.repo.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	dtos := make([]domain.SubmissionDTO, len(subs))
	for i := range subs {
		dtos[i] = mapper.ToSubmissionDTO(&subs[i], false)
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &domain.PaginatedResponse{
		Data:       dtos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// SweepStale fails submissions that stayed "submitted" for longer than olderThan
func (s *SubmissionService) SweepStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	if !s.Enabled() {
		return 0, nil
	}
	cutoff := time.Now().Add(-olderThan)
	n, err := s.repo.MarkStale(ctx, cutoff, fmt.Sprintf("no outcome recorded within %s", olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale submissions: %w", err)
	}
	if n > 0 {
		s.logger.Warn("Stale submissions marked as failed", zap.Int64("count", n))
	}
	return n, nil
}
