package repository

import (
	"context"
	"errors"
	"time"

	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmissionFilter narrows submission listings
type SubmissionFilter struct {
	Status   *domain.SubmissionStatus
	Operator string
}

// SubmissionRepository handles quote submission audit records
type SubmissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository creates a new submission repository
func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts a new submission
func (r *SubmissionRepository) Create(ctx context.Context, submission *domain.FormSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

// GetByID retrieves a submission by ID
func (r *SubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.FormSubmission, error) {
	var submission domain.FormSubmission
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&submission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSubmissionNotFound
		}
		return nil, err
	}
	return &submission, nil
}

// Update saves every field of the submission
func (r *SubmissionRepository) Update(ctx context.Context, submission *domain.FormSubmission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

// List retrieves submissions newest first with pagination and optional filters
func (r *SubmissionRepository) List(ctx context.Context, filter *SubmissionFilter, page, pageSize int) ([]domain.FormSubmission, int64, error) {
	var submissions []domain.FormSubmission
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.FormSubmission{})
	if filter != nil {
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
		if filter.Operator != "" {
			query = query.Where("operator = ?", filter.Operator)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&submissions).Error

	return submissions, total, err
}

// MarkStale moves submissions still in "submitted" since before the cutoff to "error"
func (r *SubmissionRepository) MarkStale(ctx context.Context, before time.Time, reason string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.FormSubmission{}).
		Where("status = ? AND created_at < ?", domain.SubmissionSubmitted, before).
		Updates(map[string]interface{}{
			"status":        domain.SubmissionError,
			"error_message": reason,
			"updated_at":    time.Now(),
		})
	return result.RowsAffected, result.Error
}
