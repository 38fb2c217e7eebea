package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/eta-consult/quote-api/internal/domain"
	"go.uber.org/zap"
)

// CounterpartStore is the accounting system's client directory
type CounterpartStore interface {
	SearchCounterparts(ctx context.Context, term string) ([]domain.Counterpart, error)
	CreateCounterpart(ctx context.Context, c domain.Counterpart) (domain.Counterpart, error)
	UpdateCounterpart(ctx context.Context, id int, fields map[string]interface{}) (domain.Counterpart, error)
	ListRelations(ctx context.Context, companyID int) ([]domain.CounterpartRelation, error)
	CreateRelation(ctx context.Context, companyID int, rel domain.CounterpartRelation) (domain.CounterpartRelation, error)
}

// ContactDefaults are the fixed identifiers stamped on created counterparts
type ContactDefaults struct {
	IndividualTypeID    int
	CompanyTypeID       int
	CountryID           int
	LanguageID          int
	UserID              int
	OwnerID             int
	SalutationIDs       map[domain.Salutation]int
	RelationDescription string
}

// ContactResolver finds or creates the counterparts a quote is addressed to.
// Every create is preceded by a search so repeated runs converge on the same records.
type ContactResolver struct {
	store    CounterpartStore
	defaults ContactDefaults
	logger   *zap.Logger
}

// NewContactResolver creates a new resolver
func NewContactResolver(store CounterpartStore, defaults ContactDefaults, logger *zap.Logger) *ContactResolver {
	return &ContactResolver{store: store, defaults: defaults, logger: logger}
}

// Resolve maps the form's party onto accounting counterparts
func (r *ContactResolver) Resolve(ctx context.Context, form domain.FormInput) (domain.ContactResolution, error) {
	contactType, err := domain.ParseContactType(string(form.ContactType))
	if err != nil {
		return domain.ContactResolution{}, err
	}

	switch contactType {
	case domain.ContactIndividual:
		id, err := r.resolveIndividual(ctx, form)
		if err != nil {
			return domain.ContactResolution{}, err
		}
		return domain.ContactResolution{PrimaryID: id}, nil

	case domain.ContactCompany:
		if strings.TrimSpace(form.CompanyName) == "" {
			return domain.ContactResolution{}, domain.NewValidationError("companyName", "company name is required for company contacts")
		}
		companyID, err := r.resolveCompany(ctx, form)
		if err != nil {
			return domain.ContactResolution{}, err
		}
		personID, err := r.resolveIndividual(ctx, form)
		if err != nil {
			return domain.ContactResolution{}, err
		}
		if err := r.ensureRelation(ctx, companyID, personID); err != nil {
			return domain.ContactResolution{}, err
		}
		return domain.ContactResolution{PrimaryID: companyID, AssociateID: &personID}, nil
	}

	return domain.ContactResolution{}, fmt.Errorf("%w: %q", domain.ErrUnknownContactType, form.ContactType)
}

func (r *ContactResolver) resolveIndividual(ctx context.Context, form domain.FormInput) (int, error) {
	var (
		found *domain.Counterpart
		err   error
	)
	if form.Email != "" {
		found, err = r.findByEmail(ctx, form.Email)
	} else {
		found, err = r.findIndividualByName(ctx, form.FirstName, form.LastName)
	}
	if err != nil {
		return 0, err
	}
	if found != nil {
		r.logger.Info("Existing individual counterpart found", zap.Int("counterpart_id", found.ID))
		return found.ID, nil
	}

	c := domain.Counterpart{
		ContactTypeID: r.defaults.IndividualTypeID,
		Name1:         form.LastName,
		Name2:         form.FirstName,
		Postcode:      form.BillingAddress.Postcode,
		City:          form.BillingAddress.Locality,
		CountryID:     r.defaults.CountryID,
		LanguageID:    r.defaults.LanguageID,
		Mail:          form.Email,
		PhoneMobile:   form.Phone,
		UserID:        r.defaults.UserID,
		OwnerID:       r.defaults.OwnerID,
	}
	if id, ok := r.defaults.SalutationIDs[form.Salutation]; ok {
		c.SalutationID = &id
	}

	return r.createWithAddress(ctx, c, form.BillingAddress.Street)
}

func (r *ContactResolver) resolveCompany(ctx context.Context, form domain.FormInput) (int, error) {
	results, err := r.store.SearchCounterparts(ctx, form.CompanyName)
	if err != nil {
		return 0, fmt.Errorf("search company %q: %w", form.CompanyName, err)
	}
	for _, c := range results {
		if strings.EqualFold(strings.TrimSpace(c.Name1), form.CompanyName) && c.ContactTypeID == r.defaults.CompanyTypeID {
			r.logger.Info("Existing company counterpart found", zap.Int("counterpart_id", c.ID))
			return c.ID, nil
		}
	}

	return r.createWithAddress(ctx, domain.Counterpart{
		ContactTypeID: r.defaults.CompanyTypeID,
		Name1:         form.CompanyName,
		Postcode:      form.BillingAddress.Postcode,
		City:          form.BillingAddress.Locality,
		CountryID:     r.defaults.CountryID,
		LanguageID:    r.defaults.LanguageID,
		UserID:        r.defaults.UserID,
		OwnerID:       r.defaults.OwnerID,
	}, form.BillingAddress.Street)
}

// findByEmail accepts only an exact, case-insensitive email match on an
// individual. A same-email record of another type is a conflict and is ignored.
func (r *ContactResolver) findByEmail(ctx context.Context, email string) (*domain.Counterpart, error) {
	results, err := r.store.SearchCounterparts(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("search counterpart by email: %w", err)
	}
	for i := range results {
		c := results[i]
		if !strings.EqualFold(strings.TrimSpace(c.Mail), email) {
			continue
		}
		if c.ContactTypeID != r.defaults.IndividualTypeID {
			r.logger.Info("Ignoring same-email counterpart of another type",
				zap.Int("counterpart_id", c.ID),
				zap.Int("contact_type_id", c.ContactTypeID),
				zap.NamedError("reason", domain.ErrCounterpartConflict),
			)
			continue
		}
		return &c, nil
	}
	return nil, nil
}

func (r *ContactResolver) findIndividualByName(ctx context.Context, firstName, lastName string) (*domain.Counterpart, error) {
	results, err := r.store.SearchCounterparts(ctx, lastName)
	if err != nil {
		return nil, fmt.Errorf("search counterpart by name: %w", err)
	}
	for i := range results {
		c := results[i]
		if c.ContactTypeID == r.defaults.IndividualTypeID &&
			strings.EqualFold(strings.TrimSpace(c.Name1), lastName) &&
			strings.EqualFold(strings.TrimSpace(c.Name2), firstName) {
			return &c, nil
		}
	}
	return nil, nil
}

// createWithAddress creates the counterpart, then sets the street in a second
// call since creation does not accept it. A failed update is only logged.
func (r *ContactResolver) createWithAddress(ctx context.Context, c domain.Counterpart, street string) (int, error) {
	created, err := r.store.CreateCounterpart(ctx, c)
	if err != nil {
		return 0, fmt.Errorf("create counterpart %q: %w", c.Name1, err)
	}
	r.logger.Info("Counterpart created",
		zap.Int("counterpart_id", created.ID),
		zap.Int("contact_type_id", c.ContactTypeID),
	)

	if street != "" {
		if _, err := r.store.UpdateCounterpart(ctx, created.ID, map[string]interface{}{"address": street}); err != nil {
			r.logger.Warn("Failed to set counterpart address",
				zap.Int("counterpart_id", created.ID),
				zap.Error(err),
			)
		}
	}
	return created.ID, nil
}

func (r *ContactResolver) ensureRelation(ctx context.Context, companyID, personID int) error {
	relations, err := r.store.ListRelations(ctx, companyID)
	if err != nil {
		return fmt.Errorf("list relations of counterpart %d: %w", companyID, err)
	}
	for _, rel := range relations {
		if rel.ContactSubID == personID {
			return nil
		}
	}

	if _, err := r.store.CreateRelation(ctx, companyID, domain.CounterpartRelation{
		ContactSubID: personID,
		Description:  r.defaults.RelationDescription,
	}); err != nil {
		return fmt.Errorf("link counterpart %d to %d: %w", personID, companyID, err)
	}
	r.logger.Info("Counterpart relation created",
		zap.Int("company_id", companyID),
		zap.Int("person_id", personID),
	)
	return nil
}
