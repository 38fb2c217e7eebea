package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eta-consult/quote-api/internal/distance"
	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/eta-consult/quote-api/internal/logger"
	"github.com/eta-consult/quote-api/internal/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BuildingProvider resolves an address to registry attributes
type BuildingProvider interface {
	Lookup(ctx context.Context, addr domain.Address) (domain.BuildingAttributes, error)
}

// DistanceProvider returns a driving distance, or 0 when it cannot
type DistanceProvider interface {
	DrivingDistanceKm(ctx context.Context, origin, destination string) decimal.Decimal
}

// QuoteStore submits quote documents to the accounting system
type QuoteStore interface {
	CreateQuote(ctx context.Context, payload domain.QuotePayload) (domain.QuoteReceipt, error)
}

// TariffSource hands out the active tariff snapshot
type TariffSource interface {
	Current() domain.Tariffs
}

// TextSource hands out the active text fragments
type TextSource interface {
	Current() domain.TextFragments
}

// QuoteDefaults are the accounting identifiers and fixed strings stamped on every quote
type QuoteDefaults struct {
	UserID        int
	MwstType      int
	CurrencyID    int
	LanguageID    int
	FooterSource  string
	OfficeAddress string
	Units         AccountingUnits
}

// QuoteServiceDeps groups the collaborators of QuoteService.
// Submissions and Archive may be nil.
type QuoteServiceDeps struct {
	Validator   *FormValidator
	Contacts    *ContactResolver
	Buildings   BuildingProvider
	Distance    DistanceProvider
	Quotes      QuoteStore
	Tariffs     TariffSource
	Texts       TextSource
	Submissions *SubmissionService
	Archive     storage.Storage
}

// QuoteService runs the quote workflow from raw form to submitted document
type QuoteService struct {
	deps     QuoteServiceDeps
	defaults QuoteDefaults
	logger   *zap.Logger
	now      func() time.Time
}

// NewQuoteService creates a new quote service
func NewQuoteService(deps QuoteServiceDeps, defaults QuoteDefaults, logger *zap.Logger) *QuoteService {
	return &QuoteService{
		deps:     deps,
		defaults: defaults,
		logger:   logger,
		now:      time.Now,
	}
}

// draft is everything computed before contacts and submission
type draft struct {
	title     string
	footer    string
	building  domain.BuildingAttributes
	pricing   *domain.PricingResult
	items     []domain.LineItem
	positions []domain.Position
	total     decimal.Decimal
}

// Create validates the form, builds the quote, resolves the counterparts
// and submits the document. Every run is recorded when auditing is enabled.
func (s *QuoteService) Create(ctx context.Context, operator string, req domain.CreateQuoteRequest) (*domain.QuoteOutcome, error) {
	form, err := s.deps.Validator.Validate(operator, req)
	if err != nil {
		return nil, err
	}

	submissionID := uuid.New()
	log := logger.WithSubmission(logger.FromContext(ctx, s.logger), submissionID.String(), operator, string(form.CertificateType))
	log.Info("Quote request received", zap.String("client", form.ClientName()))

	if err := s.deps.Submissions.Start(ctx, submissionID, form); err != nil {
		log.Warn("Failed to record submission", zap.Error(err))
	}

	outcome, err := s.create(ctx, log, submissionID, form)
	if err != nil {
		if markErr := s.deps.Submissions.MarkFailed(ctx, submissionID, err); markErr != nil {
			log.Warn("Failed to record submission failure", zap.Error(markErr))
		}
		return nil, err
	}
	return outcome, nil
}

func (s *QuoteService) create(ctx context.Context, log *zap.Logger, submissionID uuid.UUID, form domain.FormInput) (*domain.QuoteOutcome, error) {
	d, err := s.prepare(ctx, log, form)
	if err != nil {
		return nil, err
	}

	contacts, err := s.deps.Contacts.Resolve(ctx, form)
	if err != nil {
		log.Error("Contact resolution failed", zap.Error(err))
		return nil, fmt.Errorf("failed to resolve contacts: %w", err)
	}

	payload := s.payload(d, contacts)
	receipt, err := s.deps.Quotes.CreateQuote(ctx, payload)
	if err != nil {
		log.Error("Quote submission failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrSubmissionFailed, err)
	}
	log.Info("Quote created",
		zap.Int("quote_id", receipt.ID),
		zap.String("document_nr", receipt.DocumentNr),
		zap.String("title", d.title),
	)

	archiveKey := s.archive(ctx, log, submissionID, payload, receipt)
	if err := s.deps.Submissions.MarkCreated(ctx, submissionID, receipt, archiveKey); err != nil {
		log.Warn("Failed to record submission outcome", zap.Error(err))
	}

	return &domain.QuoteOutcome{
		SubmissionID:   submissionID,
		QuoteID:        receipt.ID,
		DocumentNumber: receipt.DocumentNr,
		Title:          d.title,
		Contacts:       contacts,
		Pricing:        d.pricing,
		Building:       d.building,
		LineItems:      d.items,
		TotalExclTax:   d.total,
	}, nil
}

// Preview runs lookups, pricing and composition without touching the accounting system
func (s *QuoteService) Preview(ctx context.Context, req domain.CreateQuoteRequest) (*domain.QuotePreview, error) {
	form, err := s.deps.Validator.Validate("", req)
	if err != nil {
		return nil, err
	}
	return s.PreviewForm(ctx, form)
}

// PreviewForm is Preview for an already validated form
func (s *QuoteService) PreviewForm(ctx context.Context, form domain.FormInput) (*domain.QuotePreview, error) {
	d, err := s.prepare(ctx, logger.FromContext(ctx, s.logger), form)
	if err != nil {
		return nil, err
	}
	return &domain.QuotePreview{
		Title:        d.title,
		Footer:       d.footer,
		Pricing:      d.pricing,
		Building:     d.building,
		LineItems:    d.items,
		Positions:    d.positions,
		TotalExclTax: d.total,
	}, nil
}

// prepare takes one tariff and text snapshot and builds the document body
func (s *QuoteService) prepare(ctx context.Context, log *zap.Logger, form domain.FormInput) (*draft, error) {
	tariffs := s.deps.Tariffs.Current()
	texts := s.deps.Texts.Current()

	building, distanceKm, err := s.lookups(ctx, log, form)
	if err != nil {
		return nil, err
	}

	var pricing *domain.PricingResult
	if form.CertificateType.RequiresPricing() {
		engine, err := NewPricingEngine(tariffs, log)
		if err != nil {
			return nil, err
		}
		result, err := engine.Price(building, form, distanceKm)
		if err != nil {
			return nil, err
		}
		pricing = &result
		log.Info("Quote priced",
			zap.String("equivalent_surface", result.EquivalentSurface.String()),
			zap.String("distance_km", result.DistanceKm.String()),
			zap.String("basic_price", result.BasicUnitPrice.String()),
			zap.String("plus_price", result.PlusUnitPrice.String()),
		)
	}

	composer := NewLineItemComposer(tariffs, texts, s.defaults.Units)
	items, err := composer.Compose(form, building, pricing)
	if err != nil {
		return nil, err
	}

	positions := make([]domain.Position, len(items))
	for i, item := range items {
		positions[i] = item.ToPosition()
	}

	return &draft{
		title:     QuoteTitle(form.CertificateType, form.BuildingAddress),
		footer:    QuoteFooter(tariffs, s.defaults.FooterSource),
		building:  building,
		pricing:   pricing,
		items:     items,
		positions: positions,
		total:     EstimatedTotal(items),
	}, nil
}

// lookups fetches building data and distance concurrently. Both degrade to
// defaults; only cancellation of ctx is returned.
func (s *QuoteService) lookups(ctx context.Context, log *zap.Logger, form domain.FormInput) (domain.BuildingAttributes, decimal.Decimal, error) {
	var (
		building   domain.BuildingAttributes
		distanceKm = decimal.Zero
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := s.deps.Buildings.Lookup(gctx, form.BuildingAddress)
		switch {
		case err == nil:
			building = b
		case errors.Is(err, domain.ErrBuildingNotFound):
			log.Warn("Building not found in registry, using defaults",
				zap.String("address", form.BuildingAddress.String()))
			building = domain.DefaultBuilding()
		default:
			log.Warn("Building lookup failed, using defaults",
				zap.String("address", form.BuildingAddress.String()),
				zap.Error(err))
			building = domain.DefaultBuilding()
		}
		return nil
	})
	if form.CertificateType.RequiresPricing() {
		g.Go(func() error {
			distanceKm = s.deps.Distance.DrivingDistanceKm(gctx, s.defaults.OfficeAddress, distance.Destination(form.BuildingAddress))
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return domain.BuildingAttributes{}, decimal.Zero, err
	}
	return building, distanceKm, nil
}

func (s *QuoteService) payload(d *draft, contacts domain.ContactResolution) domain.QuotePayload {
	return domain.QuotePayload{
		ContactID:    contacts.PrimaryID,
		ContactSubID: contacts.AssociateID,
		UserID:       s.defaults.UserID,
		Title:        d.title,
		MwstType:     s.defaults.MwstType,
		CurrencyID:   s.defaults.CurrencyID,
		LanguageID:   s.defaults.LanguageID,
		Footer:       d.footer,
		Positions:    d.positions,
	}
}

// archive stores the submitted payload; failures are logged and yield no key
func (s *QuoteService) archive(ctx context.Context, log *zap.Logger, submissionID uuid.UUID, payload domain.QuotePayload, receipt domain.QuoteReceipt) string {
	if s.deps.Archive == nil {
		return ""
	}

	record := struct {
		SubmissionID uuid.UUID           `json:"submissionId"`
		Receipt      domain.QuoteReceipt `json:"receipt"`
		Payload      domain.QuotePayload `json:"payload"`
		ArchivedAt   time.Time           `json:"archivedAt"`
	}{submissionID, receipt, payload, s.now().UTC()}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		log.Warn("Failed to encode quote archive", zap.Error(err))
		return ""
	}

	key := ArchiveKey(s.now(), submissionID)
	if _, err := s.deps.Archive.Put(ctx, key, "application/json", bytes.NewReader(data)); err != nil {
		log.Warn("Failed to archive quote payload", zap.String("key", key), zap.Error(err))
		return ""
	}
	return key
}

// ArchiveKey is quotes/YYYY/MM/<submission-id>.json
func ArchiveKey(at time.Time, submissionID uuid.UUID) string {
	at = at.UTC()
	return fmt.Sprintf("quotes/%04d/%02d/%s.json", at.Year(), int(at.Month()), submissionID)
}

// QuoteTitle is "<label> - <street>, <postcode>, <locality>"
func QuoteTitle(certificate domain.CertificateType, building domain.Address) string {
	return fmt.Sprintf("%s - %s, %s, %s", certificate.Label(), building.Street, building.Postcode, building.Locality)
}

// QuoteFooter states the payment terms with the configured down-payment share
func QuoteFooter(tariffs domain.Tariffs, source string) string {
	pct := tariffs.GetOr(domain.TariffDownPaymentPct, decimal.NewFromInt(30))
	footer := fmt.Sprintf("Conditions de paiement : Acompte de %s%% à la commande, solde à réception du rapport.", pct.String())
	if source != "" {
		footer += "<br><br>" + source
	}
	return footer
}

// EstimatedTotal sums quantity times unit price over priced items
func EstimatedTotal(items []domain.LineItem) decimal.Decimal {
	return domain.SumLineItems(items)
}
