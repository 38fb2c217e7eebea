package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/eta-consult/quote-api/internal/repository"
	"github.com/eta-consult/quote-api/internal/service"
	"github.com/eta-consult/quote-api/internal/storage"
	"github.com/eta-consult/quote-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type quoteFixture struct {
	svc         *service.QuoteService
	counterpart *fakeCounterpartStore
	quotes      *fakeQuoteStore
	buildings   *fakeBuildings
	submissions *service.SubmissionService
	archive     *storage.LocalStorage
}

func newQuoteFixture(t *testing.T) *quoteFixture {
	t.Helper()
	archive, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	f := &quoteFixture{
		counterpart: newFakeCounterpartStore(),
		quotes:      &fakeQuoteStore{},
		buildings:   &fakeBuildings{building: testBuilding()},
		submissions: service.NewSubmissionService(repository.NewSubmissionRepository(testutil.SetupTestDB(t)), zap.NewNop()),
		archive:     archive,
	}
	f.svc = service.NewQuoteService(service.QuoteServiceDeps{
		Validator:   service.NewFormValidator(zap.NewNop()),
		Contacts:    service.NewContactResolver(f.counterpart, testContactDefaults(), zap.NewNop()),
		Buildings:   f.buildings,
		Distance:    fakeDistance{km: decimal.NewFromInt(15)},
		Quotes:      f.quotes,
		Tariffs:     staticTariffs(testTariffs()),
		Texts:       staticTexts(testTexts()),
		Submissions: f.submissions,
		Archive:     archive,
	}, service.QuoteDefaults{
		UserID:        1,
		MwstType:      0,
		CurrencyID:    1,
		LanguageID:    2,
		FooterSource:  "Source : test",
		OfficeAddress: "Route de l'Hôpital 16b, 1180 Rolle, Suisse",
		Units:         testUnits,
	}, zap.NewNop())
	return f
}

func quoteRequest(cert string) domain.CreateQuoteRequest {
	return domain.CreateQuoteRequest{
		ContactType:     "Individual",
		FirstName:       "Anne",
		LastName:        "Martin",
		Email:           "anne@example.ch",
		Street:          "Rue du Lac 1",
		Postcode:        "1180",
		Locality:        "Rolle",
		CertificateType: cert,
	}
}

// ============================================================================
// Create
// ============================================================================

func TestQuoteService_CreateBasic(t *testing.T) {
	f := newQuoteFixture(t)
	ctx := context.Background()

	outcome, err := f.svc.Create(ctx, "jdoe", quoteRequest("CECB"))
	require.NoError(t, err)

	// 2 floors x 120 m2 = 240 m2, 15 km: 500 + 13.5 + 144 = 657.5 -> 658
	require.NotNil(t, outcome.Pricing)
	assert.Equal(t, "658", outcome.Pricing.BasicUnitPrice.String())
	assert.Equal(t, "738", outcome.TotalExclTax.String())
	assert.Equal(t, "CECB - Rue du Lac 1, 1180, Rolle", outcome.Title)
	assert.Equal(t, 5001, outcome.QuoteID)
	assert.Equal(t, "AN-00001", outcome.DocumentNumber)

	require.Len(t, f.quotes.payloads, 1)
	payload := f.quotes.payloads[0]
	assert.Equal(t, outcome.Contacts.PrimaryID, payload.ContactID)
	assert.Nil(t, payload.ContactSubID)
	assert.Equal(t, "Conditions de paiement : Acompte de 30% à la commande, solde à réception du rapport.<br><br>Source : test", payload.Footer)
	assert.Len(t, payload.Positions, len(outcome.LineItems))
	assert.Equal(t, domain.PositionTypeCustom, payload.Positions[0].Type)

	sub, err := f.submissions.GetByID(ctx, outcome.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionQuoteCreated, sub.Status)
	require.NotNil(t, sub.QuoteID)
	assert.Equal(t, 5001, *sub.QuoteID)
	assert.Equal(t, "Anne Martin", sub.ClientName)

	rc, err := f.archive.Get(ctx, sub.ArchiveKey)
	require.NoError(t, err)
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	require.NoError(t, err)
	var archived map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &archived))
	assert.Equal(t, outcome.SubmissionID.String(), archived["submissionId"])
}

func TestQuoteService_CreatePlus(t *testing.T) {
	f := newQuoteFixture(t)

	outcome, err := f.svc.Create(context.Background(), "jdoe", quoteRequest("CECB Plus"))
	require.NoError(t, err)

	assert.Equal(t, "921", outcome.Pricing.PlusUnitPrice.String())
	// 658 + 80 + 921 + 155 + 120 + 155
	assert.Equal(t, "2089", outcome.TotalExclTax.String())
	assert.Equal(t, "CECB Plus - Rue du Lac 1, 1180, Rolle", outcome.Title)
}

func TestQuoteService_CreateIncentiveAdviceSkipsPricing(t *testing.T) {
	f := newQuoteFixture(t)

	outcome, err := f.svc.Create(context.Background(), "jdoe", quoteRequest("Conseil Incitatif"))
	require.NoError(t, err)
	assert.Nil(t, outcome.Pricing)
	assert.True(t, outcome.TotalExclTax.IsZero())
	assert.Equal(t, 1, f.buildings.calls)
}

func TestQuoteService_CreateCompanyLinksContact(t *testing.T) {
	f := newQuoteFixture(t)
	req := quoteRequest("CECB")
	req.ContactType = "Company"
	req.CompanyName = "Immo Léman SA"

	outcome, err := f.svc.Create(context.Background(), "jdoe", req)
	require.NoError(t, err)
	require.NotNil(t, outcome.Contacts.AssociateID)

	payload := f.quotes.payloads[0]
	require.NotNil(t, payload.ContactSubID)
	assert.Equal(t, *outcome.Contacts.AssociateID, *payload.ContactSubID)
}

func TestQuoteService_BuildingFallback(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"not found", domain.ErrBuildingNotFound},
		{"lookup failure", errors.New("connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newQuoteFixture(t)
			f.buildings.err = tt.err

			outcome, err := f.svc.Create(context.Background(), "jdoe", quoteRequest("CECB"))
			require.NoError(t, err)
			assert.Equal(t, domain.NotAvailable, outcome.Building.EGID)
			// 2 floors x 100 m2 = 200 m2: 500 + 13.5 + 120 = 633.5 -> 634
			assert.Equal(t, "634", outcome.Pricing.BasicUnitPrice.String())
		})
	}
}

func TestQuoteService_SubmissionFailureIsRecorded(t *testing.T) {
	f := newQuoteFixture(t)
	f.quotes.err = errors.New("422 unprocessable")

	_, err := f.svc.Create(context.Background(), "jdoe", quoteRequest("CECB"))
	require.ErrorIs(t, err, domain.ErrSubmissionFailed)

	page, err := f.submissions.List(context.Background(), nil, 1, 10)
	require.NoError(t, err)
	subs := page.Data.([]domain.SubmissionDTO)
	require.Len(t, subs, 1)
	assert.Equal(t, domain.SubmissionError, subs[0].Status)
	assert.Contains(t, subs[0].ErrorMessage, "422 unprocessable")
}

func TestQuoteService_ValidationFailsBeforeAnySideEffect(t *testing.T) {
	f := newQuoteFixture(t)
	req := quoteRequest("CECB Gold")

	_, err := f.svc.Create(context.Background(), "jdoe", req)
	require.ErrorIs(t, err, domain.ErrInvalidCertificateType)
	assert.Equal(t, 0, f.counterpart.creates)
	assert.Empty(t, f.quotes.payloads)
	assert.Equal(t, 0, f.buildings.calls)
}

func TestQuoteService_MissingTariffStopsBeforeContacts(t *testing.T) {
	f := newQuoteFixture(t)
	tariffs := testTariffs()
	delete(tariffs, domain.TariffPlusEmissionFee)

	svc := service.NewQuoteService(service.QuoteServiceDeps{
		Validator: service.NewFormValidator(zap.NewNop()),
		Contacts:  service.NewContactResolver(f.counterpart, testContactDefaults(), zap.NewNop()),
		Buildings: f.buildings,
		Distance:  fakeDistance{km: decimal.NewFromInt(15)},
		Quotes:    f.quotes,
		Tariffs:   staticTariffs(tariffs),
		Texts:     staticTexts(testTexts()),
	}, service.QuoteDefaults{Units: testUnits}, zap.NewNop())

	_, err := svc.Create(context.Background(), "jdoe", quoteRequest("CECB Plus"))
	var missing *domain.MissingTariffError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, domain.TariffPlusEmissionFee, missing.Key)
	assert.Equal(t, 0, f.counterpart.creates)
}

func TestQuoteService_CancelledContext(t *testing.T) {
	f := newQuoteFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Preview(ctx, quoteRequest("CECB"))
	assert.ErrorIs(t, err, context.Canceled)
}

// ============================================================================
// Preview
// ============================================================================

func TestQuoteService_Preview(t *testing.T) {
	f := newQuoteFixture(t)
	req := quoteRequest("CECB")
	req.Deadline = "Express"

	preview, err := f.svc.Preview(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "135", preview.Pricing.ExecutionSurcharge.String())
	assert.Equal(t, "873", preview.TotalExclTax.String())
	assert.Len(t, preview.Positions, len(preview.LineItems))
	assert.Contains(t, preview.Footer, "Acompte de 30%")

	assert.Equal(t, 0, f.counterpart.creates)
	assert.Empty(t, f.quotes.payloads)
	page, err := f.submissions.List(context.Background(), nil, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), page.Total)
}

// ============================================================================
// Helpers
// ============================================================================

func TestQuoteFooter(t *testing.T) {
	tariffs := testTariffs()
	tariffs[domain.TariffDownPaymentPct] = decimal.NewFromInt(40)
	assert.Equal(t,
		"Conditions de paiement : Acompte de 40% à la commande, solde à réception du rapport.",
		service.QuoteFooter(tariffs, ""))
}

func TestArchiveKey(t *testing.T) {
	id := uuid.MustParse("7b0e4c36-1f7e-4f57-9a35-0d7f5f7c2a10")
	at := time.Date(2026, 3, 5, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "quotes/2026/03/7b0e4c36-1f7e-4f57-9a35-0d7f5f7c2a10.json", service.ArchiveKey(at, id))
}
