package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/shopspring/decimal"
)

// fakeCounterpartStore echoes back previously created records
type fakeCounterpartStore struct {
	mu        sync.Mutex
	nextID    int
	records   []domain.Counterpart
	relations map[int][]domain.CounterpartRelation

	creates         int
	relationCreates int
	updateErr       error
	searchErr       error
}

func newFakeCounterpartStore(seed ...domain.Counterpart) *fakeCounterpartStore {
	s := &fakeCounterpartStore{nextID: 100, relations: map[int][]domain.CounterpartRelation{}}
	s.records = append(s.records, seed...)
	return s
}

func (s *fakeCounterpartStore) SearchCounterparts(_ context.Context, term string) ([]domain.Counterpart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	term = strings.ToLower(term)
	var out []domain.Counterpart
	for _, c := range s.records {
		hay := strings.ToLower(c.Mail + " " + c.Name1 + " " + c.Name2)
		if strings.Contains(hay, term) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeCounterpartStore) CreateCounterpart(_ context.Context, c domain.Counterpart) (domain.Counterpart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Address != "" {
		return domain.Counterpart{}, errors.New("address is not accepted on create")
	}
	s.nextID++
	s.creates++
	c.ID = s.nextID
	s.records = append(s.records, c)
	return c, nil
}

func (s *fakeCounterpartStore) UpdateCounterpart(_ context.Context, id int, fields map[string]interface{}) (domain.Counterpart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return domain.Counterpart{}, s.updateErr
	}
	for i := range s.records {
		if s.records[i].ID == id {
			if addr, ok := fields["address"].(string); ok {
				s.records[i].Address = addr
			}
			return s.records[i], nil
		}
	}
	return domain.Counterpart{}, fmt.Errorf("counterpart %d not found", id)
}

func (s *fakeCounterpartStore) ListRelations(_ context.Context, companyID int) ([]domain.CounterpartRelation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CounterpartRelation(nil), s.relations[companyID]...), nil
}

func (s *fakeCounterpartStore) CreateRelation(_ context.Context, companyID int, rel domain.CounterpartRelation) (domain.CounterpartRelation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relationCreates++
	rel.ID = len(s.relations[companyID]) + 1
	rel.ContactID = companyID
	s.relations[companyID] = append(s.relations[companyID], rel)
	return rel, nil
}

func (s *fakeCounterpartStore) byID(id int) domain.Counterpart {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.records {
		if c.ID == id {
			return c
		}
	}
	return domain.Counterpart{}
}

// fakeQuoteStore records submitted payloads
type fakeQuoteStore struct {
	mu       sync.Mutex
	payloads []domain.QuotePayload
	err      error
}

func (s *fakeQuoteStore) CreateQuote(_ context.Context, payload domain.QuotePayload) (domain.QuoteReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.QuoteReceipt{}, s.err
	}
	s.payloads = append(s.payloads, payload)
	n := len(s.payloads)
	return domain.QuoteReceipt{ID: 5000 + n, DocumentNr: fmt.Sprintf("AN-%05d", n)}, nil
}

// fakeBuildings returns a fixed record or error
type fakeBuildings struct {
	building domain.BuildingAttributes
	err      error
	calls    int
	mu       sync.Mutex
}

func (f *fakeBuildings) Lookup(_ context.Context, _ domain.Address) (domain.BuildingAttributes, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return domain.BuildingAttributes{}, f.err
	}
	return f.building, nil
}

// fakeDistance returns a fixed distance
type fakeDistance struct {
	km decimal.Decimal
}

func (f fakeDistance) DrivingDistanceKm(_ context.Context, _, _ string) decimal.Decimal {
	return f.km
}

// staticTariffs and staticTexts serve fixed snapshots
type staticTariffs domain.Tariffs

func (s staticTariffs) Current() domain.Tariffs { return domain.Tariffs(s).Clone() }

type staticTexts domain.TextFragments

func (s staticTexts) Current() domain.TextFragments { return domain.TextFragments(s).Clone() }
