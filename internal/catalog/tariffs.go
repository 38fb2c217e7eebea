package catalog

import (
	_ "embed"
	"fmt"
	"sync/atomic"

	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:embed defaults/tariffs.json
var defaultTariffs []byte

// TariffStore serves the current validated tariff snapshot
type TariffStore struct {
	doc     *document
	current atomic.Pointer[domain.Tariffs]
	logger  *zap.Logger
}

// NewTariffStore loads and validates the tariff document at path.
// An empty or missing path falls back to the built-in tariffs.
func NewTariffStore(path string, watch bool, logger *zap.Logger) (*TariffStore, error) {
	s := &TariffStore{
		doc:    newDocument("tariffs", path, defaultTariffs, logger),
		logger: logger,
	}

	raw, err := s.doc.read()
	if err != nil {
		return nil, err
	}
	if err := s.swap(raw); err != nil {
		return nil, err
	}
	if watch {
		s.doc.watch(s.swap)
	}
	return s, nil
}

// Current returns a copy of the active tariffs
func (s *TariffStore) Current() domain.Tariffs {
	return s.current.Load().Clone()
}

// Replace validates, persists and activates a new tariff document
func (s *TariffStore) Replace(tariffs domain.Tariffs) error {
	if err := checkKeys(tariffs); err != nil {
		return err
	}
	if err := tariffs.Validate(); err != nil {
		return err
	}
	if err := s.doc.write(tariffs); err != nil {
		return err
	}
	next := tariffs.Clone()
	s.current.Store(&next)
	s.logger.Info("Tariffs replaced", zap.Int("keys", len(next)))
	return nil
}

func (s *TariffStore) swap(raw map[string]interface{}) error {
	tariffs, err := ParseTariffs(raw)
	if err != nil {
		return err
	}
	if err := tariffs.Validate(); err != nil {
		return err
	}
	s.current.Store(&tariffs)
	return nil
}

// ParseTariffs converts a decoded JSON object to tariffs. Every value must be
// numeric and every key lower-case.
func ParseTariffs(raw map[string]interface{}) (domain.Tariffs, error) {
	if err := checkKeys(raw); err != nil {
		return nil, err
	}
	tariffs := make(domain.Tariffs, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case float64:
			tariffs[key] = decimal.NewFromFloat(v)
		case int:
			tariffs[key] = decimal.NewFromInt(int64(v))
		case int64:
			tariffs[key] = decimal.NewFromInt(v)
		case string:
			d, err := decimal.NewFromString(v)
			if err != nil {
				return nil, domain.NewValidationError(key, fmt.Sprintf("tariff value %q is not a number", v))
			}
			tariffs[key] = d
		default:
			return nil, domain.NewValidationError(key, fmt.Sprintf("tariff value of type %T is not a number", value))
		}
	}
	return tariffs, nil
}
