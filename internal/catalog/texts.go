package catalog

import (
	_ "embed"
	"fmt"
	"sync/atomic"

	"github.com/eta-consult/quote-api/internal/domain"
	"go.uber.org/zap"
)

//go:embed defaults/texts.json
var defaultTexts []byte

// requiredTexts are the fragments every certificate type may need
var requiredTexts = []string{
	domain.TextIncludedBasic,
	domain.TextExcludedBasic,
	domain.TextIncludedPlus,
	domain.TextExcludedPlus,
	domain.TextIncludedAdvice,
	domain.TextLiability,
	domain.TextSubsidyPlus,
}

// TextStore serves the current boilerplate fragments
type TextStore struct {
	doc     *document
	current atomic.Pointer[domain.TextFragments]
	logger  *zap.Logger
}

// NewTextStore loads the text document at path, falling back to the built-in texts
func NewTextStore(path string, watch bool, logger *zap.Logger) (*TextStore, error) {
	s := &TextStore{
		doc:    newDocument("texts", path, defaultTexts, logger),
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

// Current returns a copy of the active fragments
func (s *TextStore) Current() domain.TextFragments {
	return s.current.Load().Clone()
}

// Replace validates, persists and activates a new text document
func (s *TextStore) Replace(texts domain.TextFragments) error {
	if err := ValidateTexts(texts); err != nil {
		return err
	}
	if err := s.doc.write(texts); err != nil {
		return err
	}
	next := texts.Clone()
	s.current.Store(&next)
	s.logger.Info("Texts replaced", zap.Int("keys", len(next)))
	return nil
}

func (s *TextStore) swap(raw map[string]interface{}) error {
	texts := make(domain.TextFragments, len(raw))
	for key, value := range raw {
		str, ok := value.(string)
		if !ok {
			return domain.NewValidationError(key, fmt.Sprintf("text value of type %T is not a string", value))
		}
		texts[key] = str
	}
	if err := ValidateTexts(texts); err != nil {
		return err
	}
	s.current.Store(&texts)
	return nil
}

// ValidateTexts checks that every key is lower-case and every required
// fragment is present and non-empty
func ValidateTexts(texts domain.TextFragments) error {
	if err := checkKeys(texts); err != nil {
		return err
	}
	for _, key := range requiredTexts {
		if _, err := texts.Get(key); err != nil {
			return err
		}
	}
	return nil
}
