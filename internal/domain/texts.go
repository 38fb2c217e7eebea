package domain

// Text fragment keys
const (
	TextIncludedBasic  = "prestations_incluses_cecb"
	TextExcludedBasic  = "prestations_non_incluses_cecb"
	TextIncludedPlus   = "prestations_incluses_cecb_plus"
	TextExcludedPlus   = "prestations_non_incluses_cecb_plus"
	TextIncludedAdvice = "prestations_incluses_conseil"
	TextLiability      = "responsabilite_cecb"
	TextSubsidyPlus    = "subventions_cecb_plus"
)

// TextFragments maps boilerplate keys to HTML-bearing text
type TextFragments map[string]string

// Get returns the fragment or a MissingFieldError naming the text key
func (t TextFragments) Get(key string) (string, error) {
	v, ok := t[key]
	if !ok || v == "" {
		return "", &MissingFieldError{Field: "texts." + key}
	}
	return v, nil
}

// Clone returns an independent copy
func (t TextFragments) Clone() TextFragments {
	out := make(TextFragments, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
