package service

import (
	"fmt"
	"strings"

	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	textEmissionFee        = "Frais d'émission du rapport CECB sur la plateforme (nouveaux tarifs à partir du 01.01.2026)"
	textPlusEmissionFee    = "Frais d'émission du rapport CECB Plus sur la plateforme (nouveaux tarifs à partir du 01.01.2026)"
	textTransferFee        = "Frais de transfert du certificat CECB® existant sur la plateforme"
	textAdvisoryDebrief    = "Conseils à la restitution du rapport CECB®Plus<br>- Lecture commentée du rapport de conseil"
	textSubsidyApplication = "Demande de subvention par l'expert CECB selon les conditions d'éligibilité du Programme des Bâtiments : Mesure I"
)

// AccountingUnits are the accounting-system categories attached to priced items
type AccountingUnits struct {
	TaxID      int
	UnitID     int
	HourUnitID int
}

// LineItemComposer builds the ordered positions of a quote. Tariffs and texts
// are snapshots taken for a single run.
type LineItemComposer struct {
	tariffs domain.Tariffs
	texts   domain.TextFragments
	units   AccountingUnits
}

// NewLineItemComposer binds a composer to one tariff and text snapshot
func NewLineItemComposer(tariffs domain.Tariffs, texts domain.TextFragments, units AccountingUnits) *LineItemComposer {
	return &LineItemComposer{
		tariffs: tariffs.Clone(),
		texts:   texts.Clone(),
		units:   units,
	}
}

// Compose selects the item sequence for the form's certificate type.
// pricing may be nil for IncentiveAdvice.
func (c *LineItemComposer) Compose(form domain.FormInput, building domain.BuildingAttributes, pricing *domain.PricingResult) ([]domain.LineItem, error) {
	if err := requireFields(form, building); err != nil {
		return nil, err
	}

	switch form.CertificateType {
	case domain.CertificateBasic:
		if pricing == nil {
			return nil, &domain.MissingFieldError{Field: "pricing"}
		}
		return c.composeBasic(form, building, *pricing)
	case domain.CertificatePlus:
		if pricing == nil {
			return nil, &domain.MissingFieldError{Field: "pricing"}
		}
		return c.composePlus(form, building, *pricing)
	case domain.CertificateIncentiveAdvice:
		return c.composeIncentiveAdvice(form, building)
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCertificateType, form.CertificateType)
}

// itemList accumulates positions and keeps the first error
type itemList struct {
	items []domain.LineItem
	err   error
}

func (l *itemList) priced(text string, quantity, unitPrice decimal.Decimal, taxID, unitID int) {
	if l.err != nil {
		return
	}
	item, err := domain.NewPricedItem(text, quantity, unitPrice, taxID, unitID)
	if err != nil {
		l.err = err
		return
	}
	l.items = append(l.items, item)
}

func (l *itemList) text(text string) {
	if l.err == nil {
		l.items = append(l.items, domain.NewTextItem(text))
	}
}

func (l *itemList) fragment(texts domain.TextFragments, key string) {
	if l.err != nil {
		return
	}
	v, err := texts.Get(key)
	if err != nil {
		l.err = err
		return
	}
	l.text(v)
}

func (l *itemList) fail(err error) {
	if l.err == nil {
		l.err = err
	}
}

func (l *itemList) result() ([]domain.LineItem, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.items, nil
}

// unit adds one piece of the default unit category
func (c *LineItemComposer) unit(l *itemList, text string, price decimal.Decimal) {
	l.priced(text, decimal.NewFromInt(1), price, c.units.TaxID, c.units.UnitID)
}

// hour adds one hour of the hour unit category
func (c *LineItemComposer) hour(l *itemList, text string, price decimal.Decimal) {
	l.priced(text, decimal.NewFromInt(1), price, c.units.TaxID, c.units.HourUnitID)
}

func (c *LineItemComposer) tariff(l *itemList, key string) decimal.Decimal {
	v, err := c.tariffs.Get(key)
	if err != nil {
		l.fail(err)
	}
	return v
}

// opening emits the positions shared by Basic and Plus: main certificate,
// emission fee, transfer fee for an existing certificate, deadline surcharge.
func (c *LineItemComposer) opening(l *itemList, form domain.FormInput, building domain.BuildingAttributes, pricing domain.PricingResult) {
	mainPrice := pricing.BasicUnitPrice
	if form.PreExistingCertificate {
		mainPrice = decimal.Max(decimal.Zero, mainPrice.Sub(form.ExistingCertificateDiscount))
	}
	c.unit(l, mainCertificateText(form, building), mainPrice)

	c.unit(l, textEmissionFee, c.tariff(l, domain.TariffEmissionFee))

	if form.PreExistingCertificate {
		c.unit(l, textTransferFee, c.tariff(l, domain.TariffTransferFee))
	}

	if pricing.ExecutionSurcharge.IsPositive() {
		c.unit(l, "Forfait exécution "+pricing.DeadlineLabel, pricing.ExecutionSurcharge)
	}
}

func (c *LineItemComposer) customMessage(l *itemList, form domain.FormInput) {
	if msg := FormatCustomMessage(form.CustomMessage); msg != "" {
		l.text(msg)
	}
}

func (c *LineItemComposer) composeBasic(form domain.FormInput, building domain.BuildingAttributes, pricing domain.PricingResult) ([]domain.LineItem, error) {
	l := &itemList{}
	c.opening(l, form, building, pricing)
	l.fragment(c.texts, domain.TextIncludedBasic)
	l.fragment(c.texts, domain.TextLiability)
	l.fragment(c.texts, domain.TextExcludedBasic)
	c.customMessage(l, form)
	return l.result()
}

func (c *LineItemComposer) composePlus(form domain.FormInput, building domain.BuildingAttributes, pricing domain.PricingResult) ([]domain.LineItem, error) {
	l := &itemList{}
	c.opening(l, form, building, pricing)
	c.unit(l, plusSupplementText(form), pricing.PlusUnitPrice)
	l.fragment(c.texts, domain.TextIncludedPlus)
	l.fragment(c.texts, domain.TextLiability)
	l.fragment(c.texts, domain.TextExcludedPlus)
	c.customMessage(l, form)
	c.hour(l, textAdvisoryDebrief, c.tariff(l, domain.TariffAdvisoryDebrief))
	c.unit(l, textPlusEmissionFee, c.tariff(l, domain.TariffPlusEmissionFee))
	l.fragment(c.texts, domain.TextSubsidyPlus)
	c.hour(l, textSubsidyApplication, c.tariff(l, domain.TariffSubsidyApplication))
	return l.result()
}

func (c *LineItemComposer) composeIncentiveAdvice(form domain.FormInput, building domain.BuildingAttributes) ([]domain.LineItem, error) {
	l := &itemList{}
	price := c.tariffs.GetOr(domain.TariffIncentiveAdvicePrice, decimal.Zero)
	c.unit(l, incentiveAdviceText(form, building), price)
	l.fragment(c.texts, domain.TextIncludedAdvice)
	c.customMessage(l, form)
	return l.result()
}

type requiredField struct {
	name  string
	value string
}

func requireFields(form domain.FormInput, building domain.BuildingAttributes) error {
	required := []requiredField{
		{"buildingAddress.street", form.BuildingAddress.Street},
		{"buildingAddress.postcode", form.BuildingAddress.Postcode},
		{"buildingAddress.locality", form.BuildingAddress.Locality},
		{"building.egid", building.EGID},
	}
	if form.CertificateType.RequiresPricing() {
		required = append(required,
			requiredField{"building.parcelNumber", building.ParcelNumber},
			requiredField{"building.buildingNumber", building.BuildingNumber},
			requiredField{"building.constructionYear", building.ConstructionYear},
		)
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &domain.MissingFieldError{Field: r.name}
		}
	}
	return nil
}

func addressLine(a domain.Address) string {
	return fmt.Sprintf("%s, CH %s, %s", a.Street, a.Postcode, a.Locality)
}

func effectiveFloors(form domain.FormInput, building domain.BuildingAttributes) int {
	if form.FloorsOverride != nil {
		return *form.FloorsOverride
	}
	return building.AboveGroundFloors
}

func mainCertificateText(form domain.FormInput, building domain.BuildingAttributes) string {
	verb := "Etablissement"
	if form.PreExistingCertificate {
		verb = "Mise à jour"
	}
	layer := building.LayerName
	if layer == "" {
		layer = domain.DefaultLayerName
	}
	return fmt.Sprintf(
		"%s d'un certificat CECB® :<br>- EGID n°%s<br>- %s<br>- %s n°%s<br>- Parcelle n°%s<br>- %d niveaux hors sol<br>- Surface au sol %s m²<br>- Année de construction : %s",
		verb,
		building.EGID,
		addressLine(form.BuildingAddress),
		layer, building.BuildingNumber,
		building.ParcelNumber,
		effectiveFloors(form, building),
		building.GroundArea.String(),
		building.ConstructionYear,
	)
}

func plusSupplementText(form domain.FormInput) string {
	verb := "Etablissement"
	if form.PreExistingCertificate {
		verb = "Mise à jour"
	}
	return fmt.Sprintf("%s d'un certificat CECB® Plus, en sus :<br>- %s", verb, addressLine(form.BuildingAddress))
}

func incentiveAdviceText(form domain.FormInput, building domain.BuildingAttributes) string {
	return fmt.Sprintf("Conseil incitatif Chauffez renouvelable® :<br>- EGID n°%s<br>- %s", building.EGID, addressLine(form.BuildingAddress))
}

// FormatCustomMessage renders the operator's free text; blank input yields ""
func FormatCustomMessage(message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return ""
	}
	return "<strong>Message :</strong><br>" + strings.ReplaceAll(message, "\n", "<br>")
}
