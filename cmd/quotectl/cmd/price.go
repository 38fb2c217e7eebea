package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/eta-consult/quote-api/internal/catalog"
	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/eta-consult/quote-api/internal/service"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var priceOpts struct {
	tariffsPath string
	groundArea  float64
	floors      int
	distanceKm  float64
	certificate string
	basement    string
	attic       string
	deadline    string
	format      string
}

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Price a certificate from building figures, without any lookup",
	Long: `Runs the pricing formulas against the given building figures and the
active tariff document. No registry, routing or accounting call is made.

Examples:
  quotectl price --ground-area 120 --floors 2 --distance 15
  quotectl price --ground-area 80 --floors 3 --basement Heated --certificate Plus --format json`,
	Args: cobra.NoArgs,
	RunE: runPrice,
}

func init() {
	f := priceCmd.Flags()
	f.StringVar(&priceOpts.tariffsPath, "tariffs", "", "tariff document (built-in tariffs when empty)")
	f.Float64Var(&priceOpts.groundArea, "ground-area", 100, "building ground area in m²")
	f.IntVar(&priceOpts.floors, "floors", 2, "above-ground floor count")
	f.Float64Var(&priceOpts.distanceKm, "distance", 0, "one-way road distance from the office in km")
	f.StringVar(&priceOpts.certificate, "certificate", string(domain.CertificateBasic), "Basic or Plus")
	f.StringVar(&priceOpts.basement, "basement", string(domain.HeatingUnheated), "basement heating state")
	f.StringVar(&priceOpts.attic, "attic", string(domain.HeatingUnheated), "attic heating state")
	f.StringVar(&priceOpts.deadline, "deadline", string(domain.DeadlineNormal), "Normal, Express or Urgent")
	f.StringVarP(&priceOpts.format, "format", "f", "table", "output format (table, json)")
}

func runPrice(cmd *cobra.Command, args []string) error {
	certificate, err := domain.ParseCertificateType(priceOpts.certificate)
	if err != nil {
		return err
	}
	if !certificate.RequiresPricing() {
		return fmt.Errorf("%s has a fixed price and needs no pricing run", certificate.Label())
	}
	basement, ok := domain.ParseHeatingState(priceOpts.basement)
	if !ok {
		return fmt.Errorf("unknown basement state %q", priceOpts.basement)
	}
	attic, ok := domain.ParseHeatingState(priceOpts.attic)
	if !ok {
		return fmt.Errorf("unknown attic state %q", priceOpts.attic)
	}
	deadline, ok := domain.ParseDeadlineTier(priceOpts.deadline)
	if !ok {
		return fmt.Errorf("unknown deadline %q", priceOpts.deadline)
	}

	building := domain.DefaultBuilding()
	building.GroundArea = decimal.NewFromFloat(priceOpts.groundArea)
	building.AboveGroundFloors = priceOpts.floors
	if err := building.Validate(); err != nil {
		return err
	}

	store, err := catalog.NewTariffStore(priceOpts.tariffsPath, false, log)
	if err != nil {
		return err
	}
	engine, err := service.NewPricingEngine(store.Current(), log)
	if err != nil {
		return err
	}

	result, err := engine.Price(building, domain.FormInput{
		CertificateType: certificate,
		BasementState:   basement,
		AtticState:      attic,
		Deadline:        deadline,
	}, decimal.NewFromFloat(priceOpts.distanceKm))
	if err != nil {
		return err
	}

	if priceOpts.format == "json" {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	return writePricingTable(cmd.OutOrStdout(), certificate, result)
}

func writePricingTable(out io.Writer, certificate domain.CertificateType, r domain.PricingResult) error {
	unit := r.BasicUnitPrice
	if certificate == domain.CertificatePlus {
		unit = r.PlusUnitPrice
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Equivalent floors\t%s\n", r.EquivalentFloors.String())
	fmt.Fprintf(w, "Equivalent surface\t%s m²\n", r.EquivalentSurface.StringFixed(2))
	fmt.Fprintf(w, "Distance\t%s km\n", r.DistanceKm.String())
	fmt.Fprintf(w, "Basic price\t%s CHF\n", r.BasicUnitPrice.StringFixed(2))
	if certificate == domain.CertificatePlus {
		fmt.Fprintf(w, "Plus price\t%s CHF\n", r.PlusUnitPrice.StringFixed(2))
	}
	if r.ExecutionSurcharge.IsPositive() {
		fmt.Fprintf(w, "%s\t%s CHF\n", r.DeadlineLabel, r.ExecutionSurcharge.StringFixed(2))
	}
	fmt.Fprintf(w, "%s total\t%s CHF\n", certificate.Label(), unit.Add(r.ExecutionSurcharge).StringFixed(2))
	return w.Flush()
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
