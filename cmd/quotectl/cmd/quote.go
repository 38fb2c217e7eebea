package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/eta-consult/quote-api/internal/auth"
	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Flags fall back to QUOTECTL_SERVER, QUOTECTL_API_KEY and QUOTECTL_OPERATOR
var quoteEnv = viper.New()

var quoteOpts struct {
	file    string
	timeout time.Duration
}

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Send a quote form to a running API",
	Long: `Reads a quote form as JSON (same shape as POST /api/v1/quotes) and sends
it to the API.

Examples:
  quotectl quote preview --file form.json
  cat form.json | quotectl quote create --file - --operator alice`,
}

var quotePreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Price and compose a quote without creating anything",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendQuote(cmd, "/api/v1/quotes/preview")
	},
}

var quoteCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the contacts and the quote in accounting",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendQuote(cmd, "/api/v1/quotes")
	},
}

func init() {
	pf := quoteCmd.PersistentFlags()
	pf.String("server", "http://localhost:8080", "quote API base URL")
	pf.String("api-key", "", "API key sent as x-api-key")
	pf.String("operator", "", "operator name sent as "+auth.OperatorHeader)
	pf.StringVar(&quoteOpts.file, "file", "-", "quote form JSON file, - for stdin")
	pf.DurationVar(&quoteOpts.timeout, "timeout", 60*time.Second, "request timeout")

	quoteEnv.SetEnvPrefix("QUOTECTL")
	quoteEnv.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	quoteEnv.AutomaticEnv()
	for _, name := range []string{"server", "api-key", "operator"} {
		_ = quoteEnv.BindPFlag(name, pf.Lookup(name))
	}

	quoteCmd.AddCommand(quotePreviewCmd)
	quoteCmd.AddCommand(quoteCreateCmd)
}

func readForm(path string, stdin io.Reader) (*domain.CreateQuoteRequest, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var req domain.CreateQuoteRequest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid quote form: %w", err)
	}
	return &req, nil
}

func sendQuote(cmd *cobra.Command, path string) error {
	form, err := readForm(quoteOpts.file, cmd.InOrStdin())
	if err != nil {
		return err
	}
	body, err := json.Marshal(form)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), quoteOpts.timeout)
	defer cancel()

	url := strings.TrimRight(quoteEnv.GetString("server"), "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if key := quoteEnv.GetString("api-key"); key != "" {
		req.Header.Set("x-api-key", key)
	}
	if op := quoteEnv.GetString("operator"); op != "" {
		req.Header.Set(auth.OperatorHeader, op)
	}

	log.Debug("sending quote form", zap.String("url", url))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 300 {
		var apiErr domain.APIError
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Title != "" {
			for field, msg := range apiErr.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", field, msg)
			}
			return &apiErr
		}
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, payload, "", "  "); err != nil {
		_, err = cmd.OutOrStdout().Write(payload)
		return err
	}
	pretty.WriteByte('\n')
	_, err = pretty.WriteTo(cmd.OutOrStdout())
	return err
}
