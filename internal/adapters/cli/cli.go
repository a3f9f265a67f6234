package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"gst-billing/internal/app"
	"gst-billing/internal/core"
)

// ServiceFactory opens the application service on first use, so commands that
// need no database (quote) never connect.
type ServiceFactory func() (app.ApplicationService, error)

type options struct {
	company string
	output  string
	input   string
}

// NewRootCommand builds the billing CLI.
func NewRootCommand(open ServiceFactory) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "billing",
		Short:         "GST billing: quote, post and reconcile vouchers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.company, "company", "c", "", "company code (default: configured company)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "output format: table, json or yaml")

	root.AddCommand(
		newQuoteCommand(opts),
		newPostCommand(opts, open),
		newReturnableCommand(opts, open),
		newReturnCommand(opts, open),
		newStockCommand(opts, open),
		newAdjustCommand(opts, open),
		newBalancesCommand(opts, open),
		newGSTCommand(opts, open),
	)
	return root
}

// ── Input and output ─────────────────────────────────────────────────────────

// readDocument decodes a JSON or YAML file (or stdin for "" and "-") into v.
// YAML is normalised through JSON so the json tags and decimal decoding apply.
func readDocument(cmd *cobra.Command, path, format string, v any) error {
	var r io.Reader = cmd.InOrStdin()
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
		if format == "" {
			switch strings.ToLower(filepath.Ext(path)) {
			case ".yaml", ".yml":
				format = "yaml"
			}
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	if format == "yaml" {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("invalid YAML: %w", err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return fmt.Errorf("invalid YAML: %w", err)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}
	return nil
}

// render writes v as JSON or YAML, or calls table for the default format.
func render(cmd *cobra.Command, format string, v any, table func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var doc any
		if err := json.Unmarshal(b, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		table(w)
		return nil
	}
	return fmt.Errorf("unknown output format %q", format)
}

func (o *options) companyCode(cmd *cobra.Command, svc app.ApplicationService) (string, error) {
	if o.company != "" {
		return o.company, nil
	}
	company, err := svc.LoadDefaultCompany(cmd.Context())
	if err != nil {
		return "", fmt.Errorf("failed to load company: %w", err)
	}
	return company.CompanyCode, nil
}

func (o *options) inputFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.input, "input-format", "f", "", "input format: json or yaml (default from file extension)")
}

// ── Commands ─────────────────────────────────────────────────────────────────

// quote prices a fully specified draft offline. The draft carries its own
// company and party states, rates and tax rates.
func newQuoteCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote [draft-file]",
		Short: "Compute voucher totals from a JSON or YAML draft without a database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var draft core.VoucherDraft
			if err := readDocument(cmd, firstArg(args), opts.input, &draft); err != nil {
				return err
			}
			v, err := core.BuildVoucher(draft)
			if err != nil {
				return err
			}
			out := struct {
				*core.Voucher
				SuggestedRoundOff decimal.Decimal `json:"suggested_round_off"`
			}{v, core.SuggestRoundOff(v.Totals.GrandTotal)}
			return render(cmd, opts.output, out, func(w io.Writer) { printVoucher(w, v) })
		},
	}
	opts.inputFlag(cmd)
	return cmd
}

func newPostCommand(opts *options, open ServiceFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post [voucher-file]",
		Short: "Post a sale or purchase voucher",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in core.PostVoucherInput
			if err := readDocument(cmd, firstArg(args), opts.input, &in); err != nil {
				return err
			}
			svc, err := open()
			if err != nil {
				return err
			}
			if in.CompanyCode == "" {
				if in.CompanyCode, err = opts.companyCode(cmd, svc); err != nil {
					return err
				}
			}
			in.Kind = core.VoucherKind(strings.ToUpper(string(in.Kind)))
			v, err := svc.PostVoucher(cmd.Context(), in)
			if err != nil {
				return err
			}
			return render(cmd, opts.output, v, func(w io.Writer) { printVoucher(w, v) })
		},
	}
	opts.inputFlag(cmd)
	return cmd
}

func newReturnableCommand(opts *options, open ServiceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "returnable <voucher-number>",
		Short: "Show the quantities still returnable on a voucher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := open()
			if err != nil {
				return err
			}
			code, err := opts.companyCode(cmd, svc)
			if err != nil {
				return err
			}
			result, err := svc.GetReturnable(cmd.Context(), code, args[0])
			if err != nil {
				return err
			}
			return render(cmd, opts.output, result, func(w io.Writer) { printReturnable(w, result) })
		},
	}
}

func newReturnCommand(opts *options, open ServiceFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "return <voucher-number> [request-file]",
		Short: "Post a return against a voucher",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req core.ReturnRequest
			if err := readDocument(cmd, firstArg(args[1:]), opts.input, &req); err != nil {
				return err
			}
			svc, err := open()
			if err != nil {
				return err
			}
			code, err := opts.companyCode(cmd, svc)
			if err != nil {
				return err
			}
			doc, err := svc.PostReturn(cmd.Context(), core.PostReturnInput{
				CompanyCode:   code,
				VoucherNumber: args[0],
				ReturnRequest: req,
			})
			if err != nil {
				return err
			}
			return render(cmd, opts.output, doc, func(w io.Writer) {
				fmt.Fprintf(w, "%s against %s: %s\n", doc.Number, doc.OriginalNumber, doc.Totals.GrandTotal.StringFixed(2))
			})
		},
	}
	opts.inputFlag(cmd)
	return cmd
}

func newStockCommand(opts *options, open ServiceFactory) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "stock <product-code>",
		Short: "Show a product's stock and recent movements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := open()
			if err != nil {
				return err
			}
			code, err := opts.companyCode(cmd, svc)
			if err != nil {
				return err
			}
			result, err := svc.GetStock(cmd.Context(), code, args[0], limit)
			if err != nil {
				return err
			}
			return render(cmd, opts.output, result, func(w io.Writer) { printStock(w, result) })
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of movements to show")
	return cmd
}

func newAdjustCommand(opts *options, open ServiceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "adjust <product-code> <delta>",
		Short: "Book a manual stock correction (delta may be negative)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid delta %q: %w", args[1], err)
			}
			svc, err := open()
			if err != nil {
				return err
			}
			code, err := opts.companyCode(cmd, svc)
			if err != nil {
				return err
			}
			mv, err := svc.AdjustStock(cmd.Context(), app.AdjustStockRequest{CompanyCode: code, ProductCode: args[0], Delta: delta})
			if err != nil {
				return err
			}
			return render(cmd, opts.output, mv, func(w io.Writer) {
				fmt.Fprintf(w, "%s: %s -> %s\n", args[0], mv.Before.String(), mv.After.String())
			})
		},
	}
}

func newBalancesCommand(opts *options, open ServiceFactory) *cobra.Command {
	return &cobra.Command{
		Use:     "balances",
		Aliases: []string{"bal"},
		Short:   "Print the trial balance",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := open()
			if err != nil {
				return err
			}
			code, err := opts.companyCode(cmd, svc)
			if err != nil {
				return err
			}
			result, err := svc.GetTrialBalance(cmd.Context(), code)
			if err != nil {
				return err
			}
			return render(cmd, opts.output, result, func(w io.Writer) { printTrialBalance(w, result) })
		},
	}
}

func newGSTCommand(opts *options, open ServiceFactory) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "gst",
		Short: "Summarise output and input GST for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := open()
			if err != nil {
				return err
			}
			code, err := opts.companyCode(cmd, svc)
			if err != nil {
				return err
			}
			sum, err := svc.GetGSTSummary(cmd.Context(), code, from, to)
			if err != nil {
				return err
			}
			return render(cmd, opts.output, sum, func(w io.Writer) { printGSTSummary(w, sum) })
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date, YYYY-MM-DD")
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
