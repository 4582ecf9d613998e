package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/maeknit/dashboard/internal/access"
	"github.com/maeknit/dashboard/internal/calc"
	"github.com/maeknit/dashboard/internal/config"
	"github.com/maeknit/dashboard/internal/settings"
)

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for the guest password_hash in the access file",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			hash, err := access.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

// readPassword prompts without echo on a terminal and otherwise reads the
// first line of stdin.
func readPassword(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("empty password")
	}
	return password, nil
}

func newCalcCmd(cfg *config.Config) *cobra.Command {
	var file, accessPath string

	cmd := &cobra.Command{
		Use:       "calc <dashboard|garment|capacity|pricing|roi>",
		Short:     "Run a calculator against a saved settings document",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"dashboard", "garment", "capacity", "pricing", "roi"},
		RunE: func(cmd *cobra.Command, args []string) error {
			v, ok := settings.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown calculator %q", args[0])
			}

			doc := settings.Document{Key: v.Key, Data: []byte("{}"), SchemaVersion: v.Version}
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				doc.Data = data
			}

			path := accessPath
			if path == "" {
				path = cfg.AccessFile
			}
			tables := calc.DefaultTables()
			if path != "" {
				f, err := config.LoadAccessFile(path)
				if err != nil {
					return err
				}
				tables = f.Tables()
			}
			return runCalc(cmd.OutOrStdout(), v, doc, tables)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON settings document; defaults apply when omitted")
	cmd.Flags().StringVar(&accessPath, "access", "", "access file with capacity and service cost tables (default $ACCESS_FILE)")
	return cmd
}

func runCalc(w io.Writer, v settings.Variant, doc settings.Document, tables calc.Tables) error {
	switch v.Name {
	case settings.Dashboard.Name:
		p, err := settings.Decode[calc.DashboardParams](v, doc)
		if err != nil {
			return err
		}
		r := calc.Dashboard(p, calc.DefaultMultipliers(), tables)
		printRows(w, [][2]string{
			{"Monthly expenses", money(r.MonthlyExpenses)},
			{"Annual expenses", money(r.AnnualExpenses)},
			{"Annual capacity", humanize.Commaf(r.AnnualProductionCapacity)},
			{"Total revenue", money(r.TotalRevenue)},
			{"Profit", money(r.Profit)},
			{"Profit margin", pct(r.ProfitMargin)},
			{"Break-even revenue", money(r.BreakEven.Revenue)},
		})

	case settings.Garment.Name:
		p, err := settings.Decode[calc.GarmentParams](v, doc)
		if err != nil {
			return err
		}
		r := calc.Garment(p, calc.GarmentOverrides{})
		printRows(w, [][2]string{
			{"Material", money(r.Breakdown.Material)},
			{"Total cost", money(r.Totals.TotalCost)},
			{"Selling price", money(r.Totals.SellingPrice)},
			{"Final price", money(r.Totals.FinalPrice)},
		})

	case settings.Capacity.Name:
		p, err := settings.Decode[calc.CapacityParams](v, doc)
		if err != nil {
			return err
		}
		r := calc.Capacity(p)
		printRows(w, [][2]string{
			{"Achievable units", humanize.Commaf(r.AchievableUnits)},
			{"Bottleneck", string(r.Bottleneck)},
			{"Projected revenue", money(r.TotalProjectedRevenue)},
			{"Target achievable", fmt.Sprint(r.TargetAchievable)},
			{"Revenue gap", money(r.RevenueGap)},
		})

	case settings.Pricing.Name:
		p, err := settings.Decode[calc.PricingParams](v, doc)
		if err != nil {
			return err
		}
		r := calc.Pricing(p)
		rows := make([][2]string, 0, len(r.Services)+2)
		for _, s := range r.Services {
			rows = append(rows, [2]string{s.Service, money(s.AnnualRevenue) + " (" + pct(s.MarginPercent) + ")"})
		}
		rows = append(rows, [2]string{"Annual revenue", money(r.AnnualRevenue)}, [2]string{"Annual profit", money(r.AnnualProfit)})
		printRows(w, rows)

	case settings.ROI.Name:
		p, err := settings.Decode[calc.ROIParams](v, doc)
		if err != nil {
			return err
		}
		r := calc.ROI(p)
		printRows(w, [][2]string{
			{"Annual profit", money(r.AnnualProfit)},
			{"Payback", r.PaybackLabel},
			{"ROI", pct(r.ROIPercent)},
			{"5-year net gain", money(r.FiveYearNetGain)},
		})

	default:
		return fmt.Errorf("no calculator for %q", v.Name)
	}
	return nil
}

func money(v float64) string { return "$" + humanize.CommafWithDigits(v, 2) }

func pct(v float64) string { return humanize.FtoaWithDigits(v, 1) + "%" }

func printRows(w io.Writer, rows [][2]string) {
	width := 0
	for _, r := range rows {
		width = max(width, len(r[0]))
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%-*s  %s\n", width, r[0], r[1])
	}
}
