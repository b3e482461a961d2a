package commands

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/vsinha/stockroom/pkg/application/dto"
	"github.com/vsinha/stockroom/pkg/application/services"
	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
	"github.com/vsinha/stockroom/pkg/interfaces/cli/output"
)

func newProduceCommand(opts *rootOptions) *cobra.Command {
	var (
		notes     string
		checkOnly bool
	)
	cmd := &cobra.Command{
		Use:   "produce <sku> <quantity>",
		Short: "Produce a finished good from its bill of materials",
		Long: `Check materials, then plan, start and finish a production run in one step.
Raw materials are drawn from the oldest batches first.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q: %w", args[1], err)
			}

			a, err := newApp(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer a.Close()
			svc := a.services()

			product, err := svc.Catalog.GetProductBySKU(cmd.Context(), entities.SKU(args[0]))
			if err != nil {
				return err
			}

			if checkOnly {
				check, err := svc.Production.CheckMaterials(cmd.Context(), product.ID, qty)
				if err != nil {
					return err
				}
				return output.Generate(cmd.OutOrStdout(), output.RequirementsReport(check), opts.output())
			}

			result, err := svc.Production.Produce(cmd.Context(), product.ID, qty, notes)
			if err != nil {
				var short *services.InsufficientMaterialsError
				if errors.As(err, &short) {
					_ = output.Generate(cmd.ErrOrStderr(), output.RequirementsReport(short.Check), opts.output())
				}
				return err
			}
			if err := output.Generate(cmd.OutOrStdout(), output.ProductionReport(result), opts.output()); err != nil {
				return err
			}
			color.New(color.FgGreen, color.Bold).Fprintf(cmd.ErrOrStderr(),
				"Produced %s x %s\n", qty, product.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "notes stored on the run")
	cmd.Flags().BoolVar(&checkOnly, "check", false, "only check material availability")
	return cmd
}

func newReportCommand(opts *rootOptions) *cobra.Command {
	var (
		days     int
		level    string
		category string
		source   string
		limit    int
	)
	cmd := &cobra.Command{
		Use:       "report <dashboard|materials|low-stock|expiring|transactions>",
		Short:     "Print inventory reports",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"dashboard", "materials", "low-stock", "expiring", "transactions"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer a.Close()
			svc := a.services()
			ctx := cmd.Context()

			var report *output.Report
			switch args[0] {
			case "dashboard":
				d, err := svc.Inventory.Dashboard(ctx)
				if err != nil {
					return err
				}
				report = output.DashboardReport(d)
			case "materials":
				stockLevel, err := entities.ParseStockLevel(level)
				if err != nil {
					return err
				}
				r, err := svc.Inventory.RawMaterials(ctx, dto.MaterialFilter{Category: category, Level: stockLevel})
				if err != nil {
					return err
				}
				report = output.MaterialsReport(r)
			case "low-stock":
				items, err := svc.Inventory.LowStock(ctx)
				if err != nil {
					return err
				}
				report = output.LowStockReport(items)
			case "expiring":
				batches, err := svc.Receiving.ExpiringBatches(ctx, days)
				if err != nil {
					return err
				}
				report = output.ExpiringReport(batches)
			case "transactions":
				src := entities.TxSource(source)
				if src != "" && !src.Valid() {
					return fmt.Errorf("unknown source %q", source)
				}
				views, err := svc.Inventory.Transactions(ctx, repositories.TransactionFilter{Source: src, Limit: limit})
				if err != nil {
					return err
				}
				report = output.TransactionsReport(views)
			default:
				return fmt.Errorf("unknown report %q", args[0])
			}
			return output.Generate(cmd.OutOrStdout(), report, opts.output())
		},
	}
	cmd.Flags().IntVar(&days, "days", -1, "expiry window in days (default inventory.expiry_window_days)")
	cmd.Flags().StringVar(&level, "level", "", "stock level filter: in_stock, low, out")
	cmd.Flags().StringVar(&category, "category", "", "raw material category filter")
	cmd.Flags().StringVar(&source, "source", "", "transaction source: receiving, production, sale, adjustment, import")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum transactions to show")
	return cmd
}
