package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/vsinha/stockroom/pkg/application/dto"
	"github.com/vsinha/stockroom/pkg/infrastructure/fixtures"
	"github.com/vsinha/stockroom/pkg/infrastructure/spreadsheet"
)

func kindNames() string {
	names := make([]string, len(spreadsheet.TemplateKinds))
	for i, k := range spreadsheet.TemplateKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <kind> <file>",
		Short: "Bulk import suppliers, raw materials, products or BOM lines",
		Long: fmt.Sprintf(`Import a .csv or .xlsx file laid out like the matching template.

Kinds: %s

Rows matching an existing supplier name, SKU or BOM pair update it; other rows
are created. A bad row aborts the whole file.`, kindNames()),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := spreadsheet.ParseTemplateKind(args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			a, err := newApp(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.services().Import.ImportFile(cmd.Context(), kind, filepath.Base(args[1]), f)
			if err != nil {
				return err
			}
			color.New(color.FgGreen, color.Bold).Fprintf(cmd.OutOrStdout(),
				"Imported %s: %d created, %d updated\n", result.Kind, result.Created, result.Updated)
			return nil
		},
	}
}

// createOutput opens path for writing, or returns stdout for "" and "-"
func createOutput(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{cmd.OutOrStdout()}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func newExportCommand(opts *rootOptions) *cobra.Command {
	var (
		out        string
		materialID int64
		category   string
	)
	cmd := &cobra.Command{
		Use:       "export <raw-materials|batches|sales>",
		Short:     "Export inventory and sales data",
		Long:      "raw-materials and batches are written as CSV, sales as an Excel workbook.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"raw-materials", "batches", "sales"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "batches" && materialID <= 0 {
				return fmt.Errorf("--material is required for batches")
			}
			if args[0] == "sales" && (out == "" || out == "-") {
				return fmt.Errorf("--out is required for the sales workbook")
			}

			a, err := newApp(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer a.Close()
			export := a.services().Export

			w, err := createOutput(cmd, out)
			if err != nil {
				return err
			}
			defer w.Close()

			switch args[0] {
			case "raw-materials":
				return export.RawMaterialsCSV(cmd.Context(), w, dto.MaterialFilter{Category: category})
			case "batches":
				return export.BatchesCSV(cmd.Context(), w, materialID)
			case "sales":
				return export.SalesXLSX(cmd.Context(), w)
			default:
				return fmt.Errorf("unknown export %q", args[0])
			}
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	cmd.Flags().Int64Var(&materialID, "material", 0, "raw material id for batches")
	cmd.Flags().StringVar(&category, "category", "", "only export this raw material category")
	return cmd
}

func newTemplateCommand() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "template [kind...]",
		Short: "Write blank Excel import templates",
		Long:  fmt.Sprintf("Writes <kind>_template.xlsx for each kind, or all of them.\n\nKinds: %s", kindNames()),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := spreadsheet.TemplateKinds
			if len(args) > 0 {
				kinds = make([]spreadsheet.TemplateKind, 0, len(args))
				for _, arg := range args {
					kind, err := spreadsheet.ParseTemplateKind(arg)
					if err != nil {
						return err
					}
					kinds = append(kinds, kind)
				}
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			for _, kind := range kinds {
				path := filepath.Join(dir, kind.Filename())
				if err := writeTemplate(path, kind); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("created"), path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "directory to write templates into")
	return cmd
}

func writeTemplate(path string, kind spreadsheet.TemplateKind) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := spreadsheet.WriteTemplate(f, kind); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

func newSeedCommand(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load seed data from a YAML fixture",
		Long: `Load suppliers, raw materials, products, BOM lines and users from a YAML file.
Without --file the bundled bakery demo data is loaded. Existing entries are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture := fixtures.Demo()
			if file != "" {
				var err error
				if fixture, err = fixtures.Load(file); err != nil {
					return err
				}
			}

			a, err := newApp(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.services().Import.Seed(cmd.Context(), fixture)
			if err != nil {
				return err
			}
			color.New(color.FgGreen, color.Bold).Fprintf(cmd.OutOrStdout(),
				"Seeded %d supplier(s), %d product(s), %d BOM line(s), %d user(s); %d skipped\n",
				result.Suppliers, result.Products, result.BOMLines, result.Users, result.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML fixture to load")
	return cmd
}
