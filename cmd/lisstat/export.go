package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"lisstat/internal/exporter"
	"lisstat/internal/lis"
	"lisstat/internal/middleware"
	"lisstat/internal/report"
	"lisstat/pkg/contracts/domain"
)

// parseRequest reads "voltage:NODE" or "current:FROM:TO".
func parseRequest(s string, summary bool) (domain.TableRequest, error) {
	parts := strings.Split(s, ":")
	req := domain.TableRequest{Kind: domain.TableKind(strings.ToLower(parts[0])), Summary: summary}
	switch {
	case req.Kind == domain.TableKindVoltage && len(parts) == 2:
		req.Primary = parts[1]
	case req.Kind == domain.TableKindCurrent && len(parts) == 3:
		req.Primary, req.Secondary = parts[1], parts[2]
	default:
		return req, fmt.Errorf("invalid table %q: want voltage:NODE or current:FROM:TO", s)
	}
	return req, nil
}

// tableRequests parses and validates the --table flags.
func tableRequests(specs []string, summary bool) ([]domain.TableRequest, error) {
	validate := middleware.NewValidator()
	reqs := make([]domain.TableRequest, 0, len(specs))
	for _, s := range specs {
		req, err := parseRequest(s, summary)
		if err != nil {
			return nil, err
		}
		if err := validate.Struct(req); err != nil {
			return nil, fmt.Errorf("invalid table %q: %w", s, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// requestsFor covers every voltage and current variable in names. Summary
// requests collapse the three phases of a variable into one.
func requestsFor(names []domain.VariableName, summary bool) []domain.TableRequest {
	seen := make(map[string]bool)
	var reqs []domain.TableRequest
	for _, n := range names {
		if n.Kind != domain.TableKindVoltage && n.Kind != domain.TableKindCurrent {
			continue
		}
		key := string(n.Kind) + ":" + n.Name1 + ":" + n.Name2
		if summary {
			key = string(n.Kind) + ":" + lis.StripPhaseSuffix(n.Name1) + ":" + lis.StripPhaseSuffix(n.Name2)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		reqs = append(reqs, domain.TableRequest{Kind: n.Kind, Primary: n.Name1, Secondary: n.Name2, Summary: summary})
	}
	return reqs
}

// collectTables runs reqs as one batch, or every table in the report when
// reqs is empty. Failed requests are logged and left out.
func (c *cli) collectTables(cmd *cobra.Command, src lis.Source, reqs []domain.TableRequest, summary bool) ([]*domain.StatisticalTable, error) {
	ctx := cmd.Context()
	if len(reqs) == 0 {
		names, err := c.extractor.ListVariableNames(ctx, src)
		if err != nil {
			return nil, err
		}
		reqs = requestsFor(names, summary)
		if len(reqs) == 0 {
			return nil, errors.New("report has no voltage or current tables")
		}
	}

	results, err := c.extractor.Batch(ctx, src, reqs, func(r lis.BatchResult) {
		if r.Err != nil {
			c.logger.Warn("table skipped",
				slog.String("kind", string(r.Request.Kind)),
				slog.String("primary", r.Request.Primary),
				slog.String("secondary", r.Request.Secondary),
				slog.String("error", r.Err.Error()))
			return
		}
		c.logger.Debug("table extracted", slog.String("table", exporter.TableLabel(r.Table)))
	})
	if err != nil {
		return nil, err
	}

	tables := make([]*domain.StatisticalTable, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			tables = append(tables, r.Table)
		}
	}
	if len(tables) == 0 {
		return nil, errors.New("no table could be extracted")
	}
	return tables, nil
}

func (c *cli) newExportCmd() *cobra.Command {
	var (
		specs   []string
		summary bool
		format  string
		out     string
	)

	cmd := &cobra.Command{
		Use:   "export <report>",
		Short: "Export distribution tables as CSV files or an xlsx workbook",
		Long: `Export extracts the requested tables, or every voltage and current
table in the report when no --table is given.

The csv format writes one file per table plus index.csv into the output
directory. The xlsx format writes a single workbook with an index sheet.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "csv" && format != "xlsx" {
				return fmt.Errorf("unsupported format %q: want csv or xlsx", format)
			}
			reqs, err := tableRequests(specs, summary)
			if err != nil {
				return err
			}

			paths, err := c.cfg.ResolvePaths("")
			if err != nil {
				return err
			}
			if out == "" {
				base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
				out = filepath.Join(paths.ExportsDir, base)
				if format == "xlsx" {
					out += ".xlsx"
				}
			}
			if out, err = filepath.Abs(out); err != nil {
				return err
			}
			if format == "xlsx" {
				err = c.validator.ValidateOutputFile(out, ".xlsx")
			} else {
				err = c.validator.ValidateOutputDirectory(out)
			}
			if err != nil {
				return err
			}

			src, err := c.reportSource(args[0])
			if err != nil {
				return err
			}
			tables, err := c.collectTables(cmd, src, reqs, summary)
			if err != nil {
				return err
			}

			if format == "xlsx" {
				if err := exporter.SaveWorkbook(out, tables); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d tables to %s\n", len(tables), out)
				return nil
			}

			written, err := exporter.NewTableExporter(paths).ExportTables(tables, out)
			if err != nil {
				return err
			}
			for _, name := range written {
				fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(out, name))
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&specs, "table", "t", nil, "table to export as voltage:NODE or current:FROM:TO (repeatable)")
	cmd.Flags().BoolVar(&summary, "summary", false, "export three-phase SUMMARY tables")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "output format: csv or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory (csv) or file (xlsx); defaults under the exports directory")
	return cmd
}

func (c *cli) newPlotCmd() *cobra.Command {
	var (
		summary bool
		out     string
		title   string
		width   float64
		height  float64
	)

	cmd := &cobra.Command{
		Use:   "plot <report> <table>",
		Short: "Plot the frequency distribution of one table",
		Long: `Plot renders the discrete frequency of each interval as bars with the
cumulative frequency as a line. The table is given as voltage:NODE or
current:FROM:TO and the image format follows the --out extension.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := tableRequests(args[1:], summary)
			if err != nil {
				return err
			}
			src, err := c.reportSource(args[0])
			if err != nil {
				return err
			}
			table, err := c.extractor.ExtractTable(cmd.Context(), src, reqs[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = exporter.TableFileName(table) + ".png"
			}
			if err := c.validator.ValidateOutputFile(out); err != nil {
				return err
			}
			opts := report.ChartOptions{
				Width:  vg.Points(width),
				Height: vg.Points(height),
				Title:  title,
			}
			if err := report.SaveChart(out, table, opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&summary, "summary", false, "plot the three-phase SUMMARY table")
	cmd.Flags().StringVarP(&out, "out", "o", "", "image file (png, svg, pdf, ...); defaults to the table name in PNG")
	cmd.Flags().StringVar(&title, "title", "", "chart title")
	cmd.Flags().Float64Var(&width, "width", report.DefaultWidth, "image width in points")
	cmd.Flags().Float64Var(&height, "height", report.DefaultHeight, "image height in points")
	return cmd
}
