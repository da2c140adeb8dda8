package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"lisstat/internal/exporter"
	"lisstat/internal/services"
	"lisstat/pkg/contracts/domain"
)

// exportListing writes a listing through the table exporter. Relative paths
// are taken from the working directory, not the exports directory.
func (c *cli) exportListing(path string, write func(e *exporter.TableExporter, path string) error) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := c.validator.ValidateOutputFile(abs, ".csv"); err != nil {
		return err
	}
	paths, err := c.cfg.ResolvePaths("")
	if err != nil {
		return err
	}
	if err := write(exporter.NewTableExporter(paths), abs); err != nil {
		return fmt.Errorf("failed to export %s: %w", abs, err)
	}
	c.logger.Info("listing exported", slog.String("path", abs))
	return nil
}

func (c *cli) newNamesCmd() *cobra.Command {
	var csvOut string

	cmd := &cobra.Command{
		Use:   "names <report>",
		Short: "List the statistical output variables of a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := c.reportSource(args[0])
			if err != nil {
				return err
			}
			names, err := c.extractor.ListVariableNames(cmd.Context(), src)
			if err != nil {
				return err
			}
			if csvOut != "" {
				if err := c.exportListing(csvOut, func(e *exporter.TableExporter, path string) error {
					return e.ExportVariables(names, path)
				}); err != nil {
					return err
				}
			}
			return c.print(cmd.OutOrStdout(), names, func(w io.Writer) error {
				t := newTextTable("KIND", "NAME1", "NAME2")
				for _, n := range names {
					t.Row(string(n.Kind), n.Name1, n.Name2)
				}
				return writeTextTable(w, t)
			})
		},
	}
	cmd.Flags().StringVar(&csvOut, "csv", "", "write the listing to a CSV file as well")
	return cmd
}

func (c *cli) newShotsCmd() *cobra.Command {
	var csvOut string

	cmd := &cobra.Command{
		Use:   "shots <report>",
		Short: "List the shot that produced each variable's peak",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := c.reportSource(args[0])
			if err != nil {
				return err
			}
			shots, err := c.extractor.ListShotEvents(cmd.Context(), src)
			if err != nil {
				return err
			}
			if csvOut != "" {
				if err := c.exportListing(csvOut, func(e *exporter.TableExporter, path string) error {
					return e.ExportShots(shots, path)
				}); err != nil {
					return err
				}
			}
			return c.print(cmd.OutOrStdout(), shots, func(w io.Writer) error {
				t := newTextTable("KIND", "NAME1", "NAME2", "PEAK", "SHOT")
				for _, s := range shots {
					t.Row(string(s.Kind), s.Name1, s.Name2, formatFloat(s.Peak), strconv.Itoa(s.Shot))
				}
				return writeTextTable(w, t)
			})
		},
	}
	cmd.Flags().StringVar(&csvOut, "csv", "", "write the listing to a CSV file as well")
	return cmd
}

func (c *cli) newSwitchingCmd() *cobra.Command {
	var csvOut string

	cmd := &cobra.Command{
		Use:   "switching <report>",
		Short: "Print the random closing times of each simulation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := c.reportSource(args[0])
			if err != nil {
				return err
			}
			times, err := c.extractor.ExtractSwitchingTimes(cmd.Context(), src)
			if err != nil {
				return err
			}
			if csvOut != "" {
				if err := c.exportListing(csvOut, func(e *exporter.TableExporter, path string) error {
					return e.ExportSwitchingTimes(times, path)
				}); err != nil {
					return err
				}
			}
			return c.print(cmd.OutOrStdout(), times, func(w io.Writer) error {
				t := newTextTable("SHOT", "PHASE A", "PHASE B", "PHASE C")
				for i := 0; i < times.Shots(); i++ {
					t.Row(strconv.Itoa(i+1),
						formatFloat(times.PhaseA[i]), formatFloat(times.PhaseB[i]), formatFloat(times.PhaseC[i]))
				}
				return writeTextTable(w, t)
			})
		},
	}
	cmd.Flags().StringVar(&csvOut, "csv", "", "write one CSV record per simulation as well")
	return cmd
}

func (c *cli) newSectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sections <report>",
		Short: "Show how the report divides into sections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := c.reportSource(args[0])
			if err != nil {
				return err
			}
			segs, err := c.extractor.Segment(cmd.Context(), src)
			if err != nil {
				return err
			}
			outline := services.Outline(segs)
			return c.print(cmd.OutOrStdout(), outline, func(w io.Writer) error {
				t := newTextTable("SECTION", "LINES")
				for _, s := range outline.Sections {
					t.Row(s.Section, strconv.Itoa(s.Lines))
				}
				if err := writeTextTable(w, t); err != nil {
					return err
				}
				if outline.OutputVariables > 0 {
					fmt.Fprintf(w, "\nstatistical output variables: %d\n", outline.OutputVariables)
				}
				if len(outline.InputCards) > 0 {
					fmt.Fprintln(w, "\ninput cards:")
					for _, card := range outline.InputCards {
						fmt.Fprintf(w, "  %s\n", card)
					}
				}
				return nil
			})
		},
	}
}

func (c *cli) newTableCmd() *cobra.Command {
	var summary bool

	cmd := &cobra.Command{
		Use:   "table",
		Short: "Extract one distribution table",
	}
	cmd.PersistentFlags().BoolVar(&summary, "summary", false, "extract the three-phase SUMMARY table instead of a single phase")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "voltage <report> <node>",
			Short: "Extract the peak voltage table of a node",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.runTable(cmd, args[0], domain.TableRequest{
					Kind: domain.TableKindVoltage, Primary: args[1], Summary: summary,
				})
			},
		},
		&cobra.Command{
			Use:   "current <report> <from> <to>",
			Short: "Extract the peak current table of a branch",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.runTable(cmd, args[0], domain.TableRequest{
					Kind: domain.TableKindCurrent, Primary: args[1], Secondary: args[2], Summary: summary,
				})
			},
		},
	)
	return cmd
}

func (c *cli) runTable(cmd *cobra.Command, path string, req domain.TableRequest) error {
	src, err := c.reportSource(path)
	if err != nil {
		return err
	}
	table, err := c.extractor.ExtractTable(cmd.Context(), src, req)
	if err != nil {
		return err
	}
	return c.print(cmd.OutOrStdout(), table, func(w io.Writer) error {
		return writeTableText(w, table)
	})
}

func writeTableText(w io.Writer, t *domain.StatisticalTable) error {
	fmt.Fprintf(w, "%s (base %s)\n\n", exporter.TableLabel(t), formatFloat(t.Base))

	rows := newTextTable(exporter.RowHeaders...).Rows(exporter.RowRecords(t)...)
	if err := writeTextTable(w, rows); err != nil {
		return err
	}
	fmt.Fprintln(w)

	stats := newTextTable("", "grouped", "ungrouped").
		Row("mean", formatFloat(t.Grouped.Mean), formatFloat(t.Ungrouped.Mean)).
		Row("variance", formatFloat(t.Grouped.Variance), formatFloat(t.Ungrouped.Variance)).
		Row("std dev", formatFloat(t.Grouped.StdDev), formatFloat(t.Ungrouped.StdDev))
	return writeTextTable(w, stats)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
