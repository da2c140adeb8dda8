package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"lisstat/internal/config"
	"lisstat/internal/exporter"
	"lisstat/internal/files"
	"lisstat/internal/lis"
	"lisstat/pkg/contracts/domain"
)

// reportSummary is one row of scan-dir output
type reportSummary struct {
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	Variables int    `json:"variables"`
	Shots     int    `json:"shots"`
	Error     string `json:"error,omitempty"`
}

func (c *cli) newScanDirCmd() *cobra.Command {
	var (
		recursive bool
		csvOut    string
	)

	cmd := &cobra.Command{
		Use:   "scan-dir <dir>",
		Short: "Summarise every list report in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			direct, err := c.validator.ValidateInputDirectory(args[0])
			if err != nil {
				return err
			}
			if direct == 0 && !recursive {
				fmt.Fprintf(cmd.ErrOrStderr(), "no %s reports in %s\n", config.ReportExtension, args[0])
			}

			discovery := files.NewDiscovery("")
			var found []files.FileInfo
			if recursive {
				found, err = discovery.FindReportsRecursive(args[0])
			} else {
				found, err = discovery.FindReports(args[0])
			}
			if err != nil {
				return err
			}

			var (
				sw   *exporter.StreamWriter
				done func(reportSummary) error
			)
			if csvOut != "" {
				if sw, err = c.summaryWriter(csvOut); err != nil {
					return err
				}
				done = func(s reportSummary) error { return sw.WriteRecord(s.record()) }
			}

			summaries, err := c.scanReports(cmd, found, done)
			if sw != nil {
				if cerr := sw.Close(); err == nil {
					err = cerr
				}
			}
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), summaries, func(w io.Writer) error {
				t := newTextTable("REPORT", "SIZE", "VARIABLES", "SHOTS", "ERROR")
				for _, s := range summaries {
					t.Row(s.record()...)
				}
				return writeTextTable(w, t)
			})
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", true, "descend into subdirectories")
	cmd.Flags().StringVar(&csvOut, "csv", "", "stream one CSV record per report as scans finish")
	return cmd
}

// summaryHeaders lay out reportSummary records
var summaryHeaders = []string{"path", "size", "variables", "shots", "error"}

func (s reportSummary) record() []string {
	return []string{s.Path, strconv.FormatInt(s.Size, 10), strconv.Itoa(s.Variables), strconv.Itoa(s.Shots), s.Error}
}

func (c *cli) summaryWriter(path string) (*exporter.StreamWriter, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := c.validator.ValidateOutputFile(abs, ".csv"); err != nil {
		return nil, err
	}
	paths, err := c.cfg.ResolvePaths("")
	if err != nil {
		return nil, err
	}
	return exporter.NewCSVWriter(paths).CreateStreamWriter(abs, summaryHeaders)
}

// scanReports lists variables and shots of each report, at most
// Scan.MaxConcurrent reports at a time. Failures are reported per report;
// only an error from done stops the scan. done calls are serialized.
func (c *cli) scanReports(cmd *cobra.Command, found []files.FileInfo, done func(reportSummary) error) ([]reportSummary, error) {
	ctx := cmd.Context()
	summaries := make([]reportSummary, len(found))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.cfg.Scan.MaxConcurrent, 1))
	for i, f := range found {
		g.Go(func() error {
			s := reportSummary{Path: f.Path, Size: f.Size}
			src := lis.FileSource(f.Path)
			names, err := c.extractor.ListVariableNames(gctx, src)
			if err == nil {
				var events []domain.ShotEvent
				events, err = c.extractor.ListShotEvents(gctx, src)
				s.Variables, s.Shots = len(names), len(events)
			}
			if err != nil {
				c.logger.Warn("report scan failed", slog.String("path", f.Path), slog.String("error", err.Error()))
				s.Error = err.Error()
			}
			summaries[i] = s
			if done == nil {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			return done(s)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to record scan results: %w", err)
	}
	return summaries, nil
}
