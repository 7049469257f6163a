package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"genopt/internal/evo"
	"genopt/internal/storage"
	"genopt/pkg/genopt"
)

func newClient(cmd *cobra.Command, flags *globalFlags, reg prometheus.Registerer) (*genopt.Client, error) {
	logger, err := newLogger(cmd.ErrOrStderr(), flags.logLevel, flags.logFormat)
	if err != nil {
		return nil, err
	}
	return genopt.New(genopt.Options{
		StoreKind:  flags.store,
		Logger:     logger,
		Registerer: reg,
		RetainRuns: flags.retainRuns,
	})
}

// metricsRegistry returns a fresh registry when metrics are exported to a
// file, or nil to leave metrics off.
func metricsRegistry(path string) *prometheus.Registry {
	if path == "" {
		return nil
	}
	return prometheus.NewRegistry()
}

func writeMetrics(path string, reg *prometheus.Registry) error {
	if reg == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func registererOrNil(reg *prometheus.Registry) prometheus.Registerer {
	if reg == nil {
		return nil
	}
	return reg
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	var (
		rf          runFlags
		progress    bool
		asJSON      bool
		metricsFile string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one optimization and print the fittest chromosome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := rf.runRequest(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if progress {
				req.Observer = progressPrinter{w: out}
			}

			reg := metricsRegistry(metricsFile)
			client, err := newClient(cmd, flags, registererOrNil(reg))
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			summary, err := client.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := writeMetrics(metricsFile, reg); err != nil {
				return err
			}

			if asJSON {
				record, err := client.Record(cmd.Context(), summary.RunID)
				if err != nil {
					return err
				}
				diagnostics, err := client.Diagnostics(cmd.Context(), genopt.DiagnosticsRequest{RunID: summary.RunID})
				if err != nil {
					return err
				}
				data, err := storage.EncodeRunRecord(record, diagnostics)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}
			printRunSummary(out, summary)
			return nil
		},
	}
	addRunFlags(cmd, &rf)
	cmd.Flags().BoolVar(&progress, "progress", false, "print a line whenever the fittest chromosome improves")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run record and its generation diagnostics as JSON")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
	return cmd
}

func newBenchmarkCmd(flags *globalFlags) *cobra.Command {
	var (
		rf          runFlags
		runs        int
		reportDir   string
		metricsFile string
	)
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Repeat a run over consecutive seeds and summarize the outcomes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := rf.runRequest(cmd)
			if err != nil {
				return err
			}
			reg := metricsRegistry(metricsFile)
			client, err := newClient(cmd, flags, registererOrNil(reg))
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			summary, err := client.Benchmark(cmd.Context(), genopt.BenchmarkRequest{
				Run:       req,
				Runs:      runs,
				ReportDir: reportDir,
			})
			if err != nil {
				return err
			}
			if err := writeMetrics(metricsFile, reg); err != nil {
				return err
			}
			printBenchmarkSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	addRunFlags(cmd, &rf)
	cmd.Flags().IntVar(&runs, "runs", 10, "number of runs")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "write a JSON benchmark report into this directory")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the benchmark")
	return cmd
}

func newFunctionsCmd(flags *globalFlags) *cobra.Command {
	var (
		size         int
		lower, upper float64
	)
	def := genopt.DefaultRunRequest()
	cmd := &cobra.Command{
		Use:   "functions",
		Short: "List the objective functions and their target fitness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newClient(cmd, flags, nil)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			infos, err := client.Functions(genopt.FunctionsRequest{
				ChromosomeSize: size,
				LowerBound:     lower,
				UpperBound:     upper,
			})
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tMINIMAL VALUE\tTARGET FITNESS")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Name,
					humanize.FormatFloat("#,###.##", info.MinimalValue),
					humanize.FormatFloat("#,###.##", info.TargetFitness),
				)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&size, "size", def.ChromosomeSize, "chromosome size used for the target fitness")
	cmd.Flags().Float64Var(&lower, "lower", def.LowerBound, "gene lower bound")
	cmd.Flags().Float64Var(&upper, "upper", def.UpperBound, "gene upper bound")
	return cmd
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <run.json>",
		Short: "Summarize a run saved with run --json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			record, diagnostics, err := storage.DecodeRunRecord(data)
			if err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "run %s (%s, seed %d, created %s)\n", record.RunID, record.Objective, record.Seed, record.CreatedAtUTC)
			fmt.Fprintf(w, "  stopped:     %s after %d of %d generations\n", record.StopReason, record.GenerationsRun, record.Generations)
			fmt.Fprintf(w, "  evaluations: %s\n", humanize.Comma(int64(record.Evaluations)))
			fmt.Fprintf(w, "  fittest:     %s\n", record.Best)
			improved := 0
			for _, d := range diagnostics {
				if d.Improved {
					improved++
				}
			}
			fmt.Fprintf(w, "  generations with diagnostics: %d, improving: %d\n", len(diagnostics), improved)
			if n := len(diagnostics); n > 0 {
				last := diagnostics[n-1]
				fmt.Fprintf(w, "  last generation: best %.2f  mean %.2f  stddev %.2f  population %d\n",
					last.BestFitness, last.MeanFitness, last.StdDevFitness, last.PopulationSize)
			}
			return nil
		},
	}
}

// progressPrinter reports every generation that improves the best-so-far
// fitness.
type progressPrinter struct {
	w io.Writer
}

func (p progressPrinter) OnGeneration(report evo.GenerationReport) {
	if !report.Improved {
		return
	}
	fmt.Fprintf(p.w, "generation %d: fittest %.2f (population %d)\n",
		report.Generation, report.Fittest.Fitness, report.Diagnostics.PopulationSize)
}

func (p progressPrinter) OnStop(evo.Result) {}

func printRunSummary(w io.Writer, s genopt.RunSummary) {
	fmt.Fprintf(w, "run %s\n", s.RunID)
	fmt.Fprintf(w, "  objective:   %s (target %.2f)\n", s.Objective, s.TargetFitness)
	fmt.Fprintf(w, "  stopped:     %s after %d generations\n", s.StopReason, s.Generations)
	fmt.Fprintf(w, "  evaluations: %s in %s\n", humanize.Comma(int64(s.Evaluations)), s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  fittest:     %s\n", s.Best)
}

func printBenchmarkSummary(w io.Writer, s genopt.BenchmarkSummary) {
	st := s.Stats
	fmt.Fprintf(w, "benchmark %s: %d runs in %s\n", s.Objective, st.TotalRuns, s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  success rate: %.0f%% (%d/%d)\n", st.SuccessRate*100, st.SuccessRuns, st.TotalRuns)
	fmt.Fprintf(w, "  best fitness: mean %.2f  stddev %.2f  min %.2f  max %.2f\n",
		st.BestFitness.Mean, st.BestFitness.StdDev, st.BestFitness.Min, st.BestFitness.Max)
	fmt.Fprintf(w, "  generations:  mean %.1f  min %.0f  max %.0f\n",
		st.Generations.Mean, st.Generations.Min, st.Generations.Max)
	if st.Evaluations.Count > 0 {
		fmt.Fprintf(w, "  evaluations to target: mean %s\n", humanize.Commaf(st.Evaluations.Mean))
	}
	for _, reason := range st.StopReasonNames() {
		fmt.Fprintf(w, "  %s: %d\n", reason, st.StopReasons[reason])
	}
	if s.ReportPath != "" {
		fmt.Fprintf(w, "  report: %s\n", s.ReportPath)
	}
}
