package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"genopt/internal/evo"
	"genopt/internal/objective"
	"genopt/internal/storage"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestRunCommandPrintsSummary(t *testing.T) {
	out, err := runCLI(t, "run", "--pop", "12", "--gens", "3", "--seed", "5", "--no-homogeneity-check")
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	for _, want := range []string{"objective:   part1 (target 81.72)", "stopped:     budget_exhausted after 3 generations", "fittest:     Size:16, Fitness value:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRunCommandJSONOutput(t *testing.T) {
	out, err := runCLI(t, "run", "--objective", "distance", "--size", "4", "--pop", "10", "--gens", "2", "--json")
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	record, diagnostics, err := storage.DecodeRunRecord([]byte(strings.TrimSpace(out)))
	if err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(diagnostics) != 1 || diagnostics[0].Generation != 1 || diagnostics[0].PopulationSize != 10 {
		t.Fatalf("unexpected diagnostics: %+v", diagnostics)
	}
	if record.Objective != "distance" || record.StopReason != "target_reached" || record.GenerationsRun != 1 {
		t.Fatalf("unexpected record: %+v", record)
	}
	if len(record.Best.Genes) != 4 {
		t.Fatalf("unexpected best chromosome: %+v", record.Best)
	}
}

func TestRunCommandProgressAndMetricsFile(t *testing.T) {
	metricsPath := filepath.Join(t.TempDir(), "genopt.prom")
	out, err := runCLI(t,
		"run",
		"--objective", "identity",
		"--size", "4",
		"--pop", "10",
		"--gens", "10",
		"--seed", "3",
		"--elitism",
		"--no-homogeneity-check",
		"--progress",
		"--metrics-file", metricsPath,
	)
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	if !strings.Contains(out, "run ") {
		t.Fatalf("expected run summary:\n%s", out)
	}
	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("read metrics file: %v", err)
	}
	for _, want := range []string{"genopt_engine_generations_total", "genopt_engine_runs_total{stop_reason="} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("expected %q in metrics file:\n%s", want, data)
		}
	}
}

func TestRunCommandConfigFileWithFlagOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	config := `objective: distance
chromosome_size: 4
population: 10
generations: 4
seed: 9
initial:
  - [6, 6, 6, 6]
`
	if err := os.WriteFile(path, []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := runCLI(t, "run", "--config", path, "--gens", "2", "--json")
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	record, _, err := storage.DecodeRunRecord([]byte(strings.TrimSpace(out)))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if record.Objective != "distance" || record.Seed != 9 || record.Generations != 2 || record.PopulationSize != 10 {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestRunCommandConfigFileKeepsDefaultSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	config := "objective: distance\nchromosome_size: 4\npopulation: 10\n"
	if err := os.WriteFile(path, []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := runCLI(t, "run", "--config", path, "--json")
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	record, _, err := storage.DecodeRunRecord([]byte(strings.TrimSpace(out)))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if record.Seed != 1 || record.Generations != 50 {
		t.Fatalf("expected default seed and budget, got %+v", record)
	}
}

func TestLoadRunRequestFromConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	config := `objective: part1
lower_bound: 5.5
upper_bound: 6.5
selection: roulette
selection_rate: 0.5
step_order: vary_then_select
crossover_rate: 0.6
mutation_rate: 10
elitism: true
keep_population_size_constant: true
disable_homogeneity_check: true
`
	if err := os.WriteFile(path, []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	req, err := loadRunRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load run request: %v", err)
	}
	if req.LowerBound != 5.5 || req.UpperBound != 6.5 {
		t.Fatalf("unexpected bounds: %+v", req)
	}
	if req.Selection != "roulette" || req.SelectionRate != 0.5 || req.StepOrder != "vary_then_select" {
		t.Fatalf("unexpected selection fields: %+v", req)
	}
	if req.CrossoverRate != 0.6 || req.MutationRate != 10 {
		t.Fatalf("unexpected operator fields: %+v", req)
	}
	if !req.Elitism || !req.KeepPopulationSizeConstant || !req.DisableHomogeneityCheck {
		t.Fatalf("unexpected flags: %+v", req)
	}
	if req.ChromosomeSize != 16 || req.Population != 50 || req.Seed != 1 {
		t.Fatalf("omitted keys should keep defaults: %+v", req)
	}
}

func TestLoadRunRequestFromConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte("populaton: 10\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadRunRequestFromConfig(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestRunCommandRejectsInvalidConfig(t *testing.T) {
	cases := [][]string{
		{"--pop", "0"},
		{"--pop", "1"},
		{"--size", "0"},
		{"--gens", "0"},
		{"--selection-rate", "0"},
		{"--mutation-rate", "0"},
		{"--lower", "7", "--upper", "5"},
		{"--objective", ""},
	}
	for _, flags := range cases {
		args := append([]string{"run"}, flags...)
		if _, err := runCLI(t, args...); !errors.Is(err, evo.ErrInvalidConfig) && !errors.Is(err, objective.ErrFunctionNotFound) {
			t.Fatalf("%v: expected invalid config error, got %v", flags, err)
		}
	}

	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte("population: 0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := runCLI(t, "run", "--config", path); !errors.Is(err, evo.ErrInvalidConfig) {
		t.Fatalf("expected invalid config error for population 0 in file, got %v", err)
	}
	if _, err := runCLI(t, "run", "--log-level", "loud"); err == nil {
		t.Fatal("expected error for invalid log level")
	}
	if _, err := runCLI(t, "run", "--store", "sqlite"); err == nil {
		t.Fatal("expected error for unsupported store")
	}
}

func TestBenchmarkCommand(t *testing.T) {
	reportDir := filepath.Join(t.TempDir(), "reports")
	out, err := runCLI(t,
		"benchmark",
		"--objective", "distance",
		"--size", "4",
		"--pop", "10",
		"--gens", "3",
		"--runs", "3",
		"--report-dir", reportDir,
	)
	if err != nil {
		t.Fatalf("benchmark command: %v", err)
	}
	for _, want := range []string{"benchmark distance: 3 runs", "success rate: 100% (3/3)", "target_reached: 3", "report: "} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if _, err := os.Stat(filepath.Join(reportDir, "distance_Report.json")); err != nil {
		t.Fatalf("expected benchmark report: %v", err)
	}
}

func TestRunCommandAcceptsZeroCrossoverRate(t *testing.T) {
	out, err := runCLI(t, "run", "--crossover-rate", "0", "--pop", "10", "--gens", "2", "--no-homogeneity-check")
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	if !strings.Contains(out, "budget_exhausted after 2 generations") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestInspectCommand(t *testing.T) {
	out, err := runCLI(t, "run", "--pop", "12", "--gens", "3", "--seed", "4", "--no-homogeneity-check", "--json")
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	path := filepath.Join(t.TempDir(), "run.json")
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		t.Fatalf("write run: %v", err)
	}

	summary, err := runCLI(t, "inspect", path)
	if err != nil {
		t.Fatalf("inspect command: %v", err)
	}
	for _, want := range []string{"(part1, seed 4,", "budget_exhausted after 3 of 3 generations", "generations with diagnostics: 3", "last generation: best "} {
		if !strings.Contains(summary, want) {
			t.Fatalf("expected %q in output:\n%s", want, summary)
		}
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"codec_version":2}`), 0o644); err != nil {
		t.Fatalf("write bad run: %v", err)
	}
	if _, err := runCLI(t, "inspect", bad); !errors.Is(err, storage.ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}

func TestFunctionsCommand(t *testing.T) {
	out, err := runCLI(t, "functions")
	if err != nil {
		t.Fatalf("functions command: %v", err)
	}
	for _, want := range []string{"NAME", "part1", "distance", "identity", "81.72", "-2.26"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	if _, err := runCLI(t, "functions", "--size", "0"); err == nil {
		t.Fatal("expected error for chromosome size 0")
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "info", "json")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("hello", "k", 1)
	if !strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("expected JSON log line, got %q", buf.String())
	}

	buf.Reset()
	logger, err = newLogger(&buf, "debug", "auto")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Debug("hello")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("non-terminal writer should get JSON logs, got %q", buf.String())
	}

	buf.Reset()
	logger, err = newLogger(&buf, "warn", "text")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("suppressed")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "suppressed") || !strings.Contains(buf.String(), "msg=shown") {
		t.Fatalf("unexpected text log output %q", buf.String())
	}

	if _, err := newLogger(&buf, "info", "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
