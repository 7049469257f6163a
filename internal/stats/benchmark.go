package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// BenchmarkRun is the outcome of one seeded run inside a benchmark.
type BenchmarkRun struct {
	RunID       string  `json:"run_id"`
	Seed        int64   `json:"seed"`
	StopReason  string  `json:"stop_reason"`
	Success     bool    `json:"success"`
	Generations int     `json:"generations"`
	Evaluations int     `json:"evaluations"`
	BestFitness float64 `json:"best_fitness"`
}

type BenchmarkStats struct {
	TotalRuns   int            `json:"total_runs"`
	SuccessRuns int            `json:"success_runs"`
	SuccessRate float64        `json:"success_rate"`
	BestFitness Summary        `json:"best_fitness"`
	Generations Summary        `json:"generations"`
	Evaluations Summary        `json:"evaluations"`
	StopReasons map[string]int `json:"stop_reasons"`
	Runs        []BenchmarkRun `json:"runs"`
}

type BenchmarkReport struct {
	Name        string         `json:"name"`
	Objective   string         `json:"objective"`
	GeneratedAt string         `json:"generated_at_utc"`
	Stats       BenchmarkStats `json:"stats"`
}

// BuildBenchmarkStats aggregates run outcomes. Evaluation counts are
// summarized over successful runs only, matching how a benchmark reports
// the cost of reaching the target.
func BuildBenchmarkStats(runs []BenchmarkRun) BenchmarkStats {
	result := BenchmarkStats{
		TotalRuns:   len(runs),
		StopReasons: make(map[string]int),
		Runs:        append([]BenchmarkRun(nil), runs...),
	}
	fitness := make([]float64, 0, len(runs))
	generations := make([]float64, 0, len(runs))
	successEvaluations := make([]float64, 0, len(runs))
	for _, run := range runs {
		fitness = append(fitness, run.BestFitness)
		generations = append(generations, float64(run.Generations))
		result.StopReasons[run.StopReason]++
		if run.Success {
			result.SuccessRuns++
			successEvaluations = append(successEvaluations, float64(run.Evaluations))
		}
	}
	if result.TotalRuns > 0 {
		result.SuccessRate = float64(result.SuccessRuns) / float64(result.TotalRuns)
	}
	result.BestFitness = Summarize(fitness)
	result.Generations = Summarize(generations)
	result.Evaluations = Summarize(successEvaluations)
	return result
}

// StopReasonNames lists the observed stop reasons in sorted order.
func (s BenchmarkStats) StopReasonNames() []string {
	names := make([]string, 0, len(s.StopReasons))
	for name := range s.StopReasons {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WriteBenchmarkReport writes report as indented JSON into dir and returns
// the file path.
func WriteBenchmarkReport(dir string, report BenchmarkReport) (string, error) {
	name := report.Name
	if name == "" {
		name = "benchmark"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if report.GeneratedAt == "" {
		report.GeneratedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	path := filepath.Join(dir, name+"_Report.json")
	if err := writeJSON(path, report); err != nil {
		return "", fmt.Errorf("write benchmark report: %w", err)
	}
	return path, nil
}

func ReadBenchmarkReport(path string) (BenchmarkReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BenchmarkReport{}, err
	}
	var report BenchmarkReport
	if err := json.Unmarshal(data, &report); err != nil {
		return BenchmarkReport{}, fmt.Errorf("decode benchmark report %s: %w", path, err)
	}
	return report, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
