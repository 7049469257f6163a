package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"genopt/internal/evo"
)

const namespace = "genopt"

// Collector exports engine progress as Prometheus metrics. It implements
// evo.Observer.
type Collector struct {
	generations    prometheus.Counter
	evaluations    prometheus.Counter
	improvements   prometheus.Counter
	runs           *prometheus.CounterVec
	bestFitness    prometheus.Gauge
	meanFitness    prometheus.Gauge
	populationSize prometheus.Gauge
	generationsRun prometheus.Histogram

	lastEvaluations int
}

// NewCollector builds a collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "generations_total",
			Help:      "Generations evolved across all runs.",
		}),
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "evaluations_total",
			Help:      "Objective evaluations across all runs.",
		}),
		improvements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "improvements_total",
			Help:      "Generations that improved the best-so-far fitness.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "runs_total",
			Help:      "Finished runs by stop reason.",
		}, []string{"stop_reason"}),
		bestFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "best_fitness",
			Help:      "Best-so-far fitness of the current run.",
		}),
		meanFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "mean_fitness",
			Help:      "Mean fitness of the latest generation.",
		}),
		populationSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "population_size",
			Help:      "Size of the latest generation.",
		}),
		generationsRun: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "generations_per_run",
			Help:      "Generations evolved before a run stopped.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200, 500},
		}),
	}

	for _, collector := range []prometheus.Collector{
		c.generations,
		c.evaluations,
		c.improvements,
		c.runs,
		c.bestFitness,
		c.meanFitness,
		c.populationSize,
		c.generationsRun,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) OnGeneration(report evo.GenerationReport) {
	c.generations.Inc()
	if report.Evaluations > c.lastEvaluations {
		c.evaluations.Add(float64(report.Evaluations - c.lastEvaluations))
	}
	c.lastEvaluations = report.Evaluations
	if report.Improved {
		c.improvements.Inc()
	}
	c.bestFitness.Set(report.BestSoFar.Fitness)
	c.meanFitness.Set(report.Diagnostics.MeanFitness)
	c.populationSize.Set(float64(report.Diagnostics.PopulationSize))
}

func (c *Collector) OnStop(result evo.Result) {
	if result.Evaluations > c.lastEvaluations {
		c.evaluations.Add(float64(result.Evaluations - c.lastEvaluations))
	}
	c.lastEvaluations = 0
	c.runs.WithLabelValues(result.StopReason.String()).Inc()
	c.generationsRun.Observe(float64(result.Generations))
}
