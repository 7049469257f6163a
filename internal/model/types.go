package model

import (
	"math"
	"strconv"
	"strings"
)

// Unevaluated marks a chromosome whose fitness cache is not valid.
var Unevaluated = math.NaN()

// Bounds is the closed interval every gene value must stay in.
type Bounds struct {
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
}

func (b Bounds) Contains(v float64) bool {
	return v >= b.Lower && v <= b.Upper
}

func (b Bounds) Clamp(v float64) float64 {
	if v < b.Lower {
		return b.Lower
	}
	if v > b.Upper {
		return b.Upper
	}
	return v
}

func (b Bounds) Width() float64 {
	return b.Upper - b.Lower
}

// Chromosome is an ordered vector of genes with a cached fitness value.
type Chromosome struct {
	Genes   []float64 `json:"genes"`
	Fitness float64   `json:"fitness"`
}

// NewChromosome copies genes into a chromosome with an invalid fitness cache.
func NewChromosome(genes []float64) Chromosome {
	return Chromosome{Genes: append([]float64(nil), genes...), Fitness: Unevaluated}
}

func (c Chromosome) Size() int {
	return len(c.Genes)
}

func (c Chromosome) Evaluated() bool {
	return !math.IsNaN(c.Fitness)
}

// Clone returns a deep copy that keeps the fitness cache.
func (c Chromosome) Clone() Chromosome {
	return Chromosome{Genes: append([]float64(nil), c.Genes...), Fitness: c.Fitness}
}

// Invalidate drops the fitness cache after the genes have changed.
func (c *Chromosome) Invalidate() {
	c.Fitness = Unevaluated
}

func (c Chromosome) String() string {
	var b strings.Builder
	b.WriteString("Size:")
	b.WriteString(strconv.Itoa(len(c.Genes)))
	b.WriteString(", Fitness value:")
	if c.Evaluated() {
		b.WriteString(strconv.FormatFloat(c.Fitness, 'f', -1, 64))
	} else {
		b.WriteString("unevaluated")
	}
	b.WriteString(", Alleles:[")
	for i, g := range c.Genes {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.FormatFloat(g, 'f', -1, 64))
	}
	b.WriteString("]")
	return b.String()
}

// Population is the working set of chromosomes for one generation.
type Population struct {
	Generation  int          `json:"generation"`
	Chromosomes []Chromosome `json:"chromosomes"`
}

func (p Population) Size() int {
	return len(p.Chromosomes)
}

// Fittest returns the index of the chromosome with maximal fitness, or -1
// when the population is empty. Earlier chromosomes win ties.
func (p Population) Fittest() int {
	best := -1
	for i, c := range p.Chromosomes {
		if best < 0 || c.Fitness > p.Chromosomes[best].Fitness {
			best = i
		}
	}
	return best
}

// Clone deep-copies every chromosome so the result shares no gene storage.
func (p Population) Clone() Population {
	out := Population{Generation: p.Generation, Chromosomes: make([]Chromosome, len(p.Chromosomes))}
	for i, c := range p.Chromosomes {
		out.Chromosomes[i] = c.Clone()
	}
	return out
}

// Fitnesses lists cached fitness values in population order.
func (p Population) Fitnesses() []float64 {
	out := make([]float64, len(p.Chromosomes))
	for i, c := range p.Chromosomes {
		out[i] = c.Fitness
	}
	return out
}

// GenerationDiagnostics summarizes one scored generation.
type GenerationDiagnostics struct {
	Generation     int     `json:"generation"`
	PopulationSize int     `json:"population_size"`
	BestFitness    float64 `json:"best_fitness"`
	MeanFitness    float64 `json:"mean_fitness"`
	MinFitness     float64 `json:"min_fitness"`
	StdDevFitness  float64 `json:"stddev_fitness"`
	Improved       bool    `json:"improved"`
}

// RunRecord captures a finished optimization run.
type RunRecord struct {
	RunID          string     `json:"run_id"`
	CreatedAtUTC   string     `json:"created_at_utc"`
	Objective      string     `json:"objective"`
	Seed           int64      `json:"seed"`
	PopulationSize int        `json:"population_size"`
	Generations    int        `json:"generations"`
	GenerationsRun int        `json:"generations_run"`
	StopReason     string     `json:"stop_reason"`
	Evaluations    int        `json:"evaluations"`
	Best           Chromosome `json:"best"`
	BestHistory    []float64  `json:"best_history"`
}
