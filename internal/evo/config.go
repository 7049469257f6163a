package evo

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"genopt/internal/model"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// SelectionKind is the closed set of selection strategies.
type SelectionKind int

const (
	SelectionRank SelectionKind = iota
	SelectionWeightedRoulette
)

func (k SelectionKind) String() string {
	switch k {
	case SelectionRank:
		return "rank"
	case SelectionWeightedRoulette:
		return "weighted_roulette"
	default:
		return fmt.Sprintf("selection(%d)", int(k))
	}
}

func ParseSelectionKind(name string) (SelectionKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "rank", "best", "best_chromosomes":
		return SelectionRank, nil
	case "roulette", "weighted_roulette":
		return SelectionWeightedRoulette, nil
	default:
		return 0, fmt.Errorf("%w: unknown selection %q", ErrInvalidConfig, name)
	}
}

// StepOrder places selection before or after crossover and mutation.
type StepOrder int

const (
	SelectThenVary StepOrder = iota
	VaryThenSelect
)

func (o StepOrder) String() string {
	switch o {
	case SelectThenVary:
		return "select_then_vary"
	case VaryThenSelect:
		return "vary_then_select"
	default:
		return fmt.Sprintf("order(%d)", int(o))
	}
}

func ParseStepOrder(name string) (StepOrder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "select_then_vary", "before":
		return SelectThenVary, nil
	case "vary_then_select", "after":
		return VaryThenSelect, nil
	default:
		return 0, fmt.Errorf("%w: unknown step order %q", ErrInvalidConfig, name)
	}
}

type SelectionConfig struct {
	Kind SelectionKind
	// Rate is the fraction of the nominal population kept as breeding pool.
	Rate float64
}

type CrossoverConfig struct {
	Enabled bool
	// Rate is the probability that a breeding pair recombines.
	Rate float64
}

type MutationConfig struct {
	Enabled bool
	// Rate is the inverse per-gene mutation probability: 20 means 1/20.
	Rate int
}

type Config struct {
	ChromosomeSize int
	Bounds         model.Bounds
	PopulationSize int
	Generations    int

	Selection SelectionConfig
	Order     StepOrder
	Crossover CrossoverConfig
	Mutation  MutationConfig

	Elitism                    bool
	KeepPopulationSizeConstant bool
	CheckHomogeneity           bool

	Seed int64
	// Initial chromosomes take the first slots of the starting population.
	Initial []model.Chromosome

	Logger   *slog.Logger
	Observer Observer
}

func DefaultConfig() Config {
	return Config{
		ChromosomeSize: 16,
		Bounds:         model.Bounds{Lower: 5, Upper: 7},
		PopulationSize: 50,
		Generations:    50,
		Selection:      SelectionConfig{Kind: SelectionRank, Rate: 0.9},
		Order:          SelectThenVary,
		Crossover:      CrossoverConfig{Enabled: true, Rate: 0.8},
		Mutation:       MutationConfig{Enabled: true, Rate: 20},

		CheckHomogeneity: true,
	}
}

func (c Config) Validate() error {
	if c.ChromosomeSize <= 0 {
		return fmt.Errorf("%w: chromosome size must be > 0, got %d", ErrInvalidConfig, c.ChromosomeSize)
	}
	if math.IsNaN(c.Bounds.Lower) || math.IsInf(c.Bounds.Lower, 0) || math.IsNaN(c.Bounds.Upper) || math.IsInf(c.Bounds.Upper, 0) {
		return fmt.Errorf("%w: gene bounds must be finite, got [%v, %v]", ErrInvalidConfig, c.Bounds.Lower, c.Bounds.Upper)
	}
	if c.Bounds.Lower >= c.Bounds.Upper {
		return fmt.Errorf("%w: gene lower bound %v must be < upper bound %v", ErrInvalidConfig, c.Bounds.Lower, c.Bounds.Upper)
	}
	if c.PopulationSize < 2 {
		return fmt.Errorf("%w: population size must be >= 2, got %d", ErrInvalidConfig, c.PopulationSize)
	}
	if c.Generations <= 0 {
		return fmt.Errorf("%w: generations must be > 0, got %d", ErrInvalidConfig, c.Generations)
	}
	switch c.Selection.Kind {
	case SelectionRank, SelectionWeightedRoulette:
	default:
		return fmt.Errorf("%w: unknown selection %s", ErrInvalidConfig, c.Selection.Kind)
	}
	if !(c.Selection.Rate > 0 && c.Selection.Rate <= 1) {
		return fmt.Errorf("%w: selection rate must be in (0, 1], got %v", ErrInvalidConfig, c.Selection.Rate)
	}
	switch c.Order {
	case SelectThenVary, VaryThenSelect:
	default:
		return fmt.Errorf("%w: unknown step order %s", ErrInvalidConfig, c.Order)
	}
	if c.Crossover.Enabled && !(c.Crossover.Rate >= 0 && c.Crossover.Rate <= 1) {
		return fmt.Errorf("%w: crossover rate must be in [0, 1], got %v", ErrInvalidConfig, c.Crossover.Rate)
	}
	if c.Mutation.Enabled && c.Mutation.Rate < 1 {
		return fmt.Errorf("%w: mutation rate must be >= 1 (probability 1/rate), got %d", ErrInvalidConfig, c.Mutation.Rate)
	}
	if len(c.Initial) > c.PopulationSize {
		return fmt.Errorf("%w: %d initial chromosomes exceed population size %d", ErrInvalidConfig, len(c.Initial), c.PopulationSize)
	}
	for i, chromosome := range c.Initial {
		if chromosome.Size() != c.ChromosomeSize {
			return fmt.Errorf("%w: initial chromosome %d has %d genes, want %d", ErrInvalidConfig, i, chromosome.Size(), c.ChromosomeSize)
		}
		for j, gene := range chromosome.Genes {
			if !c.Bounds.Contains(gene) {
				return fmt.Errorf("%w: initial chromosome %d gene %d = %v outside [%v, %v]", ErrInvalidConfig, i, j, gene, c.Bounds.Lower, c.Bounds.Upper)
			}
		}
	}
	return nil
}

// poolSize is the number of chromosomes selection keeps for breeding.
func (c Config) poolSize() int {
	n := int(math.Round(c.Selection.Rate * float64(c.PopulationSize)))
	if n < 1 {
		n = 1
	}
	return n
}
