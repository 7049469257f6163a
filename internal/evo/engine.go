package evo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sort"

	"genopt/internal/model"
	"genopt/internal/objective"
	"genopt/internal/stats"
)

type State int

const (
	StateInitialized State = iota
	StateEvolving
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateEvolving:
		return "evolving"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Result struct {
	Best        model.Chromosome
	StopReason  StopReason
	Generations int
	Evaluations int
	// BestHistory holds the best-so-far fitness after every generation.
	BestHistory     []float64
	Diagnostics     []model.GenerationDiagnostics
	FinalPopulation model.Population
}

// Engine runs a generational genetic algorithm against one objective. It is
// not safe for concurrent use.
type Engine struct {
	cfg      Config
	adapter  *objective.Adapter
	rng      *rand.Rand
	logger   *slog.Logger
	observer Observer

	state       State
	population  model.Population
	evaluations int
}

func NewEngine(fn objective.Function, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	adapter, err := objective.NewAdapter(fn)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	observer := cfg.Observer
	if observer == nil {
		observer = Observers()
	}
	return &Engine{
		cfg:      cfg,
		adapter:  adapter,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		logger:   logger,
		observer: observer,
		state:    StateInitialized,
	}, nil
}

// Run validates cfg, builds an engine and runs it to completion.
func Run(ctx context.Context, fn objective.Function, cfg Config) (Result, error) {
	engine, err := NewEngine(fn, cfg)
	if err != nil {
		return Result{}, err
	}
	return engine.Run(ctx)
}

func (e *Engine) State() State {
	return e.state
}

// Population returns a copy of the current population.
func (e *Engine) Population() model.Population {
	return e.population.Clone()
}

// Run evolves the population until the target fitness is reached, the
// population converges or the generation budget is spent. An engine runs once.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	if e.state != StateInitialized {
		return Result{}, fmt.Errorf("engine already %s", e.state)
	}
	e.state = StateEvolving
	defer func() { e.state = StateStopped }()

	if err := e.initialize(); err != nil {
		return Result{}, err
	}

	target := e.adapter.MaximalFitness(e.cfg.ChromosomeSize)
	previous := e.population.Chromosomes[0].Clone()
	e.logger.Info("initial population evaluated",
		"population_size", e.population.Size(),
		"best_fitness", previous.Fitness,
		"target_fitness", target,
	)

	result := Result{
		BestHistory: make([]float64, 0, e.cfg.Generations),
		Diagnostics: make([]model.GenerationDiagnostics, 0, e.cfg.Generations),
	}

	for gen := 1; gen <= e.cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		next, err := e.nextGeneration(e.population)
		if err != nil {
			return Result{}, fmt.Errorf("generation %d: %w", gen, err)
		}
		if err := e.evaluate(next.Chromosomes); err != nil {
			return Result{}, fmt.Errorf("generation %d: %w", gen, err)
		}
		rankPopulation(next.Chromosomes)
		e.population = next

		fittest := next.Chromosomes[0]
		stop := StopNone
		improved := false
		switch {
		case fittest.Fitness >= target:
			stop = StopTargetReached
		case e.cfg.CheckHomogeneity && IsHomogeneous(next.Chromosomes):
			stop = StopConverged
		case improves(fittest.Fitness, previous.Fitness):
			previous = fittest.Clone()
			improved = true
		}
		if stop == StopNone && gen == e.cfg.Generations {
			stop = StopBudgetExhausted
		}

		diagnostics := summarizeGeneration(next, improved)
		result.Diagnostics = append(result.Diagnostics, diagnostics)
		result.BestHistory = append(result.BestHistory, previous.Fitness)
		result.Generations = gen

		e.logger.Debug("generation evaluated",
			"generation", gen,
			"population_size", next.Size(),
			"fittest", fittest.Fitness,
			"mean_fitness", diagnostics.MeanFitness,
		)
		if improved {
			e.logger.Info("fittest improved",
				"generation", gen,
				"fitness", fittest.Fitness,
				"population_size", next.Size(),
			)
		}
		e.observer.OnGeneration(GenerationReport{
			Generation:  gen,
			Fittest:     fittest.Clone(),
			BestSoFar:   previous.Clone(),
			Improved:    improved,
			Evaluations: e.evaluations,
			Diagnostics: diagnostics,
		})

		if stop == StopNone {
			continue
		}
		result.StopReason = stop
		if stop == StopBudgetExhausted {
			result.Best = previous.Clone()
		} else {
			result.Best = fittest.Clone()
		}
		break
	}

	result.Evaluations = e.evaluations
	result.FinalPopulation = e.population.Clone()
	e.logger.Info("evolution stopped",
		"reason", result.StopReason.String(),
		"generations", result.Generations,
		"evaluations", result.Evaluations,
		"best_fitness", result.Best.Fitness,
	)
	e.observer.OnStop(result)
	return result, nil
}

func (e *Engine) initialize() error {
	chromosomes := make([]model.Chromosome, 0, e.cfg.PopulationSize)
	for _, seed := range e.cfg.Initial {
		chromosomes = append(chromosomes, model.NewChromosome(seed.Genes))
	}
	for len(chromosomes) < e.cfg.PopulationSize {
		chromosomes = append(chromosomes, RandomChromosome(e.rng, e.cfg.ChromosomeSize, e.cfg.Bounds))
	}
	if err := e.evaluate(chromosomes); err != nil {
		return fmt.Errorf("initial population: %w", err)
	}
	rankPopulation(chromosomes)
	e.population = model.Population{Generation: 0, Chromosomes: chromosomes}
	return nil
}

// nextGeneration applies selection and variation in the configured order and
// brings the result back to nominal size.
func (e *Engine) nextGeneration(current model.Population) (model.Population, error) {
	var candidates []model.Chromosome
	switch e.cfg.Order {
	case VaryThenSelect:
		varied := e.vary(cloneAll(current.Chromosomes))
		if err := e.evaluate(varied); err != nil {
			return model.Population{}, err
		}
		candidates = e.cfg.Selection.Select(e.rng, varied, e.cfg.poolSize())
	default:
		pool := e.cfg.Selection.Select(e.rng, current.Chromosomes, e.cfg.poolSize())
		candidates = e.vary(pool)
	}

	candidates = e.replenish(candidates)
	if e.cfg.Elitism && current.Size() > 0 {
		elite := current.Chromosomes[current.Fittest()].Clone()
		if e.cfg.KeepPopulationSizeConstant && len(candidates) > 0 {
			candidates[len(candidates)-1] = elite
		} else {
			candidates = append(candidates, elite)
		}
	}
	return model.Population{Generation: current.Generation + 1, Chromosomes: candidates}, nil
}

func (e *Engine) vary(chromosomes []model.Chromosome) []model.Chromosome {
	if e.cfg.Crossover.Enabled {
		chromosomes = e.cfg.Crossover.Apply(e.rng, chromosomes, !e.cfg.KeepPopulationSizeConstant)
	}
	if e.cfg.Mutation.Enabled {
		e.cfg.Mutation.Apply(e.rng, chromosomes, e.cfg.Bounds)
	}
	return chromosomes
}

// replenish breeds offspring from the candidates until the nominal size is
// reached. Offspring come in pairs; a pair overshoots by one only when the
// population size is allowed to vary.
func (e *Engine) replenish(candidates []model.Chromosome) []model.Chromosome {
	parents := len(candidates)
	if parents == 0 {
		return candidates
	}
	for len(candidates) < e.cfg.PopulationSize {
		a := candidates[e.rng.Intn(parents)]
		b := candidates[e.rng.Intn(parents)]
		var children []model.Chromosome
		if e.cfg.Crossover.Enabled {
			first, second := crossPair(e.rng, a, b)
			children = []model.Chromosome{first, second}
		} else {
			children = []model.Chromosome{model.NewChromosome(a.Genes), model.NewChromosome(b.Genes)}
		}
		if e.cfg.Mutation.Enabled {
			e.cfg.Mutation.Apply(e.rng, children, e.cfg.Bounds)
		}
		if e.cfg.KeepPopulationSizeConstant && len(candidates)+1 == e.cfg.PopulationSize {
			children = children[:1]
		}
		candidates = append(candidates, children...)
	}
	return candidates
}

func (e *Engine) evaluate(chromosomes []model.Chromosome) error {
	for i := range chromosomes {
		if chromosomes[i].Evaluated() {
			continue
		}
		fitness, err := e.adapter.Evaluate(chromosomes[i])
		if err != nil {
			return err
		}
		chromosomes[i].Fitness = fitness
		e.evaluations++
	}
	return nil
}

// rankPopulation orders chromosomes by fitness, best first, keeping the
// existing order between equal values.
func rankPopulation(chromosomes []model.Chromosome) {
	sort.SliceStable(chromosomes, func(i, j int) bool {
		return chromosomes[i].Fitness > chromosomes[j].Fitness
	})
}

func summarizeGeneration(population model.Population, improved bool) model.GenerationDiagnostics {
	summary := stats.Summarize(population.Fitnesses())
	return model.GenerationDiagnostics{
		Generation:     population.Generation,
		PopulationSize: population.Size(),
		BestFitness:    summary.Max,
		MeanFitness:    summary.Mean,
		MinFitness:     summary.Min,
		StdDevFitness:  summary.StdDev,
		Improved:       improved,
	}
}
