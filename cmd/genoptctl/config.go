package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"genopt/pkg/genopt"
)

// loadRunRequestFromConfig reads a YAML run file over the default request,
// so keys the file omits keep their defaults. Unknown keys are rejected.
func loadRunRequestFromConfig(path string) (genopt.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return genopt.RunRequest{}, err
	}
	req := genopt.DefaultRunRequest()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil {
		return genopt.RunRequest{}, fmt.Errorf("parse run config %s: %w", path, err)
	}
	return req, nil
}

type runFlags struct {
	config        string
	objective     string
	size          int
	lower         float64
	upper         float64
	population    int
	generations   int
	selection     string
	selectionRate float64
	stepOrder     string
	noCrossover   bool
	crossoverRate float64
	noMutation    bool
	mutationRate  int
	elitism       bool
	constantSize  bool
	noHomogeneity bool
	seed          int64
}

func addRunFlags(cmd *cobra.Command, f *runFlags) {
	def := genopt.DefaultRunRequest()
	fs := cmd.Flags()
	fs.StringVar(&f.config, "config", "", "YAML run config; flags override its values")
	fs.StringVar(&f.objective, "objective", def.Objective, "objective function name")
	fs.IntVar(&f.size, "size", def.ChromosomeSize, "chromosome size")
	fs.Float64Var(&f.lower, "lower", def.LowerBound, "gene lower bound")
	fs.Float64Var(&f.upper, "upper", def.UpperBound, "gene upper bound")
	fs.IntVar(&f.population, "pop", def.Population, "population size")
	fs.IntVar(&f.generations, "gens", def.Generations, "generation budget")
	fs.StringVar(&f.selection, "selection", def.Selection, "selection: rank|roulette")
	fs.Float64Var(&f.selectionRate, "selection-rate", def.SelectionRate, "fraction of the population kept by selection")
	fs.StringVar(&f.stepOrder, "step-order", def.StepOrder, "select_then_vary|vary_then_select")
	fs.BoolVar(&f.noCrossover, "no-crossover", false, "disable crossover")
	fs.Float64Var(&f.crossoverRate, "crossover-rate", def.CrossoverRate, "probability that a pair crosses")
	fs.BoolVar(&f.noMutation, "no-mutation", false, "disable mutation")
	fs.IntVar(&f.mutationRate, "mutation-rate", def.MutationRate, "each gene mutates with probability 1/rate")
	fs.BoolVar(&f.elitism, "elitism", false, "carry the fittest chromosome into the next generation")
	fs.BoolVar(&f.constantSize, "constant-size", false, "keep the population at exactly its nominal size")
	fs.BoolVar(&f.noHomogeneity, "no-homogeneity-check", false, "do not stop on population convergence")
	fs.Int64Var(&f.seed, "seed", def.Seed, "random seed")
}

// runRequest starts from the default request, applies the optional config
// file and then every flag the user set explicitly. Explicit values are kept
// as given, zeros included, and validated by the client.
func (f *runFlags) runRequest(cmd *cobra.Command) (genopt.RunRequest, error) {
	req := genopt.DefaultRunRequest()
	if f.config != "" {
		loaded, err := loadRunRequestFromConfig(f.config)
		if err != nil {
			return genopt.RunRequest{}, err
		}
		req = loaded
	}

	fs := cmd.Flags()
	if fs.Changed("objective") {
		req.Objective = f.objective
	}
	if fs.Changed("size") {
		req.ChromosomeSize = f.size
	}
	if fs.Changed("lower") {
		req.LowerBound = f.lower
	}
	if fs.Changed("upper") {
		req.UpperBound = f.upper
	}
	if fs.Changed("pop") {
		req.Population = f.population
	}
	if fs.Changed("gens") {
		req.Generations = f.generations
	}
	if fs.Changed("selection") {
		req.Selection = f.selection
	}
	if fs.Changed("selection-rate") {
		req.SelectionRate = f.selectionRate
	}
	if fs.Changed("step-order") {
		req.StepOrder = f.stepOrder
	}
	if fs.Changed("no-crossover") {
		req.DisableCrossover = f.noCrossover
	}
	if fs.Changed("crossover-rate") {
		req.CrossoverRate = f.crossoverRate
	}
	if fs.Changed("no-mutation") {
		req.DisableMutation = f.noMutation
	}
	if fs.Changed("mutation-rate") {
		req.MutationRate = f.mutationRate
	}
	if fs.Changed("elitism") {
		req.Elitism = f.elitism
	}
	if fs.Changed("constant-size") {
		req.KeepPopulationSizeConstant = f.constantSize
	}
	if fs.Changed("no-homogeneity-check") {
		req.DisableHomogeneityCheck = f.noHomogeneity
	}
	if fs.Changed("seed") {
		req.Seed = f.seed
	}
	return req, nil
}
