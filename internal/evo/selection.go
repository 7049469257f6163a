package evo

import (
	"math/rand"
	"sort"

	"genopt/internal/model"
)

// Select builds a breeding pool of count clones from an evaluated
// population using the configured strategy.
func (s SelectionConfig) Select(rng *rand.Rand, population []model.Chromosome, count int) []model.Chromosome {
	if len(population) == 0 || count <= 0 {
		return nil
	}
	switch s.Kind {
	case SelectionWeightedRoulette:
		return selectWeightedRoulette(rng, population, count)
	default:
		return selectRank(population, count)
	}
}

// selectRank keeps the count fittest chromosomes. Equal fitness keeps the
// incoming order.
func selectRank(population []model.Chromosome, count int) []model.Chromosome {
	order := make([]int, len(population))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return population[order[i]].Fitness > population[order[j]].Fitness
	})
	if count > len(order) {
		count = len(order)
	}
	out := make([]model.Chromosome, 0, count)
	for _, idx := range order[:count] {
		out = append(out, population[idx].Clone())
	}
	return out
}

// selectWeightedRoulette samples with replacement, each chromosome weighted
// by its fitness. A population with no positive fitness is sampled uniformly.
func selectWeightedRoulette(rng *rand.Rand, population []model.Chromosome, count int) []model.Chromosome {
	cumulative := make([]float64, len(population))
	total := 0.0
	for i, c := range population {
		if c.Fitness > 0 {
			total += c.Fitness
		}
		cumulative[i] = total
	}

	out := make([]model.Chromosome, 0, count)
	for len(out) < count {
		var idx int
		if total <= 0 {
			idx = rng.Intn(len(population))
		} else {
			spin := rng.Float64() * total
			idx = sort.Search(len(cumulative), func(i int) bool { return cumulative[i] > spin })
			if idx == len(cumulative) {
				idx = len(cumulative) - 1
			}
		}
		out = append(out, population[idx].Clone())
	}
	return out
}
