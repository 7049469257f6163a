package evo

import (
	"math/rand"

	"genopt/internal/model"
)

// crossPair swaps the gene tails of two parents from a uniformly drawn locus
// onward and returns the two offspring.
func crossPair(rng *rand.Rand, a, b model.Chromosome) (model.Chromosome, model.Chromosome) {
	first := model.NewChromosome(a.Genes)
	second := model.NewChromosome(b.Genes)
	size := len(first.Genes)
	if len(second.Genes) < size {
		size = len(second.Genes)
	}
	if size == 0 {
		return first, second
	}
	locus := rng.Intn(size)
	for i := locus; i < size; i++ {
		first.Genes[i], second.Genes[i] = second.Genes[i], first.Genes[i]
	}
	return first, second
}

// Apply pairs the pool in random order and recombines each pair with
// probability Rate. Offspring replace their parents unless keepParents is
// set, in which case they are appended and the pool grows.
func (c CrossoverConfig) Apply(rng *rand.Rand, pool []model.Chromosome, keepParents bool) []model.Chromosome {
	order := rng.Perm(len(pool))
	out := make([]model.Chromosome, 0, len(pool)*2)
	var offspring []model.Chromosome
	for i := 0; i+1 < len(order); i += 2 {
		a, b := pool[order[i]], pool[order[i+1]]
		if rng.Float64() >= c.Rate {
			out = append(out, a, b)
			continue
		}
		childA, childB := crossPair(rng, a, b)
		if keepParents {
			out = append(out, a, b)
			offspring = append(offspring, childA, childB)
		} else {
			out = append(out, childA, childB)
		}
	}
	if len(order)%2 == 1 {
		out = append(out, pool[order[len(order)-1]])
	}
	return append(out, offspring...)
}
