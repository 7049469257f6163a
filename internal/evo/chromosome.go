package evo

import (
	"math/rand"

	"genopt/internal/model"
)

// RandomChromosome draws every gene uniformly from bounds.
func RandomChromosome(rng *rand.Rand, size int, bounds model.Bounds) model.Chromosome {
	genes := make([]float64, size)
	for i := range genes {
		genes[i] = bounds.Lower + rng.Float64()*bounds.Width()
	}
	return model.Chromosome{Genes: genes, Fitness: model.Unevaluated}
}

func cloneAll(chromosomes []model.Chromosome) []model.Chromosome {
	out := make([]model.Chromosome, len(chromosomes))
	for i, c := range chromosomes {
		out[i] = c.Clone()
	}
	return out
}
