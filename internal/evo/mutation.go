package evo

import (
	"math/rand"

	"genopt/internal/model"
)

// Apply perturbs each gene with probability 1/Rate and clamps it back into
// bounds. Touched chromosomes lose their fitness cache. It returns the number
// of mutated genes.
func (m MutationConfig) Apply(rng *rand.Rand, chromosomes []model.Chromosome, bounds model.Bounds) int {
	if m.Rate < 1 {
		return 0
	}
	mutated := 0
	for i := range chromosomes {
		touched := false
		for j, gene := range chromosomes[i].Genes {
			if rng.Intn(m.Rate) != 0 {
				continue
			}
			chromosomes[i].Genes[j] = bounds.Clamp(gene + bounds.Width()*(2*rng.Float64()-1))
			touched = true
			mutated++
		}
		if touched {
			chromosomes[i].Invalidate()
		}
	}
	return mutated
}
