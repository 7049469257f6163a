package evo

import (
	"math/rand"
	"testing"

	"genopt/internal/model"
)

func scored(fitness ...float64) []model.Chromosome {
	out := make([]model.Chromosome, len(fitness))
	for i, f := range fitness {
		out[i] = model.Chromosome{Genes: []float64{float64(i)}, Fitness: f}
	}
	return out
}

func TestRandomChromosomeWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	bounds := model.Bounds{Lower: 5, Upper: 7}
	for i := 0; i < 200; i++ {
		c := RandomChromosome(rng, 16, bounds)
		if c.Size() != 16 {
			t.Fatalf("unexpected size %d", c.Size())
		}
		if c.Evaluated() {
			t.Fatal("expected unevaluated chromosome")
		}
		for _, g := range c.Genes {
			if !bounds.Contains(g) {
				t.Fatalf("gene %f outside bounds", g)
			}
		}
	}
}

func TestRankSelectionKeepsTopFractionInStableOrder(t *testing.T) {
	population := scored(1, 5, 3, 5, 2)
	selection := SelectionConfig{Kind: SelectionRank, Rate: 0.6}
	pool := selection.Select(rand.New(rand.NewSource(1)), population, 3)
	if len(pool) != 3 {
		t.Fatalf("expected 3 survivors, got %d", len(pool))
	}
	// Ties keep population order: gene 1 before gene 3.
	wantGenes := []float64{1, 3, 2}
	for i, want := range wantGenes {
		if pool[i].Genes[0] != want {
			t.Fatalf("unexpected survivor order: %+v", pool)
		}
	}

	pool[0].Genes[0] = 99
	if population[1].Genes[0] != 1 {
		t.Fatal("selection must return clones")
	}
}

func TestRouletteSelectionFollowsFitnessWeights(t *testing.T) {
	population := scored(0, 1, 3)
	selection := SelectionConfig{Kind: SelectionWeightedRoulette, Rate: 1}
	rng := rand.New(rand.NewSource(3))
	counts := map[float64]int{}
	pool := selection.Select(rng, population, 4000)
	if len(pool) != 4000 {
		t.Fatalf("expected 4000 samples, got %d", len(pool))
	}
	for _, c := range pool {
		counts[c.Genes[0]]++
	}
	if counts[0] != 0 {
		t.Fatalf("zero-fitness chromosome was selected %d times", counts[0])
	}
	if counts[2] < 2*counts[1] {
		t.Fatalf("expected roughly 3:1 weighting, got %v", counts)
	}
}

func TestRouletteSelectionFallsBackToUniform(t *testing.T) {
	population := scored(0, 0, 0)
	selection := SelectionConfig{Kind: SelectionWeightedRoulette, Rate: 1}
	counts := map[float64]int{}
	for _, c := range selection.Select(rand.New(rand.NewSource(5)), population, 300) {
		counts[c.Genes[0]]++
	}
	if len(counts) != 3 {
		t.Fatalf("expected all chromosomes sampled, got %v", counts)
	}
}

func TestCrossPairExchangesAllelesPositionwise(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	a := model.Chromosome{Genes: []float64{5, 5, 5, 5, 5}, Fitness: 1}
	b := model.Chromosome{Genes: []float64{7, 7, 7, 7, 7}, Fitness: 2}
	for i := 0; i < 50; i++ {
		childA, childB := crossPair(rng, a, b)
		if childA.Evaluated() || childB.Evaluated() {
			t.Fatal("offspring must have an invalid fitness cache")
		}
		for j := range a.Genes {
			if childA.Genes[j]+childB.Genes[j] != 12 {
				t.Fatalf("allele at %d not exchanged pairwise: %v %v", j, childA.Genes, childB.Genes)
			}
		}
	}
	if a.Genes[0] != 5 || b.Genes[0] != 7 {
		t.Fatal("parents must not be modified")
	}
}

func TestCrossoverApplyRespectsRateAndGrowth(t *testing.T) {
	pool := scored(1, 2, 3, 4, 5)

	unchanged := CrossoverConfig{Enabled: true, Rate: 0}.Apply(rand.New(rand.NewSource(1)), pool, false)
	if len(unchanged) != len(pool) {
		t.Fatalf("expected pass-through size %d, got %d", len(pool), len(unchanged))
	}
	for _, c := range unchanged {
		if !c.Evaluated() {
			t.Fatal("pass-through chromosomes keep their fitness")
		}
	}

	replaced := CrossoverConfig{Enabled: true, Rate: 1}.Apply(rand.New(rand.NewSource(1)), pool, false)
	if len(replaced) != len(pool) {
		t.Fatalf("expected replacement to keep size %d, got %d", len(pool), len(replaced))
	}
	invalid := 0
	for _, c := range replaced {
		if !c.Evaluated() {
			invalid++
		}
	}
	if invalid != 4 {
		t.Fatalf("expected 4 offspring and 1 leftover, got %d offspring", invalid)
	}

	grown := CrossoverConfig{Enabled: true, Rate: 1}.Apply(rand.New(rand.NewSource(1)), pool, true)
	if len(grown) != len(pool)+4 {
		t.Fatalf("expected parents plus 4 offspring, got %d", len(grown))
	}
}

func TestMutationKeepsGenesWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	bounds := model.Bounds{Lower: 5, Upper: 7}
	chromosomes := make([]model.Chromosome, 20)
	for i := range chromosomes {
		chromosomes[i] = RandomChromosome(rng, 8, bounds)
		chromosomes[i].Fitness = 1
	}
	mutation := MutationConfig{Enabled: true, Rate: 1}
	for round := 0; round < 50; round++ {
		if got := mutation.Apply(rng, chromosomes, bounds); got != 20*8 {
			t.Fatalf("rate 1 must mutate every gene, got %d", got)
		}
		for _, c := range chromosomes {
			if c.Evaluated() {
				t.Fatal("mutated chromosome kept a stale fitness")
			}
			for _, g := range c.Genes {
				if !bounds.Contains(g) {
					t.Fatalf("gene %f escaped bounds", g)
				}
			}
		}
	}
}

func TestMutationRateIsPerGene(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	bounds := model.Bounds{Lower: 0, Upper: 1}
	chromosomes := []model.Chromosome{RandomChromosome(rng, 20000, bounds)}
	got := MutationConfig{Enabled: true, Rate: 20}.Apply(rng, chromosomes, bounds)
	if got < 800 || got > 1200 {
		t.Fatalf("expected about 1000 mutations at 1/20, got %d", got)
	}
}
