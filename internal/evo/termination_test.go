package evo

import (
	"testing"

	"genopt/internal/model"
)

func uniformRun(n, shared int, value float64) []model.Chromosome {
	out := make([]model.Chromosome, n)
	for i := range out {
		out[i] = model.Chromosome{Genes: []float64{0}, Fitness: value}
		if i >= shared {
			out[i].Fitness = value - float64(i)
		}
	}
	return out
}

func TestIsHomogeneous(t *testing.T) {
	cases := []struct {
		name        string
		chromosomes []model.Chromosome
		want        bool
	}{
		{name: "small population skipped", chromosomes: uniformRun(9, 9, 10), want: false},
		{name: "all equal", chromosomes: uniformRun(10, 10, 10), want: true},
		{name: "ninety one of hundred", chromosomes: uniformRun(100, 91, 50), want: true},
		{name: "eleven of twelve", chromosomes: uniformRun(12, 11, 3), want: true},
		{name: "exactly ninety percent", chromosomes: uniformRun(10, 9, 3), want: false},
		{name: "eighty percent", chromosomes: uniformRun(50, 40, 20), want: false},
		{name: "distinct", chromosomes: uniformRun(20, 1, 20), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsHomogeneous(tc.chromosomes); got != tc.want {
				t.Fatalf("IsHomogeneous: got=%v want=%v", got, tc.want)
			}
		})
	}
}

func TestIsHomogeneousUsesTwoDecimalEquality(t *testing.T) {
	chromosomes := uniformRun(10, 10, 4)
	for i := range chromosomes {
		chromosomes[i].Fitness = 4 + float64(i)*0.0001
	}
	if !IsHomogeneous(chromosomes) {
		t.Fatal("expected noise below two decimals to be ignored")
	}
}

func TestIsHomogeneousPlateauAfterUniqueLeader(t *testing.T) {
	chromosomes := uniformRun(100, 100, 7)
	chromosomes[0].Fitness = 9
	if !IsHomogeneous(chromosomes) {
		t.Fatal("expected plateau starting at index 1 to be detected")
	}
}

func TestIsHomogeneousOnlyScansReferencePrefix(t *testing.T) {
	// The plateau starts past the first tenth of the population, so no
	// scanned reference can see it.
	chromosomes := make([]model.Chromosome, 100)
	for i := range chromosomes {
		chromosomes[i].Fitness = 1
		if i < 20 {
			chromosomes[i].Fitness = float64(100 - i)
		}
	}
	if IsHomogeneous(chromosomes) {
		t.Fatal("expected late plateau to be outside the scan budget")
	}
}

func TestImprovesAndSameFitness(t *testing.T) {
	if improves(1.004, 1.0) {
		t.Fatal("sub-precision gain must not count as improvement")
	}
	if !improves(1.01, 1.0) {
		t.Fatal("expected improvement at two decimals")
	}
	if !sameFitness(2.001, 2.004) {
		t.Fatal("expected equality at two decimals")
	}
	if StopTargetReached.String() != "target_reached" || StopConverged.String() != "converged" || StopBudgetExhausted.String() != "budget_exhausted" {
		t.Fatal("unexpected stop reason names")
	}
}
