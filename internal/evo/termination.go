package evo

import (
	"genopt/internal/model"
	"genopt/internal/objective"
)

type StopReason int

const (
	StopNone StopReason = iota
	StopTargetReached
	StopConverged
	StopBudgetExhausted
)

func (r StopReason) String() string {
	switch r {
	case StopTargetReached:
		return "target_reached"
	case StopConverged:
		return "converged"
	case StopBudgetExhausted:
		return "budget_exhausted"
	default:
		return "none"
	}
}

const (
	homogeneityMinPopulation = 10
	homogeneityThreshold     = 0.9
)

// sameFitness compares fitness values at two-decimal precision.
func sameFitness(a, b float64) bool {
	return objective.Round2(a) == objective.Round2(b)
}

// improves reports whether candidate beats best at two-decimal precision.
func improves(candidate, best float64) bool {
	return objective.Round2(candidate) > objective.Round2(best)
}

// IsHomogeneous reports whether more than 90% of the population shares one
// fitness value with a reference chromosome near the front of the scan.
// For each reference index it counts the run of equal fitness values that
// directly follows it; the scan stops once fewer than 90% of the remaining
// positions could follow the reference. Populations under 10 never count as
// homogeneous.
func IsHomogeneous(chromosomes []model.Chromosome) bool {
	n := len(chromosomes)
	if n < homogeneityMinPopulation {
		return false
	}
	longest := 0
	for i := 0; i < n; i++ {
		count := 0
		for j := i + 1; j < n; j++ {
			if !sameFitness(chromosomes[i].Fitness, chromosomes[j].Fitness) {
				break
			}
			count++
		}
		if count > longest {
			longest = count
		}
		if float64(n-1-i)/float64(n-1) < homogeneityThreshold {
			break
		}
	}
	return float64(longest)/float64(n-1) > homogeneityThreshold
}
