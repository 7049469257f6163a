package objective

import (
	"errors"
	"fmt"
	"math"

	"genopt/internal/model"
)

var ErrEvaluation = errors.New("objective evaluation failed")

// Function is a raw single-variable objective plugged into the optimizer.
// The auxiliary argument is reserved and currently always 0.
type Function interface {
	Evaluate(x, aux float64) (float64, error)
	MinimalValue() float64
	MaximalFitness(size int) float64
}

// Adapter turns a Function into a non-negative chromosome fitness.
type Adapter struct {
	fn Function
}

func NewAdapter(fn Function) (*Adapter, error) {
	if fn == nil {
		return nil, errors.New("objective function is required")
	}
	return &Adapter{fn: fn}, nil
}

// Evaluate sums raw(gene)+MinimalValue over the genes and returns the
// absolute value of the sum.
func (a *Adapter) Evaluate(c model.Chromosome) (float64, error) {
	offset := a.fn.MinimalValue()
	sum := 0.0
	for i, gene := range c.Genes {
		raw, err := a.fn.Evaluate(gene, 0)
		if err != nil {
			return 0, fmt.Errorf("%w: gene %d (%v): %v", ErrEvaluation, i, gene, err)
		}
		if math.IsNaN(raw) || math.IsInf(raw, 0) {
			return 0, fmt.Errorf("%w: gene %d (%v): non-finite value %v", ErrEvaluation, i, gene, raw)
		}
		sum += raw + offset
	}
	fitness := math.Abs(sum)
	if math.IsInf(fitness, 0) || math.IsNaN(fitness) {
		return 0, fmt.Errorf("%w: non-finite fitness %v", ErrEvaluation, fitness)
	}
	return fitness, nil
}

func (a *Adapter) MaximalFitness(size int) float64 {
	return a.fn.MaximalFitness(size)
}
