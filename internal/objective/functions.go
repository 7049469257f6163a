package objective

import "math"

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

const part1MinX = 6.676

// Part1 is (x^3 - 17x^2 + 93x - 163)·sin(20x), rounded to two decimals.
// Its local minimum inside [5, 7] sits at x = 6.676.
type Part1 struct{}

func (Part1) value(x float64) float64 {
	return Round2((math.Pow(x, 3) - 17*math.Pow(x, 2) + 93*x - 163) * math.Sin(20*x))
}

func (p Part1) Evaluate(x, _ float64) (float64, error) {
	return p.value(x), nil
}

func (p Part1) MinimalValue() float64 {
	return p.value(part1MinX)
}

func (p Part1) MaximalFitness(size int) float64 {
	minY := p.MinimalValue()
	return Round2(math.Abs(float64(size) * minY * minY))
}

// Distance scores |x - Center|; a chromosome of all Center genes has fitness 0.
type Distance struct {
	Center float64
}

func (d Distance) Evaluate(x, _ float64) (float64, error) {
	return math.Abs(x - d.Center), nil
}

func (Distance) MinimalValue() float64 { return 0 }

func (Distance) MaximalFitness(int) float64 { return 0 }

// Identity scores x itself, so fitness is the gene sum. Its ceiling assumes
// genes bounded above by Upper.
type Identity struct {
	Upper float64
}

func (Identity) Evaluate(x, _ float64) (float64, error) {
	return x, nil
}

func (Identity) MinimalValue() float64 { return 0 }

func (i Identity) MaximalFitness(size int) float64 {
	return float64(size) * i.Upper
}
