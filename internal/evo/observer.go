package evo

import "genopt/internal/model"

// GenerationReport describes one finished generation.
type GenerationReport struct {
	Generation  int
	Fittest     model.Chromosome
	BestSoFar   model.Chromosome
	Improved    bool
	Evaluations int
	Diagnostics model.GenerationDiagnostics
}

// Observer receives engine progress. Calls happen on the engine goroutine.
type Observer interface {
	OnGeneration(report GenerationReport)
	OnStop(result Result)
}

type multiObserver []Observer

func (m multiObserver) OnGeneration(report GenerationReport) {
	for _, o := range m {
		o.OnGeneration(report)
	}
}

func (m multiObserver) OnStop(result Result) {
	for _, o := range m {
		o.OnStop(result)
	}
}

// Observers fans out to every non-nil observer.
func Observers(observers ...Observer) Observer {
	out := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}
