package objective

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrFunctionExists   = errors.New("objective already registered")
	ErrFunctionNotFound = errors.New("objective not found")
)

// Factory builds a Function for the given gene bounds.
type Factory func(lower, upper float64) Function

var functionRegistry = struct {
	mu sync.RWMutex
	m  map[string]Factory
}{
	m: make(map[string]Factory),
}

func init() {
	initializeBuiltInFunctions()
}

func initializeBuiltInFunctions() {
	MustRegister("part1", func(_, _ float64) Function { return Part1{} })
	MustRegister("distance", func(lower, upper float64) Function {
		return Distance{Center: (lower + upper) / 2}
	})
	MustRegister("identity", func(_, upper float64) Function { return Identity{Upper: upper} })
}

func Register(name string, factory Factory) error {
	if name == "" {
		return errors.New("objective name is required")
	}
	if factory == nil {
		return errors.New("objective factory is required")
	}

	functionRegistry.mu.Lock()
	defer functionRegistry.mu.Unlock()

	if _, exists := functionRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrFunctionExists, name)
	}
	functionRegistry.m[name] = factory
	return nil
}

func MustRegister(name string, factory Factory) {
	if err := Register(name, factory); err != nil {
		panic(err)
	}
}

// Resolve builds the named objective for the given gene bounds.
func Resolve(name string, lower, upper float64) (Function, error) {
	functionRegistry.mu.RLock()
	factory, ok := functionRegistry.m[name]
	functionRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}
	return factory(lower, upper), nil
}

func List() []string {
	functionRegistry.mu.RLock()
	defer functionRegistry.mu.RUnlock()

	names := make([]string, 0, len(functionRegistry.m))
	for name := range functionRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetRegistryForTests() {
	functionRegistry.mu.Lock()
	functionRegistry.m = make(map[string]Factory)
	functionRegistry.mu.Unlock()
	initializeBuiltInFunctions()
}
