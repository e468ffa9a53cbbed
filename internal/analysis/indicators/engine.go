// Package indicators provides technical indicator calculations with parallel processing.
package indicators

import (
	"errors"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"stock-analyst/internal/models"
)

// Calculator is an indicator family as seen by the engine: it declares the
// minimum number of points it needs and the set keys it owns, and reduces a
// series to the latest readings.
type Calculator interface {
	Name() string
	Period() int
	Keys() []string
	Compute(points []models.PricePoint) Set
}

// Engine runs calculators in parallel on a bounded goroutine pool. Each
// calculator writes only its own keys, so the merged Set does not depend on
// execution order.
type Engine struct {
	workers     int
	calculators map[string]Calculator
	mu          sync.RWMutex
}

// NewEngine creates a new indicator engine with the specified number of workers.
func NewEngine(workers int) *Engine {
	if workers <= 0 {
		workers = 4
	}
	return &Engine{
		workers:     workers,
		calculators: make(map[string]Calculator),
	}
}

// NewStandardEngine registers every indicator family for the given windows.
func NewStandardEngine(w Windows, riskFreeRate float64, workers int) *Engine {
	e := NewEngine(workers)

	periods := append([]int{w.MAShort, w.MALong}, w.ExtraMA...)
	for _, n := range periods {
		e.Register(NewSMA(n))
	}
	e.Register(NewEMA(w.MACDFast))
	e.Register(NewEMA(w.MACDSlow))
	e.Register(NewRSI(w.RSI))
	e.Register(NewMACD(w.MACDFast, w.MACDSlow, w.MACDSignal))
	e.Register(NewBollingerBands(w.Bollinger, w.BollingerK))
	e.Register(NewRealizedVolatility())
	e.Register(NewMaxDrawdown())
	e.Register(NewSharpe(riskFreeRate))
	e.Register(NewSupportResistance(w.Levels))
	e.Register(NewRange52W(w.Range52W))
	e.Register(NewAverageVolume(w.Volume))
	return e
}

// Register adds a calculator, replacing any with the same name.
func (e *Engine) Register(c Calculator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calculators[c.Name()] = c
}

// List returns the names of all registered calculators.
func (e *Engine) List() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.listLocked()
}

// Compute runs every registered calculator against points and merges the
// results. A calculator whose Period exceeds the series length is not run;
// its keys are marked unavailable instead.
func (e *Engine) Compute(points []models.PricePoint) Set {
	e.mu.RLock()
	calcs := make([]Calculator, 0, len(e.calculators))
	for _, name := range e.listLocked() {
		calcs = append(calcs, e.calculators[name])
	}
	e.mu.RUnlock()

	results := make([]Set, len(calcs))
	p := pool.New().WithMaxGoroutines(e.workers)
	for i, c := range calcs {
		i, c := i, c
		p.Go(func() {
			results[i] = run(c, points)
		})
	}
	p.Wait()

	merged := make(Set)
	for _, r := range results {
		merged.merge(r)
	}
	return merged
}

func (e *Engine) listLocked() []string {
	names := make([]string, 0, len(e.calculators))
	for name := range e.calculators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// keyPeriods is implemented by calculators whose keys need different
// amounts of history.
type keyPeriods interface {
	KeyPeriod(key string) int
}

func run(c Calculator, points []models.PricePoint) Set {
	if need := c.Period(); len(points) < need {
		out := make(Set, len(c.Keys()))
		for _, key := range c.Keys() {
			keyNeed := need
			if kp, ok := c.(keyPeriods); ok {
				keyNeed = kp.KeyPeriod(key)
			}
			out[key] = insufficient(len(points), keyNeed)
		}
		return out
	}
	return c.Compute(points)
}

// latest reduces a per-point series to its final reading.
func latest(values []float64, err error) Value {
	if err != nil {
		return Unavailable(err.Error())
	}
	if len(values) == 0 {
		return Unavailable("no values")
	}
	return OK(values[len(values)-1])
}

func unavailableFrom(err error, have, need int) Value {
	if errors.Is(err, ErrInsufficientData) {
		return insufficient(have, need)
	}
	return Unavailable(err.Error())
}
