// Package workload provides the built-in workloads selectable by name.
package workload

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/torosent/crankbench/internal/harness"
)

// ErrUnknownWorkload is returned by New for an unregistered name.
var ErrUnknownWorkload = errors.New("unknown workload")

// DefaultIterations is the number of draws per fastrandom iteration.
const DefaultIterations = 10000

// Params carries the settings used by the built-in workloads. Each workload
// reads only the fields it needs.
type Params struct {
	Iterations int           // fastrandom: draws per iteration
	Sleep      time.Duration // sleep: pause per iteration
	Document   string        // jsonpath: JSON document to query
	Path       string        // jsonpath: gjson path ($.a.b or a.b)
	FailAt     int           // failing: run index that fails
}

type constructor func(Params) (harness.Factory, error)

var registry = map[string]constructor{
	"noop":       newNoop,
	"fastrandom": newFastRandom,
	"sleep":      newSleep,
	"jsonpath":   newJSONPath,
	"failing":    newFailing,
}

// New returns the factory for the named workload.
func New(name string, p Params) (harness.Factory, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownWorkload, name, Names())
	}
	return ctor(p)
}

// Names returns the registered workload names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
