package harness

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRun is returned when Run is called twice on one Executor.
	ErrAlreadyRun = errors.New("executor already run")
	// ErrCompletionTimeout is returned when workers do not finish within
	// Options.CompletionTimeout.
	ErrCompletionTimeout = errors.New("completion timeout")
	// ErrIncompleteRun is returned when a run ended without a captured failure
	// before every iteration was executed.
	ErrIncompleteRun = errors.New("run ended before all iterations were executed")
	// ErrNegativeResult is returned when a workload reports a negative count.
	ErrNegativeResult = errors.New("negative result count")
	// ErrGoexit is the FatalError value recorded when a workload calls
	// runtime.Goexit, for example through testing.T.FailNow.
	ErrGoexit = errors.New("workload called runtime.Goexit")
)

// Kind classifies a failure returned by Run.
type Kind int

const (
	KindNone Kind = iota
	KindWorkload
	KindFatal
	KindHarness
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindWorkload:
		return "workload"
	case KindFatal:
		return "fatal"
	case KindHarness:
		return "harness"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// KindOf reports the kind of err. Errors that carry no harness type are
// treated as workload failures.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var fatal *FatalError
	if errors.As(err, &fatal) {
		return KindFatal
	}
	var harness *HarnessError
	if errors.As(err, &harness) {
		return KindHarness
	}
	return KindWorkload
}

// WorkloadError wraps an error returned by a workload iteration.
type WorkloadError struct {
	Worker string
	Run    int
	Err    error
}

func (e *WorkloadError) Error() string {
	if e.Run == 0 {
		return fmt.Sprintf("worker %s: %v", e.Worker, e.Err)
	}
	return fmt.Sprintf("worker %s run %d: %v", e.Worker, e.Run, e.Err)
}

func (e *WorkloadError) Unwrap() error {
	return e.Err
}

// FatalError reports a panic raised by a workload iteration.
type FatalError struct {
	Worker string
	Run    int
	Value  any
	Stack  []byte
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("worker %s run %d panicked: %v", e.Worker, e.Run, e.Value)
}

// Unwrap exposes the panic value when it is an error.
func (e *FatalError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Phase names the point of a run where a harness failure happened.
type Phase string

const (
	PhaseSetup      Phase = "setup"
	PhaseStart      Phase = "start"
	PhaseCompletion Phase = "completion"
)

// HarnessError reports a failure of the harness itself rather than of the
// workload: barrier breakage, cancellation, timeouts and incomplete runs.
type HarnessError struct {
	Phase Phase
	Err   error
}

func (e *HarnessError) Error() string {
	return fmt.Sprintf("harness %s: %v", e.Phase, e.Err)
}

func (e *HarnessError) Unwrap() error {
	return e.Err
}
