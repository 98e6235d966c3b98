// Package harness provides the concurrent execution engine for crankbench.
//
// An [Executor] runs a fixed number of iterations of a workload across a
// fixed pool of worker goroutines:
//   - Each worker owns one [Workload] created by a [Factory] with seed
//     Seed+index, so workloads never share state.
//   - Run indices 1..Runs are claimed through a lock-free [RunCounter]; every
//     index is executed exactly once on a successful run.
//   - Workers and the calling goroutine meet twice at a barrier. The first
//     trip starts the wall clock, the second stops it, so the measured
//     duration covers only iteration work.
//   - The first failure wins; later failures are dropped.
//
// # Basic Usage
//
//	factory := harness.NewFactory("noop", func(seed int64) (harness.Workload, error) {
//		return harness.WorkloadFunc(func(ctx context.Context, run int) (int, error) {
//			return 1, nil
//		}), nil
//	})
//	exec := harness.New(factory, 1000, 4)
//	sum, err := exec.Run(ctx)
//	fmt.Println(sum, exec.MeanThroughput(), exec.MeanLatency())
//
// # Failures
//
// Run returns the first captured failure with its kind preserved:
//   - [WorkloadError]: the workload returned an error ([KindWorkload])
//   - [FatalError]: the workload panicked ([KindFatal])
//   - [HarnessError]: the harness could not complete the run ([KindHarness])
//
// Use [KindOf] to classify an error and errors.Is to match the underlying
// cause.
//
// # Middleware
//
// Factories can be decorated:
//   - [WithRetry]: retry failed iterations with backoff
//   - [WithLogging]: report failed iterations
//   - [WithPacing]: limit the global iteration rate with a [Pacer]
package harness
