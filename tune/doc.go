// Package tune provides the core bandit-driven implementation-selection engine.
//
// # Reading Guide
//
// Start with these three files to understand the selection kernel:
//   - implementation.go: the Implementation enum (kernel candidates plus sentinels)
//   - dispatch.go: the Dispatcher, which routes choose/update calls to per-strategy registries
//   - selection.go: the per-call Selection session (choose, execute, finish)
//
// # Architecture
//
// The tune package defines the learning core; collaborators live in
// sub-packages:
//   - tune/cost/: roofline cost estimates that seed bandit priors
//   - tune/trace/: observation recording, summaries, and the SQLite sink
//   - tune/workload/: synthetic call sites and the concurrent bench runner
//
// A call site is described by an EntryPoint. Each distinct call-site key gets
// its own lazily-created Bandit instance, owned by the Registry for the
// active Strategy. The per-call protocol is:
//
//	sel := tune.NewSelection(dispatcher, entryPoint)
//	runKernel(sel.Choice())
//	sel.Finish() // feeds the measured cost back
//
// # Key Interfaces
//
// The extension points are small interfaces:
//   - Bandit: choose an arm, fold one observed cost back in, report beliefs
//   - EntryPoint: call-site identity, candidate set, cost estimator, repr
//   - ObservationLog: append-only record of finished measurements
package tune
