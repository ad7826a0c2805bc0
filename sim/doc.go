// Package sim provides the turn-driven simulation core of a flow-shop
// production line.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - machine.go: the Machine state machine (idle, switching, working, broken)
//   - layer.go: a buffered stage and the in-order claim rule between its machines
//   - model.go: the turn loop, order admission, delivery and training triggers
//
// Supporting types: order.go and order_book.go (order lifecycle and the bounded
// priority book), inventory.go (non-negative per-product counts), features.go
// (the FeatureVector contract handed to policies), history.go (training
// example window), rng.go (per-subsystem deterministic randomness).
//
// # Architecture
//
// The sim package defines interfaces and data types; implementations live in
// sub-packages:
//   - sim/policy/: built-in, scripted and remote DispatchPolicy implementations
//   - sim/workload/: order arrival processes and the random order generator
//   - sim/telemetry/: Prometheus export of per-turn statistics
//   - sim/trace/: decision and order outcome recording
//
// # Key Interfaces
//
// The extension points are small interfaces injected at construction:
//   - DispatchPolicy: choose a product type for an idle machine, learn from deliveries
//   - OrderSource: produce the orders arriving at a turn
//   - TurnObserver: receive per-turn statistics
//
// # Errors
//
// A negative inventory is fatal and aborts Model.Run with ErrNegativeInventory.
// An invalid configuration is rejected by NewModel with ErrInvalidConfiguration.
// Policy failures never stop the turn loop: a failed decision keeps the
// machine's current product type, and a failed training call keeps its
// examples for the next learning turn.
package sim
