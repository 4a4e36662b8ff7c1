// Package store provides SQLite-backed session journals for the
// choreographer runtime.
//
// A session records, in order:
//   - Inputs: every HandleSignal and Tick call, with payload and delta
//   - Commands: every command the runtime emitted, tagged with the input
//     that produced it
//
// Because the runtime is deterministic, replaying a session's inputs into a
// fresh choreographer with the same definitions must reproduce the journaled
// command trace exactly (see Replay).
//
// # Ordering
//
// All reads use ORDER BY seq ASC. Input seq and command seq are separate
// logical clocks; neither depends on wall time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Payloads and params are stored as canonical JSON (ir.MarshalCanonical).
package store
