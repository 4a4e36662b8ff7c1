// Package engine implements the choreographer runtime.
//
// The runtime turns signals into commands. A signal selects every registered
// choreography whose type and predicate match; each match starts a
// performance that walks the choreography's step tree, emitting commands to
// a Sink. Animated steps advance only when a clock calls Tick.
//
// ARCHITECTURE:
//
// Single-Writer State:
// All performance state is mutated inside HandleSignal and Tick. Nothing in
// this package starts goroutines or timers on its own, so a given sequence
// of calls always produces the same command trace. Hosts with several
// goroutines serialize access through Locked or Loop.
//
// Signal Flow:
//  1. Choreographer.HandleSignal matches definitions in registration order
//  2. Interrupting matches end running performances with the same correlation id
//  3. Registry.Start activates the root steps (worklist, no recursion)
//  4. Instant steps emit execute and activate their onArrive children at once
//  5. Animated steps emit start and wait for ticks
//
// Tick Flow:
//  1. Every live branch of every running performance gains deltaMs
//  2. A branch that reaches its duration emits complete and activates its children
//  3. Any other branch emits update with eased progress
//  4. A performance with no live branches left is completed and removed
//
// DETERMINISM:
// Performances are processed in creation order, branches in activation
// order, and every command carries a Seq from a single Sequencer.
package engine
