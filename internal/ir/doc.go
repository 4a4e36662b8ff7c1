// Package ir provides the data model for choreographies.
//
// This package contains the types every other internal package shares:
// signals, choreographies, step trees, parameters and the sealed Value
// variants carried in payloads. ir imports nothing internal.
//
// Key design constraints:
//   - Actions and entities are opaque strings; the runtime never interprets them
//   - Params are a closed mapping of Literal | SignalRef, never untyped data
//   - Step trees are validated into an index-based Arena before they run
//   - JSON/YAML field names use the authoring format's camelCase (onArrive)
package ir
