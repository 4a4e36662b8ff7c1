// Package harness runs choreography scenarios against the real engine with
// a deterministic clock and checks the emitted command trace.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	choreographies:
//	  - ../definitions/task_dispatch.yaml
//	  - ../definitions/error_alert.cue
//	frame_ms: 16
//	steps:
//	  - signal: task_dispatch
//	    payload: { taskId: task-42, from: orchestrator, to: agent-solver }
//	    correlation: task-42
//	  - advance: 800
//	assertions:
//	  - type: command_contains
//	    kind: start
//	    action: move
//	    params: { to: agent-solver }
//	  - type: command_count
//	    kind: complete
//	    count: 3
//	  - type: active_count
//	    count: 0
//
// Choreography paths are relative to the scenario file.
//
// # Assertion Types
//
//   - command_contains: some command matches the given fields
//   - command_order: the listed matches occur in order (gaps allowed)
//   - command_count: exactly count commands match the given fields
//   - active_count: running performances after the last step
//
// Unset match fields are wildcards; params is a subset match.
//
// # Deterministic Testing
//
// Every run uses a fresh choreographer with counter performance ids
// ("perf-1", "perf-2", ...) and a ManualClock that splits each advance into
// ticks of frame_ms (or a single tick when frame_ms is 0). Identical
// scenarios therefore produce identical traces, which RunWithGolden compares
// against testdata/golden/<name>.golden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/task_dispatch.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
