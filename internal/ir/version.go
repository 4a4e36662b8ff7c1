package ir

// Version constants for the definition format and engine.
const (
	// FormatVersion is the choreography definition format version.
	FormatVersion = "1"

	// EngineVersion is the choreographer runtime version.
	EngineVersion = "0.1.0"
)
