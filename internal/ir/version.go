package ir

// Version constants for the journal format and engine.
const (
	// IRVersion is the command/receipt encoding version.
	IRVersion = "1"

	// EngineVersion is the gridsync engine version.
	EngineVersion = "0.1.0"
)
