package ir

// Version constants for the directed form and the analyzer.
const (
	// IRVersion is the directed program schema version.
	IRVersion = "1"

	// AnalyzerVersion is the routegraph analyzer version.
	AnalyzerVersion = "0.1.0"
)
