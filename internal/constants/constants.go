// Package constants provides named constants used throughout the contagion codebase.
// This centralizes defaults and file names shared by the CLI, config and store.
package constants

// Model defaults applied when neither a config file nor a flag sets them.
const (
	// DefaultProbability is the default per-exposure transmission probability.
	DefaultProbability = 0.1

	// DefaultDose is the default belief increment of a successful exposure.
	DefaultDose = 0.5

	// DefaultThreshold is the default belief level at which an agent adopts.
	DefaultThreshold = 0.5

	// DefaultIterations is the default replicate count per reconstruction.
	DefaultIterations = 10
)

// File and directory names.
const (
	// DirName is the per-user directory holding configuration and the run store.
	DirName = ".contagion"

	// ConfigFileName is the configuration file inside DirName.
	ConfigFileName = "config.yaml"

	// LocalConfigFileName is the project configuration file in the working directory.
	LocalConfigFileName = "contagion.yaml"

	// DBFileName is the run store file inside DirName.
	DBFileName = "runs.db"

	// TraceFileName is the JSONL trace written to the output directory at debug level.
	TraceFileName = "trace.jsonl"

	// AuditFileName is the MCP tool audit log inside DirName.
	AuditFileName = "audit.jsonl"
)

// EnvPrefix prefixes every environment override, e.g. CONTAGION_MODEL_P.
const EnvPrefix = "CONTAGION"
