package errors

// Error codes for the Petra engine. The codes are stable strings so they can
// be matched by operators and tests without comparing message text.
const (
	// NotFound indicates a metadata or catalog lookup missed.
	NotFound = "PE001"

	// TrySalvage indicates on-disk state is corrupted or missing and the
	// operator must re-run with salvage enabled.
	TrySalvage = "PE002"

	// Corruption indicates a file failed validation.
	Corruption = "PE003"

	// ShuttingDown indicates an operation was refused because the engine is
	// closing.
	ShuttingDown = "PE004"

	// Timeout indicates an operation exceeded its deadline.
	Timeout = "PE005"

	// Config indicates invalid configuration.
	Config = "PE006"

	// IOError indicates a file-system level failure.
	IOError = "PE007"

	// SessionLimit indicates the session table is full.
	SessionLimit = "PE008"

	// Internal indicates an unexpected engine-internal failure.
	Internal = "PE099"
)
