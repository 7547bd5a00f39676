package constants

// RunStatus is the canonical status for rows in extract_run.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusRunning   RunStatus = "RUNNING"   // in progress
	RunStatusSucceeded RunStatus = "SUCCEEDED" // artifact persisted
	RunStatusFailed    RunStatus = "FAILED"    // terminal failure
)

// RunStatuses lists every valid status value.
var RunStatuses = []string{
	string(RunStatusRunning),
	string(RunStatusSucceeded),
	string(RunStatusFailed),
}
