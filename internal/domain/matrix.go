package domain

// MatrixState is the backend lifecycle state of a test matrix
type MatrixState string

const (
	MatrixPending    MatrixState = "PENDING"
	MatrixValidating MatrixState = "VALIDATING"
	MatrixRunning    MatrixState = "RUNNING"
	MatrixFinished   MatrixState = "FINISHED"
	MatrixError      MatrixState = "ERROR"
	MatrixInvalid    MatrixState = "INVALID"
	MatrixCancelled  MatrixState = "CANCELLED"
)

// IsTerminal reports whether the backend will not change the state any more
func (s MatrixState) IsTerminal() bool {
	switch s {
	case MatrixFinished, MatrixError, MatrixInvalid, MatrixCancelled:
		return true
	}
	return false
}

// MatrixOutcome summarises the test results of a finished matrix
type MatrixOutcome string

const (
	OutcomeUnknown      MatrixOutcome = ""
	OutcomeSuccess      MatrixOutcome = "success"
	OutcomeFailure      MatrixOutcome = "failure"
	OutcomeInconclusive MatrixOutcome = "inconclusive"
	OutcomeSkipped      MatrixOutcome = "skipped"
)

// MatrixHandle is the backend-assigned identity and latest state of one matrix
type MatrixHandle struct {
	ID           string        `json:"id"`
	State        MatrixState   `json:"state"`
	Outcome      MatrixOutcome `json:"outcome,omitempty"`
	ResultsPath  string        `json:"results_path"`
	ContextIndex int           `json:"context_index"`
	Repeat       int           `json:"repeat"`
}

// Submission is the product of one successful submission task
type Submission struct {
	ContextIndex int
	Repeat       int
	Handle       MatrixHandle
}
