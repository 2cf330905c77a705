package booking

// ResultKind is the terminal status of a run. Exactly one Result is produced
// per process run.
type ResultKind int

const (
	ResultBooked ResultKind = iota
	ResultWouldBook
	ResultWaitlisted
	ResultAbortedByPolicy
	ResultAbortedByError
	ResultExhaustedAttempts
)

func (k ResultKind) String() string {
	switch k {
	case ResultBooked:
		return "booked"
	case ResultWouldBook:
		return "would_book"
	case ResultWaitlisted:
		return "waitlisted"
	case ResultAbortedByPolicy:
		return "aborted_by_policy"
	case ResultAbortedByError:
		return "aborted_by_error"
	case ResultExhaustedAttempts:
		return "exhausted_attempts"
	default:
		return "unknown"
	}
}

type Result struct {
	Kind        ResultKind
	Detail      string
	ErrorDetail ErrorDetail
	Attempts    int
}

func (r Result) Success() bool {
	switch r.Kind {
	case ResultBooked, ResultWouldBook, ResultWaitlisted:
		return true
	}
	return false
}

// ExitCode maps the result kind to a process exit status, one code per kind
// so scripts can branch on it.
func (r Result) ExitCode() int {
	switch r.Kind {
	case ResultBooked, ResultWouldBook, ResultWaitlisted:
		return 0
	case ResultAbortedByPolicy:
		return 2
	case ResultExhaustedAttempts:
		return 3
	default:
		return 4
	}
}
