package bench

// Status is the outcome class of a compilation or benchmark run.
type Status string

const (
	StatusOK            Status = "OK"
	StatusWrongAnswer   Status = "WA"
	StatusCompileFailed Status = "CF"
	StatusRunFailed     Status = "RF"
	StatusTimeout       Status = "TL"
	StatusParseFailed   Status = "PF"
	StatusMemoryLimit   Status = "ML"
)
