package bench

// Mismatch holds the leading elements of a result that differs from the
// expected output.
type Mismatch struct {
	Got  []int64
	Want []int64
}

// Report captures what happened to one test case at one size.
//
// A case whose compilation fails produces a single report with Size zero.
type Report struct {
	Case     TestCase
	Size     int
	Command  string
	Status   Status
	Result   *Result
	Record   *TimingRecord
	Mismatch *Mismatch
	Err      error
}
