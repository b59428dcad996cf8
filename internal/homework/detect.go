package homework

// NoSubmissionText is the candidate used when the queried window holds no
// record. Absence of a record is a state like any other.
const NoSubmissionText = "No submission in the queried window."

type Change int

const (
	Unchanged Change = iota
	Changed
)

func (c Change) String() string {
	if c == Changed {
		return "changed"
	}
	return "unchanged"
}

// Detect compares the candidate text against the last text sent.
func Detect(candidate, previous string) Change {
	if candidate == previous {
		return Unchanged
	}
	return Changed
}

// Candidate picks the notification text for a validated homeworks array:
// the newest record (index 0) or fallback when there is none.
func Candidate(records []Record, x *Extractor, fallback string) (string, error) {
	if len(records) == 0 {
		return fallback, nil
	}
	return x.Extract(records[0])
}
