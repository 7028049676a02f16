package report

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// Filter narrows List; zero values mean "any".
type Filter struct {
	Status    Status
	IssueType IssueType
	Severity  Severity
	Limit     int
}

// Normalized clamps Limit into [1, MaxListLimit], using DefaultListLimit when unset.
func (f Filter) Normalized() Filter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	return f
}

func (f Filter) Match(r *Report) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.IssueType != "" && r.IssueType != f.IssueType {
		return false
	}
	if f.Severity != "" && r.Severity != f.Severity {
		return false
	}
	return true
}
