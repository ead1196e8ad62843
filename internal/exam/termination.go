package exam

// StopCheck is the slice of session state the termination policy reads.
type StopCheck struct {
	Answered         int
	ItemCount        int
	Mode             Mode
	RemainingSeconds int
	FinishRequested  bool
}

// ShouldStop reports whether the session must end and why. An explicit
// finish request wins over every other condition.
func ShouldStop(c StopCheck) (Reason, bool) {
	switch {
	case c.FinishRequested:
		return ReasonUserFinished, true
	case c.Answered >= c.ItemCount:
		return ReasonItemCount, true
	case c.Mode == ModeTimed && c.RemainingSeconds <= 0:
		return ReasonTimeout, true
	}
	return "", false
}
