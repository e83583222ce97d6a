package severity

import "strings"

// Classifier admits or rejects weather alerts before any geometry work.
type Classifier struct {
	lowPriority map[string]struct{}
}

func NewClassifier() *Classifier {
	lp := make(map[string]struct{}, len(LowPriorityEvents))
	for _, e := range LowPriorityEvents {
		lp[strings.ToLower(e)] = struct{}{}
	}
	return &Classifier{lowPriority: lp}
}

// IsLowPriority reports whether the event name is on the low-priority list.
func (c *Classifier) IsLowPriority(event string) bool {
	_, ok := c.lowPriority[strings.ToLower(strings.TrimSpace(event))]
	return ok
}

// Admit reports whether an alert with the given severity label and event name
// passes the filter.
func (c *Classifier) Admit(label, event string, minRank Rank, excludeLowPriority bool) bool {
	if excludeLowPriority && c.IsLowPriority(event) {
		return false
	}
	if minRank <= Unknown {
		return true
	}
	return RankOf(label) >= minRank
}
