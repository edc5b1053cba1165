package event

// UsageState tracks where args are in their single-use lifecycle.
type UsageState int

const (
	Unused UsageState = iota
	UsingPreEvent
	UsedPreEvent
	UsingPostEvent
	UsedPostEvent
)

func (s UsageState) String() string {
	switch s {
	case Unused:
		return "unused"
	case UsingPreEvent:
		return "using_pre_event"
	case UsedPreEvent:
		return "used_pre_event"
	case UsingPostEvent:
		return "using_post_event"
	case UsedPostEvent:
		return "used_post_event"
	default:
		return "unknown"
	}
}

// next returns the only state s may move to, or false at the end.
func (s UsageState) next() (UsageState, bool) {
	if s < Unused || s >= UsedPostEvent {
		return s, false
	}
	return s + 1, true
}
