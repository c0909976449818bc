package pipeline

// State is the lifecycle position of the current encounter.
type State int

const (
	Idle State = iota
	Captured
	Transcribing
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Captured:
		return "captured"
	case Transcribing:
		return "transcribing"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
