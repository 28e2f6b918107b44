package container

type Status int

const (
	Unrecognized Status = iota
	Bare
	Fused
)

func (s Status) String() string {
	switch s {
	case Bare:
		return "bare"
	case Fused:
		return "fused"
	default:
		return "unrecognized"
	}
}

// Classify derives the lifecycle state from the stream size and the two
// footer fields. The body must end exactly where the footer begins.
func Classify(size, start, end uint64) Status {
	if size < FooterSize {
		return Unrecognized
	}
	body := size - FooterSize
	if end != body {
		return Unrecognized
	}
	switch {
	case start == 0:
		return Bare
	case end > start:
		return Fused
	default:
		return Unrecognized
	}
}
