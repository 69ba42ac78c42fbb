package packager

// Stage is a step of the per-batch state machine:
// Idle → Decoding → Blending → Encoding (per item) → Aggregating → Done.
type Stage int

const (
	StageIdle Stage = iota
	StageDecoding
	StageBlending
	StageEncoding
	StageAggregating
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageDecoding:
		return "decoding"
	case StageBlending:
		return "blending"
	case StageEncoding:
		return "encoding"
	case StageAggregating:
		return "aggregating"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}
