package pipeline

import "time"

// Fragment is one unit of narration text in arrival order.
type Fragment struct {
	Seq  int
	Text string
}

// Artifact is one synthesized segment materialized on disk, ready to play.
type Artifact struct {
	Seq    int
	Text   string
	Path   string
	Cached bool
}

// Flush reasons.
const (
	ReasonSentence = "sentence"
	ReasonWords    = "words"
	ReasonIdle     = "idle"
	ReasonFinal    = "final"
)

// SegmentReport describes one segment handed to synthesis.
type SegmentReport struct {
	Sequence int    `json:"sequence"`
	Words    int    `json:"words"`
	Reason   string `json:"reason"`
	Attempts int    `json:"attempts"`
	CacheHit bool   `json:"cache_hit"`
}

// Report summarizes one narration run.
type Report struct {
	SessionID       string          `json:"session_id"`
	Fragments       int             `json:"fragments"`
	Segments        []SegmentReport `json:"segments"`
	Played          int             `json:"played"`
	DroppedSegments int             `json:"dropped_segments"`
	Degraded        bool            `json:"degraded"`
	SourceError     string          `json:"source_error,omitempty"`
	Elapsed         time.Duration   `json:"elapsed_ns"`
}
