package protocol

import "time"

// NarrationStarted announces that a narration pipeline began for a session.
type NarrationStarted struct {
	SessionID string    `json:"session_id"`
	Prompt    string    `json:"prompt,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SegmentFlushed is published for every segment handed to synthesis.
type SegmentFlushed struct {
	SessionID string    `json:"session_id"`
	Sequence  int       `json:"sequence"`
	Words     int       `json:"words"`
	Reason    string    `json:"reason"` // sentence, words, idle, final
	CacheHit  bool      `json:"cache_hit,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NarrationCompleted closes out a session once playback has drained.
type NarrationCompleted struct {
	SessionID string        `json:"session_id"`
	Fragments int           `json:"fragments"`
	Segments  int           `json:"segments"`
	Played    int           `json:"played"`
	Dropped   int           `json:"dropped"`
	Degraded  bool          `json:"degraded"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	SourceErr string        `json:"source_error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

const (
	SubjectNarrationStarted   = "narration.started"
	SubjectNarrationSegment   = "narration.segment"
	SubjectNarrationCompleted = "narration.done"
)
