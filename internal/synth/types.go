package synth

import "context"

// Clip is one synthesized utterance as raw little-endian PCM.
type Clip struct {
	PCM        []byte
	SampleRate int
	Channels   int
	BitDepth   int
}

// Empty reports whether the clip carries no samples.
func (c Clip) Empty() bool { return len(c.PCM) == 0 }

// Synthesizer converts one text segment into audio. Implementations must be
// idempotent: the pipeline retries failed segments with identical text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Clip, error)
}
