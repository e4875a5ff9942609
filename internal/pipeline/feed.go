package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lumenlabs/scenevoice/internal/narrate"
)

type feedResult struct {
	fragments int
	err       error
}

// runFeed adapts the narration source onto the text channel. Closing the
// channel is the downstream signal that no more fragments will arrive,
// whether the stream ended cleanly or with an error.
func runFeed(ctx context.Context, src narrate.Source, req narrate.Request, out chan<- Fragment, log *slog.Logger) feedResult {
	defer close(out)

	seq := 0
	err := src.Stream(ctx, req, func(f narrate.Fragment) error {
		if f.Text == "" {
			return nil
		}
		select {
		case out <- Fragment{Seq: seq, Text: f.Text}:
			seq++
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("narration source ended with error",
			slog.String("session", req.SessionID),
			slog.String("error", err.Error()))
	}
	return feedResult{fragments: seq, err: err}
}
