package pipeline

import (
	"context"
	"log/slog"
	"os"

	"github.com/lumenlabs/scenevoice/internal/playback"
)

type playResult struct {
	played int
	failed int
}

// runPlayer renders artifacts strictly in channel order. Playback starts
// non-blocking so the next artifact can be fetched while audio plays, but a
// running process is always waited out before the next one starts. Every
// artifact path is remembered and removed once the run has drained, playback
// failures included.
func (p *Pipeline) runPlayer(ctx context.Context, in <-chan Artifact) playResult {
	var res playResult
	var paths []string
	var current playback.Process
	var currentSeq int

	settle := func() {
		if current == nil {
			return
		}
		if err := current.Wait(); err != nil {
			p.log.Warn("playback exited with error",
				slog.Int("sequence", currentSeq),
				slog.String("player", p.backend.Name()),
				slog.String("error", err.Error()))
			res.failed++
		} else {
			res.played++
		}
		current = nil
	}

	for art := range in {
		paths = append(paths, art.Path)
		if ctx.Err() != nil {
			continue
		}
		settle()
		proc, err := p.backend.Start(ctx, art.Path)
		if err != nil {
			p.log.Warn("failed to start playback",
				slog.Int("sequence", art.Seq),
				slog.String("player", p.backend.Name()),
				slog.String("error", err.Error()))
			res.failed++
			continue
		}
		current, currentSeq = proc, art.Seq
	}
	settle()

	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			p.log.Warn("failed to remove narration artifact",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}
	return res
}
