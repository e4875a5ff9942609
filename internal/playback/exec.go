package playback

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/lumenlabs/scenevoice/internal/config"
	"github.com/mattn/go-shellwords"
)

type execBackend struct {
	argv      []string
	probeArgs []string
}

func newExecBackend(cfg config.PlayerConfig) (*execBackend, error) {
	parser := shellwords.NewParser()
	argv, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse player command: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("player command empty")
	}
	var probeArgs []string
	if cfg.Probe != "" {
		probeArgs, err = parser.Parse(cfg.Probe)
		if err != nil {
			return nil, fmt.Errorf("parse player probe: %w", err)
		}
	}
	return &execBackend{argv: argv, probeArgs: probeArgs}, nil
}

func (b *execBackend) Name() string { return b.argv[0] }

// probe runs the version/capability invocation. Output is discarded; only
// the ability to launch and exit cleanly matters.
func (b *execBackend) probe(ctx context.Context) error {
	if _, err := exec.LookPath(b.argv[0]); err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, b.argv[0], b.probeArgs...)
	return cmd.Run()
}

func (b *execBackend) Start(ctx context.Context, path string) (Process, error) {
	args := append(append([]string{}, b.argv[1:]...), path)
	cmd := exec.CommandContext(ctx, b.argv[0], args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start player: %w", err)
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Wait() error { return p.cmd.Wait() }
