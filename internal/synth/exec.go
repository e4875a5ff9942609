package synth

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"
)

// execSynth shells out to a local TTS process. The contract is a JSON
// request on stdin and newline-delimited JSON chunks on stdout, so piper
// wrappers and similar tools can be dropped in without code changes.
type execSynth struct {
	cmd        []string
	voice      string
	sampleRate int
	channels   int
	mu         sync.Mutex
}

type execRequest struct {
	Text       string `json:"text"`
	Voice      string `json:"voice"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type execResponse struct {
	PCMBase64 string `json:"pcm_base64"`
	Final     bool   `json:"final"`
}

func NewExecSynth(command, voice string, sampleRate, channels int) (Synthesizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse synth command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("synth command empty")
	}
	return &execSynth{cmd: args, voice: voice, sampleRate: sampleRate, channels: channels}, nil
}

func (e *execSynth) Synthesize(ctx context.Context, text string) (Clip, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	reqPayload := execRequest{
		Text:       text,
		Voice:      e.voice,
		SampleRate: e.sampleRate,
		Channels:   e.channels,
	}
	data, err := json.Marshal(reqPayload)
	if err != nil {
		return Clip{}, err
	}

	base := e.cmd[0]
	args := append([]string{}, e.cmd[1:]...)
	cmd := exec.CommandContext(ctx, base, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return Clip{}, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Clip{}, err
	}
	if err := cmd.Start(); err != nil {
		return Clip{}, err
	}

	if _, err := stdin.Write(data); err != nil {
		cmd.Wait()
		return Clip{}, err
	}
	stdin.Close()

	var pcm []byte
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var resp execResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			cmd.Wait()
			return Clip{}, err
		}
		chunk, err := base64.StdEncoding.DecodeString(resp.PCMBase64)
		if err != nil {
			cmd.Wait()
			return Clip{}, err
		}
		pcm = append(pcm, chunk...)
		if resp.Final {
			break
		}
	}
	if err := cmd.Wait(); err != nil {
		return Clip{}, fmt.Errorf("synth command failed: %w", err)
	}
	if err := scanner.Err(); err != nil {
		return Clip{}, err
	}
	return Clip{PCM: pcm, SampleRate: e.sampleRate, Channels: e.channels, BitDepth: 16}, nil
}
