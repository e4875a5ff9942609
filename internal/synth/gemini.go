package synth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

type geminiSynth struct {
	endpoint   string
	apiKey     string
	model      string
	voice      string
	sampleRate int
	channels   int
	client     *http.Client
}

// NewGeminiSynth synthesizes speech through the Gemini TTS generateContent
// endpoint. The service returns 16-bit little-endian PCM at the model's
// native rate (24 kHz mono for the preview TTS models).
func NewGeminiSynth(endpoint, apiKey, model, voice string, sampleRate, channels int) Synthesizer {
	return &geminiSynth{
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
		voice:      voice,
		sampleRate: sampleRate,
		channels:   channels,
		client:     http.DefaultClient,
	}
}

type ttsRequest struct {
	Contents         []ttsContent        `json:"contents"`
	GenerationConfig ttsGenerationConfig `json:"generationConfig"`
}

type ttsContent struct {
	Parts []ttsPart `json:"parts"`
}

type ttsPart struct {
	Text string `json:"text"`
}

type ttsGenerationConfig struct {
	ResponseModalities []string        `json:"responseModalities"`
	SpeechConfig       ttsSpeechConfig `json:"speechConfig"`
}

type ttsSpeechConfig struct {
	VoiceConfig ttsVoiceConfig `json:"voiceConfig"`
}

type ttsVoiceConfig struct {
	PrebuiltVoiceConfig ttsPrebuiltVoice `json:"prebuiltVoiceConfig"`
}

type ttsPrebuiltVoice struct {
	VoiceName string `json:"voiceName"`
}

type ttsResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				InlineData *struct {
					Data string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *geminiSynth) Synthesize(ctx context.Context, text string) (Clip, error) {
	if text == "" {
		return Clip{}, errors.New("cannot synthesize empty text")
	}
	payload := ttsRequest{
		Contents: []ttsContent{{Parts: []ttsPart{{Text: text}}}},
		GenerationConfig: ttsGenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: ttsSpeechConfig{
				VoiceConfig: ttsVoiceConfig{
					PrebuiltVoiceConfig: ttsPrebuiltVoice{VoiceName: g.voice},
				},
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Clip{}, err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.endpoint, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Clip{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return Clip{}, fmt.Errorf("synthesis request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return Clip{}, fmt.Errorf("synthesis service returned status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Clip{}, err
	}
	var parsed ttsResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Clip{}, fmt.Errorf("decode synthesis response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return Clip{}, errors.New("no audio data in synthesis response")
	}
	part := parsed.Candidates[0].Content.Parts[0]
	if part.InlineData == nil || part.InlineData.Data == "" {
		return Clip{}, errors.New("synthesis response missing inline audio data")
	}
	pcm, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
	if err != nil {
		return Clip{}, fmt.Errorf("decode audio payload: %w", err)
	}
	return Clip{PCM: pcm, SampleRate: g.sampleRate, Channels: g.channels, BitDepth: 16}, nil
}
