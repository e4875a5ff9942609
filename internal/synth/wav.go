package synth

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAVFile materializes a clip as a RIFF/WAV file at path. Only 16-bit
// PCM clips are supported, which is what every backend here produces.
func WriteWAVFile(path string, clip Clip) error {
	if clip.Empty() {
		return errors.New("refusing to write empty clip")
	}
	if clip.BitDepth != 16 {
		return fmt.Errorf("unsupported bit depth %d", clip.BitDepth)
	}
	if len(clip.PCM)%2 != 0 {
		return fmt.Errorf("odd PCM length %d for 16-bit samples", len(clip.PCM))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav file: %w", err)
	}

	enc := wav.NewEncoder(f, clip.SampleRate, clip.BitDepth, clip.Channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: clip.Channels, SampleRate: clip.SampleRate},
		Data:           make([]int, len(clip.PCM)/2),
		SourceBitDepth: clip.BitDepth,
	}
	for i := 0; i+1 < len(clip.PCM); i += 2 {
		buf.Data[i/2] = int(int16(binary.LittleEndian.Uint16(clip.PCM[i:])))
	}

	if err := enc.Write(buf); err != nil {
		enc.Close()
		f.Close()
		return fmt.Errorf("write wav data: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize wav file: %w", err)
	}
	return f.Close()
}
