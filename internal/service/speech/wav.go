package speech

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// wavAudio is the PCM stream pulled out of a RIFF/WAVE container.
type wavAudio struct {
	SampleRate int
	Bits       int
	Channels   int
	PCM        []byte
}

var errNotWAV = errors.New("not a RIFF/WAVE stream")

// parseWAV walks the RIFF chunks of a WAV file and returns the raw PCM
// with its format parameters. Browsers upload voice clips as WAV, but the
// recognizer wants bare PCM with explicit rate/bits/channels.
func parseWAV(data []byte) (*wavAudio, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errNotWAV
	}

	audio := &wavAudio{}
	var haveFmt bool

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			return nil, fmt.Errorf("truncated %q chunk: need %d bytes", chunkID, chunkSize)
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, fmt.Errorf("fmt chunk too short: %d bytes", chunkSize)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return nil, fmt.Errorf("unsupported WAV encoding %d, want PCM", format)
			}
			audio.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			audio.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			audio.Bits = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			audio.PCM = data[body : body+chunkSize]
		}

		// Chunks are word-aligned.
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if !haveFmt {
		return nil, errors.New("WAV stream has no fmt chunk")
	}
	if len(audio.PCM) == 0 {
		return nil, errors.New("WAV stream has no audio data")
	}
	return audio, nil
}
