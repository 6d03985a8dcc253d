// Package pcm decodes raw PCM16 speech payloads into playable buffers and
// serializes them as WAV for delivery to browsers.
package pcm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-audio/audio"
)

// Buffer is decoded audio ready for playback or WAV serialization.
type Buffer struct {
	// PCM holds the samples along with their format.
	PCM *audio.IntBuffer
	raw []byte
}

// Decode interprets data as little-endian 16-bit PCM at the given sample
// rate and channel count.
func Decode(data []byte, sampleRate, channels int) (*Buffer, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty audio payload")
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("pcm16 payload has odd length %d", len(data))
	}
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid sample format: rate %d, channels %d", sampleRate, channels)
	}

	samples := make([]int, len(data)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(data[2*i:])))
	}
	return &Buffer{
		PCM: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
			Data:           samples,
			SourceBitDepth: 16,
		},
		raw: data,
	}, nil
}

// Duration returns the playback length of the buffer.
func (b *Buffer) Duration() time.Duration {
	f := b.PCM.Format
	frames := len(b.PCM.Data) / f.NumChannels
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// WAV serializes the buffer as a RIFF/WAVE file with a single PCM16 data
// chunk.
func (b *Buffer) WAV() []byte {
	f := b.PCM.Format
	blockAlign := f.NumChannels * 2
	var buf bytes.Buffer

	// RIFF header
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(b.raw)))
	buf.WriteString("WAVE")

	// fmt chunk
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM format
	binary.Write(&buf, binary.LittleEndian, uint16(f.NumChannels))
	binary.Write(&buf, binary.LittleEndian, uint32(f.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(f.SampleRate*blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(16)) // bits per sample

	// data chunk
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(b.raw)))
	buf.Write(b.raw)

	return buf.Bytes()
}
