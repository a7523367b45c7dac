package voice

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"

	"github.com/stackchan/go-stackchan/pkg/tts"
)

// frameBytes is how much encoded-side PCM each decode step pulls. Small
// enough that the lip-sync level tracks the audio closely.
const frameBytes = 4096

// Decoder yields PCM chunks from an audio stream one frame at a time.
// Next returns io.EOF when the stream is exhausted.
type Decoder interface {
	Next() (AudioChunk, error)
}

// NewDecoder selects a decoder for the stream's encoding. Chunks it
// yields are already normalized to mono at the playback rate.
func NewDecoder(stream tts.AudioStream) (Decoder, error) {
	switch stream.Format() {
	case tts.FormatMP3:
		return newMP3Decoder(stream)
	case tts.FormatWAV:
		return newWAVDecoder(stream)
	case tts.FormatPCM:
		return &pcmDecoder{r: stream, rate: SampleRate, channels: Channels}, nil
	default:
		return nil, fmt.Errorf("unsupported audio format %s", stream.Format())
	}
}

// pcmDecoder reads raw PCM16 frames.
type pcmDecoder struct {
	r        io.Reader
	rate     int
	channels int
}

func (d *pcmDecoder) Next() (AudioChunk, error) {
	buf := make([]byte, frameBytes)
	n, err := io.ReadFull(d.r, buf)
	if n == 0 {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return AudioChunk{}, err
	}
	// Drop a trailing odd byte from a truncated stream.
	n -= n % 2

	chunk := AudioChunk{
		Samples:    BytesToSamples(buf[:n]),
		SampleRate: d.rate,
		Channels:   d.channels,
	}
	return chunk.Normalize(), nil
}

// mp3Decoder wraps go-mp3, which always yields 16-bit stereo.
type mp3Decoder struct {
	d *mp3.Decoder
}

func newMP3Decoder(r io.Reader) (*mp3Decoder, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	return &mp3Decoder{d: d}, nil
}

func (d *mp3Decoder) Next() (AudioChunk, error) {
	buf := make([]byte, frameBytes)
	n, err := io.ReadFull(d.d, buf)
	if n == 0 {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return AudioChunk{}, err
	}
	n -= n % 4

	chunk := AudioChunk{
		Samples:    BytesToSamples(buf[:n]),
		SampleRate: d.d.SampleRate(),
		Channels:   2,
	}
	return chunk.Normalize(), nil
}

// wavDecoder streams PCM16 out of a RIFF/WAVE container.
type wavDecoder struct {
	r        io.Reader
	rate     int
	channels int
	remain   uint32
}

func newWAVDecoder(r io.Reader) (*wavDecoder, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("read wav header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a wav stream")
	}

	d := &wavDecoder{r: r}
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return nil, fmt.Errorf("read wav chunk: %w", err)
		}
		id := string(hdr[0:4])
		size := binary.LittleEndian.Uint32(hdr[4:8])

		switch id {
		case "fmt ":
			fmtChunk := make([]byte, size)
			if _, err := io.ReadFull(r, fmtChunk); err != nil {
				return nil, fmt.Errorf("read wav fmt: %w", err)
			}
			if len(fmtChunk) < 16 {
				return nil, fmt.Errorf("short wav fmt chunk")
			}
			if format := binary.LittleEndian.Uint16(fmtChunk[0:2]); format != 1 {
				return nil, fmt.Errorf("unsupported wav encoding %d", format)
			}
			if bits := binary.LittleEndian.Uint16(fmtChunk[14:16]); bits != 16 {
				return nil, fmt.Errorf("unsupported wav bit depth %d", bits)
			}
			d.channels = int(binary.LittleEndian.Uint16(fmtChunk[2:4]))
			d.rate = int(binary.LittleEndian.Uint32(fmtChunk[4:8]))
			if d.channels != 1 && d.channels != 2 {
				return nil, fmt.Errorf("unsupported wav channel count %d", d.channels)
			}
		case "data":
			if d.rate == 0 || d.channels == 0 {
				return nil, fmt.Errorf("wav data before fmt chunk")
			}
			d.remain = size
			return d, nil
		default:
			if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
				return nil, fmt.Errorf("skip wav chunk %q: %w", id, err)
			}
		}
	}
}

func (d *wavDecoder) Next() (AudioChunk, error) {
	if d.remain == 0 {
		return AudioChunk{}, io.EOF
	}
	want := uint32(frameBytes)
	if d.remain < want {
		want = d.remain
	}

	buf := make([]byte, want)
	n, err := io.ReadFull(d.r, buf)
	if n == 0 {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return AudioChunk{}, err
	}
	d.remain -= uint32(n)
	n -= n % (2 * d.channels)

	chunk := AudioChunk{
		Samples:    BytesToSamples(buf[:n]),
		SampleRate: d.rate,
		Channels:   d.channels,
	}
	return chunk.Normalize(), nil
}
