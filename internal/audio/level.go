// Package audio inspects captured recordings before they are sent for
// transcription.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultSilenceThreshold is the RMS level in dBFS at or below which a
// recording is treated as silent.
const DefaultSilenceThreshold = -60.0

var (
	ErrNotWAV         = errors.New("not a wav recording")
	ErrUnsupportedWAV = errors.New("unsupported wav encoding")
)

const (
	formatPCM   = 1
	formatFloat = 3
)

// Level summarizes the loudness of a recording.
type Level struct {
	RMSdBFS  float64
	PeakdBFS float64
	Samples  int64
	Duration time.Duration
}

// Silent reports whether the recording carries no usable signal. Peaks are
// allowed a little above the RMS threshold so clicks alone do not count as
// speech.
func (l Level) Silent(threshold float64) bool {
	if l.Samples == 0 {
		return true
	}
	return l.RMSdBFS <= threshold && l.PeakdBFS <= threshold+6
}

type wavFormat struct {
	encoding      uint16
	channels      uint16
	sampleRate    uint32
	bitsPerSample uint16
}

func (f wavFormat) bytesPerSample() int { return int(f.bitsPerSample / 8) }

// Measure reads a RIFF/WAVE recording held in memory. Other containers
// return ErrNotWAV; callers usually skip the check for them.
func Measure(data []byte) (Level, error) {
	if len(data) < 12 || string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Level{}, ErrNotWAV
	}

	format, samples, err := splitChunks(data[12:])
	if err != nil {
		return Level{}, err
	}

	peak, sumSquares, count := scan(samples, format)

	level := Level{
		RMSdBFS:  math.Inf(-1),
		PeakdBFS: math.Inf(-1),
		Samples:  count,
	}
	if count > 0 {
		level.RMSdBFS = toDBFS(math.Sqrt(sumSquares / float64(count)))
		level.PeakdBFS = toDBFS(peak)
	}
	if format.sampleRate > 0 && format.channels > 0 {
		frames := count / int64(format.channels)
		level.Duration = time.Duration(frames) * time.Second / time.Duration(format.sampleRate)
	}
	return level, nil
}

func splitChunks(body []byte) (wavFormat, []byte, error) {
	var (
		format  wavFormat
		samples []byte
		hasFmt  bool
		hasData bool
	)

	for len(body) >= 8 {
		id := string(body[:4])
		size := int(binary.LittleEndian.Uint32(body[4:8]))
		body = body[8:]
		if size > len(body) {
			// Streamed recordings often leave the final chunk size unset.
			if id != "data" {
				return wavFormat{}, nil, fmt.Errorf("%w: chunk %q overruns file", ErrNotWAV, id)
			}
			size = len(body)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return wavFormat{}, nil, fmt.Errorf("%w: short fmt chunk", ErrNotWAV)
			}
			format = wavFormat{
				encoding:      binary.LittleEndian.Uint16(body[0:2]),
				channels:      binary.LittleEndian.Uint16(body[2:4]),
				sampleRate:    binary.LittleEndian.Uint32(body[4:8]),
				bitsPerSample: binary.LittleEndian.Uint16(body[14:16]),
			}
			hasFmt = true
		case "data":
			samples = body[:size]
			hasData = true
		}

		if size%2 != 0 && size < len(body) {
			size++
		}
		body = body[size:]
	}

	if !hasFmt || !hasData {
		return wavFormat{}, nil, fmt.Errorf("%w: missing fmt or data chunk", ErrNotWAV)
	}
	if err := format.validate(); err != nil {
		return wavFormat{}, nil, err
	}
	return format, samples, nil
}

func (f wavFormat) validate() error {
	switch {
	case f.encoding == formatPCM && (f.bitsPerSample == 8 || f.bitsPerSample == 16 || f.bitsPerSample == 24 || f.bitsPerSample == 32):
		return nil
	case f.encoding == formatFloat && (f.bitsPerSample == 32 || f.bitsPerSample == 64):
		return nil
	default:
		return fmt.Errorf("%w: format %d, %d bits", ErrUnsupportedWAV, f.encoding, f.bitsPerSample)
	}
}

func scan(data []byte, format wavFormat) (peak, sumSquares float64, count int64) {
	width := format.bytesPerSample()
	for i := 0; i+width <= len(data); i += width {
		v := decode(data[i:i+width], format)
		abs := math.Abs(v)
		if abs > peak {
			peak = abs
		}
		sumSquares += v * v
		count++
	}
	return peak, sumSquares, count
}

// decode returns the sample scaled to [-1, 1]. The format has been validated.
func decode(b []byte, format wavFormat) float64 {
	if format.encoding == formatFloat {
		if format.bitsPerSample == 32 {
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}

	switch format.bitsPerSample {
	case 8:
		return (float64(b[0]) - 128) / 128
	case 16:
		return float64(int16(binary.LittleEndian.Uint16(b))) / (1 << 15)
	case 24:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if v&0x800000 != 0 {
			v |= ^0xFFFFFF
		}
		return float64(v) / (1 << 23)
	default:
		return float64(int32(binary.LittleEndian.Uint32(b))) / (1 << 31)
	}
}

func toDBFS(amplitude float64) float64 {
	if amplitude <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(amplitude)
}
