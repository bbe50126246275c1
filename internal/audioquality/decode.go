package audioquality

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-audio/wav"

	"proficiency-scoring/internal/domain"
)

// DecodeWAV reads a PCM WAV stream and returns mono samples in [-1, 1]
// together with the sample rate. Multi-channel audio is averaged.
func DecodeWAV(r io.ReadSeeker) ([]float64, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("not a valid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode WAV data: %w", err)
	}
	if buf == nil || buf.Format == nil {
		return nil, 0, fmt.Errorf("WAV file has no format information")
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	bitDepth := int(dec.BitDepth)
	if bitDepth <= 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, 0, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	scale := float64(int64(1) << (bitDepth - 1))
	offset := 0.0
	if bitDepth == 8 {
		// 8-bit PCM is unsigned
		offset = scale
	}

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += (float64(buf.Data[i*channels+c]) - offset) / scale
		}
		samples[i] = sum / float64(channels)
	}
	return samples, buf.Format.SampleRate, nil
}

// AnalyzeWAV decodes and analyses a WAV recording. Decoding failures produce
// the neutral error report.
func (a *Analyzer) AnalyzeWAV(data []byte) *domain.AudioQualityReport {
	samples, rate, err := DecodeWAV(bytes.NewReader(data))
	if err != nil {
		return ErrorReport(err)
	}
	return a.Analyze(samples, rate)
}
