package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jshclinic/aichart/internal/audio"
	"github.com/jshclinic/aichart/internal/chart"
	"go.uber.org/zap"
)

const stdinSource = "-"

// readArtifact takes the capture collaborator's output: an audio file path,
// or "-" for a recording piped on stdin.
func readArtifact(source string, stdin io.Reader) (chart.AudioArtifact, error) {
	if source == stdinSource {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return chart.AudioArtifact{}, fmt.Errorf("read recording from stdin: %w", err)
		}
		return newArtifact(data, "")
	}

	path := filepath.Clean(source)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return chart.AudioArtifact{}, fmt.Errorf("audio file not found: %w", err)
		}
		return chart.AudioArtifact{}, fmt.Errorf("read audio file: %w", err)
	}
	return newArtifact(data, path)
}

func newArtifact(data []byte, name string) (chart.AudioArtifact, error) {
	artifact, err := chart.NewArtifact(data, name)
	if err != nil {
		return chart.AudioArtifact{}, fmt.Errorf("recording is empty; check the microphone and try again: %w", err)
	}
	return artifact, nil
}

// warnIfSilent flags WAV recordings with no signal. The encounter proceeds
// either way.
func (a *appState) warnIfSilent(artifact chart.AudioArtifact) {
	level, err := audio.Measure(artifact.Bytes())
	if err != nil {
		if !errors.Is(err, audio.ErrNotWAV) {
			a.log().Debug("could not measure recording level", zap.Error(err))
		}
		return
	}

	fields := []zap.Field{
		zap.Duration("duration", level.Duration),
		zap.Float64("rms_dbfs", level.RMSdBFS),
		zap.Float64("peak_dbfs", level.PeakdBFS),
	}
	if level.Silent(audio.DefaultSilenceThreshold) {
		a.log().Warn("recording appears silent; the chart may come back empty", fields...)
		return
	}
	a.log().Debug("recording level", fields...)
}
