package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jshclinic/aichart/internal/chart"
	"go.uber.org/zap"
)

const stagingPattern = "aichart-encounter-*"

// Request is what a Service receives: a staged audio file and the template text.
type Request struct {
	AudioPath    string
	MIMEType     string
	Instructions string
}

// Service submits one staged recording to an external structuring service and
// returns its text output. Errors already classified as *chart.Error keep their
// kind; anything else is reported as a service error.
type Service interface {
	Name() string
	Generate(ctx context.Context, credentials string, req Request) (string, error)
}

type Options struct {
	// StagingDir holds the transient staging file. Empty means os.TempDir().
	StagingDir string
	// Timeout bounds a single service call. Zero means no bound.
	Timeout time.Duration
	Logger  *zap.Logger
}

type Client struct {
	service    Service
	stagingDir string
	timeout    time.Duration
	logger     *zap.Logger
}

func NewClient(service Service, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		service:    service,
		stagingDir: opts.StagingDir,
		timeout:    opts.Timeout,
		logger:     logger,
	}
}

// Transcribe stages the artifact, submits it with the template text and
// returns the service output verbatim. Exactly one staging file is created
// after the credential check and it is removed on every exit path.
func (c *Client) Transcribe(ctx context.Context, artifact chart.AudioArtifact, tmpl chart.Template, credentials string) (string, error) {
	if strings.TrimSpace(credentials) == "" {
		return "", chart.NewError(chart.KindMissingCredentials, "transcribe", nil)
	}
	if artifact.IsZero() {
		return "", chart.NewError(chart.KindUploadFailure, "transcribe", chart.ErrEmptyArtifact)
	}
	if tmpl.IsZero() {
		return "", chart.NewError(chart.KindServiceError, "transcribe", chart.ErrUnknownTemplate)
	}
	if c.service == nil {
		return "", chart.NewError(chart.KindServiceError, "transcribe", errors.New("no transcription service configured"))
	}

	stagedPath, cleanup, err := c.stage(artifact)
	if err != nil {
		return "", chart.NewError(chart.KindUploadFailure, "stage audio", err)
	}
	defer cleanup()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.logger.Info("submitting recording",
		zap.String("service", c.service.Name()),
		zap.String("template", tmpl.ID()),
		zap.Int("bytes", artifact.Len()),
	)
	started := time.Now()

	text, err := c.service.Generate(ctx, credentials, Request{
		AudioPath:    stagedPath,
		MIMEType:     artifact.MIMEType(),
		Instructions: tmpl.Text(),
	})
	if err != nil {
		c.logger.Warn("transcription failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return "", classify(err)
	}
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("transcription returned no text", zap.Duration("elapsed", time.Since(started)))
		return "", chart.NewError(chart.KindEmptyResult, "transcribe", nil)
	}

	c.logger.Info("transcription finished", zap.Duration("elapsed", time.Since(started)), zap.Int("chars", len(text)))
	return text, nil
}

func (c *Client) stage(artifact chart.AudioArtifact) (string, func(), error) {
	f, err := os.CreateTemp(c.stagingDir, stagingPattern+artifact.Ext())
	if err != nil {
		return "", nil, fmt.Errorf("create staging file: %w", err)
	}

	path := f.Name()
	cleanup := func() {
		if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			c.logger.Warn("failed to remove staging file", zap.String("path", path), zap.Error(removeErr))
		}
	}

	if _, err := f.Write(artifact.Bytes()); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close staging file: %w", err)
	}

	c.logger.Debug("staged recording", zap.String("path", path))
	return path, cleanup, nil
}

func classify(err error) error {
	var classified *chart.Error
	if errors.As(err, &classified) {
		return err
	}
	return chart.NewError(chart.KindServiceError, "transcribe", err)
}
