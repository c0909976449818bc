package transcribe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jshclinic/aichart/internal/chart"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	DefaultGeminiModel = "gemini-2.0-flash"

	geminiPollInterval  = 2 * time.Second
	geminiDeleteTimeout = 15 * time.Second
)

// Gemini uploads the staged recording through the Files API and asks the model
// to structure it with the template text in a single GenerateContent call.
type Gemini struct {
	Model string
	// BaseURL overrides the API endpoint. Empty uses the public endpoint.
	BaseURL string
	// PollInterval is the wait between file state checks while the service
	// processes an upload.
	PollInterval time.Duration
	Logger       *zap.Logger
}

func NewGemini(model string, logger *zap.Logger) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gemini{Model: model, PollInterval: geminiPollInterval, Logger: logger}
}

func (g *Gemini) Name() string {
	return "gemini"
}

func (g *Gemini) Generate(ctx context.Context, credentials string, req Request) (string, error) {
	cfg := &genai.ClientConfig{
		APIKey:  credentials,
		Backend: genai.BackendGeminiAPI,
	}
	if g.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: g.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return "", chart.NewError(chart.KindServiceError, "create gemini client", err)
	}

	file, err := client.Files.UploadFromPath(ctx, req.AudioPath, &genai.UploadFileConfig{MIMEType: req.MIMEType})
	if err != nil {
		return "", chart.NewError(chart.KindUploadFailure, "upload recording", err)
	}
	defer g.deleteRemote(ctx, client, file.Name)

	file, err = g.waitUntilActive(ctx, client, file)
	if err != nil {
		return "", chart.NewError(chart.KindUploadFailure, "process recording", err)
	}

	parts := []*genai.Part{
		genai.NewPartFromURI(file.URI, file.MIMEType),
		genai.NewPartFromText(req.Instructions),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	g.Logger.Debug("generating chart", zap.String("model", g.Model), zap.String("file", file.Name))
	resp, err := client.Models.GenerateContent(ctx, g.model(), contents, nil)
	if err != nil {
		return "", chart.NewError(chart.KindServiceError, "generate chart", err)
	}

	return resp.Text(), nil
}

func (g *Gemini) model() string {
	if g.Model == "" {
		return DefaultGeminiModel
	}
	return g.Model
}

func (g *Gemini) waitUntilActive(ctx context.Context, client *genai.Client, file *genai.File) (*genai.File, error) {
	interval := g.PollInterval
	if interval <= 0 {
		interval = geminiPollInterval
	}

	for file.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}

		refreshed, err := client.Files.Get(ctx, file.Name, nil)
		if err != nil {
			return nil, fmt.Errorf("get file state: %w", err)
		}
		file = refreshed
	}

	if file.State == genai.FileStateFailed {
		return nil, errors.New("service could not process the uploaded recording")
	}
	return file, nil
}

// deleteRemote removes the uploaded copy even when ctx was cancelled.
func (g *Gemini) deleteRemote(ctx context.Context, client *genai.Client, name string) {
	if name == "" {
		return
	}

	deleteCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), geminiDeleteTimeout)
	defer cancel()

	if _, err := client.Files.Delete(deleteCtx, name, nil); err != nil {
		g.Logger.Warn("failed to delete uploaded recording", zap.String("file", name), zap.Error(err))
	}
}
