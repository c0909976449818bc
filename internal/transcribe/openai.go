package transcribe

import (
	"context"
	"errors"
	"strings"

	"github.com/jshclinic/aichart/internal/chart"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const DefaultOpenAIModel = openai.GPT4oMini

// OpenAI transcribes the staged recording with Whisper and then structures the
// transcript with a chat completion that carries the template text as system
// instructions.
type OpenAI struct {
	Model string
	// BaseURL overrides the API endpoint, e.g. for a compatible proxy.
	BaseURL string
	Logger  *zap.Logger
}

func NewOpenAI(model string, logger *zap.Logger) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAI{Model: model, Logger: logger}
}

func (o *OpenAI) Name() string {
	return "openai"
}

func (o *OpenAI) Generate(ctx context.Context, credentials string, req Request) (string, error) {
	cfg := openai.DefaultConfig(credentials)
	if o.BaseURL != "" {
		cfg.BaseURL = o.BaseURL
	}
	client := openai.NewClientWithConfig(cfg)

	audio, err := client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: req.AudioPath,
	})
	if err != nil {
		if isAPIError(err) {
			return "", chart.NewError(chart.KindServiceError, "transcribe recording", err)
		}
		return "", chart.NewError(chart.KindUploadFailure, "upload recording", err)
	}

	transcript := strings.TrimSpace(audio.Text)
	if transcript == "" {
		return "", nil
	}
	o.Logger.Debug("structuring transcript", zap.String("model", o.model()), zap.Int("chars", len(transcript)))

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model(),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.Instructions},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
	})
	if err != nil {
		return "", chart.NewError(chart.KindServiceError, "generate chart", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}

	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) model() string {
	if o.Model == "" {
		return DefaultOpenAIModel
	}
	return o.Model
}

func isAPIError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return true
	}
	var reqErr *openai.RequestError
	return errors.As(err, &reqErr) && reqErr.HTTPStatusCode >= 400
}
