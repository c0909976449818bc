package transcribe

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// NewService builds the named provider. An empty model selects the provider default.
func NewService(provider, model string, logger *zap.Logger) (Service, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "gemini":
		return NewGemini(model, logger), nil
	case "openai":
		return NewOpenAI(model, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (available: gemini, openai)", provider)
	}
}
