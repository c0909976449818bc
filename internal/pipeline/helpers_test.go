package pipeline

import (
	"context"
	"os"
	"testing"

	"github.com/jshclinic/aichart/internal/transcribe"
	"github.com/stretchr/testify/require"
)

type stubService struct{ text string }

func (s *stubService) Name() string { return "stub" }

func (s *stubService) Generate(context.Context, string, transcribe.Request) (string, error) {
	return s.text, nil
}

func requireDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}
