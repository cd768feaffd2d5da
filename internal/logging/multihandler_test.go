package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingHandler struct{}

func (f failingHandler) WithAttrs([]slog.Attr) slog.Handler { return f }
func (f failingHandler) WithGroup(string) slog.Handler      { return f }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("sink down")
}

func TestMultiHandler(t *testing.T) {
	var a, b bytes.Buffer
	infoA := slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugB := slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelDebug})

	multi := NewMultiHandler(nil, failingHandler{}, infoA, nil, debugB)
	require.Len(t, multi.handlers, 3)

	assert.True(t, multi.Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, NewMultiHandler(infoA).Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, NewMultiHandler().Enabled(context.Background(), slog.LevelInfo))

	slog.New(multi).WithGroup("zone").With("territory", 1055).Info("fan out", "gameplay", true)

	for _, out := range []string{a.String(), b.String()} {
		assert.Contains(t, out, "fan out")
		assert.Contains(t, out, "zone.territory=1055")
		assert.Contains(t, out, "zone.gameplay=true")
	}
	assert.Same(t, multi, multi.WithGroup(""))
}
