package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogToasterLevels(t *testing.T) {
	var buf bytes.Buffer
	lt := NewLogToaster(slog.New(slog.NewTextHandler(&buf, nil)))
	lt.Toast("saved", Success, 0)
	lt.Toast("quota exceeded", Error, 3*time.Second)

	out := buf.String()
	assert.Contains(t, out, "level=INFO msg=saved")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "duration=3s")
}

func TestRecorderForwards(t *testing.T) {
	inner := &Recorder{}
	r := &Recorder{Next: inner}
	r.Toast("a", Info, 0)
	r.Toast("b", Warning, 0)

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, "b", last.Message)
	assert.Len(t, inner.Toasts(), 2)

	r.Reset()
	_, ok = r.Last()
	assert.False(t, ok)
}

func TestStaticConfirmer(t *testing.T) {
	s := &Static{Answer: true}
	ok, err := s.Confirm(context.Background(), ConfirmOptions{Title: "Delete?"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Delete?", s.Asked()[0].Title)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Confirm(ctx, ConfirmOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
