package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewForwardsToSlog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	New(base, "cron").Printf("job %s done", "sweep")

	out := buf.String()
	assert.Contains(t, out, "job sweep done")
	assert.Contains(t, out, "component=cron")
	assert.Contains(t, out, "level=INFO")
}
