package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"ConsensusAnalyzer/internal/domain"
	"ConsensusAnalyzer/internal/ports"
)

const maxLineBytes = 16 << 20

// LineGateway replays ingest events stored one JSON object per line.
type LineGateway struct {
	reader io.Reader
	logger *slog.Logger
}

var _ ports.IngestGateway = (*LineGateway)(nil)

// NewLineGateway reads events from r until EOF.
func NewLineGateway(r io.Reader, logger *slog.Logger) *LineGateway {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LineGateway{reader: r, logger: logger}
}

// Run delivers every decodable line; malformed lines are logged and skipped.
func (g *LineGateway) Run(ctx context.Context, handle ports.EventHandler) error {
	scanner := bufio.NewScanner(g.reader)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		var event domain.IngestEvent
		if err := json.Unmarshal([]byte(text), &event); err != nil {
			g.logger.Warn("skipping malformed line", "line", line, "error", err)
			continue
		}
		handle(ctx, event)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	return nil
}
