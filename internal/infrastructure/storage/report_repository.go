package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"ConsensusAnalyzer/internal/config"
	"ConsensusAnalyzer/internal/domain"
	"ConsensusAnalyzer/internal/ports"
)

const reportsTable = "final_reports"

// ErrReportNotFound is returned by GetReport for unknown topics.
var ErrReportNotFound = errors.New("report not found")

const schema = `CREATE TABLE IF NOT EXISTS final_reports (
    topic_id TEXT PRIMARY KEY,
    final_summary TEXT NOT NULL,
    sentiment_score DOUBLE PRECISION NOT NULL,
    consensus_percentage DOUBLE PRECISION NOT NULL,
    common_claims TEXT NOT NULL,
    segments TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// ReportRepository persists final reports into Postgres or SQLite.
type ReportRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.ReportArchive = (*ReportRepository)(nil)

// Open connects with the configured driver and ensures the schema exists.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*ReportRepository, error) {
	driver := normalizeDriver(cfg.Driver)
	if driver == "" {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// one connection keeps ":memory:" databases alive and serialises writers
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	repo := NewReportRepository(db, driver)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewReportRepository wires an existing sql.DB; driver selects the placeholder style.
func NewReportRepository(db *sql.DB, driver string) *ReportRepository {
	format := sq.PlaceholderFormat(sq.Question)
	if normalizeDriver(driver) == "postgres" {
		format = sq.Dollar
	}
	return &ReportRepository{db: db, builder: sq.StatementBuilder.PlaceholderFormat(format)}
}

// EnsureSchema creates the reports table when missing.
func (r *ReportRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveReport upserts the report keyed by topic id.
func (r *ReportRepository) SaveReport(ctx context.Context, report domain.FinalReport) error {
	if r.db == nil {
		return nil
	}

	segments := report.Segments
	if segments == nil {
		segments = []domain.EvidenceSegment{}
	}
	rawSegments, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("encode segments: %w", err)
	}

	query, args, err := r.builder.
		Insert(reportsTable).
		Columns("topic_id", "final_summary", "sentiment_score", "consensus_percentage", "common_claims", "segments").
		Values(report.TopicID.String(), report.FinalSummary, report.SentimentScore, report.ConsensusPercentage, report.CommonClaims, string(rawSegments)).
		Suffix(`ON CONFLICT (topic_id) DO UPDATE
              SET final_summary = EXCLUDED.final_summary,
                  sentiment_score = EXCLUDED.sentiment_score,
                  consensus_percentage = EXCLUDED.consensus_percentage,
                  common_claims = EXCLUDED.common_claims,
                  segments = EXCLUDED.segments`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert report: %w", err)
	}
	return nil
}

// GetReport loads a stored report.
func (r *ReportRepository) GetReport(ctx context.Context, topicID uuid.UUID) (domain.FinalReport, error) {
	query, args, err := r.builder.
		Select("topic_id", "final_summary", "sentiment_score", "consensus_percentage", "common_claims", "segments").
		From(reportsTable).
		Where(sq.Eq{"topic_id": topicID.String()}).
		ToSql()
	if err != nil {
		return domain.FinalReport{}, fmt.Errorf("build select: %w", err)
	}

	var (
		report      domain.FinalReport
		rawID       string
		rawSegments string
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&rawID,
		&report.FinalSummary,
		&report.SentimentScore,
		&report.ConsensusPercentage,
		&report.CommonClaims,
		&rawSegments,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FinalReport{}, ErrReportNotFound
	}
	if err != nil {
		return domain.FinalReport{}, fmt.Errorf("select report: %w", err)
	}

	if report.TopicID, err = uuid.Parse(rawID); err != nil {
		return domain.FinalReport{}, fmt.Errorf("parse topic id: %w", err)
	}
	if err := json.Unmarshal([]byte(rawSegments), &report.Segments); err != nil {
		return domain.FinalReport{}, fmt.Errorf("decode segments: %w", err)
	}
	return report, nil
}

// Close releases the underlying pool.
func (r *ReportRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pq":
		return "postgres"
	case "sqlite", "sqlite3", "":
		return "sqlite"
	default:
		return ""
	}
}
