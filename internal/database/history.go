package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/humanizer/internal/model"
)

// FileName is the database file created inside the history directory.
const FileName = "history.db"

// Detection kinds stored in the detections table.
const (
	KindText     = "text"
	KindSegments = "segments"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("history record not found")

// HistoryDB stores detection and pipeline run records.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and the database file.
	CreateIfNotExists bool

	// EnableWAL switches the journal to write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	mode := "rwc"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		mode = "rw"
		if _, err := os.Stat(dbPath); err != nil {
			return nil, fmt.Errorf("history database not found at %s: %w", dbPath, err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	ctx := context.Background()
	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := hdb.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS detections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		text_digest TEXT NOT NULL,
		text_length INTEGER NOT NULL,
		ai_probability REAL NOT NULL,
		is_ai_generated INTEGER NOT NULL,
		threshold REAL NOT NULL,
		models TEXT NOT NULL,
		failed_models INTEGER DEFAULT 0,
		duration_ms INTEGER DEFAULT 0,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_detections_digest ON detections(text_digest);
	CREATE INDEX IF NOT EXISTS idx_detections_timestamp ON detections(timestamp);

	CREATE TABLE IF NOT EXISTS pipeline_runs (
		id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		input_digest TEXT NOT NULL,
		output_digest TEXT NOT NULL,
		models TEXT NOT NULL,
		successful_steps INTEGER NOT NULL,
		failed_steps INTEGER NOT NULL,
		steps_json TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON pipeline_runs(timestamp);
	`
	_, err := h.db.ExecContext(ctx, schema)
	return err
}

// Digest returns the hex SHA3-256 digest of text.
func Digest(text string) string {
	sum := sha3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// DetectionRecord is a stored detection summary.
type DetectionRecord struct {
	ID            int64     `json:"id"`
	Kind          string    `json:"kind"`
	TextDigest    string    `json:"text_digest"`
	TextLength    int       `json:"text_length"`
	AIProbability float64   `json:"ai_probability"`
	IsAIGenerated bool      `json:"is_ai_generated"`
	Threshold     float64   `json:"threshold"`
	Models        []string  `json:"models"`
	FailedModels  int       `json:"failed_models"`
	DurationMS    int64     `json:"duration_ms"`
	Timestamp     time.Time `json:"timestamp"`
}

// SaveDetection records a whole-text detection of text.
func (h *HistoryDB) SaveDetection(ctx context.Context, text string, d *model.Detection) (int64, error) {
	return h.insertDetection(ctx, &DetectionRecord{
		Kind:          KindText,
		TextDigest:    Digest(text),
		TextLength:    d.TextLength,
		AIProbability: d.Result.AIProbability,
		IsAIGenerated: d.Result.IsAIGenerated,
		Threshold:     d.Result.Threshold,
		Models:        d.Models,
		FailedModels:  len(d.Failures),
		DurationMS:    d.Duration.Std().Milliseconds(),
	})
}

// SaveSegmentAnalysis records a granular detection of text. The stored
// probability is the overall probability of the analysis.
func (h *HistoryDB) SaveSegmentAnalysis(ctx context.Context, text string, a *model.SegmentAnalysis) (int64, error) {
	failed := 0
	for _, s := range a.Segments {
		if s.Failed() {
			failed++
		}
	}
	return h.insertDetection(ctx, &DetectionRecord{
		Kind:          KindSegments,
		TextDigest:    Digest(text),
		TextLength:    len([]rune(text)),
		AIProbability: a.Summary.OverallProbability,
		IsAIGenerated: a.Summary.OverallProbability >= a.Threshold,
		Threshold:     a.Threshold,
		Models:        a.Models,
		FailedModels:  failed,
		DurationMS:    a.Duration.Std().Milliseconds(),
	})
}

func (h *HistoryDB) insertDetection(ctx context.Context, r *DetectionRecord) (int64, error) {
	query := `
	INSERT INTO detections (kind, text_digest, text_length, ai_probability, is_ai_generated, threshold, models, failed_models, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := h.db.ExecContext(ctx, query,
		r.Kind,
		r.TextDigest,
		r.TextLength,
		r.AIProbability,
		r.IsAIGenerated,
		r.Threshold,
		strings.Join(r.Models, ","),
		r.FailedModels,
		r.DurationMS,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert detection: %w", err)
	}
	return result.LastInsertId()
}

// ListDetections returns the most recent detections first. A digest filters
// the records to one text.
func (h *HistoryDB) ListDetections(ctx context.Context, digest string, limit int) ([]DetectionRecord, error) {
	query := `
	SELECT id, kind, text_digest, text_length, ai_probability, is_ai_generated, threshold, models, failed_models, duration_ms, timestamp
	FROM detections
	WHERE 1=1
	`
	args := make([]any, 0, 2)
	if digest != "" {
		query += " AND text_digest = ?"
		args = append(args, digest)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, normalizeLimit(limit))

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	var records []DetectionRecord
	for rows.Next() {
		var r DetectionRecord
		var models, timestamp string
		if err := rows.Scan(
			&r.ID,
			&r.Kind,
			&r.TextDigest,
			&r.TextLength,
			&r.AIProbability,
			&r.IsAIGenerated,
			&r.Threshold,
			&models,
			&r.FailedModels,
			&r.DurationMS,
			&timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		r.Models = splitModels(models)
		r.Timestamp = parseTimestamp(timestamp)
		records = append(records, r)
	}
	return records, rows.Err()
}

// StepRecord is a stored pipeline step without its texts.
type StepRecord struct {
	StepIndex    int    `json:"step"`
	ModelID      string `json:"model"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	TimedOut     bool   `json:"timed_out,omitempty"`
	OutputLength int    `json:"output_length"`
	DurationMS   int64  `json:"duration_ms"`
}

// RunRecord is a stored pipeline run.
type RunRecord struct {
	ID              string       `json:"id"`
	State           string       `json:"state"`
	InputDigest     string       `json:"input_digest"`
	OutputDigest    string       `json:"output_digest"`
	Models          []string     `json:"models"`
	SuccessfulSteps int          `json:"successful_steps"`
	FailedSteps     int          `json:"failed_steps"`
	Steps           []StepRecord `json:"steps"`
	StartedAt       time.Time    `json:"started_at"`
	Timestamp       time.Time    `json:"timestamp"`
}

// SaveRun records a terminal pipeline run. Saving the same run twice
// replaces the first record.
func (h *HistoryDB) SaveRun(ctx context.Context, run *model.PipelineRun) error {
	steps := make([]StepRecord, 0, len(run.Steps))
	for _, s := range run.Steps {
		steps = append(steps, StepRecord{
			StepIndex:    s.StepIndex,
			ModelID:      s.ModelID,
			Status:       string(s.Status),
			Error:        s.Error,
			TimedOut:     s.TimedOut,
			OutputLength: len([]rune(s.OutputText)),
			DurationMS:   s.Duration.Std().Milliseconds(),
		})
	}
	stepsJSON, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("failed to serialize steps: %w", err)
	}

	query := `
	INSERT INTO pipeline_runs (id, state, input_digest, output_digest, models, successful_steps, failed_steps, steps_json, started_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		state = excluded.state,
		output_digest = excluded.output_digest,
		successful_steps = excluded.successful_steps,
		failed_steps = excluded.failed_steps,
		steps_json = excluded.steps_json,
		timestamp = CURRENT_TIMESTAMP
	`
	_, err = h.db.ExecContext(ctx, query,
		run.ID,
		string(run.State),
		Digest(run.OriginalText),
		Digest(run.FinalText),
		strings.Join(run.Models(), ","),
		run.Statistics.SuccessfulSteps,
		run.Statistics.FailedSteps,
		string(stepsJSON),
		run.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save pipeline run: %w", err)
	}
	return nil
}

const runColumns = `id, state, input_digest, output_digest, models, successful_steps, failed_steps, steps_json, started_at, timestamp`

// GetRun returns the run with the given id, or ErrNotFound.
func (h *HistoryDB) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	row := h.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM pipeline_runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListRuns returns the most recent runs first.
func (h *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM pipeline_runs ORDER BY rowid DESC LIMIT ?`,
		normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query pipeline runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*RunRecord, error) {
	var r RunRecord
	var models, stepsJSON, startedAt, timestamp string
	if err := s.Scan(
		&r.ID,
		&r.State,
		&r.InputDigest,
		&r.OutputDigest,
		&models,
		&r.SuccessfulSteps,
		&r.FailedSteps,
		&stepsJSON,
		&startedAt,
		&timestamp,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan pipeline run: %w", err)
	}
	if err := json.Unmarshal([]byte(stepsJSON), &r.Steps); err != nil {
		return nil, fmt.Errorf("failed to parse steps of run %s: %w", r.ID, err)
	}
	r.Models = splitModels(models)
	r.StartedAt = parseTimestamp(startedAt)
	r.Timestamp = parseTimestamp(timestamp)
	return &r, nil
}

func splitModels(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}

// timestampFormats are the layouts SQLite and SaveRun produce.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp returns the zero time when no layout matches.
func parseTimestamp(s string) time.Time {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
