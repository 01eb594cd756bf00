package infra

import (
	"context"
	"fmt"
	"log"

	"github.com/ShimOne420/BackendAudioTranscriber/internal/models"
	"github.com/ShimOne420/BackendAudioTranscriber/internal/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const workerEndpointKey = "worker_endpoint"

type PostgresTranscriptionRepo struct {
	pool *pgxpool.Pool
}

func trim(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

func NewPostgresTranscriptionRepo(pool *pgxpool.Pool) ports.TranscriptionRepository {
	return &PostgresTranscriptionRepo{pool: pool}
}

// EnsureSchema creates the tables the relay needs. Safe to run on every
// startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transcriptions (
			filename   TEXT PRIMARY KEY,
			job_id     TEXT NOT NULL,
			language   TEXT NOT NULL DEFAULT 'auto',
			text       TEXT NOT NULL DEFAULT '',
			progress   INT  NOT NULL DEFAULT 0,
			status     TEXT NOT NULL DEFAULT 'pending',
			error      TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS relay_settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *PostgresTranscriptionRepo) CreatePending(ctx context.Context, filename, jobID, language string) error {
	query := `
		INSERT INTO transcriptions (filename, job_id, language, text, progress, status, error)
		VALUES ($1, $2, $3, '', 0, 'pending', '')
		ON CONFLICT (filename) DO UPDATE SET
			job_id = $2,
			language = $3,
			text = '',
			progress = 0,
			status = 'pending',
			error = '',
			updated_at = now()
	`
	if _, err := r.pool.Exec(ctx, query, filename, jobID, language); err != nil {
		return fmt.Errorf("create pending: %w", err)
	}
	return nil
}

func (r *PostgresTranscriptionRepo) SetInProgress(ctx context.Context, filename string) error {
	query := `
		UPDATE transcriptions
		SET status = 'in_progress', updated_at = now()
		WHERE filename = $1
	`
	_, err := r.pool.Exec(ctx, query, filename)
	return err
}

func (r *PostgresTranscriptionRepo) SetProgress(ctx context.Context, filename string, progress int) error {
	// Progress only moves forward within a job.
	query := `
		UPDATE transcriptions
		SET progress = GREATEST(progress, $1), updated_at = now()
		WHERE filename = $2
	`
	_, err := r.pool.Exec(ctx, query, progress, filename)
	return err
}

func (r *PostgresTranscriptionRepo) Complete(ctx context.Context, filename, text string) error {
	query := `
		UPDATE transcriptions
		SET text = $1, progress = 100, status = 'complete', error = '', updated_at = now()
		WHERE filename = $2
	`
	if _, err := r.pool.Exec(ctx, query, text, filename); err != nil {
		return fmt.Errorf("complete: %w", err)
	}

	log.Printf("[DB][COMPLETE] file=%s text=%q", filename, trim(text, 180))
	return nil
}

func (r *PostgresTranscriptionRepo) Fail(ctx context.Context, filename, reason string) error {
	query := `
		UPDATE transcriptions
		SET status = 'failed', error = $1, updated_at = now()
		WHERE filename = $2
	`
	if _, err := r.pool.Exec(ctx, query, reason, filename); err != nil {
		return fmt.Errorf("fail: %w", err)
	}
	return nil
}

func (r *PostgresTranscriptionRepo) Get(ctx context.Context, filename string) (*models.TranscriptionRecord, error) {
	query := `
		SELECT filename, job_id, language, text, progress, status, error, created_at, updated_at
		FROM transcriptions
		WHERE filename = $1
	`

	var rec models.TranscriptionRecord

	err := r.pool.QueryRow(ctx, query, filename).Scan(
		&rec.Filename,
		&rec.JobID,
		&rec.Language,
		&rec.Text,
		&rec.Progress,
		&rec.Status,
		&rec.Error,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("get transcription: %w", err)
	}

	return &rec, nil
}

func (r *PostgresTranscriptionRepo) WorkerEndpoint(ctx context.Context) (string, error) {
	var url string

	err := r.pool.QueryRow(ctx,
		`SELECT value FROM relay_settings WHERE key = $1`,
		workerEndpointKey,
	).Scan(&url)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("get worker endpoint: %w", err)
	}

	return url, nil
}

func (r *PostgresTranscriptionRepo) SetWorkerEndpoint(ctx context.Context, url string) error {
	query := `
		INSERT INTO relay_settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = $2
	`
	if _, err := r.pool.Exec(ctx, query, workerEndpointKey, url); err != nil {
		return fmt.Errorf("set worker endpoint: %w", err)
	}

	log.Printf("[DB][ENDPOINT] url=%s", url)
	return nil
}
