package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/JoshPattman/cvwizard/datamodels"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS cv_uploads (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	file_name TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	size INTEGER NOT NULL,
	text TEXT NOT NULL,
	raw_doc TEXT NOT NULL,
	uploaded_at TIMESTAMP NOT NULL
)`

const postgresSchema = `CREATE TABLE IF NOT EXISTS cv_uploads (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	file_name TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	size BIGINT NOT NULL,
	text TEXT NOT NULL,
	raw_doc TEXT NOT NULL,
	uploaded_at TIMESTAMPTZ NOT NULL
)`

type sqliteCVManager struct {
	db *sql.DB
}

// NewSQLiteCVManager opens (creating if needed) a sqlite database at path.
func NewSQLiteCVManager(path string) (*sqliteCVManager, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &sqliteCVManager{db: db}, nil
}

func (cvm *sqliteCVManager) ListCVIDs() ([]string, error) {
	rows, err := cvm.db.Query(`SELECT id FROM cv_uploads ORDER BY uploaded_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (cvm *sqliteCVManager) GetCV(id string) (datamodels.CV, error) {
	var cv datamodels.CV
	err := cvm.db.QueryRow(
		`SELECT id, session_id, file_name, mime_type, size, text, raw_doc, uploaded_at FROM cv_uploads WHERE id = ?`,
		id,
	).Scan(&cv.UUID, &cv.SessionID, &cv.FileName, &cv.MimeType, &cv.Size, &cv.Text, &cv.RawDoc, &cv.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return datamodels.CV{}, ErrCVNotFound
	}
	return cv, err
}

func (cvm *sqliteCVManager) StoreCV(cv datamodels.CV) error {
	_, err := cvm.db.Exec(
		`INSERT INTO cv_uploads (id, session_id, file_name, mime_type, size, text, raw_doc, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET session_id = excluded.session_id, file_name = excluded.file_name,
		mime_type = excluded.mime_type, size = excluded.size, text = excluded.text, raw_doc = excluded.raw_doc,
		uploaded_at = excluded.uploaded_at`,
		cv.UUID, cv.SessionID, cv.FileName, cv.MimeType, cv.Size, cv.Text, cv.RawDoc, cv.UploadedAt.UTC(),
	)
	return err
}

func (cvm *sqliteCVManager) DeleteCV(id string) error {
	res, err := cvm.db.Exec(`DELETE FROM cv_uploads WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCVNotFound
	}
	return nil
}

func (cvm *sqliteCVManager) ListCVs() ([]datamodels.CV, error) {
	return listCVs(cvm)
}

func (cvm *sqliteCVManager) Close() error {
	return cvm.db.Close()
}

type postgresCVManager struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPostgresCVManager connects to postgres using dsn and ensures the uploads table exists.
func NewPostgresCVManager(ctx context.Context, dsn string) (*postgresCVManager, error) {
	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init postgres schema: %w", err)
	}
	return &postgresCVManager{pool: pool, timeout: 10 * time.Second}, nil
}

func (cvm *postgresCVManager) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), cvm.timeout)
}

func (cvm *postgresCVManager) ListCVIDs() ([]string, error) {
	ctx, cancel := cvm.ctx()
	defer cancel()
	rows, err := cvm.pool.Query(ctx, `SELECT id FROM cv_uploads ORDER BY uploaded_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (cvm *postgresCVManager) GetCV(id string) (datamodels.CV, error) {
	ctx, cancel := cvm.ctx()
	defer cancel()
	var cv datamodels.CV
	err := cvm.pool.QueryRow(ctx,
		`SELECT id, session_id, file_name, mime_type, size, text, raw_doc, uploaded_at FROM cv_uploads WHERE id = $1`,
		id,
	).Scan(&cv.UUID, &cv.SessionID, &cv.FileName, &cv.MimeType, &cv.Size, &cv.Text, &cv.RawDoc, &cv.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return datamodels.CV{}, ErrCVNotFound
	}
	return cv, err
}

func (cvm *postgresCVManager) StoreCV(cv datamodels.CV) error {
	ctx, cancel := cvm.ctx()
	defer cancel()
	_, err := cvm.pool.Exec(ctx,
		`INSERT INTO cv_uploads (id, session_id, file_name, mime_type, size, text, raw_doc, uploaded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET session_id = EXCLUDED.session_id, file_name = EXCLUDED.file_name,
		mime_type = EXCLUDED.mime_type, size = EXCLUDED.size, text = EXCLUDED.text, raw_doc = EXCLUDED.raw_doc,
		uploaded_at = EXCLUDED.uploaded_at`,
		cv.UUID, cv.SessionID, cv.FileName, cv.MimeType, cv.Size, cv.Text, cv.RawDoc, cv.UploadedAt,
	)
	return err
}

func (cvm *postgresCVManager) DeleteCV(id string) error {
	ctx, cancel := cvm.ctx()
	defer cancel()
	tag, err := cvm.pool.Exec(ctx, `DELETE FROM cv_uploads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCVNotFound
	}
	return nil
}

func (cvm *postgresCVManager) ListCVs() ([]datamodels.CV, error) {
	return listCVs(cvm)
}

func (cvm *postgresCVManager) Close() error {
	cvm.pool.Close()
	return nil
}
