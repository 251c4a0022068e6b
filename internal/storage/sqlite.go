package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrRootRequired is returned when saving a project without a root path
	ErrRootRequired = errors.New("root path is required")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// withTx runs fn in a transaction, committing only if fn succeeds
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Project operations

func (s *SQLiteStorage) SaveProject(ctx context.Context, project *Project) error {
	if project.RootPath == "" {
		return ErrRootRequired
	}

	return s.withTx(ctx, func(q querier) error {
		now := time.Now()
		query := `
			INSERT INTO projects (root_path, auto_open, last_opened_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(root_path) DO UPDATE SET
				auto_open = excluded.auto_open,
				last_opened_at = excluded.last_opened_at,
				updated_at = excluded.updated_at
		`
		if _, err := q.ExecContext(ctx, query, project.RootPath, project.AutoOpen, now, now, now); err != nil {
			return fmt.Errorf("failed to save project: %w", err)
		}

		// LastInsertId is unreliable after an upsert that updated
		var id int64
		var createdAt time.Time
		err := q.QueryRowContext(ctx, "SELECT id, created_at FROM projects WHERE root_path = ?", project.RootPath).
			Scan(&id, &createdAt)
		if err != nil {
			return fmt.Errorf("failed to read saved project: %w", err)
		}

		if err := replaceExtraDirs(ctx, q, id, project.ExtraDirs); err != nil {
			return err
		}

		project.ID = id
		project.LastOpenedAt = now
		project.CreatedAt = createdAt
		project.UpdatedAt = now
		return nil
	})
}

func replaceExtraDirs(ctx context.Context, q querier, projectID int64, dirs []string) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM extra_dirs WHERE project_id = ?", projectID); err != nil {
		return fmt.Errorf("failed to clear extra directories: %w", err)
	}
	for i, dir := range dirs {
		_, err := q.ExecContext(ctx,
			"INSERT INTO extra_dirs (project_id, position, dir) VALUES (?, ?, ?)",
			projectID, i, dir)
		if err != nil {
			return fmt.Errorf("failed to store extra directory %s: %w", dir, err)
		}
	}
	return nil
}

func listExtraDirs(ctx context.Context, q querier, projectID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT dir FROM extra_dirs WHERE project_id = ? ORDER BY position", projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	dirs := []string{}
	for rows.Next() {
		var dir string
		if err := rows.Scan(&dir); err != nil {
			return nil, err
		}
		dirs = append(dirs, dir)
	}
	return dirs, rows.Err()
}

const projectColumns = `id, root_path, auto_open, last_opened_at, created_at, updated_at`

// rowScanner is implemented by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(row rowScanner) (*Project, error) {
	var project Project
	var lastOpenedAt sql.NullTime
	err := row.Scan(&project.ID, &project.RootPath, &project.AutoOpen,
		&lastOpenedAt, &project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastOpenedAt.Valid {
		project.LastOpenedAt = lastOpenedAt.Time
	}
	return &project, nil
}

func (s *SQLiteStorage) GetProject(ctx context.Context, rootPath string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE root_path = ?", rootPath)
	project, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	project.ExtraDirs, err = listExtraDirs(ctx, s.db, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list extra directories: %w", err)
	}
	return project, nil
}

func (s *SQLiteStorage) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY root_path")
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	var projects []*Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		projects = append(projects, project)
	}
	err = rows.Err()
	_ = rows.Close()
	if err != nil {
		return nil, err
	}

	// extra dirs are read after rows is closed; the pool holds one connection
	for _, project := range projects {
		project.ExtraDirs, err = listExtraDirs(ctx, s.db, project.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list extra directories: %w", err)
		}
	}
	return projects, nil
}

func (s *SQLiteStorage) SetAutoOpen(ctx context.Context, rootPath string, autoOpen bool) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE projects SET auto_open = ?, updated_at = ? WHERE root_path = ?",
		autoOpen, time.Now(), rootPath)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return requireAffected(result)
}

func (s *SQLiteStorage) DeleteProject(ctx context.Context, rootPath string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE root_path = ?", rootPath)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
