package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cryptids/internal/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS classifications (
	id            INTEGER PRIMARY KEY,
	name          TEXT NOT NULL UNIQUE,
	description   TEXT NOT NULL DEFAULT '',
	category_type TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS cryptids (
	id                INTEGER PRIMARY KEY,
	name              TEXT NOT NULL,
	aliases           TEXT NOT NULL DEFAULT '[]',
	classification_id INTEGER NOT NULL REFERENCES classifications(id),
	status            TEXT NOT NULL DEFAULT '',
	threat_level      TEXT NOT NULL DEFAULT '',
	short_description TEXT NOT NULL DEFAULT '',
	description       TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS images (
	id         INTEGER PRIMARY KEY,
	cryptid_id INTEGER NOT NULL REFERENCES cryptids(id),
	url        TEXT NOT NULL,
	alt_text   TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT '',
	license    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_images_cryptid_id ON images(cryptid_id);
`

const sqliteCryptidColumns = cryptidColumns + cryptidFrom

// SQLiteStorage serves the catalog from a SQLite database. The schema is
// created on open.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(config Config) (*SQLiteStorage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for SQLite storage")
	}

	db, err := sql.Open("sqlite", config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to an in-memory database sees its own empty database.
	if strings.Contains(config.ConnectionString, ":memory:") {
		db.SetMaxOpenConns(1)
	} else if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	if config.Seed {
		if err := s.seed(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *SQLiteStorage) seed(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cryptids`).Scan(&n); err != nil {
		return fmt.Errorf("failed to count cryptids: %w", err)
	}
	if n > 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	classifications, cryptids, images := seedCatalog()
	for _, c := range classifications {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO classifications (id, name, description, category_type) VALUES (?, ?, ?, ?)`,
			c.ID, c.Name, c.Description, c.CategoryType); err != nil {
			return fmt.Errorf("failed to seed classification %d: %w", c.ID, err)
		}
	}
	for _, c := range cryptids {
		aliases, err := marshalAliases(c.Aliases)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cryptids (id, name, aliases, classification_id, status, threat_level, short_description, description)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Name, aliases, c.ClassificationID, c.Status, c.ThreatLevel, c.ShortDescription, c.Description); err != nil {
			return fmt.Errorf("failed to seed cryptid %d: %w", c.ID, err)
		}
	}
	for _, img := range images {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO images (id, cryptid_id, url, alt_text, source, license) VALUES (?, ?, ?, ?, ?, ?)`,
			img.ID, img.CryptidID, img.URL, img.AltText, img.Source, img.License); err != nil {
			return fmt.Errorf("failed to seed image %d: %w", img.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ListCryptids(ctx context.Context, q Query) ([]*models.Cryptid, int, error) {
	return s.queryCryptids(ctx, "", q)
}

func (s *SQLiteStorage) SearchCryptids(ctx context.Context, text string, q Query) ([]*models.Cryptid, int, error) {
	return s.queryCryptids(ctx, text, q)
}

func (s *SQLiteStorage) queryCryptids(ctx context.Context, text string, q Query) ([]*models.Cryptid, int, error) {
	args := &sqlArgs{}
	conds := filterConditions(q.Filter, args)
	if strings.TrimSpace(text) != "" {
		pattern := likePattern(text)
		conds = append(conds, fmt.Sprintf(`(c.name LIKE %s ESCAPE '\' OR c.aliases LIKE %s ESCAPE '\' OR c.short_description LIKE %s ESCAPE '\')`,
			args.bind(pattern), args.bind(pattern), args.bind(pattern)))
	}
	where := whereClause(conds)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*)`+cryptidFrom+where, args.values...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count cryptids: %w", err)
	}

	limit, offset := args.bind(sqliteLimit(q.Page)), args.bind(q.Page.Offset())
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteCryptidColumns+where+orderClause(q)+` LIMIT `+limit+` OFFSET `+offset,
		args.values...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cryptids: %w", err)
	}
	cryptids, err := scanSQLiteCryptids(rows)
	return cryptids, total, err
}

func (s *SQLiteStorage) RelatedCryptids(ctx context.Context, id int64, limit int) ([]*models.Cryptid, error) {
	c, err := s.GetCryptid(ctx, id)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = RelatedLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteCryptidColumns+` WHERE c.classification_id = ? AND c.id <> ? ORDER BY c.id LIMIT ?`,
		c.ClassificationID, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list related cryptids: %w", err)
	}
	return scanSQLiteCryptids(rows)
}

func (s *SQLiteStorage) GetCryptid(ctx context.Context, id int64) (*models.Cryptid, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteCryptidColumns+` WHERE c.id = ?`, id)
	c, err := scanSQLiteCryptid(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cryptid %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cryptid: %w", err)
	}
	return c, nil
}

func (s *SQLiteStorage) ListImages(ctx context.Context, cryptidID int64, page Page) ([]*models.Image, int, error) {
	where, args := "", []any{}
	if cryptidID != 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM cryptids WHERE id = ?)`, cryptidID).Scan(&exists); err != nil {
			return nil, 0, fmt.Errorf("failed to check cryptid: %w", err)
		}
		if !exists {
			return nil, 0, fmt.Errorf("cryptid %d: %w", cryptidID, ErrNotFound)
		}
		where, args = ` WHERE cryptid_id = ?`, append(args, cryptidID)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count images: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, cryptid_id, url, alt_text, source, license FROM images`+where+` ORDER BY id LIMIT ? OFFSET ?`,
		append(args, sqliteLimit(page), page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	images := make([]*models.Image, 0)
	for rows.Next() {
		var img models.Image
		if err := rows.Scan(&img.ID, &img.CryptidID, &img.URL, &img.AltText, &img.Source, &img.License); err != nil {
			return nil, 0, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, &img)
	}
	return images, total, rows.Err()
}

func (s *SQLiteStorage) Classifications(ctx context.Context) ([]*models.Classification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, category_type FROM classifications ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list classifications: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Classification, 0)
	for rows.Next() {
		var c models.Classification
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CategoryType); err != nil {
			return nil, fmt.Errorf("failed to scan classification: %w", err)
		}
		result = append(result, &c)
	}
	return result, rows.Err()
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the storage connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteCryptid(row rowScanner) (*models.Cryptid, error) {
	var (
		c       models.Cryptid
		aliases string
	)
	if err := row.Scan(&c.ID, &c.Name, &aliases, &c.ClassificationID, &c.Classification,
		&c.Status, &c.ThreatLevel, &c.ShortDescription, &c.Description, &c.HasImages); err != nil {
		return nil, err
	}
	parsed, err := unmarshalAliases(aliases)
	if err != nil {
		return nil, err
	}
	c.Aliases = parsed
	return &c, nil
}

func scanSQLiteCryptids(rows *sql.Rows) ([]*models.Cryptid, error) {
	defer rows.Close()

	result := make([]*models.Cryptid, 0)
	for rows.Next() {
		c, err := scanSQLiteCryptid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cryptid: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// sqliteLimit maps a non-positive page limit to SQLite's "no limit".
func sqliteLimit(p Page) int {
	if p.Limit <= 0 {
		return -1
	}
	return p.Limit
}
