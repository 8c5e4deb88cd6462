package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cryptids/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS classifications (
	id            BIGINT PRIMARY KEY,
	name          TEXT NOT NULL UNIQUE,
	description   TEXT NOT NULL DEFAULT '',
	category_type TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS cryptids (
	id                BIGINT PRIMARY KEY,
	name              TEXT NOT NULL,
	aliases           TEXT[] NOT NULL DEFAULT '{}',
	classification_id BIGINT NOT NULL REFERENCES classifications(id),
	status            TEXT NOT NULL DEFAULT '',
	threat_level      TEXT NOT NULL DEFAULT '',
	short_description TEXT NOT NULL DEFAULT '',
	description       TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS images (
	id         BIGINT PRIMARY KEY,
	cryptid_id BIGINT NOT NULL REFERENCES cryptids(id),
	url        TEXT NOT NULL,
	alt_text   TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT '',
	license    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_images_cryptid_id ON images(cryptid_id);
`

const postgresCryptidColumns = cryptidColumns + cryptidFrom

// PostgresStorage serves the catalog from PostgreSQL through a pgx pool.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a new PostgreSQL storage instance.
func NewPostgresStorage(config Config) (*PostgresStorage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for PostgreSQL storage")
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if config.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		poolConfig.MinIdleConns = int32(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = config.ConnMaxLifetime
	}

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	ps := &PostgresStorage{pool: pool}
	if config.Seed {
		if err := ps.seed(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return ps, nil
}

func (ps *PostgresStorage) seed(ctx context.Context) error {
	var n int
	if err := ps.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cryptids`).Scan(&n); err != nil {
		return fmt.Errorf("failed to count cryptids: %w", err)
	}
	if n > 0 {
		return nil
	}

	classifications, cryptids, images := seedCatalog()

	batch := &pgx.Batch{}
	for _, c := range classifications {
		batch.Queue(`INSERT INTO classifications (id, name, description, category_type) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO NOTHING`,
			c.ID, c.Name, c.Description, c.CategoryType)
	}
	for _, c := range cryptids {
		batch.Queue(`INSERT INTO cryptids (id, name, aliases, classification_id, status, threat_level, short_description, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (id) DO NOTHING`,
			c.ID, c.Name, c.Aliases, c.ClassificationID, c.Status, c.ThreatLevel, c.ShortDescription, c.Description)
	}
	for _, img := range images {
		batch.Queue(`INSERT INTO images (id, cryptid_id, url, alt_text, source, license) VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING`,
			img.ID, img.CryptidID, img.URL, img.AltText, img.Source, img.License)
	}

	return pgx.BeginFunc(ctx, ps.pool, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to seed catalog: %w", err)
		}
		return nil
	})
}

// ListCryptids returns a filtered, ordered page of cryptids.
func (ps *PostgresStorage) ListCryptids(ctx context.Context, q Query) ([]*models.Cryptid, int, error) {
	return ps.queryCryptids(ctx, "", q)
}

// SearchCryptids matches names, aliases and short descriptions with ILIKE.
func (ps *PostgresStorage) SearchCryptids(ctx context.Context, text string, q Query) ([]*models.Cryptid, int, error) {
	return ps.queryCryptids(ctx, text, q)
}

func (ps *PostgresStorage) queryCryptids(ctx context.Context, text string, q Query) ([]*models.Cryptid, int, error) {
	args := &sqlArgs{numbered: true}
	conds := filterConditions(q.Filter, args)
	if strings.TrimSpace(text) != "" {
		p := args.bind(likePattern(text))
		conds = append(conds, fmt.Sprintf(`(c.name ILIKE %[1]s OR array_to_string(c.aliases, ' ') ILIKE %[1]s OR c.short_description ILIKE %[1]s)`, p))
	}
	where := whereClause(conds)

	var total int
	if err := ps.pool.QueryRow(ctx, `SELECT COUNT(*)`+cryptidFrom+where, args.values...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count cryptids: %w", err)
	}

	limit, offset := args.bind(postgresLimit(q.Page)), args.bind(q.Page.Offset())
	rows, err := ps.pool.Query(ctx,
		`SELECT `+postgresCryptidColumns+where+orderClause(q)+` LIMIT `+limit+` OFFSET `+offset,
		args.values...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cryptids: %w", err)
	}
	cryptids, err := scanPostgresCryptids(rows)
	return cryptids, total, err
}

// RelatedCryptids returns cryptids sharing a classification with id.
func (ps *PostgresStorage) RelatedCryptids(ctx context.Context, id int64, limit int) ([]*models.Cryptid, error) {
	c, err := ps.GetCryptid(ctx, id)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = RelatedLimit
	}

	rows, err := ps.pool.Query(ctx,
		`SELECT `+postgresCryptidColumns+` WHERE c.classification_id = $1 AND c.id <> $2 ORDER BY c.id LIMIT $3`,
		c.ClassificationID, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list related cryptids: %w", err)
	}
	return scanPostgresCryptids(rows)
}

// GetCryptid retrieves a cryptid by its ID.
func (ps *PostgresStorage) GetCryptid(ctx context.Context, id int64) (*models.Cryptid, error) {
	row := ps.pool.QueryRow(ctx, `SELECT `+postgresCryptidColumns+` WHERE c.id = $1`, id)
	c, err := scanPostgresCryptid(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("cryptid %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cryptid: %w", err)
	}
	return c, nil
}

// ListImages returns images of one cryptid, or all images when cryptidID is 0.
func (ps *PostgresStorage) ListImages(ctx context.Context, cryptidID int64, page Page) ([]*models.Image, int, error) {
	if cryptidID != 0 {
		var exists bool
		if err := ps.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM cryptids WHERE id = $1)`, cryptidID).Scan(&exists); err != nil {
			return nil, 0, fmt.Errorf("failed to check cryptid: %w", err)
		}
		if !exists {
			return nil, 0, fmt.Errorf("cryptid %d: %w", cryptidID, ErrNotFound)
		}
	}

	// $1 = 0 selects every image.
	const filter = ` WHERE ($1::BIGINT = 0 OR cryptid_id = $1)`

	var total int
	if err := ps.pool.QueryRow(ctx, `SELECT COUNT(*) FROM images`+filter, cryptidID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count images: %w", err)
	}

	rows, err := ps.pool.Query(ctx,
		`SELECT id, cryptid_id, url, alt_text, source, license FROM images`+filter+` ORDER BY id LIMIT $2 OFFSET $3`,
		cryptidID, postgresLimit(page), page.Offset())
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

// Classifications returns all classifications ordered by name.
func (ps *PostgresStorage) Classifications(ctx context.Context) ([]*models.Classification, error) {
	rows, err := ps.pool.Query(ctx,
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

func (ps *PostgresStorage) Ping(ctx context.Context) error {
	return ps.pool.Ping(ctx)
}

// Close closes the connection pool.
func (ps *PostgresStorage) Close() error {
	ps.pool.Close()
	return nil
}

func scanPostgresCryptid(row rowScanner) (*models.Cryptid, error) {
	var c models.Cryptid
	if err := row.Scan(&c.ID, &c.Name, &c.Aliases, &c.ClassificationID, &c.Classification,
		&c.Status, &c.ThreatLevel, &c.ShortDescription, &c.Description, &c.HasImages); err != nil {
		return nil, err
	}
	if c.Aliases == nil {
		c.Aliases = []string{}
	}
	return &c, nil
}

func scanPostgresCryptids(rows pgx.Rows) ([]*models.Cryptid, error) {
	defer rows.Close()

	result := make([]*models.Cryptid, 0)
	for rows.Next() {
		c, err := scanPostgresCryptid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cryptid: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// postgresLimit maps a non-positive page limit to LIMIT NULL, which is no limit.
func postgresLimit(p Page) *int {
	if p.Limit <= 0 {
		return nil
	}
	return &p.Limit
}
