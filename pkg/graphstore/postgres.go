package graphstore

import (
	"context"
	"embed"
	stdsql "database/sql"
	"encoding/json"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver used for migrations
)

//go:embed migrations
var migrationsFS embed.FS

// PostgresStore is the Store implementation backed by the nodes/edges
// property-graph schema in migrations/.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Config holds Postgres connection settings.
type Config struct {
	DSN          string
	MaxConns     int32
	RunMigrations bool
}

// Open connects to Postgres, optionally applies pending migrations, and
// returns a ready-to-use PostgresStore.
func Open(ctx context.Context, cfg Config) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("graphstore: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("graphstore: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("graphstore: ping: %w", err)
	}

	if cfg.RunMigrations {
		if err := runMigrations(cfg.DSN); err != nil {
			pool.Close()
			return nil, fmt.Errorf("graphstore: migrate: %w", err)
		}
	}

	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() { s.pool.Close() }

func runMigrations(dsn string) error {
	db, err := stdsql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	if _, err := fs.Stat(migrationsFS, "migrations"); err != nil {
		return fmt.Errorf("embedded migrations missing: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create postgres driver: %w", err)
	}
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	defer sourceDriver.Close()

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// CreateNode inserts a node with labels and properties and returns its ID.
func (s *PostgresStore) CreateNode(ctx context.Context, labels []string, properties map[string]any) (string, error) {
	propsJSON, err := json.Marshal(properties)
	if err != nil {
		return "", fmt.Errorf("graphstore: marshal properties: %w", err)
	}

	var id string
	err = s.pool.QueryRow(ctx,
		`INSERT INTO nodes (labels, properties) VALUES ($1, $2) RETURNING id`,
		labels, propsJSON,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("graphstore: create node: %w", err)
	}
	return id, nil
}

// CreateRelationship inserts an edge between two existing nodes.
func (s *PostgresStore) CreateRelationship(ctx context.Context, startID, endID, relType string, properties map[string]any) error {
	propsJSON, err := json.Marshal(properties)
	if err != nil {
		return fmt.Errorf("graphstore: marshal properties: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO edges (start_id, end_id, rel_type, properties) VALUES ($1, $2, $3, $4)`,
		startID, endID, relType, propsJSON,
	)
	if err != nil {
		return fmt.Errorf("graphstore: create relationship: %w", err)
	}
	return nil
}

// RunQuery executes an arbitrary parameterized SQL query against the
// nodes/edges schema and returns each row as a column-name-keyed map.
func (s *PostgresStore) RunQuery(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("graphstore: query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var results []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("graphstore: scan row: %w", err)
		}
		row := make(map[string]any, len(fields))
		for i, f := range fields {
			row[string(f.Name)] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// LoadFileContent fetches the CodeContent text and language linked to
// fileID through a HAS_CONTENT edge.
func (s *PostgresStore) LoadFileContent(ctx context.Context, fileID string) (content, path, language string, found bool, err error) {
	row := s.pool.QueryRow(ctx, `
		SELECT c.properties->>'content', f.properties->>'path', f.properties->>'language'
		FROM nodes f
		JOIN edges e ON e.start_id = f.id AND e.rel_type = $2
		JOIN nodes c ON c.id = e.end_id
		WHERE f.id = $1
		LIMIT 1`, fileID, RelHasContent)

	var contentVal, pathVal, langVal stdsql.NullString
	if scanErr := row.Scan(&contentVal, &pathVal, &langVal); scanErr != nil {
		return "", "", "", false, nil
	}
	return contentVal.String, pathVal.String, langVal.String, true, nil
}

// FilesForRepository returns the IDs of every File node linked to repoID
// through a HAS_FILE edge.
func (s *PostgresStore) FilesForRepository(ctx context.Context, repoID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.end_id
		FROM edges e
		WHERE e.start_id = $1 AND e.rel_type = $2`, repoID, RelHasFile)
	if err != nil {
		return nil, fmt.Errorf("graphstore: list files: %w", err)
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
