// Package postgresdb provides a PostgreSQL-based implementation of the storage
// port. The document lives in a single row of the biolink_document table; the
// schema is applied with goose from migrations embedded in the binary.
package postgresdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/patric-chuzhbe/biolink/internal/models"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const migrationsDir = "migrations"

// PostgresDB is a PostgreSQL-backed document storage.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset drops the schema before migrating. Meant for tests.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New opens the connection, applies the migrations and returns the storage.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := openDatabase(databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if err := result.migrate(ctx, options.DBPreReset); err != nil {
		return nil, errors.Join(err, database.Close())
	}

	return result, nil
}

var openDatabase = func(databaseDSN string) (*sql.DB, error) {
	return sql.Open("pgx", databaseDSN)
}

func (db *PostgresDB) migrate(ctx context.Context, preReset bool) error {
	if preReset {
		if err := db.resetDB(ctx); err != nil {
			return err
		}
	}

	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w", err)
	}

	if err := goose.UpContext(ctx, db.database, migrationsDir); err != nil {
		return fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `goose.Up()` calling: %w", err)
	}

	return nil
}

// GetDocument reads the document row, inserting the default one when the table is empty.
func (db *PostgresDB) GetDocument(ctx context.Context) (*models.Document, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	body, err := db.selectBody(ctxWithTimeout)
	if errors.Is(err, sql.ErrNoRows) {
		body, err = db.insertDefault(ctxWithTimeout)
	}
	if err != nil {
		return nil, models.NewStorageError("read", err)
	}

	doc, err := models.DecodeDocument(body)
	if err != nil {
		return nil, models.NewStorageError("decode", err)
	}

	return doc, nil
}

// SaveDocument upserts the document row.
func (db *PostgresDB) SaveDocument(ctx context.Context, doc *models.Document) error {
	body, err := models.EncodeDocument(doc)
	if err != nil {
		return models.NewStorageError("encode", err)
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	_, err = db.database.ExecContext(
		ctxWithTimeout,
		`
			INSERT INTO biolink_document (id, body, updated_at)
				VALUES (1, $1, now())
				ON CONFLICT (id) DO UPDATE
				SET
					body = EXCLUDED.body,
					updated_at = EXCLUDED.updated_at
		`,
		string(body),
	)

	return models.NewStorageError("write", err)
}

func (db *PostgresDB) selectBody(ctx context.Context) ([]byte, error) {
	var body []byte
	err := db.database.QueryRowContext(
		ctx,
		`SELECT body FROM biolink_document WHERE id = 1`,
	).Scan(&body)
	if err != nil {
		return nil, err
	}

	return body, nil
}

// insertDefault stores the default document unless a concurrent writer got
// there first, then returns whatever the row holds.
func (db *PostgresDB) insertDefault(ctx context.Context) ([]byte, error) {
	body, err := models.EncodeDocument(models.DefaultDocument())
	if err != nil {
		return nil, err
	}

	_, err = db.database.ExecContext(
		ctx,
		`INSERT INTO biolink_document (id, body) VALUES (1, $1) ON CONFLICT (id) DO NOTHING`,
		string(body),
	)
	if err != nil {
		return nil, err
	}

	return db.selectBody(ctx)
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return models.NewStorageError("ping", db.database.PingContext(ctxWithTimeout))
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DROP TABLE IF EXISTS biolink_document;
			DROP TABLE IF EXISTS goose_db_version;
		`,
	)
	if err != nil {
		return fmt.Errorf("in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w", err)
	}

	return nil
}
