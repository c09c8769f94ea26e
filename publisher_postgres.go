package streamforwarder

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
)

// database connection abstractions
// ---

type sqlDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type postgresContextKey string

const postgresContextKeyForTx postgresContextKey = postgresContextKey("tx")

// WithTx makes Postgres publishes issued with the returned context part of the caller's transaction.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return withExecutor(ctx, tx)
}

func withExecutor(ctx context.Context, db sqlDB) context.Context {
	return context.WithValue(ctx, postgresContextKeyForTx, db)
}

// PostgresPublisher appends messages to a queue table, one row per postgres://<queue> endpoint and record.
// Redelivered records are ignored thanks to the (queue, record_id) uniqueness.
type PostgresPublisher struct {
	db             sqlDB
	schema         string
	skipMigrations bool
}

type postgresPublisherOption func(p *PostgresPublisher) error

func PostgresPublisherWithSchema(schema string) postgresPublisherOption {
	return func(p *PostgresPublisher) error {
		p.schema = schema
		return nil
	}
}

func PostgresPublisherWithoutMigrations() postgresPublisherOption {
	return func(p *PostgresPublisher) error {
		p.skipMigrations = true
		return nil
	}
}

func NewPostgresPublisher(db *sql.DB, options ...postgresPublisherOption) (*PostgresPublisher, error) {
	publisher := &PostgresPublisher{
		db:             db,
		schema:         "streamforwarder",
		skipMigrations: false,
	}
	for _, apply := range options {
		if err := apply(publisher); err != nil {
			return nil, err
		}
	}
	// make sure the migrations are run
	if !publisher.skipMigrations {
		if err := migrate(db, publisher.schema); err != nil {
			return nil, err
		}
	}
	return publisher, nil
}

func (p *PostgresPublisher) setDB(db sqlDB) {
	p.db = db
}

func (p *PostgresPublisher) Supports(endpoint string) bool {
	_, _, err := endpointTarget(endpoint)
	return err == nil
}

func (p *PostgresPublisher) Publish(ctx context.Context, endpoint string, msg *Message) error {
	queue, _, err := endpointTarget(endpoint)
	if err != nil {
		return err
	}
	recordID := msg.RecordID
	if recordID == "" {
		recordID = uuid.NewString()
	}
	insertQuery := withSchema(
		`
		INSERT INTO :SCHEMA.messages (queue, record_id, event_name, payload, published_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (queue, record_id) DO NOTHING
		`,
		p.schema,
	)
	db := p.db
	if tx, ok := ctx.Value(postgresContextKeyForTx).(sqlDB); ok {
		db = tx
	}
	_, err = db.ExecContext(ctx, insertQuery,
		queue,
		recordID,
		string(msg.EventName),
		msg.Body,
		time.Now().UTC(),
	)
	return err
}

func withSchema(query string, schema string) string {
	return strings.ReplaceAll(query, ":SCHEMA", schema)
}
