package recordstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"esic-scraper/lib/esic/records"
	"esic-scraper/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("esic.lib.recordstore")

var ErrNotFound = errors.New("record not found")

// Store keeps the latest version of every record, keyed by its kind and
// primary id attribute.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	return Store{db: db}
}

type PushResult struct {
	Stored int
	// Skipped counts records without a primary id.
	Skipped int
}

// Push stores every record of seq in a single transaction, a record that
// already exists is replaced. An error from seq aborts the whole push.
func (s Store) Push(ctx context.Context, source string, seq iter.Seq2[records.RawRecord, error]) (PushResult, error) {
	ctx, span := tracer.Start(ctx, "Push")
	defer span.End()
	span.SetAttributes(attribute.String("source", source))

	fail := func(err error, description string) (PushResult, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, description)
		return PushResult{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		insert into record (kind, id, source, attributes, updated_at)
		values (?, ?, ?, ?, ?)
		on conflict (kind, id) do update set
			source = excluded.source,
			attributes = excluded.attributes,
			updated_at = excluded.updated_at`,
	)
	if err != nil {
		return fail(err, "failed to prepare insert")
	}
	defer stmt.Close()

	now := time.Now().Unix()
	result := PushResult{}
	for record, err := range seq {
		if err != nil {
			return fail(err, "failed to read records")
		}

		id := record.Id()
		if id == "" {
			result.Skipped++
			continue
		}

		attributes, err := json.Marshal(record.Attributes())
		if err != nil {
			return fail(err, "failed to serialize record")
		}
		_, err = stmt.ExecContext(ctx, record.Kind().Tag(), id, source, string(attributes), now)
		if err != nil {
			return fail(fmt.Errorf("store %s %s: %w", record.Kind(), id, err), "failed to store record")
		}
		result.Stored++
	}

	err = tx.Commit()
	if err != nil {
		return fail(err, "failed to commit")
	}

	span.SetAttributes(
		attribute.Int("stored", result.Stored),
		attribute.Int("skipped", result.Skipped),
	)
	if result.Skipped > 0 {
		slog.WarnContext(ctx, "skipped records without id", "source", source, "count", result.Skipped)
	}
	return result, nil
}

func (s Store) Count(ctx context.Context, kind records.Kind) (int, error) {
	row := s.db.QueryRowContext(ctx, "select count(*) from record where kind = ?", kind.Tag())
	var count int
	err := row.Scan(&count)
	return count, err
}

// Get returns the stored record, ErrNotFound when there is none.
func (s Store) Get(ctx context.Context, kind records.Kind, id string) (records.RawRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		"select attributes from record where kind = ? and id = ?",
		kind.Tag(), id,
	)
	var serialized string
	err := row.Scan(&serialized)
	if errors.Is(err, sql.ErrNoRows) {
		return records.RawRecord{}, ErrNotFound
	}
	if err != nil {
		return records.RawRecord{}, err
	}

	var attributes map[string]string
	err = json.Unmarshal([]byte(serialized), &attributes)
	if err != nil {
		return records.RawRecord{}, err
	}
	return records.NewRawRecord(kind, attributes), nil
}
