// Package mediastore runs picker configurations against the SQL media index.
//
// The files table uses MediaStore column names, so the WHERE and ORDER BY
// fragments a configuration renders execute unchanged. Every query is
// traced and recorded in the store metrics.
package mediastore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/solatis/pickerkt/internal/core/db"
	"github.com/solatis/pickerkt/internal/core/metrics"
	"github.com/solatis/pickerkt/internal/picker"
	"github.com/solatis/pickerkt/internal/query"
	"github.com/solatis/pickerkt/internal/types"
)

const table = "files"

var tracer = otel.Tracer("pickerkt/mediastore")

// projection is the column list of every content query.
var projection = []string{
	"_id", "_display_name", "mime_type", "_size",
	"date_added", "date_modified", "bucket_id", "bucket_display_name",
}

// row is a files record as scanned by sqlx. Dates are epoch seconds.
type row struct {
	ID           int64  `db:"_id"`
	Name         string `db:"_display_name"`
	MimeType     string `db:"mime_type"`
	Size         int64  `db:"_size"`
	DateAdded    int64  `db:"date_added"`
	DateModified int64  `db:"date_modified"`
	BucketID     int64  `db:"bucket_id"`
	BucketName   string `db:"bucket_display_name"`
}

func (r row) content() types.Content {
	return types.Content{
		ID:             r.ID,
		Name:           r.Name,
		MimeType:       types.MimeTypeOf(r.MimeType),
		Size:           types.ByteSize(r.Size),
		DateAdded:      time.Unix(r.DateAdded, 0).UTC(),
		DateModified:   time.Unix(r.DateModified, 0).UTC(),
		CollectionID:   strconv.FormatInt(r.BucketID, 10),
		CollectionName: r.BucketName,
	}
}

// Store reads and writes the media index.
type Store struct {
	db      *sqlx.DB
	queries *db.Queries
	builder sq.StatementBuilderType
	log     *zap.Logger

	// numbered is set when the driver uses $N placeholders.
	numbered bool
}

// New returns a store over conn. The schema must already be migrated.
func New(conn *sqlx.DB, log *zap.Logger) (*Store, error) {
	queries, err := db.LoadQueries(conn)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		db:       conn,
		queries:  queries,
		builder:  sq.StatementBuilder.PlaceholderFormat(db.Placeholder(conn)),
		log:      log.Named("mediastore"),
		numbered: db.Placeholder(conn) == sq.Dollar,
	}, nil
}

// selectContents builds the content query for cfg. A zero limit means no
// LIMIT clause.
func (s *Store) selectContents(cfg *picker.Configuration, offset, limit uint64) sq.SelectBuilder {
	q := s.builder.Select(projection...).From(table)
	if clause := cfg.Clause(); !clause.Empty() {
		q = q.Where(clause.Where, clause.BindArgs()...)
	}
	if orderBy := cfg.OrderByString(); orderBy != "" {
		q = q.OrderBy(orderBy)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}

// Query returns up to limit rows matching cfg starting at offset, in cfg's
// order. A zero limit with a zero offset returns every row.
func (s *Store) Query(ctx context.Context, cfg *picker.Configuration, offset, limit int) ([]types.Content, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("negative offset %d or limit %d", offset, limit)
	}
	if offset > 0 && limit == 0 {
		// SQLite rejects OFFSET without LIMIT.
		return nil, fmt.Errorf("offset %d requires a limit", offset)
	}
	if err := s.checkClause(cfg); err != nil {
		return nil, err
	}
	return s.run(ctx, "query", s.selectContents(cfg, uint64(offset), uint64(limit)))
}

// checkClause rejects predicates the placeholder format would corrupt.
func (s *Store) checkClause(cfg *picker.Configuration) error {
	if s.numbered && query.QuotedPlaceholder(cfg.PredicateString()) {
		return fmt.Errorf("%w: ? inside a quoted literal is not supported on %s", types.ErrUnsafeLiteral, s.db.DriverName())
	}
	return nil
}

func (s *Store) run(ctx context.Context, op string, q sq.SelectBuilder) ([]types.Content, error) {
	statement, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", op, err)
	}

	var rows []row
	err = s.observe(ctx, op, statement, func(ctx context.Context) (int, error) {
		if err := s.db.SelectContext(ctx, &rows, statement, args...); err != nil {
			return 0, err
		}
		return len(rows), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]types.Content, len(rows))
	for i, r := range rows {
		out[i] = r.content()
	}
	return out, nil
}

// Get returns the content with id if cfg admits it.
func (s *Store) Get(ctx context.Context, cfg *picker.Configuration, id int64) (types.Content, error) {
	narrowed, err := cfg.ForContent(id)
	if err != nil {
		return types.Content{}, err
	}
	if err := s.checkClause(narrowed); err != nil {
		return types.Content{}, err
	}
	items, err := s.run(ctx, "get", s.selectContents(narrowed, 0, 1))
	if err != nil {
		return types.Content{}, err
	}
	if len(items) == 0 {
		return types.Content{}, fmt.Errorf("content %d: %w", id, types.ErrContentNotFound)
	}
	return items[0], nil
}

// Upsert inserts or updates the file at path and returns its id. The date
// added of an existing row is preserved.
func (s *Store) Upsert(ctx context.Context, path string, c types.Content) (int64, error) {
	bucketID, err := strconv.ParseInt(c.CollectionID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("collection id %q is not a bucket id: %w", c.CollectionID, err)
	}

	var id int64
	err = s.observe(ctx, "upsert", "upsert-content", func(ctx context.Context) (int, error) {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return 0, err
		}
		defer tx.Rollback()

		q := s.queries.WithTx(tx)
		if _, err := q.Exec(ctx, "upsert-content",
			path, c.Name, c.MimeType.ID(), int64(c.Size),
			c.DateAdded.Unix(), c.DateModified.Unix(), bucketID, c.CollectionName,
		); err != nil {
			return 0, err
		}
		if err := q.Get(ctx, "get-content-id-by-path", &id, path); err != nil {
			return 0, err
		}
		return 1, tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("upsert %s: %w", path, err)
	}
	return id, nil
}

// DeleteByPath removes the file at path and reports whether it existed.
func (s *Store) DeleteByPath(ctx context.Context, path string) (bool, error) {
	var affected int64
	err := s.observe(ctx, "delete", "delete-content-by-path", func(ctx context.Context) (int, error) {
		res, err := s.queries.Exec(ctx, "delete-content-by-path", path)
		if err != nil {
			return 0, err
		}
		affected, err = res.RowsAffected()
		return int(affected), err
	})
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", path, err)
	}
	return affected > 0, nil
}

// DeleteUnder removes every file below dir and returns how many were
// removed.
func (s *Store) DeleteUnder(ctx context.Context, dir string) (int64, error) {
	var affected int64
	err := s.observe(ctx, "delete_under", "delete-contents-under", func(ctx context.Context) (int, error) {
		res, err := s.queries.Exec(ctx, "delete-contents-under", likePrefix(dir))
		if err != nil {
			return 0, err
		}
		affected, err = res.RowsAffected()
		return int(affected), err
	})
	if err != nil {
		return 0, fmt.Errorf("delete under %s: %w", dir, err)
	}
	return affected, nil
}

// PathsUnder lists the indexed paths below dir in lexical order.
func (s *Store) PathsUnder(ctx context.Context, dir string) ([]string, error) {
	var paths []string
	err := s.observe(ctx, "paths_under", "list-paths-under", func(ctx context.Context) (int, error) {
		if err := s.queries.Select(ctx, "list-paths-under", &paths, likePrefix(dir)); err != nil {
			return 0, err
		}
		return len(paths), nil
	})
	if err != nil {
		return nil, fmt.Errorf("list paths under %s: %w", dir, err)
	}
	return paths, nil
}

// Count returns the number of indexed files.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.observe(ctx, "count", "count-contents", func(ctx context.Context) (int, error) {
		return 1, s.queries.Get(ctx, "count-contents", &n)
	})
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// likePrefix builds a LIKE pattern matching everything below dir, escaping
// wildcards with '!'.
func likePrefix(dir string) string {
	dir = strings.TrimRight(dir, "/")
	escaped := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(dir)
	return escaped + "/%"
}

// observe runs fn inside a span and records its latency, outcome and row
// count.
func (s *Store) observe(ctx context.Context, op, statement string, fn func(ctx context.Context) (int, error)) error {
	ctx, span := tracer.Start(ctx, "mediastore."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", s.db.DriverName()),
			attribute.String("db.statement", statement),
		))
	defer span.End()

	start := time.Now()
	n, err := fn(ctx)
	elapsed := time.Since(start)
	metrics.StoreQueryDuration.WithLabelValues(op).Observe(elapsed.Seconds())

	if err != nil {
		metrics.StoreQueryTotal.WithLabelValues(op, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Warn("query failed", zap.String("op", op), zap.Duration("elapsed", elapsed), zap.Error(err))
		return err
	}

	metrics.StoreQueryTotal.WithLabelValues(op, "ok").Inc()
	metrics.StoreRowsReturned.WithLabelValues(op).Observe(float64(n))
	span.SetAttributes(attribute.Int("db.rows", n))
	s.log.Debug("query", zap.String("op", op), zap.String("statement", statement),
		zap.Int("rows", n), zap.Duration("elapsed", elapsed))
	return nil
}
