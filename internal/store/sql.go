package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/rs/zerolog"
)

// SQLStore implements QuestionStore for SQLite and Postgres. Every query
// is built once with ent's dialect-aware builder.
type SQLStore struct {
	db      *sql.DB
	dialect string
	mode    DeliveryMode
	now     func() time.Time
	log     zerolog.Logger
}

var _ QuestionStore = (*SQLStore)(nil)

func newSQLStore(db *sql.DB, dialectName string) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: dialectName,
		mode:    PerDevice,
		now:     time.Now,
		log:     zerolog.Nop(),
	}
}

var recordColumns = []string{
	"id", "question_date", "zh", "reference_en", "difficulty", "tags",
	"hints", "review_note", "raw", "model", "prompt_hash", "created_at",
}

// Dialect returns the ent dialect name of the backend.
func (s *SQLStore) Dialect() string { return s.dialect }

// Mode returns the delivery mode.
func (s *SQLStore) Mode() DeliveryMode { return s.mode }

// DB returns the underlying *sql.DB.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Close closes the database connection.
func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

// SaveMany inserts records in one transaction. A record that collides with
// an existing one is counted as a duplicate instead of failing the batch.
func (s *SQLStore) SaveMany(ctx context.Context, records []QuestionRecord) (SaveSummary, error) {
	var sum SaveSummary
	if len(records) == 0 {
		return sum, nil
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, r := range records {
			values, err := recordValues(r)
			if err != nil {
				return fmt.Errorf("record %s: %w", r.ID, err)
			}
			query, args := s.builder().
				Insert(questionsTable).
				Columns(recordColumns...).
				Values(values...).
				OnConflict(entsql.DoNothing()).
				Query()

			n, err := execAffected(ctx, tx, query, args)
			if err != nil {
				return fmt.Errorf("insert %s: %w", r.ID, err)
			}
			if n == 1 {
				sum.Inserted++
			} else {
				sum.Duplicates++
			}
		}
		return nil
	})
	if err != nil {
		return SaveSummary{}, fmt.Errorf("save questions: %w", err)
	}

	s.log.Debug().Int("inserted", sum.Inserted).Int("duplicates", sum.Duplicates).Msg("saved questions")
	return sum, nil
}

// Reserve selects eligible records and inserts their claims in a single
// transaction, returning only the records whose claim row it inserted.
func (s *SQLStore) Reserve(ctx context.Context, date string, count int, deviceID string) ([]QuestionRecord, error) {
	if count <= 0 {
		return nil, nil
	}

	var claimed []QuestionRecord
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		b := s.builder()
		q := b.Table(questionsTable)
		sel := b.Select(qualify(q, recordColumns)...).
			From(q).
			Where(entsql.And(
				entsql.EQ(q.C("question_date"), date),
				s.unclaimed(b, q, deviceID),
			)).
			OrderBy(q.C("created_at"), q.C("id")).
			Limit(count)
		// Only exclusive mode contends across devices. SQLite is already
		// serialized by BEGIN IMMEDIATE.
		if s.dialect == dialect.Postgres && s.mode == Exclusive {
			sel.ForUpdate(entsql.WithLockAction(entsql.SkipLocked))
		}

		query, args := sel.Query()
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("select eligible: %w", err)
		}
		eligible, err := scanRecords(rows)
		if err != nil {
			return err
		}
		if s.mode == Exclusive {
			// The select's NOT EXISTS ran on its own snapshot; a claim
			// committed since then is only visible to a new statement.
			if eligible, err = s.dropClaimed(ctx, tx, eligible); err != nil {
				return err
			}
		}

		deliveredAt := s.now().UTC()
		for _, r := range eligible {
			query, args := b.Insert(claimsTable).
				Columns("question_id", "device_id", "delivered_date", "delivered_at").
				Values(r.ID, deviceID, date, deliveredAt).
				OnConflict(entsql.DoNothing()).
				Query()
			n, err := execAffected(ctx, tx, query, args)
			if err != nil {
				return fmt.Errorf("claim %s: %w", r.ID, err)
			}
			if n == 1 {
				claimed = append(claimed, r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reserve: %w", err)
	}
	return claimed, nil
}

// Remaining counts records of date that deviceID could still claim under
// the store's delivery mode.
func (s *SQLStore) Remaining(ctx context.Context, date, deviceID string) (int, error) {
	b := s.builder()
	q := b.Table(questionsTable)
	query, args := b.Select(entsql.Count("*")).
		From(q).
		Where(entsql.And(
			entsql.EQ(q.C("question_date"), date),
			s.unclaimed(b, q, deviceID),
		)).
		Query()

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("remaining: %w", err)
	}
	return n, nil
}

// ResetDeliveries deletes deviceID's claims for date.
func (s *SQLStore) ResetDeliveries(ctx context.Context, date, deviceID string) (int, error) {
	query, args := s.builder().
		Delete(claimsTable).
		Where(entsql.And(
			entsql.EQ("device_id", deviceID),
			entsql.EQ("delivered_date", date),
		)).
		Query()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset deliveries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset deliveries: %w", err)
	}
	return int(n), nil
}

// RecentSummary returns per-date question and device counts for the
// newest limit dates. A limit below 1 is treated as 1.
func (s *SQLStore) RecentSummary(ctx context.Context, limit int) ([]DateSummary, error) {
	limit = max(limit, 1)

	b := s.builder()
	q := b.Table(questionsTable)
	// Aliased up front: a join would otherwise rename the table after its
	// column references were built.
	c := b.Table(claimsTable).As("dc")
	query, args := b.Select(
		q.C("question_date"),
		entsql.As(entsql.Count(entsql.Distinct(q.C("id"))), "question_count"),
		entsql.As(entsql.Count(entsql.Distinct(c.C("device_id"))), "delivered_devices"),
	).
		From(q).
		LeftJoin(c).On(q.C("id"), c.C("question_id")).
		GroupBy(q.C("question_date")).
		OrderBy(entsql.Desc(q.C("question_date"))).
		Limit(limit).
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent summary: %w", err)
	}
	defer rows.Close()

	var out []DateSummary
	for rows.Next() {
		var d DateSummary
		if err := rows.Scan(&d.Date, &d.QuestionCount, &d.DeliveredDeviceCount); err != nil {
			return nil, fmt.Errorf("recent summary: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent summary: %w", err)
	}
	return out, nil
}

// ExistingIDs returns the ids stored for date.
func (s *SQLStore) ExistingIDs(ctx context.Context, date string) (map[string]struct{}, error) {
	query, args := s.builder().
		Select("id").
		From(s.builder().Table(questionsTable)).
		Where(entsql.EQ("question_date", date)).
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("existing ids: %w", err)
	}
	defer rows.Close()

	ids := map[string]struct{}{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("existing ids: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("existing ids: %w", err)
	}
	return ids, nil
}

// unclaimed matches question rows that the device may still receive.
func (s *SQLStore) unclaimed(b *entsql.DialectBuilder, q *entsql.SelectTable, deviceID string) *entsql.Predicate {
	c := b.Table(claimsTable)
	match := entsql.ColumnsEQ(c.C("question_id"), q.C("id"))
	if s.mode != Exclusive {
		match = entsql.And(match, entsql.EQ(c.C("device_id"), deviceID))
	}
	return entsql.NotExists(b.Select(c.C("id")).From(c).Where(match))
}

// dropClaimed removes records that any device has claimed. Rows locked by
// the caller cannot gain new claims afterwards.
func (s *SQLStore) dropClaimed(ctx context.Context, tx *sql.Tx, recs []QuestionRecord) ([]QuestionRecord, error) {
	if len(recs) == 0 {
		return recs, nil
	}
	wanted := make([]any, len(recs))
	for i, r := range recs {
		wanted[i] = r.ID
	}
	b := s.builder()
	query, args := b.Select("question_id").
		From(b.Table(claimsTable)).
		Where(entsql.In("question_id", wanted...)).
		Query()
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recheck claims: %w", err)
	}
	defer rows.Close()

	taken := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("recheck claims: %w", err)
		}
		taken[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recheck claims: %w", err)
	}

	free := recs[:0]
	for _, r := range recs {
		if !taken[r.ID] {
			free = append(free, r)
		}
	}
	if dropped := len(recs) - len(free); dropped > 0 {
		s.log.Debug().Int("dropped", dropped).Msg("records claimed by another device during reserve")
	}
	return free, nil
}

func (s *SQLStore) withTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func execAffected(ctx context.Context, tx *sql.Tx, query string, args []any) (int64, error) {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func qualify(t *entsql.SelectTable, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = t.C(c)
	}
	return out
}

func recordValues(r QuestionRecord) ([]any, error) {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	hints := r.Hints
	if hints == nil {
		hints = []Hint{}
	}
	hintsJSON, err := json.Marshal(hints)
	if err != nil {
		return nil, err
	}
	raw := string(r.Raw)
	if raw == "" {
		raw = "{}"
	}
	var note any
	if r.ReviewNote != "" {
		note = r.ReviewNote
	}
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return []any{
		r.ID, r.QuestionDate, r.ZH, r.ReferenceEn, r.Difficulty,
		string(tagsJSON), string(hintsJSON), note, raw,
		r.Model, r.PromptHash, createdAt.UTC(),
	}, nil
}

func scanRecords(rows *sql.Rows) ([]QuestionRecord, error) {
	defer rows.Close()

	var out []QuestionRecord
	for rows.Next() {
		var (
			r                QuestionRecord
			tags, hints, raw []byte
			note             sql.NullString
		)
		if err := rows.Scan(
			&r.ID, &r.QuestionDate, &r.ZH, &r.ReferenceEn, &r.Difficulty,
			&tags, &hints, &note, &raw, &r.Model, &r.PromptHash, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(tags, &r.Tags); err != nil {
			return nil, fmt.Errorf("decode tags of %s: %w", r.ID, err)
		}
		if err := json.Unmarshal(hints, &r.Hints); err != nil {
			return nil, fmt.Errorf("decode hints of %s: %w", r.ID, err)
		}
		r.ReviewNote = note.String
		r.Raw = json.RawMessage(raw)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan question: %w", err)
	}
	return out, nil
}
