// Package repo provides a table-generic CRUD repository over the
// embedded store. Every table it manages carries the same bookkeeping
// columns (created_at, updated_at, deleted_at); deletes are always soft
// and every default read excludes soft-deleted rows.
package repo

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/habiter/habiter/internal/constants"
	apperr "github.com/habiter/habiter/internal/errors"
	"github.com/habiter/habiter/internal/storage"
)

// Record is one row keyed by column name. Values read back from the
// store use driver types (string, int64, float64, nil).
type Record map[string]any

// Schema statically declares a table and its permitted business fields.
// The id column and the audit columns are implicit; the repository
// manages them itself and rejects payloads that try to set them.
type Schema struct {
	Table  string
	Fields []string
}

// Filter narrows an Index read. It runs on already-decoded rows,
// mirroring how the calling components express range predicates.
type Filter func(Record) bool

// Sort names a schema field to order an Index read by.
type Sort struct {
	Field string
	Desc  bool
}

type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Repo is a validated CRUD view over a single table.
type Repo struct {
	store     *storage.Store
	schema    Schema
	permitted map[string]bool
	tx        *sql.Tx
	now       func() time.Time
}

// New builds a repository for the given schema. The permitted field set
// is computed once here, never introspected per call.
func New(store *storage.Store, schema Schema) *Repo {
	permitted := make(map[string]bool, len(schema.Fields)+1)
	for _, f := range schema.Fields {
		permitted[f] = true
	}
	permitted["id"] = true

	return &Repo{
		store:     store,
		schema:    schema,
		permitted: permitted,
		now:       time.Now,
	}
}

// SetNow overrides the clock used for audit stamps. Tests only.
func (r *Repo) SetNow(now func() time.Time) {
	r.now = now
}

// In returns a view of the repository bound to an open transaction.
// Operations on the view neither begin nor commit it.
func (r *Repo) In(tx *sql.Tx) *Repo {
	bound := *r
	bound.tx = tx
	return &bound
}

// Table returns the table name this repository manages.
func (r *Repo) Table() string {
	return r.schema.Table
}

// Ready reports whether operations can reach the table: the store is
// open, the table exists and the schema declares at least one field.
// Reads against a non-ready repository degrade to empty results so
// callers can render while storage initializes.
func (r *Repo) Ready() bool {
	if r.store.DB() == nil || len(r.schema.Fields) == 0 {
		return false
	}
	exists, err := r.store.TableExists(r.schema.Table)
	if err != nil {
		return false
	}
	return exists
}

func (r *Repo) q() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.store.DB()
}

// columns returns the full select list: id, business fields, audit.
func (r *Repo) columns() []string {
	cols := make([]string, 0, len(r.schema.Fields)+4)
	cols = append(cols, "id")
	cols = append(cols, r.schema.Fields...)
	cols = append(cols, "created_at", "updated_at", "deleted_at")
	return cols
}

// validate checks schema compliance: every key of the payload must be a
// declared field (or the implicit id). Omitted fields are fine, the
// repository performs no defaulting.
func (r *Repo) validate(values Record) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !r.permitted[k] {
			return &apperr.ValidationError{Table: r.schema.Table, Field: k}
		}
	}
	return nil
}

// Index returns all non-deleted rows, optionally filtered and sorted by
// a named field. Without a sort the rows come back in creation order.
// A non-ready repository yields an empty result, never an error.
func (r *Repo) Index(filter Filter, sortBy *Sort) ([]Record, error) {
	if !r.Ready() {
		return []Record{}, nil
	}

	order := "created_at ASC"
	if sortBy != nil {
		if !r.permitted[sortBy.Field] {
			return nil, &apperr.ValidationError{Table: r.schema.Table, Field: sortBy.Field}
		}
		order = sortBy.Field + " ASC"
		if sortBy.Desc {
			order = sortBy.Field + " DESC"
		}
	}

	cols := r.columns()
	query := fmt.Sprintf("SELECT %s FROM %s WHERE deleted_at IS NULL ORDER BY %s",
		strings.Join(cols, ", "), r.schema.Table, order)

	rows, err := r.q().Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", r.schema.Table, err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows, cols)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", r.schema.Table, err)
		}
		if filter != nil && !filter(rec) {
			continue
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Show returns a single non-deleted row by id. A missing row and a
// non-ready repository both report ErrNotFound.
func (r *Repo) Show(id string) (Record, error) {
	if !r.Ready() {
		return nil, apperr.ErrNotFound
	}

	cols := r.columns()
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? AND deleted_at IS NULL",
		strings.Join(cols, ", "), r.schema.Table)

	rows, err := r.q().Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", r.schema.Table, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, apperr.ErrNotFound
	}
	rec, err := scanRecord(rows, cols)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s row: %w", r.schema.Table, err)
	}
	return rec, nil
}

// Create validates the payload, stamps created_at and persists the row.
// The returned record includes the generated id.
func (r *Repo) Create(values Record) (Record, error) {
	if !r.Ready() {
		return nil, apperr.ErrNotReady
	}
	if err := r.validate(values); err != nil {
		return nil, err
	}
	return r.insert(r.q(), values, r.now())
}

// CreateAll persists a batch in one all-or-nothing transaction. Each
// item gets a strictly increasing sub-instant created_at stamp so that
// insertion order survives a same-instant sort.
func (r *Repo) CreateAll(values []Record) ([]Record, error) {
	if !r.Ready() {
		return nil, apperr.ErrNotReady
	}
	for _, v := range values {
		if err := r.validate(v); err != nil {
			return nil, err
		}
	}

	var created []Record
	err := r.withTx(func(q querier) error {
		base := r.now()
		for i, v := range values {
			rec, err := r.insert(q, v, base.Add(time.Duration(i)*time.Microsecond))
			if err != nil {
				return err
			}
			created = append(created, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update merges the partial payload onto the existing row and stamps
// updated_at. The merged result is re-validated before persisting.
func (r *Repo) Update(id string, values Record) (Record, error) {
	if !r.Ready() {
		return nil, apperr.ErrNotReady
	}
	if err := r.validate(values); err != nil {
		return nil, err
	}

	existing, err := r.Show(id)
	if err != nil {
		return nil, err
	}
	return r.persistMerge(r.q(), existing, values, r.now())
}

// UpdateAll applies a batch of partial payloads, each carrying the id of
// the row it targets. All referenced rows are fetched first so fields
// absent from a payload are preserved; a single missing id rejects the
// whole batch. Writes happen in one transaction with distinct increasing
// updated_at stamps.
func (r *Repo) UpdateAll(values []Record) ([]Record, error) {
	if !r.Ready() {
		return nil, apperr.ErrNotReady
	}

	existing := make([]Record, len(values))
	for i, v := range values {
		if err := r.validate(v); err != nil {
			return nil, err
		}
		id, _ := v["id"].(string)
		if id == "" {
			return nil, fmt.Errorf("bulk update item %d: %w", i, apperr.ErrNotFound)
		}
		row, err := r.Show(id)
		if err != nil {
			return nil, fmt.Errorf("bulk update item %d (%s): %w", i, id, err)
		}
		existing[i] = row
	}

	var updated []Record
	err := r.withTx(func(q querier) error {
		base := r.now()
		for i, v := range values {
			rec, err := r.persistMerge(q, existing[i], v, base.Add(time.Duration(i)*time.Microsecond))
			if err != nil {
				return err
			}
			updated = append(updated, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete soft-deletes a row: it sets deleted_at and the row disappears
// from default reads while remaining in the file.
func (r *Repo) Delete(id string) error {
	if !r.Ready() {
		return apperr.ErrNotReady
	}

	query := fmt.Sprintf("UPDATE %s SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", r.schema.Table)
	result, err := r.q().Exec(query, r.now().Format(constants.TimestampFormat), id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", r.schema.Table, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// DeleteAll soft-deletes a batch of ids, all-or-nothing.
func (r *Repo) DeleteAll(ids []string) error {
	if !r.Ready() {
		return apperr.ErrNotReady
	}

	return r.withTx(func(q querier) error {
		stamp := r.now().Format(constants.TimestampFormat)
		query := fmt.Sprintf("UPDATE %s SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", r.schema.Table)
		for _, id := range ids {
			result, err := q.Exec(query, stamp, id)
			if err != nil {
				return fmt.Errorf("failed to delete from %s: %w", r.schema.Table, err)
			}
			rows, err := result.RowsAffected()
			if err != nil {
				return err
			}
			if rows == 0 {
				return fmt.Errorf("delete %s: %w", id, apperr.ErrNotFound)
			}
		}
		return nil
	})
}

// withTx runs fn inside a transaction, reusing the bound one if the
// repository is already a transactional view.
func (r *Repo) withTx(fn func(q querier) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}

	tx, err := r.store.DB().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *Repo) insert(q querier, values Record, stamp time.Time) (Record, error) {
	id, _ := values["id"].(string)
	if id == "" {
		id = uuid.New().String()
	}

	cols := []string{"id"}
	args := []any{id}
	// Deterministic column order keeps statements stable.
	for _, f := range r.schema.Fields {
		if v, ok := values[f]; ok {
			cols = append(cols, f)
			args = append(args, v)
		}
	}
	cols = append(cols, "created_at")
	args = append(args, stamp.Format(constants.TimestampFormat))

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		r.schema.Table, strings.Join(cols, ", "), placeholders)

	if _, err := q.Exec(query, args...); err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", r.schema.Table, err)
	}

	created := Record{"id": id, "created_at": stamp.Format(constants.TimestampFormat)}
	for k, v := range values {
		if k == "id" {
			continue
		}
		created[k] = v
	}
	return created, nil
}

func (r *Repo) persistMerge(q querier, existing, values Record, stamp time.Time) (Record, error) {
	merged := Record{}
	for _, f := range r.schema.Fields {
		if v, ok := values[f]; ok {
			merged[f] = v
		} else if v, ok := existing[f]; ok {
			merged[f] = v
		}
	}

	sets := make([]string, 0, len(r.schema.Fields)+1)
	args := make([]any, 0, len(r.schema.Fields)+2)
	for _, f := range r.schema.Fields {
		if v, ok := merged[f]; ok {
			sets = append(sets, f+" = ?")
			args = append(args, v)
		}
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, stamp.Format(constants.TimestampFormat))
	args = append(args, existing["id"])

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ? AND deleted_at IS NULL",
		r.schema.Table, strings.Join(sets, ", "))
	result, err := q.Exec(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", r.schema.Table, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, apperr.ErrNotFound
	}

	merged["id"] = existing["id"]
	merged["created_at"] = existing["created_at"]
	merged["updated_at"] = stamp.Format(constants.TimestampFormat)
	return merged, nil
}

func scanRecord(rows *sql.Rows, cols []string) (Record, error) {
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	rec := Record{}
	for i, col := range cols {
		v := values[i]
		// The driver hands TEXT back as []byte in some paths; keep
		// Record values as plain strings.
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		rec[col] = v
	}
	return rec, nil
}
