package repo

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	apperr "github.com/habiter/habiter/internal/errors"
	"github.com/habiter/habiter/internal/storage"
)

var habitsSchema = Schema{
	Table: "habits",
	Fields: []string{
		"type", "name", "color", "granularity", "granularity_times",
		"include_weekends", "enough_amount", "manage_from",
	},
}

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func habitValues(name string) Record {
	return Record{
		"type":        "good",
		"name":        name,
		"granularity": "daily",
	}
}

func TestCreateAndShow(t *testing.T) {
	r := New(newTestStore(t), habitsSchema)

	created, err := r.Create(habitValues("Meditate"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatal("expected a generated id")
	}
	if created["created_at"] == "" {
		t.Error("expected a created_at stamp")
	}

	got, err := r.Show(id)
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if got["name"] != "Meditate" {
		t.Errorf("name = %v, want Meditate", got["name"])
	}
	if got["updated_at"] != nil {
		t.Errorf("updated_at = %v, want nil for a fresh row", got["updated_at"])
	}
}

func TestCreateRejectsUnknownField(t *testing.T) {
	r := New(newTestStore(t), habitsSchema)

	values := habitValues("Meditate")
	values["frequency"] = 3

	_, err := r.Create(values)
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if verr.Field != "frequency" {
		t.Errorf("offending field = %q, want frequency", verr.Field)
	}
}

func TestCreateRejectsAuditField(t *testing.T) {
	r := New(newTestStore(t), habitsSchema)

	values := habitValues("Meditate")
	values["created_at"] = "2020-01-01T00:00:00.000000000Z"

	if _, err := r.Create(values); err == nil {
		t.Fatal("expected payloads setting audit columns to be rejected")
	}
}

func TestUpdateMergesPartialPayload(t *testing.T) {
	r := New(newTestStore(t), habitsSchema)

	created, err := r.Create(habitValues("Meditate"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	id := created["id"].(string)

	updated, err := r.Update(id, Record{"name": "Meditate Daily"})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated["name"] != "Meditate Daily" {
		t.Errorf("name = %v, want Meditate Daily", updated["name"])
	}
	if s, _ := updated["updated_at"].(string); s == "" {
		t.Error("expected an updated_at stamp")
	}

	// Fields absent from the payload survive the merge.
	got, err := r.Show(id)
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if got["granularity"] != "daily" {
		t.Errorf("granularity = %v, want daily (untouched)", got["granularity"])
	}
	if got["type"] != "good" {
		t.Errorf("type = %v, want good (untouched)", got["type"])
	}
}

func TestUpdateMissingRow(t *testing.T) {
	r := New(newTestStore(t), habitsSchema)

	if _, err := r.Update("no-such-id", Record{"name": "x"}); !apperr.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestSoftDelete(t *testing.T) {
	store := newTestStore(t)
	r := New(store, habitsSchema)

	created, err := r.Create(habitValues("Meditate"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	id := created["id"].(string)

	if err := r.Delete(id); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	// Gone from every default read path.
	if _, err := r.Show(id); !apperr.IsNotFound(err) {
		t.Fatalf("expected not-found after delete, got %v", err)
	}
	recs, err := r.Index(nil, nil)
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("index returned %d rows, want 0", len(recs))
	}
	if _, err := r.Update(id, Record{"name": "x"}); !apperr.IsNotFound(err) {
		t.Errorf("expected not-found on update after delete, got %v", err)
	}

	// The row itself survives in the file, flagged with deleted_at.
	var deletedAt any
	row := store.DB().QueryRow("SELECT deleted_at FROM habits WHERE id = ?", id)
	if err := row.Scan(&deletedAt); err != nil {
		t.Fatalf("expected the raw row to remain: %v", err)
	}
	if deletedAt == nil {
		t.Error("expected deleted_at to be set")
	}

	// A second delete finds nothing to flag.
	if err := r.Delete(id); !apperr.IsNotFound(err) {
		t.Errorf("expected not-found on repeated delete, got %v", err)
	}
}

func TestDeleteAll(t *testing.T) {
	r := New(newTestStore(t), habitsSchema)

	var ids []string
	for _, name := range []string{"First", "Second"} {
		created, err := r.Create(habitValues(name))
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		ids = append(ids, created["id"].(string))
	}

	// A batch containing a missing id rolls back entirely.
	if err := r.DeleteAll([]string{ids[0], "no-such-id"}); !apperr.IsNotFound(err) {
		t.Fatalf("expected not-found for the missing id, got %v", err)
	}
	recs, err := r.Index(nil, nil)
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("rejected batch left %d rows, want both intact", len(recs))
	}

	// A valid batch soft-deletes every row.
	if err := r.DeleteAll(ids); err != nil {
		t.Fatalf("bulk delete failed: %v", err)
	}
	recs, err = r.Index(nil, nil)
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("index returned %d rows after bulk delete, want 0", len(recs))
	}
	for _, id := range ids {
		if _, err := r.Show(id); !apperr.IsNotFound(err) {
			t.Errorf("show %s: expected not-found, got %v", id, err)
		}
	}
}

func TestCreateAllPreservesOrder(t *testing.T) {
	r := New(newTestStore(t), habitsSchema)

	batch := []Record{
		habitValues("First"),
		habitValues("Second"),
		habitValues("Third"),
	}
	created, err := r.CreateAll(batch)
	if err != nil {
		t.Fatalf("bulk create failed: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("created %d rows, want 3", len(created))
	}

	// Default ordering is by created_at; the per-item sub-instant stamps
	// keep insertion order even within a single batch.
	recs, err := r.Index(nil, nil)
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}
	want := []string{"First", "Second", "Third"}
	for i, rec := range recs {
		if rec["name"] != want[i] {
			t.Errorf("row %d name = %v, want %s", i, rec["name"], want[i])
		}
	}
}

func TestCreateAllAllOrNothing(t *testing.T) {
	r := New(newTestStore(t), habitsSchema)

	bad := habitValues("Second")
	bad["bogus"] = true
	_, err := r.CreateAll([]Record{habitValues("First"), bad})
	if err == nil {
		t.Fatal("expected bulk create with an invalid item to fail")
	}

	recs, err := r.Index(nil, nil)
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected no rows after rejected batch, got %d", len(recs))
	}
}

func TestUpdateAllMissingIDRejectsBatch(t *testing.T) {
	r := New(newTestStore(t), habitsSchema)

	created, err := r.Create(habitValues("Meditate"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = r.UpdateAll([]Record{
		{"id": created["id"], "name": "Renamed"},
		{"id": "no-such-id", "name": "x"},
	})
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not-found for the missing id, got %v", err)
	}

	// The valid item must not have been applied either.
	got, err := r.Show(created["id"].(string))
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if got["name"] != "Meditate" {
		t.Errorf("name = %v, want Meditate (batch rolled back)", got["name"])
	}
}

func TestIndexFilterAndSort(t *testing.T) {
	r := New(newTestStore(t), habitsSchema)

	for _, name := range []string{"Charlie", "Alpha", "Bravo"} {
		if _, err := r.Create(habitValues(name)); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	recs, err := r.Index(func(rec Record) bool {
		return rec["name"] != "Bravo"
	}, &Sort{Field: "name"})
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d rows, want 2", len(recs))
	}
	if recs[0]["name"] != "Alpha" || recs[1]["name"] != "Charlie" {
		t.Errorf("order = [%v, %v], want [Alpha, Charlie]", recs[0]["name"], recs[1]["name"])
	}

	_, err = r.Index(nil, &Sort{Field: "nonexistent"})
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a validation error for an unknown sort field, got %v", err)
	}
}

func TestNotReadyDegradation(t *testing.T) {
	// Store never initialized: reads degrade, writes refuse.
	store := storage.NewStore(filepath.Join(t.TempDir(), "missing.db"))
	r := New(store, habitsSchema)

	recs, err := r.Index(nil, nil)
	if err != nil {
		t.Fatalf("index on a not-ready repo should not error, got %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected an empty result, got %d rows", len(recs))
	}

	if _, err := r.Show("any"); !apperr.IsNotFound(err) {
		t.Errorf("show: expected not-found, got %v", err)
	}
	if _, err := r.Create(habitValues("x")); !errors.Is(err, apperr.ErrNotReady) {
		t.Errorf("create: expected not-ready, got %v", err)
	}
	if _, err := r.Update("any", Record{"name": "x"}); !errors.Is(err, apperr.ErrNotReady) {
		t.Errorf("update: expected not-ready, got %v", err)
	}
	if err := r.Delete("any"); !errors.Is(err, apperr.ErrNotReady) {
		t.Errorf("delete: expected not-ready, got %v", err)
	}
}

func TestSetNowControlsStamps(t *testing.T) {
	r := New(newTestStore(t), habitsSchema)
	fixed := time.Date(2025, time.September, 1, 8, 0, 0, 0, time.UTC)
	r.SetNow(func() time.Time { return fixed })

	created, err := r.Create(habitValues("Meditate"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	want := "2025-09-01T08:00:00.000000000Z"
	if created["created_at"] != want {
		t.Errorf("created_at = %v, want %s", created["created_at"], want)
	}
}
