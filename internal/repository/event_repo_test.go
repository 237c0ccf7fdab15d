package repository

import (
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"espresso_panel/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestEventAppend_FillsIDAndTimestamp(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	repo := NewEventSQLite(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO brew_events (id, occurred_at, type, message, meta)`)).
		WithArgs(
			nonEmptyString,
			sqlmock.AnyArg(),
			"START", "Session started",
			`{"sequence":1}`,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(ctx(t), models.BrewEvent{
		Type:        "  start ",
		Description: "Session started",
		Metadata:    map[string]any{"sequence": 1},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
}

func TestEventAppend_KeepsGivenIDAndFormatsUTC(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	repo := NewEventSQLite(db)

	rome := time.FixedZone("CET", 3600)
	at := time.Date(2025, 2, 1, 9, 30, 0, 0, rome)

	mock.ExpectExec("INSERT INTO brew_events").
		WithArgs("evt-1", "2025-02-01 08:30:00", "RESET", "Session reset", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(ctx(t), models.BrewEvent{
		EventID:     "evt-1",
		OccurredAt:  at,
		Type:        "reset",
		Description: "Session reset",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
}

func TestEventAppend_DBError(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	repo := NewEventSQLite(db)

	mock.ExpectExec("INSERT INTO brew_events").WillReturnError(errors.New("locked"))

	err := repo.Append(ctx(t), models.BrewEvent{Type: "stop", Description: "x"})
	if err == nil || !contains(err.Error(), "locked") {
		t.Fatalf("expected locked error, got %v", err)
	}
}

func TestEventList_NoFiltersParsesMetadata(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	repo := NewEventSQLite(db)

	at := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	meta, _ := json.Marshal(map[string]any{"from": "HEATING", "to": "READY"})
	rows := sqlmock.NewRows([]string{"id", "occurred_at", "type", "message", "meta"}).
		AddRow("a", at, "STATE_CHANGE", "Heating -> Ready", string(meta)).
		AddRow("b", at.Add(time.Minute), "START", "Session started", nil).
		AddRow("c", at.Add(2*time.Minute), "STOP", "Session stopped", "{broken")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, occurred_at, type, message, meta FROM brew_events ORDER BY occurred_at ASC`)).
		WillReturnRows(rows)

	got, err := repo.List(ctx(t), time.Time{}, time.Time{}, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 events, got %d", len(got))
	}
	b, _ := json.Marshal(got[0].Metadata)
	if string(b) != string(meta) {
		t.Fatalf("metadata: got %s, want %s", b, meta)
	}
	if got[1].Metadata != nil {
		t.Fatalf("expected nil metadata, got %#v", got[1].Metadata)
	}
	if got[2].Metadata != "{broken" {
		t.Fatalf("malformed metadata must be kept raw, got %#v", got[2].Metadata)
	}
}

func TestEventList_WithFilters(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	repo := NewEventSQLite(db)

	from := time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	query := `SELECT id, occurred_at, type, message, meta FROM brew_events WHERE occurred_at >= ? AND occurred_at <= ? AND type = ? ORDER BY occurred_at ASC`
	rows := sqlmock.NewRows([]string{"id", "occurred_at", "type", "message", "meta"}).
		AddRow("x", from, "STOP", "Session stopped", nil)

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("2025-01-01 11:00:00", "2025-01-01 12:00:00", "STOP").
		WillReturnRows(rows)

	got, err := repo.List(ctx(t), from, to, " stop ")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].EventID != "x" {
		t.Fatalf("unexpected events %+v", got)
	}
}

func TestEventList_ScanError(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	repo := NewEventSQLite(db)

	rows := sqlmock.NewRows([]string{"id", "occurred_at", "type", "message", "meta"}).
		AddRow("x", 123, "START", "m", nil)
	mock.ExpectQuery("SELECT id, occurred_at").WillReturnRows(rows)

	if _, err := repo.List(ctx(t), time.Time{}, time.Time{}, ""); err == nil {
		t.Fatalf("expected scan error")
	}
}
