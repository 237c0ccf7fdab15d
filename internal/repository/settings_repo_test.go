package repository

import (
	"errors"
	"regexp"
	"testing"

	"espresso_panel/internal/settings"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSettingsSQLite_SaveUpsertsInTransaction(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSettingsSQLite(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO settings")).
		WithArgs("BrewTemp", 2, "93.5", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Save(ctx(t), map[string]settings.Value{"BrewTemp": settings.Float(93.5)})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestSettingsSQLite_SaveRollsBackOnExecError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSettingsSQLite(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO settings").WillReturnError(errors.New("readonly database"))
	mock.ExpectRollback()

	err := repo.Save(ctx(t), map[string]settings.Value{"ManualPumpControlEnabled": settings.Bool(true)})
	if err == nil || !contains(err.Error(), `upsert "ManualPumpControlEnabled"`) {
		t.Fatalf("expected upsert error, got %v", err)
	}
}

func TestSettingsSQLite_LoadDecodesEachTag(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSettingsSQLite(db)

	rows := sqlmock.NewRows([]string{"key", "type_tag", "value"}).
		AddRow("Enabled", 0, "true").
		AddRow("Count", 1, "12").
		AddRow("BrewTemp", 2, "93").
		AddRow("Name", 3, `"house"`)
	mock.ExpectQuery(regexp.QuoteMeta(selectSettingsSQL)).WillReturnRows(rows)

	got, err := repo.Load(ctx(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := map[string]settings.Value{
		"Enabled":  settings.Bool(true),
		"Count":    settings.Int(12),
		"BrewTemp": settings.Float(93),
		"Name":     settings.String("house"),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d values, want %d", len(got), len(want))
	}
	for k, w := range want {
		if !got[k].Equal(w) {
			t.Fatalf("%s = %v, want %v", k, got[k], w)
		}
	}
}

func TestSettingsSQLite_LoadEmptyTableIsNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSettingsSQLite(db)

	mock.ExpectQuery(regexp.QuoteMeta(selectSettingsSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"key", "type_tag", "value"}))

	_, err := repo.Load(ctx(t))
	if !errors.Is(err, settings.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSettingsSQLite_LoadBadValueIsSchemaError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSettingsSQLite(db)

	rows := sqlmock.NewRows([]string{"key", "type_tag", "value"}).
		AddRow("BrewTemp", 0, "93")
	mock.ExpectQuery(regexp.QuoteMeta(selectSettingsSQL)).WillReturnRows(rows)

	_, err := repo.Load(ctx(t))
	if !errors.Is(err, settings.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
}
