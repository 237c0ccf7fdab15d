package repository

import (
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"espresso_panel/internal/models"
	"espresso_panel/internal/repository/db"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestOperatorRepository_Create(t *testing.T) {
	tests := []struct {
		name        string
		username    string
		hash        string
		expect      func(sqlmock.Sqlmock)
		wantID      int
		wantErr     error
		errContains string
	}{
		{
			name:     "success",
			username: "barista",
			hash:     "h1",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertOperatorSQL)).
					WithArgs("barista", "h1").
					WillReturnResult(sqlmock.NewResult(7, 1))
			},
			wantID: 7,
		},
		{
			name:     "exec error",
			username: "dup",
			hash:     "h2",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertOperatorSQL)).
					WithArgs("dup", "h2").
					WillReturnError(errors.New("UNIQUE constraint failed"))
			},
			wantErr:     ErrOperatorExists,
			errContains: "insert operator",
		},
		{
			name:     "other exec error",
			username: "x",
			hash:     "h4",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertOperatorSQL)).
					WithArgs("x", "h4").
					WillReturnError(errors.New("disk I/O error"))
			},
			errContains: "disk I/O error",
		},
		{
			name:     "username is trimmed",
			username: "  barista\t",
			hash:     "h5",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertOperatorSQL)).
					WithArgs("barista", "h5").
					WillReturnResult(sqlmock.NewResult(8, 1))
			},
			wantID: 8,
		},
		{
			name:     "last insert id error",
			username: "x",
			hash:     "h3",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertOperatorSQL)).
					WithArgs("x", "h3").
					WillReturnResult(sqlmock.NewErrorResult(errors.New("no id")))
			},
			errContains: "get last insert id for operator",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewOperatorRepository(db)
			tt.expect(mock)

			id, err := repo.Create(tt.username, tt.hash)
			if tt.errContains != "" {
				if err == nil || !contains(err.Error(), tt.errContains) {
					t.Fatalf("expected error containing %q, got %v", tt.errContains, err)
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if tt.wantErr == nil && errors.Is(err, ErrOperatorExists) {
					t.Fatalf("unexpected conflict error: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if id != tt.wantID {
				t.Fatalf("id = %d, want %d", id, tt.wantID)
			}
		})
	}
}

func TestOperatorRepository_GetByUsername(t *testing.T) {
	tests := []struct {
		name        string
		username    string
		expect      func(sqlmock.Sqlmock)
		want        *models.Operator
		errContains string
	}{
		{
			name:     "found",
			username: "barista",
			expect: func(m sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "username", "password_hash"}).
					AddRow(3, "barista", "hash")
				m.ExpectQuery(regexp.QuoteMeta(selectOperatorByUsernameSQL)).
					WithArgs("barista").
					WillReturnRows(rows)
			},
			want: &models.Operator{ID: 3, Username: "barista", PasswordHash: "hash"},
		},
		{
			name:     "not found",
			username: "ghost",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(selectOperatorByUsernameSQL)).
					WithArgs("ghost").
					WillReturnError(sql.ErrNoRows)
			},
		},
		{
			name:     "query error",
			username: "err",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(selectOperatorByUsernameSQL)).
					WithArgs("err").
					WillReturnError(errors.New("disk I/O error"))
			},
			errContains: "select operator",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewOperatorRepository(db)
			tt.expect(mock)

			got, err := repo.GetByUsername(tt.username)
			if tt.errContains != "" {
				if err == nil || !contains(err.Error(), tt.errContains) {
					t.Fatalf("expected error containing %q, got %v", tt.errContains, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetByUsername: %v", err)
			}
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected nil operator, got %+v", got)
				}
				return
			}
			if got == nil || *got != *tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestOperatorRepository_DuplicateUsernameOnSQLite(t *testing.T) {
	conn, err := db.InitDB(filepath.Join(t.TempDir(), "panel.db"))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	defer conn.Close()
	repo := NewOperatorRepository(conn)

	id, err := repo.Create("barista", "h1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(" barista ", "h2"); !errors.Is(err, ErrOperatorExists) {
		t.Fatalf("expected ErrOperatorExists, got %v", err)
	}

	op, err := repo.GetByUsername("barista ")
	if err != nil || op == nil {
		t.Fatalf("GetByUsername: %+v, %v", op, err)
	}
	if op.ID != id || op.PasswordHash != "h1" {
		t.Fatalf("first operator must be kept, got %+v", op)
	}
}
