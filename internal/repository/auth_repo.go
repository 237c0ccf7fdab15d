package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"espresso_panel/internal/models"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrOperatorExists is returned by Create when the username is already registered.
var ErrOperatorExists = errors.New("operator already exists")

// OperatorRepository stores panel operators allowed to drive the machine remotely.
type OperatorRepository struct {
	db *sql.DB
}

func NewOperatorRepository(db *sql.DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

var _ Authorization = (*OperatorRepository)(nil)

const (
	insertOperatorSQL           = `INSERT INTO operators (username, password_hash) VALUES (?, ?)`
	selectOperatorByUsernameSQL = `SELECT id, username, password_hash FROM operators WHERE username = ?`
)

// operatorName is the stored form of a username. Surrounding blanks typed on
// the panel keyboard never make a second operator.
func operatorName(username string) string {
	return strings.TrimSpace(username)
}

// Create inserts an operator and returns its id.
func (r *OperatorRepository) Create(username, passwordHash string) (int, error) {
	name := operatorName(username)
	res, err := r.db.Exec(insertOperatorSQL, name, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert operator %q: %w", name, ErrOperatorExists)
		}
		return 0, fmt.Errorf("insert operator %q: %w", name, err)
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id for operator %q: %w", name, err)
	}
	return int(lastID), nil
}

// GetByUsername returns (nil, nil) when no operator has that name.
func (r *OperatorRepository) GetByUsername(username string) (*models.Operator, error) {
	name := operatorName(username)
	var op models.Operator
	err := r.db.QueryRow(selectOperatorByUsernameSQL, name).Scan(&op.ID, &op.Username, &op.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select operator %q: %w", name, err)
	}
	return &op, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
