// Package store persists staff tickets and their booth permissions and resolves the
// event, booth and user collaborators they reference.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrTicketNotFound indicates no staff ticket matches the identifier.
	ErrTicketNotFound = errors.New("store: staff ticket not found")
	// ErrBoothNotFound indicates the referenced booth does not exist.
	ErrBoothNotFound = errors.New("store: booth not found")
	// ErrDuplicateBinding signals the (event, connected user) uniqueness constraint fired.
	ErrDuplicateBinding = errors.New("store: user already holds a ticket for this event")
	// ErrAlreadyBound signals a conditional bind found the ticket already claimed.
	ErrAlreadyBound = errors.New("store: staff ticket already bound")
)

// Store aggregates the staff stores around one database handle.
type Store struct {
	db          *gorm.DB
	Tickets     *TicketStore
	Permissions *PermissionStore
	Directory   *Directory
}

// New constructs the store aggregate.
func New(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		Tickets:     NewTicketStore(db),
		Permissions: NewPermissionStore(db),
		Directory:   NewDirectory(db),
	}
}

// Transaction runs fn against stores bound to a single database transaction. Returning
// an error rolls every write back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{
			db:          tx,
			Tickets:     s.Tickets.WithTx(tx),
			Permissions: s.Permissions.WithTx(tx),
			Directory:   NewDirectory(tx),
		})
	})
}

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil {
		return pgErr.Code == "23505"
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil {
		return myErr.Number == 1062
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") || strings.Contains(lower, "duplicate")
}
