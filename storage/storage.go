// Package storage persists the host's players: accounts, granted
// permissions, bans and an audit trail. Script commands are never stored.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/zond/juicecmd"
	"github.com/zond/juicecmd/host"

	_ "modernc.org/sqlite"
)

const (
	FileName = "juicecmd.sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE COLLATE NOCASE,
		password_hash TEXT NOT NULL,
		uuid TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		last_login_at INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS permissions (
		player TEXT NOT NULL COLLATE NOCASE,
		permission TEXT NOT NULL COLLATE NOCASE,
		PRIMARY KEY (player, permission)
	)`,
	`CREATE TABLE IF NOT EXISTS bans (
		player TEXT NOT NULL PRIMARY KEY COLLATE NOCASE,
		reason TEXT NOT NULL,
		banned_by TEXT NOT NULL,
		banned_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audit (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		time INTEGER NOT NULL,
		session_id TEXT NOT NULL,
		event TEXT NOT NULL,
		data TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS audit_event ON audit (event, time)`,
}

type Store struct {
	db *sqlx.DB
}

// Open opens, and creates if necessary, the database in dir.
func Open(ctx context.Context, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, juicecmd.WithStack(err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", filepath.Join(dir, FileName))
	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, juicecmd.WithStack(err)
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, juicecmd.WithStack(err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type User struct {
	Id           int64  `db:"id"`
	Name         string `db:"name"`
	PasswordHash string `db:"password_hash"`
	UUID         string `db:"uuid"`
	CreatedAt    int64  `db:"created_at"`
	LastLoginAt  int64  `db:"last_login_at"`
}

func (u *User) SetLastLogin(t time.Time) {
	u.LastLoginAt = t.UnixNano()
}

func (u *User) LastLogin() time.Time {
	if u.LastLoginAt == 0 {
		return time.Time{}
	}
	return time.Unix(0, u.LastLoginAt).UTC()
}

func (u *User) Created() time.Time {
	return time.Unix(0, u.CreatedAt).UTC()
}

// PlayerUUID returns the stored UUID, or the offline UUID for the name if
// the stored one is unparseable.
func (u *User) PlayerUUID() uuid.UUID {
	if id, err := uuid.Parse(u.UUID); err == nil {
		return id
	}
	return host.OfflineUUID(u.Name)
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(os.ErrNotExist, format, args...)
	}
	return juicecmd.WithStack(err)
}

// LoadUser returns the named user, or an error wrapping os.ErrNotExist.
func (s *Store) LoadUser(ctx context.Context, name string) (*User, error) {
	user := &User{}
	if err := s.db.GetContext(ctx, user, "SELECT * FROM users WHERE name = ?", name); err != nil {
		return nil, notFound(err, "user %q", name)
	}
	return user, nil
}

// StoreUser inserts a new user, or updates an existing one if overwrite is
// set. New users get their offline UUID and creation time filled in.
func (s *Store) StoreUser(ctx context.Context, user *User, overwrite bool, remote string) error {
	if overwrite {
		res, err := s.db.NamedExecContext(ctx, `UPDATE users SET
			password_hash = :password_hash, uuid = :uuid, last_login_at = :last_login_at
			WHERE name = :name`, user)
		if err != nil {
			return juicecmd.WithStack(err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return juicecmd.WithStack(err)
		} else if n == 0 {
			return errors.Wrapf(os.ErrNotExist, "user %q", user.Name)
		}
		return nil
	}
	if user.UUID == "" {
		user.UUID = host.OfflineUUID(user.Name).String()
	}
	if user.CreatedAt == 0 {
		user.CreatedAt = time.Now().UnixNano()
	}
	res, err := s.db.NamedExecContext(ctx, `INSERT INTO users
		(name, password_hash, uuid, created_at, last_login_at)
		VALUES (:name, :password_hash, :uuid, :created_at, :last_login_at)`, user)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return errors.Wrapf(os.ErrExist, "user %q", user.Name)
		}
		return juicecmd.WithStack(err)
	}
	if user.Id, err = res.LastInsertId(); err != nil {
		return juicecmd.WithStack(err)
	}
	return s.AuditLog(ctx, "USER_CREATE", AuditUserCreate{
		User:   Ref(user.Id, user.Name),
		Remote: remote,
	})
}

func (s *Store) Users(ctx context.Context) ([]User, error) {
	result := []User{}
	if err := s.db.SelectContext(ctx, &result, "SELECT * FROM users ORDER BY name"); err != nil {
		return nil, juicecmd.WithStack(err)
	}
	return result, nil
}
