package storage

import (
	"context"

	"github.com/zond/juicecmd"
)

type Grant struct {
	Player     string `db:"player" json:"player"`
	Permission string `db:"permission" json:"permission"`
}

// Dump is everything the store holds except the audit trail.
type Dump struct {
	Users  []User  `json:"users"`
	Grants []Grant `json:"grants"`
	Bans   []Ban   `json:"bans"`
}

func (s *Store) Dump(ctx context.Context) (*Dump, error) {
	result := &Dump{}
	var err error
	if result.Users, err = s.Users(ctx); err != nil {
		return nil, err
	}
	result.Grants = []Grant{}
	if err := s.db.SelectContext(ctx, &result.Grants, "SELECT * FROM permissions ORDER BY player, permission"); err != nil {
		return nil, juicecmd.WithStack(err)
	}
	if result.Bans, err = s.Bans(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// Restore replaces users, grants and bans with the contents of d in one
// transaction.
func (s *Store) Restore(ctx context.Context, d *Dump) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return juicecmd.WithStack(err)
	}
	defer tx.Rollback()
	for _, table := range []string{"users", "permissions", "bans"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return juicecmd.WithStack(err)
		}
	}
	for i := range d.Users {
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO users
			(id, name, password_hash, uuid, created_at, last_login_at)
			VALUES (:id, :name, :password_hash, :uuid, :created_at, :last_login_at)`, &d.Users[i]); err != nil {
			return juicecmd.WithStack(err)
		}
	}
	for i := range d.Grants {
		if _, err := tx.NamedExecContext(ctx, "INSERT INTO permissions (player, permission) VALUES (:player, :permission)", &d.Grants[i]); err != nil {
			return juicecmd.WithStack(err)
		}
	}
	for i := range d.Bans {
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO bans
			(player, reason, banned_by, banned_at)
			VALUES (:player, :reason, :banned_by, :banned_at)`, &d.Bans[i]); err != nil {
			return juicecmd.WithStack(err)
		}
	}
	return juicecmd.WithStack(tx.Commit())
}
