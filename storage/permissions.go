package storage

import (
	"context"
	"sort"
	"strings"

	"github.com/zond/juicecmd"
)

// Permissions is a set of granted permission nodes. "*" grants everything
// and "a.b.*" grants every node below "a.b".
type Permissions map[string]bool

// NewPermissions builds a set, lowercasing every node.
func NewPermissions(nodes ...string) Permissions {
	result := Permissions{}
	for _, node := range nodes {
		if node = strings.ToLower(strings.TrimSpace(node)); node != "" {
			result[node] = true
		}
	}
	return result
}

// Allows reports whether permission is granted, directly or by a wildcard.
func (p Permissions) Allows(permission string) bool {
	permission = strings.ToLower(permission)
	if p["*"] || p[permission] {
		return true
	}
	for i := strings.LastIndex(permission, "."); i > 0; i = strings.LastIndex(permission[:i], ".") {
		if p[permission[:i]+".*"] {
			return true
		}
	}
	return false
}

func (p Permissions) Sorted() []string {
	result := make([]string, 0, len(p))
	for node := range p {
		result = append(result, node)
	}
	sort.Strings(result)
	return result
}

// Permissions returns what has been granted to player.
func (s *Store) Permissions(ctx context.Context, player string) (Permissions, error) {
	nodes := []string{}
	if err := s.db.SelectContext(ctx, &nodes, "SELECT permission FROM permissions WHERE player = ?", player); err != nil {
		return nil, juicecmd.WithStack(err)
	}
	return NewPermissions(nodes...), nil
}

// Grant gives player permission, returning false if it was already granted.
func (s *Store) Grant(ctx context.Context, player, permission, by string) (bool, error) {
	permission = strings.ToLower(permission)
	res, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO permissions (player, permission) VALUES (?, ?)", player, permission)
	if err != nil {
		return false, juicecmd.WithStack(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, juicecmd.WithStack(err)
	}
	if n == 0 {
		return false, nil
	}
	return true, s.AuditLog(ctx, "PERMISSION_GRANT", AuditPermission{
		Player:     player,
		Permission: permission,
		By:         by,
	})
}

// Revoke removes permission from player, returning false if it wasn't granted.
func (s *Store) Revoke(ctx context.Context, player, permission, by string) (bool, error) {
	permission = strings.ToLower(permission)
	res, err := s.db.ExecContext(ctx, "DELETE FROM permissions WHERE player = ? AND permission = ?", player, permission)
	if err != nil {
		return false, juicecmd.WithStack(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, juicecmd.WithStack(err)
	}
	if n == 0 {
		return false, nil
	}
	return true, s.AuditLog(ctx, "PERMISSION_REVOKE", AuditPermission{
		Player:     player,
		Permission: permission,
		By:         by,
	})
}
