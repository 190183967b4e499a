package storage

import (
	"context"
	"time"

	"github.com/zond/juicecmd"
)

type Ban struct {
	Player   string `db:"player"`
	Reason   string `db:"reason"`
	BannedBy string `db:"banned_by"`
	BannedAt int64  `db:"banned_at"`
}

func (b *Ban) At() time.Time {
	return time.Unix(0, b.BannedAt).UTC()
}

// Ban bans player, replacing any earlier ban.
func (s *Store) Ban(ctx context.Context, ban *Ban) error {
	if ban.BannedAt == 0 {
		ban.BannedAt = time.Now().UnixNano()
	}
	if _, err := s.db.NamedExecContext(ctx, `INSERT OR REPLACE INTO bans
		(player, reason, banned_by, banned_at)
		VALUES (:player, :reason, :banned_by, :banned_at)`, ban); err != nil {
		return juicecmd.WithStack(err)
	}
	return s.AuditLog(ctx, "BAN", AuditBan{
		Player: ban.Player,
		Reason: ban.Reason,
		By:     ban.BannedBy,
	})
}

// Unban lifts the ban on player, returning false if there was none.
func (s *Store) Unban(ctx context.Context, player, by string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM bans WHERE player = ?", player)
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
	return true, s.AuditLog(ctx, "UNBAN", AuditBan{
		Player: player,
		By:     by,
	})
}

// LoadBan returns the ban on player, or an error wrapping os.ErrNotExist.
func (s *Store) LoadBan(ctx context.Context, player string) (*Ban, error) {
	ban := &Ban{}
	if err := s.db.GetContext(ctx, ban, "SELECT * FROM bans WHERE player = ?", player); err != nil {
		return nil, notFound(err, "ban on %q", player)
	}
	return ban, nil
}

func (s *Store) Bans(ctx context.Context) ([]Ban, error) {
	result := []Ban{}
	if err := s.db.SelectContext(ctx, &result, "SELECT * FROM bans ORDER BY banned_at"); err != nil {
		return nil, juicecmd.WithStack(err)
	}
	return result, nil
}
