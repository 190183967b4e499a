package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/zond/juicecmd"

	goccy "github.com/goccy/go-json"
)

type sessionIDKey struct{}

// SetSessionID returns a context whose audit events are tagged with id.
func SetSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

func SessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey{}).(string)
	return id, ok
}

// NewSessionID returns a fresh random session id.
func NewSessionID() string {
	return uuid.NewString()
}

// AuditRef identifies a user by id and name. ID is nil for the console.
type AuditRef struct {
	ID   *int64 `json:"id,omitempty"`
	Name string `json:"name"`
}

func Ref(id int64, name string) AuditRef {
	return AuditRef{ID: &id, Name: name}
}

func ConsoleRef() AuditRef {
	return AuditRef{Name: "CONSOLE"}
}

// AuditData is the interface for typed audit event data.
type AuditData interface {
	auditData()
}

type AuditUserCreate struct {
	User   AuditRef `json:"user"`
	Remote string   `json:"remote"`
}

func (AuditUserCreate) auditData() {}

type AuditUserLogin struct {
	User   AuditRef `json:"user"`
	Remote string   `json:"remote"`
}

func (AuditUserLogin) auditData() {}

type AuditLoginFailed struct {
	User   AuditRef `json:"user"`
	Remote string   `json:"remote"`
	Reason string   `json:"reason,omitempty"`
}

func (AuditLoginFailed) auditData() {}

type AuditSessionEnd struct {
	User AuditRef `json:"user"`
}

func (AuditSessionEnd) auditData() {}

type AuditPermission struct {
	Player     string `json:"player"`
	Permission string `json:"permission"`
	By         string `json:"by"`
}

func (AuditPermission) auditData() {}

type AuditBan struct {
	Player string `json:"player"`
	Reason string `json:"reason,omitempty"`
	By     string `json:"by"`
}

func (AuditBan) auditData() {}

// AuditEntry is a stored audit event. Data is the JSON encoded AuditData.
type AuditEntry struct {
	Id        int64  `db:"id" json:"-"`
	Time      int64  `db:"time" json:"time"`
	SessionID string `db:"session_id" json:"session_id,omitempty"`
	Event     string `db:"event" json:"event"`
	Data      string `db:"data" json:"data"`
}

func (e *AuditEntry) At() time.Time {
	return time.Unix(0, e.Time).UTC()
}

// AuditLog stores an audit event tagged with the session id of ctx.
func (s *Store) AuditLog(ctx context.Context, event string, data AuditData) error {
	b, err := goccy.Marshal(data)
	if err != nil {
		return juicecmd.WithStack(err)
	}
	sessionID, _ := SessionID(ctx)
	if _, err := s.db.ExecContext(ctx, "INSERT INTO audit (time, session_id, event, data) VALUES (?, ?, ?, ?)",
		time.Now().UnixNano(), sessionID, event, string(b)); err != nil {
		return juicecmd.WithStack(err)
	}
	return nil
}

// Audit returns the latest limit events, newest first. An empty event
// matches every event.
func (s *Store) Audit(ctx context.Context, event string, limit int) ([]AuditEntry, error) {
	result := []AuditEntry{}
	var err error
	if event == "" {
		err = s.db.SelectContext(ctx, &result, "SELECT * FROM audit ORDER BY id DESC LIMIT ?", limit)
	} else {
		err = s.db.SelectContext(ctx, &result, "SELECT * FROM audit WHERE event = ? ORDER BY id DESC LIMIT ?", event, limit)
	}
	if err != nil {
		return nil, juicecmd.WithStack(err)
	}
	return result, nil
}
