// Package journal records tracker sessions in sqlite so they can be listed and
// replayed through a headless overlay.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mj1618/overlaywin/internal/model"
	"github.com/mj1618/overlaywin/internal/platform"
)

var ErrNotFound = errors.New("not found")

// Kind classifies a journal entry.
type Kind string

const (
	// KindRecord is a raw tracker record.
	KindRecord Kind = "record"
	// KindCommand is a caller command: activateOverlay or focusTarget.
	KindCommand Kind = "command"
	// KindHostFocus is a focus notification from the overlay window.
	KindHostFocus Kind = "host_focus"
)

// SessionInfo describes one journaled session.
type SessionInfo struct {
	ID          string               `yaml:"id"                  json:"id"`
	Selector    model.TargetSelector `yaml:"selector"            json:"selector"`
	HasTitleBar bool                 `yaml:"has_title_bar"       json:"has_title_bar"`
	Policy      PolicyRecord         `yaml:"policy"              json:"policy"`
	Window      string               `yaml:"window,omitempty"    json:"window,omitempty"`
	StartedAt   time.Time            `yaml:"started_at"          json:"started_at"`
	EndedAt     *time.Time           `yaml:"ended_at,omitempty"  json:"ended_at,omitempty"`
	Entries     int                  `yaml:"entries"             json:"entries"`
}

// Entry is one journaled input to the controller.
type Entry struct {
	Seq     int64           `yaml:"seq"     json:"seq"`
	Offset  time.Duration   `yaml:"offset"  json:"offset"`
	Kind    Kind            `yaml:"kind"    json:"kind"`
	Payload json.RawMessage `yaml:"-"       json:"payload"`
}

// PolicyRecord is the persisted form of a platform.Policy.
type PolicyRecord struct {
	Coords         string `yaml:"coords"           json:"coords"`
	Fullscreen     string `yaml:"fullscreen"       json:"fullscreen"`
	Blur           string `yaml:"blur"             json:"blur"`
	InsetTitleBar  bool   `yaml:"inset_title_bar"  json:"inset_title_bar"`
	TitleBarHeight int    `yaml:"title_bar_height" json:"title_bar_height"`
}

// RecordPolicy converts a policy for storage.
func RecordPolicy(p platform.Policy) PolicyRecord {
	return PolicyRecord{
		Coords:         p.Coords.String(),
		Fullscreen:     p.Fullscreen.String(),
		Blur:           p.Blur.String(),
		InsetTitleBar:  p.InsetTitleBar,
		TitleBarHeight: p.TitleBarHeight,
	}
}

// Policy parses the stored policy.
func (r PolicyRecord) Policy() (platform.Policy, error) {
	coords, err := platform.ParseCoordSpace(r.Coords)
	if err != nil {
		return platform.Policy{}, err
	}
	fs, err := platform.ParseFullscreenStrategy(r.Fullscreen)
	if err != nil {
		return platform.Policy{}, err
	}
	blur, err := platform.ParseBlurPolicy(r.Blur)
	if err != nil {
		return platform.Policy{}, err
	}
	return platform.Policy{
		Coords:         coords,
		Fullscreen:     fs,
		Blur:           blur,
		InsetTitleBar:  r.InsetTitleBar,
		TitleBarHeight: r.TitleBarHeight,
	}, nil
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("chmod journal path: %w", err)
	}
	if err := ApplyMigrations(ctx, db); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// BeginSession inserts a session row.
func (s *Store) BeginSession(ctx context.Context, info SessionInfo) error {
	if info.ID == "" {
		return fmt.Errorf("session id is required")
	}
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now().UTC()
	}
	titles, err := json.Marshal(info.Selector.Titles)
	if err != nil {
		return fmt.Errorf("encode titles: %w", err)
	}
	policy, err := json.Marshal(info.Policy)
	if err != nil {
		return fmt.Errorf("encode policy: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO sessions(session_id, titles_json, has_title_bar, policy_json, host, started_at)
VALUES (?, ?, ?, ?, ?, ?)
`, info.ID, string(titles), boolToInt(info.HasTitleBar), string(policy), info.Window, ts(info.StartedAt))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// EndSession stamps the session's end time.
func (s *Store) EndSession(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET ended_at = ? WHERE session_id = ?`, ts(at), id)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

// Append stores one entry.
func (s *Store) Append(ctx context.Context, sessionID string, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO entries(session_id, seq, offset_ns, kind, payload)
VALUES (?, ?, ?, ?, ?)
`, sessionID, e.Seq, int64(e.Offset), string(e.Kind), string(e.Payload))
	if err != nil {
		return fmt.Errorf("append entry %d: %w", e.Seq, err)
	}
	return nil
}

const sessionColumns = `
SELECT s.session_id, s.titles_json, s.has_title_bar, s.policy_json, s.host, s.started_at, s.ended_at,
	(SELECT COUNT(*) FROM entries e WHERE e.session_id = s.session_id)
FROM sessions s`

// Sessions lists sessions, newest first. limit <= 0 means no limit.
func (s *Store) Sessions(ctx context.Context, limit int) ([]SessionInfo, error) {
	query := sessionColumns + ` ORDER BY s.started_at DESC, s.session_id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []SessionInfo
	for rows.Next() {
		info, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

// Session returns one session by id.
func (s *Store) Session(ctx context.Context, id string) (SessionInfo, error) {
	row := s.db.QueryRowContext(ctx, sessionColumns+` WHERE s.session_id = ?`, id)
	info, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionInfo{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return info, err
}

// Latest returns the most recently started session.
func (s *Store) Latest(ctx context.Context) (SessionInfo, error) {
	sessions, err := s.Sessions(ctx, 1)
	if err != nil {
		return SessionInfo{}, err
	}
	if len(sessions) == 0 {
		return SessionInfo{}, fmt.Errorf("no journaled sessions: %w", ErrNotFound)
	}
	return sessions[0], nil
}

// Entries returns a session's entries in order.
func (s *Store) Entries(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT seq, offset_ns, kind, payload FROM entries WHERE session_id = ? ORDER BY seq
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			offset  int64
			kind    string
			payload string
		)
		if err := rows.Scan(&e.Seq, &offset, &kind, &payload); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Offset = time.Duration(offset)
		e.Kind = Kind(kind)
		e.Payload = json.RawMessage(payload)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return out, nil
}

// DeleteSession removes a session and its entries.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (SessionInfo, error) {
	var (
		info        SessionInfo
		titlesJSON  string
		hasTitleBar int
		policyJSON  string
		startedAt   string
		endedAt     sql.NullString
	)
	if err := row.Scan(&info.ID, &titlesJSON, &hasTitleBar, &policyJSON, &info.Window, &startedAt, &endedAt, &info.Entries); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return info, err
		}
		return info, fmt.Errorf("scan session: %w", err)
	}
	if err := json.Unmarshal([]byte(titlesJSON), &info.Selector.Titles); err != nil {
		return info, fmt.Errorf("decode titles: %w", err)
	}
	if err := json.Unmarshal([]byte(policyJSON), &info.Policy); err != nil {
		return info, fmt.Errorf("decode policy: %w", err)
	}
	info.HasTitleBar = hasTitleBar != 0
	started, err := parseTS(startedAt)
	if err != nil {
		return info, fmt.Errorf("parse started_at: %w", err)
	}
	info.StartedAt = started
	if endedAt.Valid {
		ended, err := parseTS(endedAt.String)
		if err != nil {
			return info, fmt.Errorf("parse ended_at: %w", err)
		}
		info.EndedAt = &ended
	}
	return info, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// tsLayout is fixed width so stored timestamps sort lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

func ts(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
