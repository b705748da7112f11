package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/casewright/casewright/internal/model"
)

// CreateSession inserts a new session. Creating an existing session id is an
// error; callers that want upsert semantics check GetSession first.
func (s *SQLiteStore) CreateSession(ctx context.Context, sess model.Session) error {
	now := time.Now().UTC()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if sess.LastActive.IsZero() {
		sess.LastActive = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, project_context, domain, created_at, last_active)
		VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.ProjectContext, sess.Domain, sess.CreatedAt, sess.LastActive)
	if err != nil {
		return fmt.Errorf("creating session %s: %w", sess.ID, err)
	}
	return nil
}

// GetSession returns a session by id, or nil if it does not exist.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var sess model.Session
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, project_context, domain, created_at, last_active
		FROM sessions WHERE session_id = ?`, id).
		Scan(&sess.ID, &sess.ProjectContext, &sess.Domain, &sess.CreatedAt, &sess.LastActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}
	return &sess, nil
}

// UpdateSessionContext updates a session's project context and domain.
// Empty values leave the existing value in place.
func (s *SQLiteStore) UpdateSessionContext(ctx context.Context, id, projectContext, domain string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET project_context = CASE WHEN ? != '' THEN ? ELSE project_context END,
		    domain = CASE WHEN ? != '' THEN ? ELSE domain END,
		    last_active = ?
		WHERE session_id = ?`,
		projectContext, projectContext, domain, domain, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating session %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

// TouchSession bumps a session's last_active timestamp.
func (s *SQLiteStore) TouchSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET last_active = ? WHERE session_id = ?`, time.Now().UTC(), id)
	return err
}

// ListSessions returns all sessions with their use case counts, most recently
// active first.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.session_id, s.project_context, s.domain, s.created_at, s.last_active,
		       COUNT(u.id)
		FROM sessions s
		LEFT JOIN use_cases u ON u.session_id = s.session_id
		GROUP BY s.session_id
		ORDER BY s.last_active DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.ID, &info.ProjectContext, &info.Domain,
			&info.CreatedAt, &info.LastActive, &info.UseCaseCount); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteSession removes a session and everything scoped to it.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`DELETE FROM use_cases WHERE session_id = ?`,
		`DELETE FROM conversation_history WHERE session_id = ?`,
		`DELETE FROM sessions WHERE session_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("deleting session %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// AddMessage appends one conversation turn and returns its id.
func (s *SQLiteStore) AddMessage(ctx context.Context, msg model.ConversationMessage) (int64, error) {
	metadata := "{}"
	if msg.Metadata != nil {
		data, err := json.Marshal(msg.Metadata)
		if err != nil {
			return 0, fmt.Errorf("encoding message metadata: %w", err)
		}
		metadata = string(data)
	}

	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_history (session_id, role, content, metadata, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.SessionID, msg.Role, msg.Content, metadata, createdAt)
	if err != nil {
		return 0, fmt.Errorf("adding message: %w", err)
	}
	return res.LastInsertId()
}

// GetHistory returns the most recent limit turns of a session in
// chronological order. limit <= 0 returns everything.
func (s *SQLiteStore) GetHistory(ctx context.Context, sessionID string, limit int) ([]model.ConversationMessage, error) {
	query := `
		SELECT id, session_id, role, content, metadata, created_at
		FROM conversation_history WHERE session_id = ? ORDER BY id DESC`
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("getting history: %w", err)
	}
	defer rows.Close()

	var out []model.ConversationMessage
	for rows.Next() {
		var msg model.ConversationMessage
		var metadata string
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &metadata, &msg.CreatedAt); err != nil {
			return nil, err
		}
		if metadata != "" && metadata != "{}" {
			if err := json.Unmarshal([]byte(metadata), &msg.Metadata); err != nil {
				return nil, fmt.Errorf("decoding message %d metadata: %w", msg.ID, err)
			}
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest-first from the query; return chronological.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
