package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/casewright/casewright/internal/model"
)

// InsertUseCase stores a use case under a session and returns its id.
func (s *SQLiteStore) InsertUseCase(ctx context.Context, sessionID string, uc model.UseCase) (int64, error) {
	fields, err := encodeFields(uc)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO use_cases (session_id, title, preconditions, main_flow, sub_flows, alternate_flows, outcomes, stakeholders)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, uc.Title, fields[0], fields[1], fields[2], fields[3], fields[4], fields[5])
	if err != nil {
		return 0, fmt.Errorf("inserting use case: %w", err)
	}
	return res.LastInsertId()
}

// GetUseCase returns a use case by id, or nil if it does not exist.
func (s *SQLiteStore) GetUseCase(ctx context.Context, id int64) (*model.UseCase, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, preconditions, main_flow, sub_flows, alternate_flows, outcomes, stakeholders
		FROM use_cases WHERE id = ?`, id)

	uc, err := scanUseCase(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return uc, nil
}

// GetUseCaseSession returns the session a use case belongs to, or "" if the
// use case does not exist.
func (s *SQLiteStore) GetUseCaseSession(ctx context.Context, id int64) (string, error) {
	var sessionID string
	err := s.db.QueryRowContext(ctx, `SELECT session_id FROM use_cases WHERE id = ?`, id).Scan(&sessionID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting use case %d session: %w", id, err)
	}
	return sessionID, nil
}

// UpdateUseCase replaces the content of an existing use case.
func (s *SQLiteStore) UpdateUseCase(ctx context.Context, id int64, uc model.UseCase) error {
	fields, err := encodeFields(uc)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE use_cases
		SET title = ?, preconditions = ?, main_flow = ?, sub_flows = ?, alternate_flows = ?, outcomes = ?, stakeholders = ?
		WHERE id = ?`,
		uc.Title, fields[0], fields[1], fields[2], fields[3], fields[4], fields[5], id)
	if err != nil {
		return fmt.Errorf("updating use case %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("use case %d not found", id)
	}
	return nil
}

// ListSessionUseCases returns the use cases of one session in insertion order.
func (s *SQLiteStore) ListSessionUseCases(ctx context.Context, sessionID string) ([]model.UseCase, error) {
	return s.queryUseCases(ctx, `
		SELECT id, title, preconditions, main_flow, sub_flows, alternate_flows, outcomes, stakeholders
		FROM use_cases WHERE session_id = ? ORDER BY id`, sessionID)
}

// ListOtherSessionUseCases returns the use cases of every session except the
// given one. Cross-session duplicate checks compare against this set.
func (s *SQLiteStore) ListOtherSessionUseCases(ctx context.Context, sessionID string) ([]model.UseCase, error) {
	return s.queryUseCases(ctx, `
		SELECT id, title, preconditions, main_flow, sub_flows, alternate_flows, outcomes, stakeholders
		FROM use_cases WHERE session_id != ? ORDER BY id`, sessionID)
}

// ListAllUseCases returns every stored use case in insertion order.
func (s *SQLiteStore) ListAllUseCases(ctx context.Context) ([]model.UseCase, error) {
	return s.queryUseCases(ctx, `
		SELECT id, title, preconditions, main_flow, sub_flows, alternate_flows, outcomes, stakeholders
		FROM use_cases ORDER BY id`)
}

func (s *SQLiteStore) queryUseCases(ctx context.Context, query string, args ...any) ([]model.UseCase, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying use cases: %w", err)
	}
	defer rows.Close()

	var out []model.UseCase
	for rows.Next() {
		uc, err := scanUseCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *uc)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUseCase(row rowScanner) (*model.UseCase, error) {
	var uc model.UseCase
	raw := make([]string, 6)
	if err := row.Scan(&uc.ID, &uc.Title, &raw[0], &raw[1], &raw[2], &raw[3], &raw[4], &raw[5]); err != nil {
		return nil, err
	}

	targets := []*[]string{
		&uc.Preconditions, &uc.MainFlow, &uc.SubFlows,
		&uc.AlternateFlows, &uc.Outcomes, &uc.Stakeholders,
	}
	for i, target := range targets {
		if err := json.Unmarshal([]byte(raw[i]), target); err != nil {
			return nil, fmt.Errorf("decoding use case %d field %d: %w", uc.ID, i, err)
		}
	}
	return &uc, nil
}

// encodeFields serializes the six list fields as JSON in column order.
func encodeFields(uc model.UseCase) ([6]string, error) {
	var out [6]string
	fields := [][]string{
		uc.Preconditions, uc.MainFlow, uc.SubFlows,
		uc.AlternateFlows, uc.Outcomes, uc.Stakeholders,
	}
	for i, f := range fields {
		if f == nil {
			f = []string{}
		}
		data, err := json.Marshal(f)
		if err != nil {
			return out, fmt.Errorf("encoding use case field %d: %w", i, err)
		}
		out[i] = string(data)
	}
	return out, nil
}
