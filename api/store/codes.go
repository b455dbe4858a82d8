package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/scsonic/nexavatar/api/domain"
)

// CreateAccessCode inserts a new access code.
func (s *Store) CreateAccessCode(ctx context.Context, code *domain.AccessCode) error {
	query := `
		INSERT INTO access_codes (code, code_type, is_used, description, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.conn(ctx).Exec(ctx, query,
		code.Code, code.Type, code.IsUsed, code.Description, code.CreatedAt)
	if err != nil {
		return fmt.Errorf("create access code: %w", err)
	}
	return nil
}

// GetAccessCode retrieves an access code.
func (s *Store) GetAccessCode(ctx context.Context, code string) (*domain.AccessCode, error) {
	query := `
		SELECT code, code_type, is_used, description, created_at, used_at
		FROM access_codes
		WHERE code = $1`

	ac := &domain.AccessCode{}
	err := s.conn(ctx).QueryRow(ctx, query, code).Scan(
		&ac.Code, &ac.Type, &ac.IsUsed, &ac.Description, &ac.CreatedAt, &ac.UsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get access code: %w", err)
	}
	return ac, nil
}

// MarkCodeUsed burns a one-time code. Permanent codes are left untouched.
func (s *Store) MarkCodeUsed(ctx context.Context, code string) error {
	query := `
		UPDATE access_codes
		SET is_used = TRUE, used_at = $2
		WHERE code = $1 AND code_type = $3`

	_, err := s.conn(ctx).Exec(ctx, query, code, time.Now().UTC(), domain.CodeOneTime)
	if err != nil {
		return fmt.Errorf("mark code used: %w", err)
	}
	return nil
}

// ResetAccessCode makes a used one-time code usable again.
func (s *Store) ResetAccessCode(ctx context.Context, code string) error {
	query := `UPDATE access_codes SET is_used = FALSE, used_at = NULL WHERE code = $1`

	result, err := s.conn(ctx).Exec(ctx, query, code)
	if err != nil {
		return fmt.Errorf("reset access code: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteAccessCode removes a code permanently.
func (s *Store) DeleteAccessCode(ctx context.Context, code string) error {
	query := `DELETE FROM access_codes WHERE code = $1`

	result, err := s.conn(ctx).Exec(ctx, query, code)
	if err != nil {
		return fmt.Errorf("delete access code: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListAccessCodes returns all codes, newest first.
func (s *Store) ListAccessCodes(ctx context.Context) ([]*domain.AccessCode, error) {
	query := `
		SELECT code, code_type, is_used, description, created_at, used_at
		FROM access_codes
		ORDER BY created_at DESC`

	rows, err := s.conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list access codes: %w", err)
	}
	defer rows.Close()

	var codes []*domain.AccessCode
	for rows.Next() {
		ac := &domain.AccessCode{}
		if err := rows.Scan(&ac.Code, &ac.Type, &ac.IsUsed, &ac.Description, &ac.CreatedAt, &ac.UsedAt); err != nil {
			return nil, fmt.Errorf("scan access code: %w", err)
		}
		codes = append(codes, ac)
	}
	return codes, rows.Err()
}
