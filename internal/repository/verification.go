package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/azizikri/vinyl-checkout/internal/domain"
	"github.com/azizikri/vinyl-checkout/internal/verification"
	"github.com/jackc/pgx/v5"
)

// VerificationStore keeps verification codes in Postgres so every instance sees the same attempts.
type VerificationStore struct {
	db DBTX
}

func NewVerificationStore(db DBTX) *VerificationStore {
	return &VerificationStore{db: db}
}

var _ verification.Store = (*VerificationStore)(nil)

const putVerificationCode = `INSERT INTO verification_codes (key, code_hash, expires_at, attempts)
VALUES ($1, $2, $3, 0)
ON CONFLICT (key) DO UPDATE SET code_hash = EXCLUDED.code_hash, expires_at = EXCLUDED.expires_at,
	attempts = 0, created_at = now()`

func (s *VerificationStore) Put(ctx context.Context, e verification.Entry) error {
	if _, err := s.db.Exec(ctx, putVerificationCode, e.Key, string(e.CodeHash), e.ExpiresAt); err != nil {
		return fmt.Errorf("put verification code: %w", err)
	}
	return nil
}

const getVerificationCode = `SELECT key, code_hash, expires_at, attempts FROM verification_codes WHERE key = $1`

func (s *VerificationStore) Get(ctx context.Context, key string) (verification.Entry, error) {
	e, err := scanEntry(s.db.QueryRow(ctx, getVerificationCode, key))
	if err != nil {
		return verification.Entry{}, notFound(err, domain.ErrCodeNotFound, "get verification code")
	}
	return e, nil
}

const incrementVerificationAttempts = `UPDATE verification_codes SET attempts = attempts + 1
WHERE key = $1 AND attempts < $2
RETURNING key, code_hash, expires_at, attempts`

func (s *VerificationStore) IncrementAttempts(ctx context.Context, key string, max int) (verification.Entry, error) {
	e, err := scanEntry(s.db.QueryRow(ctx, incrementVerificationAttempts, key, max))
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return verification.Entry{}, fmt.Errorf("increment verification attempts: %w", err)
	}
	current, err := s.Get(ctx, key)
	if err != nil {
		return verification.Entry{}, err
	}
	return current, domain.ErrTooManyAttempts
}

const deleteVerificationCode = `DELETE FROM verification_codes WHERE key = $1`

func (s *VerificationStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, deleteVerificationCode, key); err != nil {
		return fmt.Errorf("delete verification code: %w", err)
	}
	return nil
}

func scanEntry(row pgx.Row) (verification.Entry, error) {
	var (
		e    verification.Entry
		hash string
	)
	if err := row.Scan(&e.Key, &hash, &e.ExpiresAt, &e.Attempts); err != nil {
		return verification.Entry{}, err
	}
	e.CodeHash = []byte(hash)
	return e, nil
}
