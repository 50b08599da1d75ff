package usecase

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/azizikri/vinyl-checkout/internal/domain"
	"github.com/azizikri/vinyl-checkout/internal/logger"
	"github.com/azizikri/vinyl-checkout/internal/verification"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const codeDigits = 6

type VerificationService struct {
	store       verification.Store
	notifier    Notifier
	ttl         time.Duration
	maxAttempts int
	cost        int
	now         func() time.Time
}

func NewVerificationService(store verification.Store, notifier Notifier, ttl time.Duration, maxAttempts int) *VerificationService {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &VerificationService{
		store:       store,
		notifier:    notifier,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		cost:        bcrypt.DefaultCost,
		now:         time.Now,
	}
}

// Issue replaces any outstanding code for key and hands the new one to the notifier.
func (s *VerificationService) Issue(ctx context.Context, key string) error {
	key = normalizeKey(key)
	if key == "" {
		return fmt.Errorf("%w: key is required", domain.ErrValidation)
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}

	if err := s.store.Put(ctx, verification.Entry{
		Key:       key,
		CodeHash:  hash,
		ExpiresAt: s.now().Add(s.ttl),
	}); err != nil {
		return err
	}
	return s.notifier.SendCode(ctx, key, code)
}

// Verify spends one attempt before comparing, so concurrent guesses cannot exceed the budget.
func (s *VerificationService) Verify(ctx context.Context, key, code string) error {
	key = normalizeKey(key)
	entry, err := s.store.IncrementAttempts(ctx, key, s.maxAttempts)
	if err != nil {
		return err
	}
	if entry.Expired(s.now()) {
		_ = s.store.Delete(ctx, key)
		return domain.ErrCodeExpired
	}
	if bcrypt.CompareHashAndPassword(entry.CodeHash, []byte(strings.TrimSpace(code))) != nil {
		return domain.ErrCodeMismatch
	}
	return s.store.Delete(ctx, key)
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func generateCode() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

// LogNotifier stands in for email delivery and only records that a code went out.
type LogNotifier struct{}

func (LogNotifier) SendCode(ctx context.Context, key, code string) error {
	logger.FromContext(ctx).Info("verification_code_issued", zap.String("key", key))
	logger.FromContext(ctx).Debug("verification_code", zap.String("key", key), zap.String("code", code))
	return nil
}
