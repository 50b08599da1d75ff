package usecase

import (
	"context"
	"fmt"

	"github.com/azizikri/vinyl-checkout/internal/domain"
	"github.com/azizikri/vinyl-checkout/internal/repository"
)

// PointsLedger appends a ledger row and moves the cached balance on the same Querier,
// so both writes commit or roll back together.
type PointsLedger struct{}

func (PointsLedger) Debit(ctx context.Context, q repository.Querier, userID, amount int64, reason domain.PointsReason, orderID *int64) (domain.PointsEntry, error) {
	if amount <= 0 {
		return domain.PointsEntry{}, fmt.Errorf("%w: debit amount must be positive", domain.ErrValidation)
	}
	rows, err := q.DebitPoints(ctx, userID, amount)
	if err != nil {
		return domain.PointsEntry{}, err
	}
	if rows == 0 {
		if _, err := q.GetUser(ctx, userID); err != nil {
			return domain.PointsEntry{}, err
		}
		return domain.PointsEntry{}, domain.ErrInsufficientPoints
	}
	return q.InsertPointsEntry(ctx, domain.PointsEntry{
		UserID:  userID,
		Delta:   -amount,
		Reason:  reason,
		OrderID: orderID,
	})
}

func (PointsLedger) Credit(ctx context.Context, q repository.Querier, userID, amount int64, reason domain.PointsReason, orderID *int64) (domain.PointsEntry, error) {
	if amount <= 0 {
		return domain.PointsEntry{}, fmt.Errorf("%w: credit amount must be positive", domain.ErrValidation)
	}
	rows, err := q.CreditPoints(ctx, userID, amount)
	if err != nil {
		return domain.PointsEntry{}, err
	}
	if rows == 0 {
		return domain.PointsEntry{}, domain.ErrUserNotFound
	}
	return q.InsertPointsEntry(ctx, domain.PointsEntry{
		UserID:  userID,
		Delta:   amount,
		Reason:  reason,
		OrderID: orderID,
	})
}

type PointsService struct {
	store repository.Store
}

func NewPointsService(store repository.Store) *PointsService {
	return &PointsService{store: store}
}

type PointsSummary struct {
	Balance int64
	Entries []domain.PointsEntry
}

const maxLedgerPage = 100

func (s *PointsService) Summary(ctx context.Context, userID int64, limit int) (PointsSummary, error) {
	if limit <= 0 || limit > maxLedgerPage {
		limit = maxLedgerPage
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return PointsSummary{}, err
	}
	entries, err := s.store.ListPointsEntries(ctx, userID, limit)
	if err != nil {
		return PointsSummary{}, err
	}
	return PointsSummary{Balance: user.Points, Entries: entries}, nil
}
