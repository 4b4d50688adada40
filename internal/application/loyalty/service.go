package loyalty

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appinv "github.com/storefront/backend/internal/application/inventory"
	"github.com/storefront/backend/internal/domain/loyalty"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

const recentTransactions = 20

// Service reads and moves loyalty points
type Service struct {
	accounts       loyalty.AccountRepository
	amountPerPoint decimal.Decimal
	retry          appinv.RetryPolicy
	logger         *zap.Logger
}

// NewService creates a loyalty Service. amountPerPoint is the spend that earns one point.
func NewService(accounts loyalty.AccountRepository, amountPerPoint decimal.Decimal, retry appinv.RetryPolicy, logger *zap.Logger) *Service {
	return &Service{
		accounts:       accounts,
		amountPerPoint: amountPerPoint,
		retry:          retry,
		logger:         logger,
	}
}

// Get returns the actor's account. A customer without one sees an empty BRONZE account.
func (s *Service) Get(ctx context.Context, actor shared.Actor) (*AccountResponse, error) {
	if actor.IsAnonymous() {
		return nil, shared.ErrUnauthorized
	}
	return s.view(ctx, actor.UserID)
}

// GetFor returns another user's account; staff only
func (s *Service) GetFor(ctx context.Context, actor shared.Actor, userID uuid.UUID) (*AccountResponse, error) {
	if !actor.IsStaff() && actor.UserID != userID {
		return nil, shared.ErrForbidden
	}
	return s.view(ctx, userID)
}

// Redeem spends the actor's points
func (s *Service) Redeem(ctx context.Context, actor shared.Actor, req RedeemRequest) (*AccountResponse, error) {
	if actor.IsAnonymous() {
		return nil, shared.ErrUnauthorized
	}
	description := req.Description
	if description == "" {
		description = "points redeemed"
	}
	err := s.apply(ctx, actor.UserID, func(a *loyalty.Account) (*loyalty.Transaction, error) {
		return a.Redeem(req.Points, req.ReferenceID, description)
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, actor.UserID)
}

// Adjust applies a staff correction to a user's balance
func (s *Service) Adjust(ctx context.Context, actor shared.Actor, userID uuid.UUID, req AdjustRequest) (*AccountResponse, error) {
	if !actor.IsStaff() {
		return nil, shared.ErrForbidden
	}
	err := s.apply(ctx, userID, func(a *loyalty.Account) (*loyalty.Transaction, error) {
		return a.Adjust(req.Points, req.Reason)
	})
	if err != nil {
		return nil, err
	}
	logger.Enrich(ctx, s.logger).Info("Loyalty balance adjusted",
		zap.String("user_id", userID.String()),
		zap.String("by", actor.Name()),
		zap.Int("points", req.Points),
		zap.String("reason", req.Reason),
	)
	return s.view(ctx, userID)
}

// EarnForOrder credits the points a completed order earns. It returns the points
// credited, zero when the total is below one point.
func (s *Service) EarnForOrder(ctx context.Context, userID uuid.UUID, orderNumber string, total decimal.Decimal) (int, error) {
	points := loyalty.PointsForAmount(total, s.amountPerPoint)
	if points == 0 {
		return 0, nil
	}
	err := s.apply(ctx, userID, func(a *loyalty.Account) (*loyalty.Transaction, error) {
		return a.Earn(points, orderNumber, "order completed")
	})
	if err != nil {
		return 0, err
	}
	return points, nil
}

// apply loads or opens the account, runs change and saves both under a version
// check, retrying on a concurrent write
func (s *Service) apply(ctx context.Context, userID uuid.UUID, change func(*loyalty.Account) (*loyalty.Transaction, error)) error {
	return s.retry.Do(ctx, func(ctx context.Context) error {
		a, err := s.load(ctx, userID)
		if err != nil {
			return err
		}
		txn, err := change(a)
		if err != nil {
			return err
		}
		return s.accounts.SaveWithTransaction(ctx, a, txn)
	}, func(attempt int, err error) {
		logger.Enrich(ctx, s.logger).Debug("Loyalty account changed concurrently, retrying",
			zap.String("user_id", userID.String()),
			zap.Int("attempt", attempt),
		)
	})
}

func (s *Service) load(ctx context.Context, userID uuid.UUID) (*loyalty.Account, error) {
	a, err := s.accounts.FindByUserID(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		return loyalty.NewAccount(userID)
	}
	return a, err
}

func (s *Service) view(ctx context.Context, userID uuid.UUID) (*AccountResponse, error) {
	a, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	txns, err := s.accounts.FindTransactions(ctx, a.ID, recentTransactions)
	if err != nil {
		return nil, err
	}
	resp := ToAccountResponse(a, txns)
	return &resp, nil
}
