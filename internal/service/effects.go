package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/lavita-bot/internal/conversation"
	"github.com/mmeshcher/lavita-bot/internal/metrics"
	"github.com/mmeshcher/lavita-bot/internal/repository"
)

// Ошибки хранилища, которые сервис пробрасывает наружу.
var (
	ErrAccountNotFound = repository.ErrAccountNotFound
	ErrOrderNotFound   = repository.ErrOrderNotFound
)

// perform исполняет эффект и возвращает его результат как событие автомата.
func (s *Service) perform(ctx context.Context, sess conversation.Session, eff conversation.Effect) conversation.Event {
	switch e := eff.(type) {
	case conversation.ResolveAddress:
		return s.resolve(ctx, sess, e)

	case conversation.SaveLanguage:
		if err := s.repo.SetLanguage(ctx, sess.UserID, e.Language); err != nil {
			return conversation.StorageFailed{Err: err}
		}
		return conversation.LanguageSaved{}

	case conversation.SaveProfile:
		acc, err := s.repo.UpsertProfile(ctx, e.Profile)
		if err != nil {
			return conversation.StorageFailed{Err: err}
		}
		return conversation.ProfileSaved{Account: acc}

	case conversation.FindAccount:
		acc, err := s.repo.FindAccountByCode(ctx, e.Code)
		if err != nil {
			return accountError(err)
		}
		return conversation.AccountFound{Account: acc}

	case conversation.PlaceOrder:
		return s.placeOrder(ctx, e)

	case conversation.CreditBalance:
		balance, err := s.repo.Credit(ctx, sess.UserID, e.Amount)
		if err != nil {
			return accountError(err)
		}
		s.logger.Info("balance credited",
			zap.Int64("userID", sess.UserID),
			zap.Stringer("amount", e.Amount),
		)
		return conversation.BalanceCredited{Amount: e.Amount, Balance: balance}

	case conversation.LoadAccount:
		acc, err := s.repo.GetAccount(ctx, sess.UserID)
		if err != nil {
			return accountError(err)
		}
		return conversation.AccountLoaded{Account: acc, View: e.View}

	case conversation.LoadOrders:
		orders, err := s.ListOrders(ctx, sess.UserID, e.Status)
		if err != nil {
			return accountError(err)
		}
		return conversation.OrdersLoaded{Orders: orders, Status: e.Status}

	default:
		return conversation.StorageFailed{Err: errors.New("unknown effect")}
	}
}

func accountError(err error) conversation.Event {
	if errors.Is(err, repository.ErrAccountNotFound) {
		return conversation.AccountMissing{}
	}
	return conversation.StorageFailed{Err: err}
}

func (s *Service) resolve(ctx context.Context, sess conversation.Session, e conversation.ResolveAddress) conversation.Event {
	if s.resolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.resolveTimeout)
		defer cancel()
	}

	start := time.Now()
	address, err := s.resolver.Resolve(ctx, e.Latitude, e.Longitude, e.Language)
	metrics.RecordGeocode(err == nil, time.Since(start))
	if err != nil {
		s.logger.Warn("resolve address",
			zap.Int64("userID", sess.UserID),
			zap.Float64("lat", e.Latitude),
			zap.Float64("lon", e.Longitude),
			zap.Error(err),
		)
		return conversation.AddressUnresolved{Err: err}
	}
	return conversation.AddressResolved{Address: address}
}

func (s *Service) placeOrder(ctx context.Context, e conversation.PlaceOrder) conversation.Event {
	order, balance, err := s.repo.PlaceOrder(ctx, e.Order, s.machine.BalanceGating())
	switch {
	case errors.Is(err, repository.ErrInsufficientFunds):
		metrics.RecordOrder(metrics.OutcomeInsufficient, e.Order.Quantity)
		return conversation.FundsInsufficient{Balance: balance, Required: e.Order.TotalCost()}
	case err != nil:
		metrics.RecordOrder(metrics.OutcomeFailed, e.Order.Quantity)
		return accountError(err)
	}

	metrics.RecordOrder(metrics.OutcomePlaced, order.Quantity)
	s.logger.Info("order placed",
		zap.Int64("orderID", order.ID),
		zap.Int64("accountID", order.AccountID),
		zap.Int("quantity", order.Quantity),
		zap.Stringer("total", order.TotalCost),
	)
	return conversation.OrderPlaced{Order: order, Balance: balance}
}
