// Package service выполняет диалог заказа воды: хранит сессии, применяет автомат
// и исполняет запрошенные им эффекты над хранилищем и геокодером.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/lavita-bot/internal/conversation"
	"github.com/mmeshcher/lavita-bot/internal/metrics"
	"github.com/mmeshcher/lavita-bot/internal/model"
	"github.com/mmeshcher/lavita-bot/internal/session"
)

// maxSteps ограничивает цепочку "эффект → результат" для одного события.
const maxSteps = 8

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	GetAccount(ctx context.Context, userID int64) (model.Account, error)
	FindAccountByCode(ctx context.Context, code string) (model.Account, error)
	UpsertProfile(ctx context.Context, p model.Profile) (model.Account, error)
	SetLanguage(ctx context.Context, userID int64, lang model.Language) error
	Credit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error)
	PlaceOrder(ctx context.Context, o model.NewOrder, gate bool) (model.Order, decimal.Decimal, error)
	ListOrders(ctx context.Context, accountID int64, status *model.OrderStatus) ([]model.Order, error)
	MarkOrderCompleted(ctx context.Context, id int64) (model.Order, error)
}

// Resolver определяет адрес по координатам.
type Resolver interface {
	Resolve(ctx context.Context, lat, lon float64, lang model.Language) (string, error)
}

// User описывает автора входящего события.
type User struct {
	ID          int64
	DisplayName string
}

// Service содержит бизнес-логику бота.
type Service struct {
	repo           Repository
	resolver       Resolver
	sessions       *session.Store
	machine        *conversation.Machine
	resolveTimeout time.Duration
	logger         *zap.Logger
}

// NewService создаёт сервис. resolveTimeout ограничивает ожидание геокодера.
func NewService(
	repo Repository,
	resolver Resolver,
	sessions *session.Store,
	machine *conversation.Machine,
	resolveTimeout time.Duration,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:           repo,
		resolver:       resolver,
		sessions:       sessions,
		machine:        machine,
		resolveTimeout: resolveTimeout,
		logger:         logger,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// HandleInput обрабатывает одно событие пользователя и возвращает ответы для отправки.
// Ошибка описывает вид отказа (conversation.ErrValidation и др.); ответы при этом
// всё равно нужно отправить.
func (s *Service) HandleInput(ctx context.Context, user User, in conversation.Input) ([]conversation.Reply, error) {
	unlock := s.sessions.Lock(user.ID)
	defer unlock()

	sess, ok := s.sessions.Get(user.ID)
	if !ok {
		sess = s.newSession(ctx, user)
	}
	if user.DisplayName != "" {
		sess.DisplayName = user.DisplayName
	}

	var (
		replies []conversation.Reply
		stepErr error
		ev      conversation.Event = in
	)
	for i := 0; ; i++ {
		if i == maxSteps {
			s.sessions.Delete(user.ID)
			return replies, fmt.Errorf("effect chain too long in state %s", sess.State)
		}

		state := sess.State
		out := s.machine.Step(sess, ev)
		sess = out.Session
		replies = append(replies, out.Replies...)

		if out.Err != nil {
			stepErr = out.Err
			metrics.RecordStepError(errorKind(out.Err))
			s.logStepError(ctx, user.ID, state, out.Err)
		}
		if out.Effect == nil {
			break
		}
		ev = s.perform(ctx, sess, out.Effect)
	}

	s.sessions.Put(sess)
	metrics.SetSessions(s.sessions.Len())

	return replies, stepErr
}

// newSession создаёт сессию, взяв язык из учётной записи, если она есть.
func (s *Service) newSession(ctx context.Context, user User) conversation.Session {
	acc, err := s.repo.GetAccount(ctx, user.ID)
	switch {
	case err == nil:
		return conversation.NewSession(user.ID, user.DisplayName, acc.Language)
	case !errors.Is(err, ErrAccountNotFound):
		s.logger.Warn("load account language", zap.Int64("userID", user.ID), zap.Error(err))
	}
	return conversation.NewSession(user.ID, user.DisplayName, model.DefaultLanguage)
}

func (s *Service) logStepError(ctx context.Context, userID int64, state conversation.State, err error) {
	fields := []zap.Field{
		zap.Int64("userID", userID),
		zap.Stringer("state", state),
		zap.Error(err),
	}
	if id, ok := RequestIDFromContext(ctx); ok {
		fields = append(fields, zap.String("requestID", id))
	}

	switch {
	case errors.Is(err, conversation.ErrPersistence), errors.Is(err, conversation.ErrUnexpectedEvent):
		s.logger.Error("conversation step failed", fields...)
	case errors.Is(err, conversation.ErrValidation):
		s.logger.Debug("input rejected", fields...)
	default:
		s.logger.Info("conversation step declined", fields...)
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, conversation.ErrValidation):
		return "validation"
	case errors.Is(err, conversation.ErrResolution):
		return "resolution"
	case errors.Is(err, conversation.ErrNotFound):
		return "not_found"
	case errors.Is(err, conversation.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, conversation.ErrPersistence):
		return "persistence"
	default:
		return "unexpected"
	}
}

// CompleteOrder отмечает заказ доставленным.
func (s *Service) CompleteOrder(ctx context.Context, id int64) (model.Order, error) {
	o, err := s.repo.MarkOrderCompleted(ctx, id)
	if err != nil {
		return model.Order{}, err
	}
	s.logger.Info("order completed", zap.Int64("orderID", id), zap.Int64("accountID", o.AccountID))
	return o, nil
}

// GetAccount возвращает учётную запись пользователя.
func (s *Service) GetAccount(ctx context.Context, userID int64) (model.Account, error) {
	return s.repo.GetAccount(ctx, userID)
}

// ListOrders возвращает заказы пользователя, новые первыми.
func (s *Service) ListOrders(ctx context.Context, userID int64, status *model.OrderStatus) ([]model.Order, error) {
	if _, err := s.repo.GetAccount(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListOrders(ctx, userID, status)
}
