// Package handler содержит HTTP-обработчики служебного API бота доставки воды.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/lavita-bot/internal/middleware"
	"github.com/mmeshcher/lavita-bot/internal/model"
	"github.com/mmeshcher/lavita-bot/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	CompleteOrder(ctx context.Context, id int64) (model.Order, error)
	GetAccount(ctx context.Context, userID int64) (model.Account, error)
	ListOrders(ctx context.Context, userID int64, status *model.OrderStatus) ([]model.Order, error)
}

// Handler реализует HTTP-обработчики служебного API.
type Handler struct {
	service  Service
	logger   *zap.Logger
	operator *middleware.OperatorAuth
	webhook  http.Handler
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// webhook может быть nil, если бот работает в режиме long polling.
func NewHandler(s Service, logger *zap.Logger, operator *middleware.OperatorAuth, webhook http.Handler) *Handler {
	return &Handler{
		service:  s,
		logger:   logger,
		operator: operator,
		webhook:  webhook,
	}
}

type accountResponse struct {
	UserID      int64  `json:"user_id"`
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	Language    string `json:"language"`
	Balance     string `json:"balance"`
	TotalSpent  string `json:"total_spent"`
	CreatedAt   string `json:"created_at"`
}

type orderResponse struct {
	ID          int64    `json:"id"`
	AccountID   int64    `json:"account_id"`
	Quantity    int      `json:"quantity"`
	UnitPrice   string   `json:"unit_price"`
	TotalCost   string   `json:"total_cost"`
	Address     string   `json:"address"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Status      string   `json:"status"`
	CreatedAt   string   `json:"created_at"`
	CompletedAt string   `json:"completed_at,omitempty"`
}

func toOrderResponse(o model.Order) orderResponse {
	resp := orderResponse{
		ID:        o.ID,
		AccountID: o.AccountID,
		Quantity:  o.Quantity,
		UnitPrice: o.UnitPrice.StringFixed(2),
		TotalCost: o.TotalCost.StringFixed(2),
		Address:   o.Address,
		Latitude:  o.Latitude,
		Longitude: o.Longitude,
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt.Format(time.RFC3339),
	}
	if o.CompletedAt != nil {
		resp.CompletedAt = o.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func parseIDParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Health отвечает на проверку живости процесса.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// CompleteOrder отмечает заказ доставленным. Повторный вызов для
// завершённого заказа возвращает тот же заказ.
func (h *Handler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.CompleteOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("complete order error", zap.Error(err), zap.Int64("orderID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	operator, _ := middleware.OperatorFromContext(r.Context())
	h.logger.Info("order completed by operator", zap.Int64("orderID", id), zap.String("operator", operator))

	writeJSON(w, toOrderResponse(order))
}

// GetAccount возвращает профиль и баланс клиента.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(r, "userID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	acc, err := h.service.GetAccount(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get account error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, accountResponse{
		UserID:      acc.UserID,
		Code:        acc.Code,
		DisplayName: acc.DisplayName,
		Phone:       acc.Phone,
		Address:     acc.Address,
		Language:    string(acc.Language),
		Balance:     acc.Balance.StringFixed(2),
		TotalSpent:  acc.TotalSpent.StringFixed(2),
		CreatedAt:   acc.CreatedAt.Format(time.RFC3339),
	})
}

// GetOrders возвращает заказы клиента, новые первыми.
// Параметр status ограничивает выборку активными или завершёнными заказами.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(r, "userID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var status *model.OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := model.ParseOrderStatus(raw)
		if !ok {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		status = &st
	}

	orders, err := h.service.ListOrders(r.Context(), userID, status)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get orders error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}

	writeJSON(w, resp)
}
