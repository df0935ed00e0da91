// Package telegram связывает Telegram Bot API с диалогом заказа: разбирает обновления,
// упорядочивает их по пользователям и отправляет ответы.
package telegram

import (
	"context"
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/lavita-bot/internal/conversation"
	"github.com/mmeshcher/lavita-bot/internal/metrics"
	"github.com/mmeshcher/lavita-bot/internal/service"
)

// Sender описывает часть *tgbotapi.BotAPI, через которую уходят сообщения.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// InputHandler обрабатывает событие пользователя.
type InputHandler interface {
	HandleInput(ctx context.Context, user service.User, in conversation.Input) ([]conversation.Reply, error)
}

// Bot принимает обновления Telegram и передаёт их в диалог.
type Bot struct {
	api        Sender
	handler    InputHandler
	catalog    Catalog
	renderer   *Renderer
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// NewBot создаёт бота. Задачи обработки наследуют значения ctx; его отмена не прерывает уже принятые обновления.
func NewBot(ctx context.Context, api Sender, handler InputHandler, catalog Catalog, welcomePhoto string, logger *zap.Logger) *Bot {
	return &Bot{
		api:        api,
		handler:    handler,
		catalog:    catalog,
		renderer:   NewRenderer(catalog, welcomePhoto),
		dispatcher: NewDispatcher(ctx),
		logger:     logger,
	}
}

// Run читает обновления до отмены контекста или закрытия канала и дожидается
// обработки уже принятых.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer b.dispatcher.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(upd)
		}
	}
}

// HandleUpdate ставит обновление в очередь его пользователя.
func (b *Bot) HandleUpdate(upd tgbotapi.Update) {
	in, ok := ToInbound(b.catalog, upd)
	if !ok {
		return
	}

	if in.CallbackID != "" {
		if _, err := b.api.Request(tgbotapi.NewCallback(in.CallbackID, "")); err != nil {
			b.logger.Warn("answer callback", zap.Int64("userID", in.User.ID), zap.Error(err))
		}
	}

	metrics.RecordUpdate(inputKind(in.Input))
	b.dispatcher.Submit(in.User.ID, func(ctx context.Context) {
		b.process(ctx, upd.UpdateID, in)
	})
}

// Wait дожидается обработки принятых обновлений.
func (b *Bot) Wait() {
	b.dispatcher.Wait()
}

// ServeHTTP принимает обновления в режиме вебхука.
func (b *Bot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var upd tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	b.HandleUpdate(upd)
	w.WriteHeader(http.StatusOK)
}

func (b *Bot) process(ctx context.Context, updateID int, in Inbound) {
	requestID := uuid.NewString()
	ctx = service.WithRequestID(ctx, requestID)

	log := b.logger.With(
		zap.String("requestID", requestID),
		zap.Int("updateID", updateID),
		zap.Int64("userID", in.User.ID),
	)

	replies, err := b.handler.HandleInput(ctx, in.User, in.Input)
	if err != nil {
		log.Debug("update handled with error", zap.Error(err))
	}

	for _, reply := range replies {
		msg, err := b.renderer.Render(in.ChatID, reply)
		if err != nil {
			log.Error("render reply", zap.String("key", reply.Key), zap.Error(err))
			continue
		}
		if _, err := b.api.Send(msg); err != nil {
			log.Error("send reply", zap.String("key", reply.Key), zap.Error(err))
		}
	}
}
