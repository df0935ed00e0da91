package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mmeshcher/lavita-bot/internal/conversation"
	"github.com/mmeshcher/lavita-bot/internal/service"
)

// Matcher распознаёт надписи кнопок в тексте сообщения.
type Matcher interface {
	Match(text string) (conversation.Action, string, bool)
}

// Inbound содержит событие, извлечённое из обновления Telegram.
type Inbound struct {
	ChatID     int64
	User       service.User
	Input      conversation.Input
	CallbackID string
}

// ToInbound преобразует обновление в событие диалога.
// Работаем только в личных чатах; прочие обновления пропускаются.
func ToInbound(m Matcher, upd tgbotapi.Update) (Inbound, bool) {
	if q := upd.CallbackQuery; q != nil {
		if q.From == nil {
			return Inbound{}, false
		}
		chatID := q.From.ID
		if q.Message != nil && q.Message.Chat != nil {
			if !q.Message.Chat.IsPrivate() {
				return Inbound{}, false
			}
			chatID = q.Message.Chat.ID
		}
		return Inbound{
			ChatID:     chatID,
			User:       userOf(q.From),
			Input:      conversation.CallbackInput(q.Data),
			CallbackID: q.ID,
		}, true
	}

	msg := upd.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
		return Inbound{}, false
	}

	in := Inbound{ChatID: msg.Chat.ID, User: userOf(msg.From)}
	switch {
	case msg.Contact != nil:
		in.Input = conversation.ContactInput(msg.Contact.PhoneNumber)
	case msg.Location != nil:
		in.Input = conversation.LocationInput(msg.Location.Latitude, msg.Location.Longitude)
	case msg.Text != "":
		action, arg, _ := m.Match(msg.Text)
		in.Input = conversation.TextInput(msg.Text, action)
		in.Input.Arg = arg
	default:
		return Inbound{}, false
	}
	return in, true
}

func userOf(u *tgbotapi.User) service.User {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return service.User{ID: u.ID, DisplayName: name}
}

func inputKind(in conversation.Input) string {
	switch in.Kind {
	case conversation.KindContact:
		return "contact"
	case conversation.KindLocation:
		return "location"
	case conversation.KindCallback:
		return "callback"
	default:
		return "text"
	}
}
