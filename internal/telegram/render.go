package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mmeshcher/lavita-bot/internal/conversation"
	"github.com/mmeshcher/lavita-bot/internal/model"
)

// Catalog предоставляет тексты сообщений и надписи кнопок.
type Catalog interface {
	Matcher
	Render(lang model.Language, key string, data map[string]any) (string, error)
	Label(lang model.Language, b conversation.Button) string
}

// Renderer превращает ответы диалога в сообщения Telegram.
type Renderer struct {
	catalog      Catalog
	welcomePhoto string
}

// NewRenderer создаёт рендерер. welcomePhoto задаёт URL картинки к приветствию и может быть пустым.
func NewRenderer(catalog Catalog, welcomePhoto string) *Renderer {
	return &Renderer{catalog: catalog, welcomePhoto: welcomePhoto}
}

// Render формирует сообщение для чата.
func (r *Renderer) Render(chatID int64, reply conversation.Reply) (tgbotapi.Chattable, error) {
	text, err := r.catalog.Render(reply.Language, reply.Key, reply.Data)
	if err != nil {
		return nil, err
	}
	markup := r.markup(reply.Language, reply.Keyboard)

	if reply.Key == conversation.MsgWelcome && r.welcomePhoto != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(r.welcomePhoto))
		photo.Caption = text
		photo.ReplyMarkup = markup
		return photo, nil
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	return msg, nil
}

func (r *Renderer) markup(lang model.Language, kb conversation.Keyboard) any {
	if kb.IsEmpty() {
		return tgbotapi.NewRemoveKeyboard(true)
	}

	if kb.Inline {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Rows))
		for _, row := range kb.Rows {
			buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
			for _, b := range row {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(r.catalog.Label(lang, b), b.Token()))
			}
			rows = append(rows, buttons)
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	rows := make([][]tgbotapi.KeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, b := range row {
			label := r.catalog.Label(lang, b)
			switch b.Request {
			case conversation.RequestContact:
				buttons = append(buttons, tgbotapi.NewKeyboardButtonContact(label))
			case conversation.RequestLocation:
				buttons = append(buttons, tgbotapi.NewKeyboardButtonLocation(label))
			default:
				buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
			}
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewReplyKeyboard(rows...)
}
