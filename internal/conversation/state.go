// Package conversation реализует конечный автомат диалога заказа воды.
//
// Автомат не выполняет ввод-вывод: Machine.Step получает текущую сессию и событие
// и возвращает новую сессию, ответы пользователю и, при необходимости, побочный эффект.
// Исполнитель эффекта (пакет service) возвращает его результат обратно в Step
// как очередное событие.
package conversation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/lavita-bot/internal/model"
)

// State обозначает шаг диалога.
type State int

const (
	StateIdle State = iota
	StateLanguageSelect
	StateMainMenu
	StateAwaitPhone
	StateAwaitLocation
	StateAwaitAddressDetail
	StateAwaitBottleCount
	StateAwaitConfirm
	StateAwaitCode
	StateAwaitTopUp
)

var stateNames = map[State]string{
	StateIdle:               "idle",
	StateLanguageSelect:     "language_select",
	StateMainMenu:           "main_menu",
	StateAwaitPhone:         "await_phone",
	StateAwaitLocation:      "await_location",
	StateAwaitAddressDetail: "await_address_detail",
	StateAwaitBottleCount:   "await_bottle_count",
	StateAwaitConfirm:       "await_confirm",
	StateAwaitCode:          "await_code",
	StateAwaitTopUp:         "await_top_up",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Target описывает учётную запись, для которой оформляется заказ по коду.
type Target struct {
	UserID int64
	Code   string
}

// Draft хранит поля заказа, собранные в текущем диалоге и ещё не сохранённые.
type Draft struct {
	Phone         string
	Latitude      *float64
	Longitude     *float64
	BaseAddress   string
	AddressDetail string
	Address       string
	Bottles       int
	Total         decimal.Decimal
	Target        *Target
}

// Session хранит состояние диалога одного пользователя.
type Session struct {
	UserID      int64
	DisplayName string
	Language    model.Language
	State       State
	Draft       Draft
	UpdatedAt   time.Time
}

// NewSession создаёт сессию в начальном состоянии.
func NewSession(userID int64, displayName string, lang model.Language) Session {
	if lang == "" {
		lang = model.DefaultLanguage
	}
	return Session{
		UserID:      userID,
		DisplayName: displayName,
		Language:    lang,
		State:       StateIdle,
	}
}
