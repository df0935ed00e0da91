package conversation

import "strings"

// Action обозначает распознанную кнопку или команду.
type Action int

const (
	ActionNone Action = iota
	ActionStart
	ActionBack
	ActionConfirm
	ActionIncrement
	ActionDecrement
	ActionLanguage
	ActionOrder
	ActionOrderByCode
	ActionProfile
	ActionActiveOrders
	ActionHistory
	ActionExpenses
	ActionTopUp
	ActionChangeLanguage
	ActionShareContact
	ActionShareLocation
)

var actionKeys = map[Action]string{
	ActionStart:          "start",
	ActionBack:           "back",
	ActionConfirm:        "confirm",
	ActionIncrement:      "increment",
	ActionDecrement:      "decrement",
	ActionLanguage:       "lang",
	ActionOrder:          "order",
	ActionOrderByCode:    "order_by_code",
	ActionProfile:        "profile",
	ActionActiveOrders:   "active_orders",
	ActionHistory:        "history",
	ActionExpenses:       "expenses",
	ActionTopUp:          "top_up",
	ActionChangeLanguage: "change_language",
	ActionShareContact:   "share_contact",
	ActionShareLocation:  "share_location",
}

// Key возвращает строковый идентификатор действия, используемый в каталогах и токенах кнопок.
func (a Action) Key() string {
	return actionKeys[a]
}

// Actions возвращает все действия, у которых есть кнопка.
func Actions() []Action {
	out := make([]Action, 0, len(actionKeys))
	for a := ActionStart; a <= ActionShareLocation; a++ {
		out = append(out, a)
	}
	return out
}

// ParseToken разбирает токен inline-кнопки вида "key" или "key:arg".
func ParseToken(token string) (Action, string, bool) {
	key, arg, _ := strings.Cut(token, ":")
	for a, k := range actionKeys {
		if k == key {
			return a, arg, true
		}
	}
	return ActionNone, "", false
}

// InputKind обозначает тип входящего события от транспорта.
type InputKind int

const (
	KindText InputKind = iota + 1
	KindContact
	KindLocation
	KindCallback
)

// Event является входом автомата: сообщением пользователя либо результатом эффекта.
type Event interface {
	isEvent()
}

// Input описывает входящее событие от пользователя.
type Input struct {
	Kind      InputKind
	Text      string
	Action    Action
	Arg       string
	Phone     string
	Latitude  float64
	Longitude float64
}

func (Input) isEvent() {}

// TextInput создаёт текстовое событие. Action равен ActionNone для произвольного текста.
func TextInput(text string, action Action) Input {
	return Input{Kind: KindText, Text: text, Action: action}
}

// ContactInput создаёт событие с контактом пользователя.
func ContactInput(phone string) Input {
	return Input{Kind: KindContact, Phone: phone}
}

// LocationInput создаёт событие с координатами.
func LocationInput(lat, lon float64) Input {
	return Input{Kind: KindLocation, Latitude: lat, Longitude: lon}
}

// CallbackInput создаёт событие нажатия inline-кнопки.
func CallbackInput(token string) Input {
	in := Input{Kind: KindCallback, Text: token}
	if action, arg, ok := ParseToken(token); ok {
		in.Action = action
		in.Arg = arg
	}
	return in
}

// freeText сообщает, что событие содержит произвольный текст, а не кнопку.
func (in Input) freeText() bool {
	return in.Kind == KindText && in.Action == ActionNone
}
