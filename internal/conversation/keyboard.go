package conversation

// Request обозначает специальную кнопку, которая отправляет структурированные данные.
type Request int

const (
	RequestNone Request = iota
	RequestContact
	RequestLocation
)

// Button описывает кнопку клавиатуры без привязки к транспорту и языку.
type Button struct {
	Action  Action
	Arg     string
	Request Request
}

// Token возвращает данные inline-кнопки.
func (b Button) Token() string {
	if b.Arg == "" {
		return b.Action.Key()
	}
	return b.Action.Key() + ":" + b.Arg
}

// Keyboard декларативно описывает допустимые вводы для состояния.
// Пустая клавиатура означает, что её нужно убрать.
type Keyboard struct {
	Inline bool
	Rows   [][]Button
}

// IsEmpty сообщает, что в клавиатуре нет кнопок.
func (k Keyboard) IsEmpty() bool {
	return len(k.Rows) == 0
}

func row(actions ...Action) []Button {
	out := make([]Button, 0, len(actions))
	for _, a := range actions {
		out = append(out, Button{Action: a})
	}
	return out
}

// KeyboardFor возвращает клавиатуру состояния.
func KeyboardFor(s State) Keyboard {
	switch s {
	case StateLanguageSelect:
		return Keyboard{Inline: true, Rows: [][]Button{
			{{Action: ActionLanguage, Arg: "ru"}},
			{{Action: ActionLanguage, Arg: "en"}},
		}}
	case StateMainMenu:
		return Keyboard{Rows: [][]Button{
			row(ActionOrder),
			row(ActionOrderByCode),
			row(ActionProfile),
			row(ActionActiveOrders),
			row(ActionHistory),
			row(ActionExpenses, ActionTopUp),
			row(ActionChangeLanguage),
		}}
	case StateAwaitPhone:
		return Keyboard{Rows: [][]Button{
			{{Action: ActionShareContact, Request: RequestContact}},
			row(ActionBack),
		}}
	case StateAwaitLocation:
		return Keyboard{Rows: [][]Button{
			{{Action: ActionShareLocation, Request: RequestLocation}},
			row(ActionBack),
		}}
	case StateAwaitBottleCount:
		return Keyboard{Rows: [][]Button{
			row(ActionDecrement, ActionIncrement),
			row(ActionConfirm),
			row(ActionBack),
		}}
	case StateAwaitConfirm:
		return Keyboard{Rows: [][]Button{
			row(ActionConfirm),
			row(ActionBack),
		}}
	case StateAwaitAddressDetail, StateAwaitCode, StateAwaitTopUp:
		return Keyboard{Rows: [][]Button{row(ActionBack)}}
	default:
		return Keyboard{}
	}
}
