package conversation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/lavita-bot/internal/model"
	"github.com/mmeshcher/lavita-bot/internal/validation"
)

// Виды ошибок шага. Каждая из них сопровождается ответом пользователю.
var (
	// ErrValidation означает, что ввод не подходит текущему состоянию. Состояние не меняется.
	ErrValidation = errors.New("invalid input")
	// ErrResolution означает, что адрес по координатам не определён.
	ErrResolution = errors.New("address resolution failed")
	// ErrNotFound означает, что учётная запись не найдена.
	ErrNotFound = errors.New("account not found")
	// ErrInsufficientFunds означает, что на балансе не хватает средств для заказа.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrPersistence означает ошибку хранилища. Сессия сброшена.
	ErrPersistence = errors.New("persistence failure")
	// ErrUnexpectedEvent означает, что результат эффекта пришёл в состоянии, которое его не запрашивало.
	ErrUnexpectedEvent = errors.New("unexpected event")
)

// Outcome содержит результат одного шага автомата.
type Outcome struct {
	Session Session
	Effect  Effect
	Replies []Reply
	Err     error
}

// Machine реализует таблицу переходов диалога.
type Machine struct {
	unitPrice     decimal.Decimal
	balanceGating bool
}

// NewMachine создаёт автомат с ценой за бутылку и режимом проверки баланса при заказе.
func NewMachine(unitPrice decimal.Decimal, balanceGating bool) *Machine {
	return &Machine{unitPrice: unitPrice, balanceGating: balanceGating}
}

// UnitPrice возвращает цену за бутылку.
func (m *Machine) UnitPrice() decimal.Decimal {
	return m.unitPrice
}

// BalanceGating сообщает, проверяется ли баланс при подтверждении заказа.
func (m *Machine) BalanceGating() bool {
	return m.balanceGating
}

// Step применяет событие к сессии.
func (m *Machine) Step(s Session, ev Event) Outcome {
	in, ok := ev.(Input)
	if !ok {
		return m.result(s, ev)
	}

	switch {
	case in.Action == ActionStart:
		return m.restart(s)
	case in.Action == ActionBack && s.State != StateIdle:
		return m.back(s)
	}

	switch s.State {
	case StateIdle:
		return m.reject(s, MsgStartHint, nil)
	case StateLanguageSelect:
		return m.onLanguage(s, in)
	case StateMainMenu:
		return m.onMenu(s, in)
	case StateAwaitPhone:
		return m.onPhone(s, in)
	case StateAwaitLocation:
		return m.onLocation(s, in)
	case StateAwaitAddressDetail:
		return m.onAddressDetail(s, in)
	case StateAwaitBottleCount:
		return m.onBottleCount(s, in)
	case StateAwaitConfirm:
		return m.onConfirm(s, in)
	case StateAwaitCode:
		return m.onCode(s, in)
	case StateAwaitTopUp:
		return m.onTopUp(s, in)
	default:
		return m.reject(s, MsgStartHint, nil)
	}
}

func (m *Machine) restart(s Session) Outcome {
	next := NewSession(s.UserID, s.DisplayName, s.Language)
	next.State = StateLanguageSelect
	return m.moveTo(next, MsgWelcome, nil)
}

// back возвращает на предыдущий шаг, отбрасывая только поле покидаемого шага.
func (m *Machine) back(s Session) Outcome {
	next := s
	d := &next.Draft

	switch s.State {
	case StateLanguageSelect:
		next.State = StateIdle
		return m.moveTo(next, MsgStartHint, nil)
	case StateMainMenu:
		next.State = StateLanguageSelect
		return m.moveTo(next, MsgChooseLanguage, nil)
	case StateAwaitPhone:
		d.Phone = ""
		next.State = StateMainMenu
		return m.moveTo(next, MsgChooseAction, nil)
	case StateAwaitLocation:
		d.Latitude, d.Longitude, d.BaseAddress = nil, nil, ""
		next.State = StateAwaitPhone
		return m.moveTo(next, MsgAskPhone, nil)
	case StateAwaitAddressDetail:
		d.AddressDetail, d.Address = "", ""
		next.State = StateAwaitLocation
		return m.moveTo(next, MsgAskLocation, nil)
	case StateAwaitBottleCount:
		d.Bottles = 0
		if d.Target != nil {
			d.Target, d.Phone, d.Address = nil, "", ""
			next.State = StateAwaitCode
			return m.moveTo(next, MsgAskCode, nil)
		}
		next.State = StateAwaitAddressDetail
		return m.moveTo(next, MsgAskAddressDetail, map[string]any{"Address": d.BaseAddress})
	case StateAwaitConfirm:
		d.Total = decimal.Decimal{}
		next.State = StateAwaitBottleCount
		return m.moveTo(next, MsgBottleCount, m.countData(next))
	case StateAwaitCode, StateAwaitTopUp:
		next.State = StateMainMenu
		return m.moveTo(next, MsgChooseAction, nil)
	default:
		return m.reject(s, MsgStartHint, nil)
	}
}

func (m *Machine) onLanguage(s Session, in Input) Outcome {
	if in.Action != ActionLanguage {
		return m.reject(s, MsgChooseLanguage, nil)
	}
	lang, ok := model.ParseLanguage(in.Arg)
	if !ok {
		return m.reject(s, MsgChooseLanguage, nil)
	}
	next := s
	next.Language = lang
	return Outcome{Session: next, Effect: SaveLanguage{Language: lang}}
}

func (m *Machine) onMenu(s Session, in Input) Outcome {
	next := s
	switch in.Action {
	case ActionOrder:
		next.Draft = Draft{}
		next.State = StateAwaitPhone
		return m.moveTo(next, MsgAskPhone, nil)
	case ActionOrderByCode:
		next.Draft = Draft{}
		next.State = StateAwaitCode
		return m.moveTo(next, MsgAskCode, nil)
	case ActionTopUp:
		next.State = StateAwaitTopUp
		return m.moveTo(next, MsgAskTopUp, nil)
	case ActionChangeLanguage:
		next.State = StateLanguageSelect
		return m.moveTo(next, MsgChooseLanguage, nil)
	case ActionProfile:
		return Outcome{Session: s, Effect: LoadAccount{View: ViewProfile}}
	case ActionExpenses:
		return Outcome{Session: s, Effect: LoadAccount{View: ViewExpenses}}
	case ActionActiveOrders:
		active := model.OrderStatusActive
		return Outcome{Session: s, Effect: LoadOrders{Status: &active}}
	case ActionHistory:
		return Outcome{Session: s, Effect: LoadOrders{}}
	default:
		return m.reject(s, MsgUseButtons, nil)
	}
}

func (m *Machine) onPhone(s Session, in Input) Outcome {
	var phone string
	switch {
	case in.Kind == KindContact:
		phone = validation.NormalizePhone(in.Phone)
	case in.freeText():
		phone = validation.NormalizePhone(in.Text)
	default:
		return m.reject(s, MsgInvalidPhone, nil)
	}
	if !validation.IsValidPhone(phone) {
		return m.reject(s, MsgInvalidPhone, nil)
	}

	next := s
	next.Draft.Phone = phone
	next.State = StateAwaitLocation
	return m.moveTo(next, MsgAskLocation, nil)
}

func (m *Machine) onLocation(s Session, in Input) Outcome {
	if in.Kind != KindLocation {
		return m.reject(s, MsgLocationExpected, nil)
	}
	lat, lon := in.Latitude, in.Longitude
	next := s
	next.Draft.Latitude = &lat
	next.Draft.Longitude = &lon
	return Outcome{
		Session: next,
		Effect:  ResolveAddress{Latitude: lat, Longitude: lon, Language: s.Language},
	}
}

func (m *Machine) onAddressDetail(s Session, in Input) Outcome {
	if !in.freeText() {
		return m.reject(s, MsgInvalidAddressDetail, nil)
	}
	detail := strings.TrimSpace(in.Text)
	if !validation.HasHouseNumber(detail) {
		return m.reject(s, MsgInvalidAddressDetail, nil)
	}

	next := s
	next.Draft.AddressDetail = detail
	next.Draft.Address = joinAddress(s.Draft.BaseAddress, detail)
	return Outcome{
		Session: next,
		Effect: SaveProfile{Profile: model.Profile{
			UserID:      s.UserID,
			DisplayName: s.DisplayName,
			Phone:       next.Draft.Phone,
			Address:     next.Draft.Address,
			Language:    s.Language,
		}},
	}
}

func joinAddress(base, detail string) string {
	if base == "" {
		return detail
	}
	return base + ", " + detail
}

func (m *Machine) onBottleCount(s Session, in Input) Outcome {
	next := s
	switch in.Action {
	case ActionIncrement:
		next.Draft.Bottles++
		return m.moveTo(next, MsgBottleCount, m.countData(next))
	case ActionDecrement:
		if next.Draft.Bottles > 0 {
			next.Draft.Bottles--
		}
		return m.moveTo(next, MsgBottleCount, m.countData(next))
	case ActionConfirm:
		if s.Draft.Bottles < 1 {
			return m.reject(s, MsgBottlesRequired, nil)
		}
		next.Draft.Total = m.unitPrice.Mul(decimal.NewFromInt(int64(s.Draft.Bottles)))
		next.State = StateAwaitConfirm
		return m.moveTo(next, MsgConfirmOrder, map[string]any{
			"Count":   next.Draft.Bottles,
			"Price":   m.unitPrice,
			"Total":   next.Draft.Total,
			"Address": next.Draft.Address,
		})
	default:
		return m.reject(s, MsgUseButtons, m.countData(s))
	}
}

func (m *Machine) countData(s Session) map[string]any {
	return map[string]any{"Count": s.Draft.Bottles, "Price": m.unitPrice}
}

func (m *Machine) onConfirm(s Session, in Input) Outcome {
	if in.Action != ActionConfirm {
		return m.reject(s, MsgUseButtons, nil)
	}

	order := model.NewOrder{
		AccountID: s.UserID,
		Quantity:  s.Draft.Bottles,
		UnitPrice: m.unitPrice,
		Address:   s.Draft.Address,
	}
	if t := s.Draft.Target; t != nil {
		order.AccountID = t.UserID
	} else {
		order.Latitude = s.Draft.Latitude
		order.Longitude = s.Draft.Longitude
	}
	return Outcome{Session: s, Effect: PlaceOrder{Order: order}}
}

func (m *Machine) onCode(s Session, in Input) Outcome {
	if !in.freeText() {
		return m.reject(s, MsgInvalidCode, nil)
	}
	code := validation.NormalizeCode(in.Text)
	if !validation.IsValidCode(code) {
		return m.reject(s, MsgInvalidCode, nil)
	}
	return Outcome{Session: s, Effect: FindAccount{Code: code}}
}

func (m *Machine) onTopUp(s Session, in Input) Outcome {
	if !in.freeText() {
		return m.reject(s, MsgInvalidAmount, nil)
	}
	amount, err := validation.ParseAmount(in.Text)
	if err != nil {
		return m.reject(s, MsgInvalidAmount, nil)
	}
	return Outcome{Session: s, Effect: CreditBalance{Amount: amount}}
}

// result применяет результат эффекта, запрошенного в текущем состоянии.
func (m *Machine) result(s Session, ev Event) Outcome {
	if failed, ok := ev.(StorageFailed); ok {
		return m.fail(s, failed.Err)
	}

	next := s
	d := &next.Draft

	switch e := ev.(type) {
	case LanguageSaved:
		if s.State == StateLanguageSelect {
			next.State = StateMainMenu
			return m.moveTo(next, MsgChooseAction, nil)
		}

	case AddressResolved:
		if s.State == StateAwaitLocation {
			d.BaseAddress = e.Address
			next.State = StateAwaitAddressDetail
			return m.moveTo(next, MsgAskAddressDetail, map[string]any{"Address": e.Address})
		}

	case AddressUnresolved:
		if s.State == StateAwaitLocation {
			d.Latitude, d.Longitude, d.BaseAddress = nil, nil, ""
			out := m.moveTo(next, MsgAddressUnresolved, nil)
			out.Err = ErrResolution
			return out
		}

	case ProfileSaved:
		if s.State == StateAwaitAddressDetail {
			d.Bottles = 0
			next.State = StateAwaitBottleCount
			return m.moveTo(next, MsgBottleCount, m.countData(next))
		}

	case AccountFound:
		if s.State == StateAwaitCode {
			d.Target = &Target{UserID: e.Account.UserID, Code: e.Account.Code}
			d.Phone = e.Account.Phone
			d.Address = e.Account.Address
			d.Bottles = 0
			next.State = StateAwaitBottleCount
			return m.moveTo(next, MsgCodeAccepted, map[string]any{
				"Name":    e.Account.DisplayName,
				"Address": e.Account.Address,
				"Count":   0,
				"Price":   m.unitPrice,
			})
		}

	case AccountMissing:
		switch s.State {
		case StateAwaitCode:
			d.Target, d.Phone, d.Address = nil, "", ""
			out := m.moveTo(next, MsgCodeNotFound, nil)
			out.Err = ErrNotFound
			return out
		case StateAwaitTopUp:
			next.State = StateMainMenu
			out := m.moveTo(next, MsgNotRegistered, nil)
			out.Err = ErrNotFound
			return out
		case StateMainMenu:
			out := m.moveTo(s, MsgNotRegistered, nil)
			out.Err = ErrNotFound
			return out
		case StateAwaitConfirm:
			return m.fail(s, fmt.Errorf("order account %d vanished: %w", orderAccount(s), ErrNotFound))
		}

	case OrderPlaced:
		if s.State == StateAwaitConfirm {
			next.Draft = Draft{}
			next.State = StateMainMenu
			return m.moveTo(next, MsgOrderPlaced, map[string]any{
				"ID":      e.Order.ID,
				"Count":   e.Order.Quantity,
				"Total":   e.Order.TotalCost,
				"Address": e.Order.Address,
				"Balance": e.Balance,
				"Gated":   m.balanceGating,
			})
		}

	case FundsInsufficient:
		if s.State == StateAwaitConfirm {
			next.Draft = Draft{}
			next.State = StateMainMenu
			out := m.moveTo(next, MsgInsufficientFunds, map[string]any{
				"Balance":  e.Balance,
				"Required": e.Required,
			})
			out.Err = ErrInsufficientFunds
			return out
		}

	case BalanceCredited:
		if s.State == StateAwaitTopUp {
			next.State = StateMainMenu
			return m.moveTo(next, MsgToppedUp, map[string]any{
				"Amount":  e.Amount,
				"Balance": e.Balance,
			})
		}

	case AccountLoaded:
		if s.State == StateMainMenu {
			key := MsgProfile
			if e.View == ViewExpenses {
				key = MsgExpenses
			}
			return m.moveTo(s, key, map[string]any{"Account": e.Account})
		}

	case OrdersLoaded:
		if s.State == StateMainMenu {
			active := e.Status != nil && *e.Status == model.OrderStatusActive
			switch {
			case active && len(e.Orders) == 0:
				return m.moveTo(s, MsgNoActiveOrders, nil)
			case active:
				return m.moveTo(s, MsgActiveOrders, map[string]any{"Orders": e.Orders})
			case len(e.Orders) == 0:
				return m.moveTo(s, MsgNoOrders, nil)
			default:
				return m.moveTo(s, MsgHistory, map[string]any{"Orders": e.Orders})
			}
		}
	}

	out := m.reject(s, MsgUseButtons, nil)
	out.Err = fmt.Errorf("%w: %T in state %s", ErrUnexpectedEvent, ev, s.State)
	return out
}

func orderAccount(s Session) int64 {
	if s.Draft.Target != nil {
		return s.Draft.Target.UserID
	}
	return s.UserID
}

// fail сбрасывает сессию после ошибки хранилища: недописанному черновику доверять нельзя.
func (m *Machine) fail(s Session, err error) Outcome {
	next := NewSession(s.UserID, s.DisplayName, s.Language)
	out := m.moveTo(next, MsgRestart, nil)
	out.Err = fmt.Errorf("%w: %v", ErrPersistence, err)
	return out
}

func (m *Machine) moveTo(s Session, key string, data map[string]any) Outcome {
	return Outcome{Session: s, Replies: []Reply{m.reply(s, key, data)}}
}

// reject оставляет сессию без изменений и повторяет подсказку.
func (m *Machine) reject(s Session, key string, data map[string]any) Outcome {
	return Outcome{
		Session: s,
		Replies: []Reply{m.reply(s, key, data)},
		Err:     ErrValidation,
	}
}

func (m *Machine) reply(s Session, key string, data map[string]any) Reply {
	return Reply{
		Language: s.Language,
		Key:      key,
		Data:     data,
		Keyboard: KeyboardFor(s.State),
	}
}
