package conversation

import "github.com/mmeshcher/lavita-bot/internal/model"

// Ключи сообщений каталога локализации.
const (
	MsgWelcome              = "welcome"
	MsgChooseLanguage       = "choose_language"
	MsgStartHint            = "start_hint"
	MsgChooseAction         = "choose_action"
	MsgUseButtons           = "use_buttons"
	MsgAskPhone             = "ask_phone"
	MsgInvalidPhone         = "invalid_phone"
	MsgAskLocation          = "ask_location"
	MsgLocationExpected     = "location_expected"
	MsgAddressUnresolved    = "address_unresolved"
	MsgAskAddressDetail     = "ask_address_detail"
	MsgInvalidAddressDetail = "invalid_address_detail"
	MsgBottleCount          = "bottle_count"
	MsgBottlesRequired      = "bottles_required"
	MsgConfirmOrder         = "confirm_order"
	MsgOrderPlaced          = "order_placed"
	MsgInsufficientFunds    = "insufficient_funds"
	MsgAskCode              = "ask_code"
	MsgInvalidCode          = "invalid_code"
	MsgCodeNotFound         = "code_not_found"
	MsgCodeAccepted         = "code_accepted"
	MsgAskTopUp             = "ask_top_up"
	MsgInvalidAmount        = "invalid_amount"
	MsgToppedUp             = "topped_up"
	MsgNotRegistered        = "not_registered"
	MsgProfile              = "profile"
	MsgExpenses             = "expenses"
	MsgActiveOrders         = "active_orders"
	MsgNoActiveOrders       = "no_active_orders"
	MsgHistory              = "history"
	MsgNoOrders             = "no_orders"
	MsgRestart              = "restart"
)

// MessageKeys перечисляет все ключи сообщений.
func MessageKeys() []string {
	return []string{
		MsgWelcome, MsgChooseLanguage, MsgStartHint, MsgChooseAction, MsgUseButtons,
		MsgAskPhone, MsgInvalidPhone, MsgAskLocation, MsgLocationExpected, MsgAddressUnresolved,
		MsgAskAddressDetail, MsgInvalidAddressDetail, MsgBottleCount, MsgBottlesRequired,
		MsgConfirmOrder, MsgOrderPlaced, MsgInsufficientFunds, MsgAskCode, MsgInvalidCode,
		MsgCodeNotFound, MsgCodeAccepted, MsgAskTopUp, MsgInvalidAmount, MsgToppedUp,
		MsgNotRegistered, MsgProfile, MsgExpenses, MsgActiveOrders, MsgNoActiveOrders,
		MsgHistory, MsgNoOrders, MsgRestart,
	}
}

// Reply содержит ключ сообщения, данные шаблона и клавиатуру для транспорта.
type Reply struct {
	Language model.Language
	Key      string
	Data     map[string]any
	Keyboard Keyboard
}
