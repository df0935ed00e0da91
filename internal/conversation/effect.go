package conversation

import (
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/lavita-bot/internal/model"
)

// Effect описывает побочный эффект, запрошенный переходом.
type Effect interface {
	isEffect()
}

// View задаёт вид карточки учётной записи в главном меню.
type View int

const (
	ViewProfile View = iota + 1
	ViewExpenses
)

type (
	// ResolveAddress запрашивает адрес по координатам.
	ResolveAddress struct {
		Latitude  float64
		Longitude float64
		Language  model.Language
	}
	// SaveLanguage сохраняет язык в учётной записи, если она существует.
	SaveLanguage struct {
		Language model.Language
	}
	// SaveProfile создаёт или обновляет учётную запись пользователя.
	SaveProfile struct {
		Profile model.Profile
	}
	// FindAccount ищет учётную запись по коду.
	FindAccount struct {
		Code string
	}
	// PlaceOrder атомарно создаёт заказ и списывает его стоимость.
	PlaceOrder struct {
		Order model.NewOrder
	}
	// CreditBalance пополняет баланс пользователя.
	CreditBalance struct {
		Amount decimal.Decimal
	}
	// LoadAccount читает учётную запись пользователя для показа.
	LoadAccount struct {
		View View
	}
	// LoadOrders читает заказы пользователя. При Status == nil читаются все заказы.
	LoadOrders struct {
		Status *model.OrderStatus
	}
)

func (ResolveAddress) isEffect() {}
func (SaveLanguage) isEffect()   {}
func (SaveProfile) isEffect()    {}
func (FindAccount) isEffect()    {}
func (PlaceOrder) isEffect()     {}
func (CreditBalance) isEffect()  {}
func (LoadAccount) isEffect()    {}
func (LoadOrders) isEffect()     {}

// Результаты эффектов.
type (
	AddressResolved struct {
		Address string
	}
	AddressUnresolved struct {
		Err error
	}
	LanguageSaved struct{}
	ProfileSaved  struct {
		Account model.Account
	}
	AccountFound struct {
		Account model.Account
	}
	// AccountMissing сообщает, что учётная запись не найдена по коду или у текущего пользователя.
	AccountMissing struct{}
	OrderPlaced    struct {
		Order   model.Order
		Balance decimal.Decimal
	}
	FundsInsufficient struct {
		Balance  decimal.Decimal
		Required decimal.Decimal
	}
	BalanceCredited struct {
		Amount  decimal.Decimal
		Balance decimal.Decimal
	}
	AccountLoaded struct {
		Account model.Account
		View    View
	}
	OrdersLoaded struct {
		Orders []model.Order
		Status *model.OrderStatus
	}
	// StorageFailed сообщает об ошибке хранилища. Сессия сбрасывается.
	StorageFailed struct {
		Err error
	}
)

func (AddressResolved) isEvent()   {}
func (AddressUnresolved) isEvent() {}
func (LanguageSaved) isEvent()     {}
func (ProfileSaved) isEvent()      {}
func (AccountFound) isEvent()      {}
func (AccountMissing) isEvent()    {}
func (OrderPlaced) isEvent()       {}
func (FundsInsufficient) isEvent() {}
func (BalanceCredited) isEvent()   {}
func (AccountLoaded) isEvent()     {}
func (OrdersLoaded) isEvent()      {}
func (StorageFailed) isEvent()     {}
