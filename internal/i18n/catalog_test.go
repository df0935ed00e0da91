package i18n

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/lavita-bot/internal/conversation"
	"github.com/mmeshcher/lavita-bot/internal/model"
)

var languages = []model.Language{model.LanguageRU, model.LanguageEN}

func sampleData() map[string]any {
	lat := 41.3
	return map[string]any{
		"Count":    2,
		"Price":    decimal.NewFromInt(20000),
		"Total":    decimal.NewFromInt(40000),
		"Address":  "Amir Temur St 1, 15",
		"ID":       int64(7),
		"Balance":  decimal.NewFromInt(10000),
		"Gated":    true,
		"Required": decimal.NewFromInt(40000),
		"Amount":   decimal.NewFromInt(50000),
		"Name":     "Ali",
		"Account": model.Account{
			UserID:      1,
			Code:        "AB12CD34",
			DisplayName: "Ali",
			Phone:       "+998901234567",
			Address:     "Amir Temur St 1, 15",
			Balance:     decimal.NewFromInt(10000),
			TotalSpent:  decimal.NewFromInt(40000),
		},
		"Orders": []model.Order{
			{ID: 2, Quantity: 1, TotalCost: decimal.NewFromInt(20000), Address: "A 1", Status: model.OrderStatusCompleted, CreatedAt: time.Now(), Latitude: &lat},
			{ID: 1, Quantity: 2, TotalCost: decimal.NewFromInt(40000), Address: "B 2", Status: model.OrderStatusActive, CreatedAt: time.Now()},
		},
	}
}

func TestCatalog_AllMessagesRender(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	data := sampleData()
	for _, lang := range languages {
		for _, key := range conversation.MessageKeys() {
			_, ok := c.messages[lang][key]
			require.True(t, ok, "message %s missing in %s", key, lang)

			text, err := c.Render(lang, key, data)
			require.NoError(t, err, "%s/%s", lang, key)
			assert.NotEmpty(t, text)
			assert.NotContains(t, text, "<no value>", "%s/%s", lang, key)
		}
	}
}

func TestCatalog_AllButtonsLabeled(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	states := []conversation.State{
		conversation.StateLanguageSelect,
		conversation.StateMainMenu,
		conversation.StateAwaitPhone,
		conversation.StateAwaitLocation,
		conversation.StateAwaitAddressDetail,
		conversation.StateAwaitBottleCount,
		conversation.StateAwaitConfirm,
		conversation.StateAwaitCode,
		conversation.StateAwaitTopUp,
	}
	for _, lang := range languages {
		for _, st := range states {
			for _, row := range conversation.KeyboardFor(st).Rows {
				for _, b := range row {
					_, ok := c.buttons[lang][b.Token()]
					assert.True(t, ok, "button %s missing in %s", b.Token(), lang)
				}
			}
		}
	}
}

func TestCatalog_MatchRoundTrip(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	for _, lang := range languages {
		for _, b := range []conversation.Button{
			{Action: conversation.ActionBack},
			{Action: conversation.ActionOrder},
			{Action: conversation.ActionIncrement},
			{Action: conversation.ActionLanguage, Arg: "en"},
		} {
			action, arg, ok := c.Match(c.Label(lang, b))
			require.True(t, ok)
			assert.Equal(t, b.Action, action)
			assert.Equal(t, b.Arg, arg)
		}
	}

	action, _, ok := c.Match("/start")
	assert.True(t, ok)
	assert.Equal(t, conversation.ActionStart, action)

	action, _, ok = c.Match("/start promo")
	assert.True(t, ok)
	assert.Equal(t, conversation.ActionStart, action)

	_, _, ok = c.Match("Amir Temur St 1")
	assert.False(t, ok)
}

func TestCatalog_RenderOrderPlaced(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	data := sampleData()
	text, err := c.Render(model.LanguageEN, conversation.MsgOrderPlaced, data)
	require.NoError(t, err)
	assert.Contains(t, text, "#7")
	assert.Contains(t, text, "40 000 UZS")
	assert.Contains(t, text, "Remaining balance: 10 000 UZS")

	data["Gated"] = false
	text, err = c.Render(model.LanguageEN, conversation.MsgOrderPlaced, data)
	require.NoError(t, err)
	assert.NotContains(t, text, "Remaining balance")
}

func TestCatalog_RenderUnknownKey(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	_, err = c.Render(model.LanguageRU, "nope", nil)
	assert.Error(t, err)
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "0", want: "0"},
		{in: "999", want: "999"},
		{in: "20000", want: "20 000"},
		{in: "1234567.5", want: "1 234 567.50"},
		{in: "-1500", want: "-1 500"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMoney(decimal.RequireFromString(tt.in)))
		})
	}
}
