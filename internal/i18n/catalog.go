// Package i18n загружает каталоги сообщений и надписей кнопок для поддерживаемых языков.
package i18n

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mmeshcher/lavita-bot/internal/conversation"
	"github.com/mmeshcher/lavita-bot/internal/model"
)

//go:embed locales/*.yaml
var localesFS embed.FS

// StartCommand сбрасывает диалог.
const StartCommand = "/start"

type locale struct {
	Buttons  map[string]string `yaml:"buttons"`
	Messages map[string]string `yaml:"messages"`
}

type match struct {
	action conversation.Action
	arg    string
}

// Catalog хранит разобранные шаблоны сообщений и надписи кнопок.
type Catalog struct {
	messages map[model.Language]map[string]*template.Template
	buttons  map[model.Language]map[string]string
	labels   map[string]match
}

var funcs = template.FuncMap{
	"money": FormatMoney,
	"date": func(t time.Time) string {
		return t.Format("02.01.2006 15:04")
	},
}

// New загружает встроенные каталоги ru и en.
func New() (*Catalog, error) {
	c := &Catalog{
		messages: make(map[model.Language]map[string]*template.Template),
		buttons:  make(map[model.Language]map[string]string),
		labels:   make(map[string]match),
	}

	for _, lang := range []model.Language{model.LanguageRU, model.LanguageEN} {
		raw, err := localesFS.ReadFile(path.Join("locales", string(lang)+".yaml"))
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", lang, err)
		}

		var loc locale
		if err := yaml.Unmarshal(raw, &loc); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", lang, err)
		}

		tmpls := make(map[string]*template.Template, len(loc.Messages))
		for key, text := range loc.Messages {
			t, err := template.New(key).Funcs(funcs).Option("missingkey=zero").Parse(text)
			if err != nil {
				return nil, fmt.Errorf("parse message %s/%s: %w", lang, key, err)
			}
			tmpls[key] = t
		}
		c.messages[lang] = tmpls
		c.buttons[lang] = loc.Buttons

		for token, label := range loc.Buttons {
			action, arg, ok := conversation.ParseToken(token)
			if !ok {
				return nil, fmt.Errorf("locale %s: unknown button %q", lang, token)
			}
			c.labels[label] = match{action: action, arg: arg}
		}
	}

	return c, nil
}

// Render формирует текст сообщения. Отсутствующий перевод берётся из языка по умолчанию.
func (c *Catalog) Render(lang model.Language, key string, data map[string]any) (string, error) {
	t, ok := c.messages[lang][key]
	if !ok {
		t, ok = c.messages[model.DefaultLanguage][key]
	}
	if !ok {
		return "", fmt.Errorf("unknown message %q", key)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s/%s: %w", lang, key, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Label возвращает надпись кнопки на языке пользователя.
func (c *Catalog) Label(lang model.Language, b conversation.Button) string {
	token := b.Token()
	if label, ok := c.buttons[lang][token]; ok {
		return label
	}
	return c.buttons[model.DefaultLanguage][token]
}

// Match распознаёт текст сообщения как нажатие кнопки на любом из языков.
func (c *Catalog) Match(text string) (conversation.Action, string, bool) {
	text = strings.TrimSpace(text)
	if text == StartCommand || strings.HasPrefix(text, StartCommand+" ") {
		return conversation.ActionStart, "", true
	}
	m, ok := c.labels[text]
	if !ok {
		return conversation.ActionNone, "", false
	}
	return m.action, m.arg, true
}

// FormatMoney печатает сумму с разделителем разрядов и без нулевых копеек: 1234567.5 → "1 234 567.50".
func FormatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	s = strings.TrimSuffix(s, ".00")

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return sign + b.String()
}
