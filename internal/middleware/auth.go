// Package middleware содержит HTTP middleware для служебного API бота.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

type contextKey string

const operatorKey contextKey = "operator"

const bearerPrefix = "Bearer "

// OperatorAuth проверяет подписанный токен оператора в заголовке Authorization.
// Токен имеет вид "имя.подпись", где подпись это HMAC-SHA256 от имени.
type OperatorAuth struct {
	secretKey []byte
}

// NewOperatorAuth создаёт проверку токенов с указанным секретом.
// При пустом секрете все запросы к служебному API отклоняются.
func NewOperatorAuth(secret string) *OperatorAuth {
	return &OperatorAuth{
		secretKey: []byte(secret),
	}
}

// Enabled сообщает, настроен ли секрет оператора.
func (a *OperatorAuth) Enabled() bool {
	return len(a.secretKey) > 0
}

// Middleware проверяет токен и добавляет имя оператора в контекст запроса.
func (a *OperatorAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		name, ok := a.parseToken(strings.TrimPrefix(header, bearerPrefix))
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), operatorKey, name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Sign возвращает токен для оператора с указанным именем.
func (a *OperatorAuth) Sign(name string) string {
	return name + "." + a.signature(name)
}

func (a *OperatorAuth) signature(name string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(name))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *OperatorAuth) parseToken(token string) (string, bool) {
	idx := strings.LastIndex(token, ".")
	if idx <= 0 || idx == len(token)-1 {
		return "", false
	}

	name, signature := token[:idx], token[idx+1:]
	if !hmac.Equal([]byte(signature), []byte(a.signature(name))) {
		return "", false
	}

	return name, true
}

// OperatorFromContext извлекает имя оператора из контекста запроса.
func OperatorFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(operatorKey).(string)
	return name, ok
}
