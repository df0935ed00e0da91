package repository

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/mmeshcher/lavita-bot/internal/model"
	"github.com/mmeshcher/lavita-bot/internal/validation"
)

// codeAttempts ограничивает число попыток сгенерировать свободный код.
const codeAttempts = 5

// CodeGenerator выдаёт кандидата в коды учётной записи.
type CodeGenerator func() (string, error)

// Option настраивает репозиторий.
type Option func(*options)

type options struct {
	codes CodeGenerator
}

// WithCodeGenerator подменяет генератор кодов учётных записей.
func WithCodeGenerator(gen CodeGenerator) Option {
	return func(o *options) {
		o.codes = gen
	}
}

func buildOptions(opts []Option) options {
	o := options{codes: RandomCode}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// RandomCode генерирует случайный код из алфавита validation.CodeAlphabet.
func RandomCode() (string, error) {
	alphabet := validation.CodeAlphabet
	limit := big.NewInt(int64(len(alphabet)))

	buf := make([]byte, validation.CodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}

// withFreshCode вызывает insert с новыми кодами, пока код не окажется свободным.
func withFreshCode(gen CodeGenerator, isConflict func(error) bool, insert func(code string) (model.Account, error)) (model.Account, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := gen()
		if err != nil {
			return model.Account{}, err
		}

		acc, err := insert(code)
		if err == nil {
			return acc, nil
		}
		if !isConflict(err) {
			return model.Account{}, err
		}
	}
	return model.Account{}, ErrCodeConflict
}
