// Package repository содержит хранилище учётных записей и журнал заказов
// для PostgreSQL и SQLite.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/lavita-bot/internal/model"
)

const accountColumns = `user_id, code, display_name, phone, address, language, balance, total_spent, created_at`

const orderColumns = `id, account_id, quantity, unit_price, total_cost, address, latitude, longitude, status, created_at, completed_at`

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
	opts options
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string, opts ...Option) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool, opts: buildOptions(opts)}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := runMigrations(ctx, db, "postgres", "migrations/postgres"); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(delays) {
			break
		}

		timer := time.NewTimer(delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

// isRetryable сообщает, что операцию можно повторить: конфликт сериализации,
// взаимоблокировка или обрыв соединения.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer")
}

func isPgCodeConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == pgerrcode.UniqueViolation &&
		pgErr.ConstraintName == "accounts_code_key"
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func scanPgAccount(row pgx.Row) (model.Account, error) {
	var (
		a              model.Account
		lang           string
		balance, spent int64
	)
	err := row.Scan(&a.UserID, &a.Code, &a.DisplayName, &a.Phone, &a.Address, &lang, &balance, &spent, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Account{}, ErrAccountNotFound
		}
		return model.Account{}, err
	}
	a.Language = model.Language(lang)
	a.Balance = fromMinor(balance)
	a.TotalSpent = fromMinor(spent)
	return a, nil
}

func scanPgOrder(row pgx.Row) (model.Order, error) {
	var (
		o                model.Order
		status           string
		unitPrice, total int64
	)
	err := row.Scan(&o.ID, &o.AccountID, &o.Quantity, &unitPrice, &total, &o.Address,
		&o.Latitude, &o.Longitude, &status, &o.CreatedAt, &o.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, ErrOrderNotFound
		}
		return model.Order{}, err
	}
	o.Status = model.OrderStatus(status)
	o.UnitPrice = fromMinor(unitPrice)
	o.TotalCost = fromMinor(total)
	return o, nil
}

// GetAccount возвращает учётную запись пользователя.
func (r *PostgresRepository) GetAccount(ctx context.Context, userID int64) (model.Account, error) {
	acc, err := scanPgAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1`, userID))
	if err != nil && !errors.Is(err, ErrAccountNotFound) {
		return model.Account{}, fmt.Errorf("get account: %w", err)
	}
	return acc, err
}

// FindAccountByCode возвращает учётную запись по её коду.
func (r *PostgresRepository) FindAccountByCode(ctx context.Context, code string) (model.Account, error) {
	acc, err := scanPgAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE code = $1`, code))
	if err != nil && !errors.Is(err, ErrAccountNotFound) {
		return model.Account{}, fmt.Errorf("find account by code: %w", err)
	}
	return acc, err
}

// UpsertProfile создаёт учётную запись с новым кодом или обновляет профиль существующей.
// Код и баланс существующей записи не меняются.
func (r *PostgresRepository) UpsertProfile(ctx context.Context, p model.Profile) (model.Account, error) {
	acc, err := withFreshCode(r.opts.codes, isPgCodeConflict, func(code string) (model.Account, error) {
		var acc model.Account
		err := r.withRetry(ctx, func() error {
			var err error
			acc, err = scanPgAccount(r.pool.QueryRow(ctx,
				`INSERT INTO accounts (user_id, code, display_name, phone, address, language)
				 VALUES ($1, $2, $3, $4, $5, $6)
				 ON CONFLICT (user_id) DO UPDATE SET
				     display_name = EXCLUDED.display_name,
				     phone = EXCLUDED.phone,
				     address = EXCLUDED.address,
				     language = EXCLUDED.language
				 RETURNING `+accountColumns,
				p.UserID, code, p.DisplayName, p.Phone, p.Address, string(p.Language),
			))
			return err
		})
		return acc, err
	})
	if err != nil {
		return model.Account{}, fmt.Errorf("upsert profile: %w", err)
	}
	return acc, nil
}

// SetLanguage сохраняет язык интерфейса, если учётная запись уже существует.
func (r *PostgresRepository) SetLanguage(ctx context.Context, userID int64, lang model.Language) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE accounts SET language = $2 WHERE user_id = $1`,
		userID, string(lang),
	)
	if err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	return nil
}

// Credit пополняет баланс и возвращает новое значение.
func (r *PostgresRepository) Credit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance int64
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE accounts SET balance = balance + $2 WHERE user_id = $1 RETURNING balance`,
			userID, toMinor(amount),
		).Scan(&balance)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrAccountNotFound
		}
		return decimal.Zero, fmt.Errorf("credit balance: %w", err)
	}
	return fromMinor(balance), nil
}

// PlaceOrder в одной транзакции списывает стоимость заказа и создаёт заказ.
// При gate=true баланс проверяется и уменьшается; иначе растёт только сумма расходов.
// При нехватке средств возвращается текущий баланс и ErrInsufficientFunds.
func (r *PostgresRepository) PlaceOrder(ctx context.Context, o model.NewOrder, gate bool) (model.Order, decimal.Decimal, error) {
	var (
		order   model.Order
		balance int64
	)
	unit := toMinor(o.UnitPrice)
	total := unit * int64(o.Quantity)

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		// Блокируем строку учётной записи, чтобы параллельные заказы не ушли в минус.
		err = tx.QueryRow(ctx,
			`SELECT balance FROM accounts WHERE user_id = $1 FOR UPDATE`, o.AccountID,
		).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("lock account: %w", err)
		}

		debit := int64(0)
		if gate {
			if balance < total {
				return ErrInsufficientFunds
			}
			debit = total
		}

		err = tx.QueryRow(ctx,
			`UPDATE accounts SET balance = balance - $2, total_spent = total_spent + $3
			 WHERE user_id = $1 RETURNING balance`,
			o.AccountID, debit, total,
		).Scan(&balance)
		if err != nil {
			return fmt.Errorf("debit account: %w", err)
		}

		order, err = scanPgOrder(tx.QueryRow(ctx,
			`INSERT INTO orders (account_id, quantity, unit_price, total_cost, address, latitude, longitude, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING `+orderColumns,
			o.AccountID, o.Quantity, unit, total, o.Address, o.Latitude, o.Longitude,
			string(model.OrderStatusActive),
		))
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return model.Order{}, fromMinor(balance), err
		}
		return model.Order{}, decimal.Zero, err
	}

	return order, fromMinor(balance), nil
}

// ListOrders возвращает заказы учётной записи, новые первыми. status=nil означает все статусы.
func (r *PostgresRepository) ListOrders(ctx context.Context, accountID int64, status *model.OrderStatus) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE account_id = $1`
	args := []any{accountID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanPgOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// MarkOrderCompleted переводит заказ в статус completed. Повторный вызов не меняет время завершения.
func (r *PostgresRepository) MarkOrderCompleted(ctx context.Context, id int64) (model.Order, error) {
	o, err := scanPgOrder(r.pool.QueryRow(ctx,
		`UPDATE orders SET status = $2, completed_at = COALESCE(completed_at, NOW())
		 WHERE id = $1 RETURNING `+orderColumns,
		id, string(model.OrderStatusCompleted),
	))
	if err != nil && !errors.Is(err, ErrOrderNotFound) {
		return model.Order{}, fmt.Errorf("complete order: %w", err)
	}
	return o, err
}
