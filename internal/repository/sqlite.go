package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/lavita-bot/internal/model"
)

// SQLiteRepository хранит данные в файле SQLite. Подходит для одиночного развёртывания и тестов.
// Все запросы идут через одно соединение, поэтому транзакции выполняются строго по очереди.
type SQLiteRepository struct {
	db   *sqlx.DB
	opts options
	now  func() time.Time
}

type accountRow struct {
	UserID      int64     `db:"user_id"`
	Code        string    `db:"code"`
	DisplayName string    `db:"display_name"`
	Phone       string    `db:"phone"`
	Address     string    `db:"address"`
	Language    string    `db:"language"`
	Balance     int64     `db:"balance"`
	TotalSpent  int64     `db:"total_spent"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r accountRow) toModel() model.Account {
	return model.Account{
		UserID:      r.UserID,
		Code:        r.Code,
		DisplayName: r.DisplayName,
		Phone:       r.Phone,
		Address:     r.Address,
		Language:    model.Language(r.Language),
		Balance:     fromMinor(r.Balance),
		TotalSpent:  fromMinor(r.TotalSpent),
		CreatedAt:   r.CreatedAt,
	}
}

type orderRow struct {
	ID          int64      `db:"id"`
	AccountID   int64      `db:"account_id"`
	Quantity    int        `db:"quantity"`
	UnitPrice   int64      `db:"unit_price"`
	TotalCost   int64      `db:"total_cost"`
	Address     string     `db:"address"`
	Latitude    *float64   `db:"latitude"`
	Longitude   *float64   `db:"longitude"`
	Status      string     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	CompletedAt *time.Time `db:"completed_at"`
}

func (r orderRow) toModel() model.Order {
	return model.Order{
		ID:          r.ID,
		AccountID:   r.AccountID,
		Quantity:    r.Quantity,
		UnitPrice:   fromMinor(r.UnitPrice),
		TotalCost:   fromMinor(r.TotalCost),
		Address:     r.Address,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Status:      model.OrderStatus(r.Status),
		CreatedAt:   r.CreatedAt,
		CompletedAt: r.CompletedAt,
	}
}

// NewSQLiteRepository открывает базу SQLite и применяет миграции.
func NewSQLiteRepository(dsn string, opts ...Option) (*SQLiteRepository, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := runMigrations(ctx, db.DB, "sqlite3", "migrations/sqlite"); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{
		db:   db,
		opts: buildOptions(opts),
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close закрывает соединение с БД.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func isSQLiteCodeConflict(err error) bool {
	var sqlErr sqlite3.Error
	return errors.As(err, &sqlErr) &&
		sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique &&
		strings.Contains(sqlErr.Error(), "accounts.code")
}

func (r *SQLiteRepository) getAccount(ctx context.Context, q sqlx.QueryerContext, where string, arg any) (model.Account, error) {
	var row accountRow
	err := sqlx.GetContext(ctx, q, &row, `SELECT `+accountColumns+` FROM accounts WHERE `+where, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, ErrAccountNotFound
		}
		return model.Account{}, err
	}
	return row.toModel(), nil
}

func (r *SQLiteRepository) getOrder(ctx context.Context, q sqlx.QueryerContext, id int64) (model.Order, error) {
	var row orderRow
	err := sqlx.GetContext(ctx, q, &row, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Order{}, ErrOrderNotFound
		}
		return model.Order{}, err
	}
	return row.toModel(), nil
}

// GetAccount возвращает учётную запись пользователя.
func (r *SQLiteRepository) GetAccount(ctx context.Context, userID int64) (model.Account, error) {
	acc, err := r.getAccount(ctx, r.db, "user_id = ?", userID)
	if err != nil && !errors.Is(err, ErrAccountNotFound) {
		return model.Account{}, fmt.Errorf("get account: %w", err)
	}
	return acc, err
}

// FindAccountByCode возвращает учётную запись по её коду.
func (r *SQLiteRepository) FindAccountByCode(ctx context.Context, code string) (model.Account, error) {
	acc, err := r.getAccount(ctx, r.db, "code = ?", code)
	if err != nil && !errors.Is(err, ErrAccountNotFound) {
		return model.Account{}, fmt.Errorf("find account by code: %w", err)
	}
	return acc, err
}

// UpsertProfile создаёт учётную запись с новым кодом или обновляет профиль существующей.
func (r *SQLiteRepository) UpsertProfile(ctx context.Context, p model.Profile) (model.Account, error) {
	acc, err := withFreshCode(r.opts.codes, isSQLiteCodeConflict, func(code string) (model.Account, error) {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return model.Account{}, fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(ctx,
			`INSERT INTO accounts (user_id, code, display_name, phone, address, language, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (user_id) DO UPDATE SET
			     display_name = excluded.display_name,
			     phone = excluded.phone,
			     address = excluded.address,
			     language = excluded.language`,
			p.UserID, code, p.DisplayName, p.Phone, p.Address, string(p.Language), r.now(),
		)
		if err != nil {
			return model.Account{}, err
		}

		acc, err := r.getAccount(ctx, tx, "user_id = ?", p.UserID)
		if err != nil {
			return model.Account{}, err
		}

		if err := tx.Commit(); err != nil {
			return model.Account{}, fmt.Errorf("commit tx: %w", err)
		}
		return acc, nil
	})
	if err != nil {
		return model.Account{}, fmt.Errorf("upsert profile: %w", err)
	}
	return acc, nil
}

// SetLanguage сохраняет язык интерфейса, если учётная запись уже существует.
func (r *SQLiteRepository) SetLanguage(ctx context.Context, userID int64, lang model.Language) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET language = ? WHERE user_id = ?`, string(lang), userID,
	); err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	return nil
}

// Credit пополняет баланс и возвращает новое значение.
func (r *SQLiteRepository) Credit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = balance + ? WHERE user_id = ?`, toMinor(amount), userID,
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("credit balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return decimal.Zero, ErrAccountNotFound
	}

	var balance int64
	if err := tx.GetContext(ctx, &balance, `SELECT balance FROM accounts WHERE user_id = ?`, userID); err != nil {
		return decimal.Zero, fmt.Errorf("read balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, fmt.Errorf("commit tx: %w", err)
	}
	return fromMinor(balance), nil
}

// PlaceOrder в одной транзакции списывает стоимость заказа и создаёт заказ.
func (r *SQLiteRepository) PlaceOrder(ctx context.Context, o model.NewOrder, gate bool) (model.Order, decimal.Decimal, error) {
	unit := toMinor(o.UnitPrice)
	total := unit * int64(o.Quantity)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Order{}, decimal.Zero, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var balance int64
	err = tx.GetContext(ctx, &balance, `SELECT balance FROM accounts WHERE user_id = ?`, o.AccountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Order{}, decimal.Zero, ErrAccountNotFound
		}
		return model.Order{}, decimal.Zero, fmt.Errorf("read balance: %w", err)
	}

	debit := int64(0)
	if gate {
		if balance < total {
			return model.Order{}, fromMinor(balance), ErrInsufficientFunds
		}
		debit = total
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = balance - ?, total_spent = total_spent + ? WHERE user_id = ?`,
		debit, total, o.AccountID,
	); err != nil {
		return model.Order{}, decimal.Zero, fmt.Errorf("debit account: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (account_id, quantity, unit_price, total_cost, address, latitude, longitude, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.AccountID, o.Quantity, unit, total, o.Address, o.Latitude, o.Longitude,
		string(model.OrderStatusActive), r.now(),
	)
	if err != nil {
		return model.Order{}, decimal.Zero, fmt.Errorf("insert order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Order{}, decimal.Zero, fmt.Errorf("order id: %w", err)
	}

	order, err := r.getOrder(ctx, tx, id)
	if err != nil {
		return model.Order{}, decimal.Zero, fmt.Errorf("read order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Order{}, decimal.Zero, fmt.Errorf("commit tx: %w", err)
	}

	return order, fromMinor(balance - debit), nil
}

// ListOrders возвращает заказы учётной записи, новые первыми.
func (r *SQLiteRepository) ListOrders(ctx context.Context, accountID int64, status *model.OrderStatus) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE account_id = ?`
	args := []any{accountID}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	var rows []orderRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}

	orders := make([]model.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, row.toModel())
	}
	return orders, nil
}

// MarkOrderCompleted переводит заказ в статус completed.
func (r *SQLiteRepository) MarkOrderCompleted(ctx context.Context, id int64) (model.Order, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, completed_at = COALESCE(completed_at, ?) WHERE id = ?`,
		string(model.OrderStatusCompleted), r.now(), id,
	)
	if err != nil {
		return model.Order{}, fmt.Errorf("complete order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Order{}, ErrOrderNotFound
	}

	o, err := r.getOrder(ctx, tx, id)
	if err != nil {
		return model.Order{}, fmt.Errorf("read order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return o, nil
}
