package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	Transfer TransactionType = "transfer"
)

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
)

type (
	TransactionType string
	CategoryType    string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Account struct {
		ID             string
		Name           string
		Type           string
		OpeningBalance Money
		CurrencyCode   string
		IsArchived     bool
	}

	Category struct {
		ID         string
		Name       string
		Type       CategoryType
		Color      string
		Icon       string
		IsArchived bool
	}

	Transaction struct {
		ID          string
		Type        TransactionType
		AccountID   string
		AccountIDTo string // set only for transfers
		CategoryID  string // empty for transfers
		Amount      Money
		Date        Date
		Note        string
		Tags        []string
	}

	// Budget limits spending in one category for one period.
	// PeriodID is the period start date in YYYY-MM-DD form.
	Budget struct {
		ID         string
		CategoryID string
		PeriodID   string
		Amount     Money
		Rollover   bool
	}
)

var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidCategoryType    = errors.New("invalid category type")
	ErrEmptyName              = errors.New("empty name")
	ErrEmptyAccount           = errors.New("empty account")
	ErrEmptyCategory          = errors.New("empty category")
	ErrMissingTransferTarget  = errors.New("transfer requires a destination account")
	ErrTransferHasCategory    = errors.New("transfer cannot have a category")
	ErrEmptyPeriodID          = errors.New("empty period id")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// NewDate creates a new Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if len(a.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	switch c.Type {
	case CategoryIncome, CategoryExpense:
	default:
		return ErrInvalidCategoryType
	}
	return nil
}

func (t Transaction) Validate() error {
	switch t.Type {
	case Income, Expense, Transfer:
	default:
		return ErrInvalidTransactionType
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return ErrEmptyAccount
	}
	if t.Type == Transfer {
		if strings.TrimSpace(t.AccountIDTo) == "" {
			return ErrMissingTransferTarget
		}
		if t.CategoryID != "" {
			return ErrTransferHasCategory
		}
		return nil
	}
	if t.AccountIDTo != "" {
		return errors.New("destination account only allowed for transfers")
	}
	if len(t.Note) > 500 {
		return errors.New("note too long (max 500 characters)")
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(b.PeriodID) == "" {
		return ErrEmptyPeriodID
	}
	if _, err := time.Parse("2006-01-02", b.PeriodID); err != nil {
		return errors.New("invalid period id: " + err.Error())
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	return nil
}
