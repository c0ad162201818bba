// Package balance derives the book balance of a reconciliation period from
// ledger transactions. Everything here is pure.
package balance

import (
	"github.com/shopspring/decimal"

	"complybook/internal/models"
	"complybook/internal/money"
)

type Result struct {
	BeginningBalance      decimal.Decimal `json:"beginning_balance"`
	PeriodIncome          decimal.Decimal `json:"period_income"`
	PeriodExpenses        decimal.Decimal `json:"period_expenses"`
	CalculatedBookBalance decimal.Decimal `json:"calculated_book_balance"`
	EndingBalance         decimal.Decimal `json:"statement_ending_balance"`
	Difference            decimal.Decimal `json:"difference"`
}

// IsBalanced reports a zero difference.
func (r Result) IsBalanced() bool {
	return r.Difference.IsZero()
}

// Calculate sums txs, which must already be limited to the statement period.
// Amounts are taken as magnitudes; the type decides the sign.
func Calculate(beginning, ending decimal.Decimal, txs []models.LedgerTransaction) Result {
	income := decimal.Zero
	expenses := decimal.Zero
	for _, tx := range txs {
		switch tx.Type {
		case models.TypeIncome:
			income = income.Add(tx.Amount.Abs())
		case models.TypeExpense:
			expenses = expenses.Add(tx.Amount.Abs())
		}
	}

	income = money.Round(income)
	expenses = money.Round(expenses)
	book := money.Round(beginning.Add(income).Sub(expenses))

	return Result{
		BeginningBalance:      money.Round(beginning),
		PeriodIncome:          income,
		PeriodExpenses:        expenses,
		CalculatedBookBalance: book,
		EndingBalance:         money.Round(ending),
		Difference:            money.Round(book.Sub(ending).Abs()),
	}
}

// OpeningDifference is the gap recorded when a session is created, before
// any ledger activity is considered.
func OpeningDifference(statementBalance, beginning decimal.Decimal) decimal.Decimal {
	return money.Round(statementBalance.Sub(beginning).Abs())
}
