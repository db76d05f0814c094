package summary

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"finance-dashboard-backend/internal/models"
)

const Uncategorized = "Uncategorized"

var hundred = decimal.NewFromInt(100)

// Totals are the sums over the non-excluded transactions of one bucket.
// Expenses is negative or zero.
type Totals struct {
	Balance  decimal.Decimal `json:"balance"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Count    int             `json:"count"`
}

// Change holds percentage changes against the previous month. A nil value
// means the previous month was zero and the current one was not.
type Change struct {
	Balance  *float64 `json:"balance"`
	Income   *float64 `json:"income"`
	Expenses *float64 `json:"expenses"`
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Expenses decimal.Decimal `json:"expenses"`
}

type MonthlySummary struct {
	Year               int             `json:"year"`
	Month              time.Month      `json:"month"`
	Current            Totals          `json:"current"`
	Previous           Totals          `json:"previous"`
	Change             Change          `json:"change"`
	ExpensesByCategory []CategoryTotal `json:"expenses_by_category"`
}

// InMonth reports whether t's value date falls in the given calendar month.
func InMonth(t models.Transaction, year int, month time.Month) bool {
	d := t.TransactionValueDate.UTC()
	return d.Year() == year && d.Month() == month
}

// PreviousMonth returns the calendar month before ref. The day of month is
// ignored, so 31 March gives February.
func PreviousMonth(ref time.Time) (int, time.Month) {
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	prev := first.AddDate(0, -1, 0)
	return prev.Year(), prev.Month()
}

// Bucket splits txs into the month of ref and the month before it. Other
// transactions are dropped. Input order is kept.
func Bucket(txs []models.Transaction, ref time.Time) (current, previous []models.Transaction) {
	py, pm := PreviousMonth(ref)
	for _, t := range txs {
		switch {
		case InMonth(t, ref.Year(), ref.Month()):
			current = append(current, t)
		case InMonth(t, py, pm):
			previous = append(previous, t)
		}
	}
	return current, previous
}

func Summarize(bucket []models.Transaction) Totals {
	totals := Totals{
		Balance:  decimal.Zero,
		Income:   decimal.Zero,
		Expenses: decimal.Zero,
	}
	for _, t := range bucket {
		if t.Exclude {
			continue
		}
		amount := t.TransactionAmount
		totals.Balance = totals.Balance.Add(amount)
		switch amount.Sign() {
		case 1:
			totals.Income = totals.Income.Add(amount)
		case -1:
			totals.Expenses = totals.Expenses.Add(amount)
		}
		totals.Count++
	}
	return totals
}

// PercentChange returns (current - previous) / |previous| * 100. Two zero
// values give 0; a zero previous value with a non-zero current one gives nil.
func PercentChange(current, previous decimal.Decimal) *float64 {
	if previous.IsZero() {
		if current.IsZero() {
			zero := 0.0
			return &zero
		}
		return nil
	}
	pct, _ := current.Sub(previous).Div(previous.Abs()).Mul(hundred).Float64()
	return &pct
}

func Compare(current, previous Totals) Change {
	return Change{
		Balance:  PercentChange(current.Balance, previous.Balance),
		Income:   PercentChange(current.Income, previous.Income),
		Expenses: PercentChange(current.Expenses, previous.Expenses),
	}
}

// ExpensesByCategory groups the negative, non-excluded amounts of bucket by
// category, largest spend first.
func ExpensesByCategory(bucket []models.Transaction) []CategoryTotal {
	sums := make(map[string]decimal.Decimal)
	for _, t := range bucket {
		if t.Exclude || !t.TransactionAmount.IsNegative() {
			continue
		}
		cat := t.TransactionCategory
		if cat == "" {
			cat = Uncategorized
		}
		sums[cat] = sums[cat].Add(t.TransactionAmount)
	}

	out := make([]CategoryTotal, 0, len(sums))
	for cat, sum := range sums {
		out = append(out, CategoryTotal{Category: cat, Expenses: sum})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Expenses.Cmp(out[j].Expenses); c != 0 {
			return c < 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Monthly computes the dashboard figures for the month of ref.
func Monthly(txs []models.Transaction, ref time.Time) MonthlySummary {
	current, previous := Bucket(txs, ref)
	cur := Summarize(current)
	prev := Summarize(previous)
	return MonthlySummary{
		Year:               ref.Year(),
		Month:              ref.Month(),
		Current:            cur,
		Previous:           prev,
		Change:             Compare(cur, prev),
		ExpensesByCategory: ExpensesByCategory(current),
	}
}
