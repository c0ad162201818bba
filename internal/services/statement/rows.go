// Package statement turns externally supplied bank statement rows into
// normalized entries. It knows nothing about sessions or storage.
package statement

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"complybook/internal/models"
	"complybook/internal/money"
)

// Row is one raw statement line. Amount is a signed decimal string.
type Row struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

// Entry is a row that survived normalization.
type Entry struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal // magnitude
	Type        string
}

// Signed returns the amount with income positive and expense negative.
func (e Entry) Signed() decimal.Decimal {
	if e.Type == models.TypeExpense {
		return e.Amount.Neg()
	}
	return e.Amount
}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"02-01-2006",
	"2006/01/02",
	"Jan 2, 2006",
	time.RFC3339,
}

// ParseDate accepts the layouts banks commonly export and returns the
// calendar day at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Normalize drops incomplete or unparsable rows and splits the sign into
// the entry type. skipped counts the dropped rows.
func Normalize(rows []Row) (entries []Entry, skipped int) {
	for _, r := range rows {
		e, ok := normalizeRow(r)
		if !ok {
			skipped++
			continue
		}
		entries = append(entries, e)
	}
	return entries, skipped
}

func normalizeRow(r Row) (Entry, bool) {
	desc := strings.TrimSpace(r.Description)
	if strings.TrimSpace(r.Date) == "" || desc == "" || strings.TrimSpace(r.Amount) == "" {
		return Entry{}, false
	}

	amount, err := money.Parse(r.Amount)
	if err != nil {
		return Entry{}, false
	}
	date, err := ParseDate(r.Date)
	if err != nil {
		return Entry{}, false
	}

	typ := models.TypeIncome
	if amount.IsNegative() {
		typ = models.TypeExpense
	}

	return Entry{
		Date:        date,
		Description: desc,
		Amount:      amount.Abs(),
		Type:        typ,
	}, true
}

// Fingerprint identifies an entry within a session so re-imports of the
// same statement can be counted.
func Fingerprint(sessionID uuid.UUID, e Entry) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s",
		sessionID,
		e.Date.Format("2006-01-02"),
		strings.ToLower(e.Description),
		money.Format(e.Signed()),
	)
	return hex.EncodeToString(h.Sum(nil))
}
