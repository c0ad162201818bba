// Package matching scores ledger transaction / statement entry pairs and
// proposes one-to-one suggestions. It never touches storage.
package matching

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"complybook/internal/models"
)

const (
	ConfidenceHigh   = "high"
	ConfidenceReview = "review"

	highConfidence = 90.0
)

// Breakdown is the score of one pair. Eligible is false when the amounts or
// types differ; such pairs always score zero.
type Breakdown struct {
	Eligible         bool    `json:"eligible"`
	AmountScore      float64 `json:"amount_score"`
	DateScore        float64 `json:"date_score"`
	DescriptionScore float64 `json:"description_score"`
	Score            float64 `json:"score"`
	DaysApart        int     `json:"days_apart"`
}

type Suggestion struct {
	Transaction     models.LedgerTransaction `json:"transaction"`
	StatementEntry  models.StatementEntry    `json:"statement_entry"`
	SimilarityScore float64                  `json:"similarity_score"`
	Confidence      string                   `json:"confidence"`
	Breakdown       Breakdown                `json:"breakdown"`
}

var runeOptions = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: levenshtein.IdenticalRunes,
}

// Score rates how likely tx and entry describe the same movement of money.
func Score(tx models.LedgerTransaction, entry models.StatementEntry, cfg Config) Breakdown {
	if tx.Type != entry.Type || !tx.Amount.Abs().Equal(entry.Amount.Abs()) {
		return Breakdown{}
	}

	days := daysApart(tx.Date, entry.Date)
	b := Breakdown{
		Eligible:         true,
		AmountScore:      100,
		DateScore:        computeDateScore(days),
		DescriptionScore: computeDescriptionSimilarity(tx.Description, entry.Description),
		DaysApart:        days,
	}
	b.Score = round2(math.Min(
		cfg.AmountWeight*b.AmountScore+
			cfg.DateWeight*b.DateScore+
			cfg.DescriptionWeight*b.DescriptionScore,
		100,
	))
	return b
}

// Suggest scores every pair and keeps the best ones above the threshold,
// highest first, never using a transaction or entry twice. The result only
// depends on the inputs, not on their order.
func Suggest(txs []models.LedgerTransaction, entries []models.StatementEntry, cfg Config) []Suggestion {
	var candidates []Suggestion
	for _, tx := range txs {
		for _, e := range entries {
			b := Score(tx, e, cfg)
			if !b.Eligible || b.Score < cfg.Threshold {
				continue
			}
			candidates = append(candidates, Suggestion{
				Transaction:     tx,
				StatementEntry:  e,
				SimilarityScore: b.Score,
				Confidence:      confidence(b.Score),
				Breakdown:       b,
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.SimilarityScore != b.SimilarityScore {
			return a.SimilarityScore > b.SimilarityScore
		}
		if !a.Transaction.Date.Equal(b.Transaction.Date) {
			return a.Transaction.Date.Before(b.Transaction.Date)
		}
		if a.Transaction.ID != b.Transaction.ID {
			return a.Transaction.ID.String() < b.Transaction.ID.String()
		}
		return a.StatementEntry.ID.String() < b.StatementEntry.ID.String()
	})

	usedTx := make(map[string]bool)
	usedEntry := make(map[string]bool)
	out := make([]Suggestion, 0, len(candidates))
	for _, c := range candidates {
		txKey, entryKey := c.Transaction.ID.String(), c.StatementEntry.ID.String()
		if usedTx[txKey] || usedEntry[entryKey] {
			continue
		}
		usedTx[txKey] = true
		usedEntry[entryKey] = true
		out = append(out, c)
	}
	return out
}

func confidence(score float64) string {
	if score >= highConfidence {
		return ConfidenceHigh
	}
	return ConfidenceReview
}

// computeDescriptionSimilarity averages, in both directions, how well each
// token of one description matches its closest token in the other.
func computeDescriptionSimilarity(a, b string) float64 {
	aTokens := strings.Fields(normalizeDescription(a))
	bTokens := strings.Fields(normalizeDescription(b))
	if len(aTokens) == 0 || len(bTokens) == 0 {
		return 0
	}
	return round2((tokenCoverage(aTokens, bTokens) + tokenCoverage(bTokens, aTokens)) / 2 * 100)
}

func tokenCoverage(from, to []string) float64 {
	total := 0.0
	for _, f := range from {
		best := 0.0
		fr := []rune(f)
		for _, t := range to {
			tr := []rune(t)
			dist := levenshtein.DistanceForStrings(fr, tr, runeOptions)
			maxLen := math.Max(float64(len(fr)), float64(len(tr)))
			if sim := 1 - float64(dist)/maxLen; sim > best {
				best = sim
			}
		}
		total += best
	}
	return total / float64(len(from))
}

func normalizeDescription(s string) string {
	s = strings.ToUpper(s)
	s = strings.NewReplacer(".", "", ",", "", "-", " ", "*", " ", "#", " ", "/", " ").Replace(s)
	return strings.TrimSpace(s)
}

func computeDateScore(days int) float64 {
	switch {
	case days <= 3:
		return 100
	case days <= 7:
		return 80
	case days <= 15:
		return 60
	case days <= 30:
		return 40
	default:
		return 20
	}
}

func daysApart(a, b time.Time) int {
	d := math.Abs(a.Sub(b).Hours() / 24)
	return int(math.Round(d))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
