// Package domain defines the core business types for scanworth.
package domain

import (
	"math"
	"strings"

	"github.com/scanworth/scanworth/pkg/stats"
)

// TermKind classifies a search term.
type TermKind string

// Term kind constants.
const (
	// TermProductCode is a numeric product code (UPC/EAN/GTIN), 8-14 ASCII digits.
	TermProductCode TermKind = "product_code"
	// TermKeywords is anything else: free-text keyword search.
	TermKeywords TermKind = "keywords"
)

// ClassifyTerm reports whether a trimmed search term is a numeric product
// code or free text. Classification selects adapter query parameters only;
// it never changes the canonical output shape.
func ClassifyTerm(term string) TermKind {
	if n := len(term); n < 8 || n > 14 {
		return TermKeywords
	}
	for i := 0; i < len(term); i++ {
		if term[i] < '0' || term[i] > '9' {
			return TermKeywords
		}
	}
	return TermProductCode
}

// Item is the canonical, source-agnostic listing shape every adapter
// normalizes into. Price is always finite: adapters drop raw records whose
// price does not parse.
type Item struct {
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Condition string  `json:"condition,omitempty"`
	URL       string  `json:"url,omitempty"`
	Source    string  `json:"source"`
}

// Valid reports whether the item carries a finite price.
func (i *Item) Valid() bool {
	return !math.IsNaN(i.Price) && !math.IsInf(i.Price, 0)
}

// Prices extracts the price series from a slice of items.
func Prices(items []Item) []float64 {
	out := make([]float64, 0, len(items))
	for i := range items {
		out = append(out, items[i].Price)
	}
	return out
}

// EstimateStats holds the three per-series summaries of an estimate.
type EstimateStats struct {
	Current  stats.Summary `json:"current"`
	Sold     stats.Summary `json:"sold"`
	Combined stats.Summary `json:"combined"`
}

// EstimateResult is the sole output contract of the estimator. Field names
// and nesting are part of the compatibility surface: a branch without
// credentials yields empty arrays and sentinel statistics, never a different
// schema.
type EstimateResult struct {
	ItemsCurrent []Item        `json:"items_current"`
	ItemsSold    []Item        `json:"items_sold"`
	Stats        EstimateStats `json:"stats"`
	Note         string        `json:"note"`
}

// JoinNotes assembles the diagnostic trail in production order.
func JoinNotes(notes []string) string {
	return strings.Join(notes, " | ")
}
