// Package matching groups offers for the same physical item across stores,
// either by exact barcode or by overlap of significant name tokens.
package matching

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// MinTokenLength is the length a word must exceed to count as a token.
	MinTokenLength = 3
	// MinSimilarity is the inclusion threshold for fuzzy matches, in percent.
	MinSimilarity = 50
	// ExactSimilarity is reported for barcode matches.
	ExactSimilarity = 100
)

// Offer is one product at one store.
type Offer struct {
	ProductID     string   `json:"product_id"`
	StoreID       string   `json:"store_id"`
	StoreName     string   `json:"store_name"`
	Name          string   `json:"name"`
	Barcode       string   `json:"barcode,omitempty"`
	Brand         string   `json:"brand,omitempty"`
	Image         string   `json:"image,omitempty"`
	URL           string   `json:"url"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"original_price,omitempty"`
	Similarity    int      `json:"similarity,omitempty"`
}

// Group is a set of offers judged to be the same item, cheapest first.
type Group struct {
	Key          string  `json:"key"`
	Barcode      string  `json:"barcode,omitempty"`
	Name         string  `json:"name"`
	Offers       []Offer `json:"offers"`
	LowestPrice  float64 `json:"lowest_price"`
	HighestPrice float64 `json:"highest_price"`
	Savings      float64 `json:"savings"`
	BestStore    string  `json:"best_store"`
	StoreCount   int     `json:"store_count"`
}

// NewGroup sorts offers ascending by price and fills in the price summary.
func NewGroup(key, barcode string, offers []Offer) Group {
	sorted := append([]Offer(nil), offers...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })

	g := Group{Key: key, Barcode: barcode, Offers: sorted}
	if len(sorted) == 0 {
		g.Offers = []Offer{}
		return g
	}

	stores := make(map[string]struct{}, len(sorted))
	for _, o := range sorted {
		stores[o.StoreID] = struct{}{}
	}

	g.Name = sorted[0].Name
	g.LowestPrice = sorted[0].Price
	g.HighestPrice = sorted[len(sorted)-1].Price
	g.Savings = g.HighestPrice - g.LowestPrice
	g.BestStore = sorted[0].StoreName
	g.StoreCount = len(stores)
	return g
}

// Tokenize lowercases name and keeps the distinct words longer than
// MinTokenLength, in order of first appearance.
func Tokenize(name string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, w := range strings.Fields(strings.ToLower(name)) {
		if utf8.RuneCountInString(w) <= MinTokenLength || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

// shared counts the query tokens present in candidate.
func shared(query, candidate []string) int {
	set := make(map[string]bool, len(candidate))
	for _, t := range candidate {
		set[t] = true
	}
	n := 0
	for _, t := range query {
		if set[t] {
			n++
		}
	}
	return n
}

// Similarity is the percentage of query tokens found in candidate, rounded.
func Similarity(query, candidate []string) int {
	if len(query) == 0 {
		return 0
	}
	return int(math.Round(float64(shared(query, candidate)) * 100 / float64(len(query))))
}

// IsSimilar reports whether candidate reaches MinSimilarity. The comparison
// is done on integers so the threshold is exact.
func IsSimilar(query, candidate []string) bool {
	if len(query) == 0 {
		return false
	}
	return shared(query, candidate)*100 >= MinSimilarity*len(query)
}

// ByBarcode groups offers sharing a barcode. Store distinctness is not
// required. Offers without a barcode are ignored.
func ByBarcode(offers []Offer) []Group {
	buckets, order := bucket(offers)
	groups := make([]Group, 0, len(order))
	for _, code := range order {
		groups = append(groups, NewGroup(code, code, buckets[code]))
	}
	return groups
}

// FuzzyGroup keeps the candidates similar to name and returns them as one
// group, or nil when nothing matches.
func FuzzyGroup(name string, candidates []Offer) *Group {
	query := Tokenize(name)
	var matched []Offer
	for _, c := range candidates {
		tokens := Tokenize(c.Name)
		if !IsSimilar(query, tokens) {
			continue
		}
		c.Similarity = Similarity(query, tokens)
		matched = append(matched, c)
	}
	if len(matched) == 0 {
		return nil
	}
	g := NewGroup(strings.Join(query, " "), "", matched)
	return &g
}

// BestDeals groups offers by barcode, keeps groups spanning at least two
// stores and returns the limit groups with the largest savings.
func BestDeals(offers []Offer, limit int) []Group {
	buckets, order := bucket(offers)
	var groups []Group
	for _, code := range order {
		g := NewGroup(code, code, buckets[code])
		if g.StoreCount < 2 {
			continue
		}
		groups = append(groups, g)
	}

	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Savings > groups[j].Savings })
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}
	if groups == nil {
		groups = []Group{}
	}
	return groups
}

func bucket(offers []Offer) (map[string][]Offer, []string) {
	buckets := make(map[string][]Offer)
	var order []string
	for _, o := range offers {
		if o.Barcode == "" {
			continue
		}
		if _, ok := buckets[o.Barcode]; !ok {
			order = append(order, o.Barcode)
		}
		buckets[o.Barcode] = append(buckets[o.Barcode], o)
	}
	return buckets, order
}
