package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/homelibrary/homelibrary-server/internal/metadata"
)

// DefaultLimit caps results when the caller passes no limit.
const DefaultLimit = 50

// Hit is one ranked match.
type Hit struct {
	BookID int64   `json:"book_id"`
	Score  float64 `json:"score"`
}

// Search returns the user's books matching text, best first. Blank text
// yields no hits.
func (s *SearchIndex) Search(ctx context.Context, userID int64, text string, limit int) ([]Hit, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []Hit{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildQuery(userID, text), limit, 0, false)
	req.SortBy([]string{"-_score", "-updated_at"})

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			s.logger.Warn("search hit with non-numeric id", "id", h.ID)
			continue
		}
		hits = append(hits, Hit{BookID: id, Score: h.Score})
	}
	return hits, nil
}

// buildQuery requires the owner term and any of the text matches.
func buildQuery(userID int64, text string) query.Query {
	owner := bleve.NewTermQuery(ownerTerm(userID))
	owner.SetField("owner_id")

	var textQueries []query.Query

	boosts := []struct {
		field string
		boost float64
	}{
		{"title", 3.0},
		{"authors", 2.0},
		{"tags", 1.5},
		{"location", 1.0},
		{"notes", 0.8},
	}
	for _, b := range boosts {
		m := bleve.NewMatchQuery(text)
		m.SetField(b.field)
		m.SetBoost(b.boost)
		textQueries = append(textQueries, m)
	}

	lower := strings.ToLower(text)
	if len([]rune(lower)) >= 2 && !strings.ContainsAny(lower, " \t") {
		prefix := bleve.NewPrefixQuery(lower)
		prefix.SetField("title")
		prefix.SetBoost(0.5)
		textQueries = append(textQueries, prefix)

		fuzzy := bleve.NewFuzzyQuery(lower)
		fuzzy.SetField("title")
		fuzzy.SetFuzziness(1)
		fuzzy.SetBoost(0.4)
		textQueries = append(textQueries, fuzzy)
	}

	if isbn := metadata.NormalizeISBN(text); isbn != "" {
		t := bleve.NewTermQuery(isbn)
		t.SetField("isbn")
		t.SetBoost(5.0)
		textQueries = append(textQueries, t)
	}

	return bleve.NewConjunctionQuery(owner, bleve.NewDisjunctionQuery(textQueries...))
}
