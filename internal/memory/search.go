package memory

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/cwaproj/cwa/internal/domain"
	"github.com/cwaproj/cwa/internal/vector"
)

// SearchHit is one ranked search result across memories and observations.
type SearchHit struct {
	ID    string  `json:"id"`
	Kind  string  `json:"kind"` // "memory" or "observation"
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// SearchKeyword scores entries by IDF-like term overlap with query: each
// query term carries a weight of 1/log2(2+df) (df = how many scanned
// entries contain it, so rarer terms weigh more), and a document's score is
// its matched weight divided by the query's total achievable weight — so
// every score lands in [0,1] and a document matching every query term
// scores 1.0, matching the bounded scale semantic cosine scores already use.
func (s *Service) SearchKeyword(ctx context.Context, query string, topK int, includeMemories, includeObservations bool) ([]SearchHit, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	type doc struct {
		id, kind, title, text string
	}
	var docs []doc
	if includeMemories {
		ids, err := s.store.ListIDs(ctx, "memory", 0, 1<<20)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			var m domain.Memory
			if err := s.store.Get(ctx, "memory", id, &m); err == nil {
				docs = append(docs, doc{id: m.ID, kind: "memory", title: m.Content, text: m.Content})
			}
		}
	}
	if includeObservations {
		ids, err := s.store.ListIDs(ctx, "observation", 0, 1<<20)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			var o domain.Observation
			if err := s.store.Get(ctx, "observation", id, &o); err == nil {
				docs = append(docs, doc{id: o.ID, kind: "observation", title: o.Title, text: o.Title + " " + o.Narrative})
			}
		}
	}

	df := make(map[string]int, len(terms))
	docTerms := make([]map[string]bool, len(docs))
	for i, d := range docs {
		set := tokenSet(d.text)
		docTerms[i] = set
		for _, t := range terms {
			if set[t] {
				df[t]++
			}
		}
	}

	var totalWeight float64
	for _, t := range terms {
		totalWeight += 1 / math.Log2(2+float64(df[t]))
	}

	var hits []SearchHit
	for i, d := range docs {
		var score float64
		for _, t := range terms {
			if docTerms[i][t] {
				score += 1 / math.Log2(2+float64(df[t]))
			}
		}
		if score > 0 && totalWeight > 0 {
			hits = append(hits, SearchHit{ID: d.id, Kind: d.kind, Title: d.title, Score: score / totalWeight})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// SearchSemantic embeds query and runs a cosine top-k search against the
// vector store, restricted to the given collection.
func (s *Service) SearchSemantic(ctx context.Context, query string, topK int, collection string) ([]SearchHit, error) {
	if s.embedder == nil || s.vectors == nil {
		return nil, nil
	}
	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil || len(vecs) != 1 {
		return nil, err
	}
	results, err := s.vectors.Search(ctx, collection, vecs[0], topK, "", "")
	if err != nil {
		return nil, err
	}
	kind := "memory"
	if collection == vector.CollectionObservations {
		kind = "observation"
	}
	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, SearchHit{ID: r.ID, Kind: kind, Score: r.Score})
	}
	return hits, nil
}

// SearchHybrid unions keyword hits (already normalized to [0,1] by
// SearchKeyword) with semantic hits (cosine similarity, already bounded),
// blends alpha*vector + (1-alpha)*keyword treating an absent side as 0,
// stable-sorts descending by score then id, and deduplicates by id.
func (s *Service) SearchHybrid(ctx context.Context, query string, alpha float64, topK int) ([]SearchHit, error) {
	if alpha < 0 {
		alpha = HybridAlpha
	}
	kwHits, err := s.SearchKeyword(ctx, query, 0, true, true)
	if err != nil {
		return nil, err
	}
	vecMem, err := s.SearchSemantic(ctx, query, 0, vector.CollectionMemories)
	if err != nil {
		return nil, err
	}
	vecObs, err := s.SearchSemantic(ctx, query, 0, vector.CollectionObservations)
	if err != nil {
		return nil, err
	}
	vecHits := append(vecMem, vecObs...)

	blended := map[string]*SearchHit{}
	for _, h := range kwHits {
		blended[h.ID] = &SearchHit{ID: h.ID, Kind: h.Kind, Title: h.Title, Score: (1 - alpha) * h.Score}
	}
	for _, h := range vecHits {
		if existing, ok := blended[h.ID]; ok {
			existing.Score += alpha * h.Score
		} else {
			blended[h.ID] = &SearchHit{ID: h.ID, Kind: h.Kind, Title: h.Title, Score: alpha * h.Score}
		}
	}

	out := make([]SearchHit, 0, len(blended))
	for _, h := range blended {
		out = append(out, *h)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// SearchAll is SearchHybrid applied across both memories and observations
// (already the default scope of SearchKeyword/SearchHybrid above).
func (s *Service) SearchAll(ctx context.Context, query string, topK int) ([]SearchHit, error) {
	return s.SearchHybrid(ctx, query, HybridAlpha, topK)
}

func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	seen := map[string]bool{}
	var out []string
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:()[]{}\"'")
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func tokenSet(text string) map[string]bool {
	set := map[string]bool{}
	for _, t := range tokenize(text) {
		set[t] = true
	}
	return set
}
