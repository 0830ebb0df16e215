package retrieval

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fyrsmithlabs/mcqrouter/internal/vectorstore"
)

// Scored is a search result with its keyword and combined scores.
type Scored struct {
	vectorstore.SearchResult
	KeywordScore  float32 // 0.0-1.0
	CombinedScore float32
	OriginalRank  int // 0-indexed position in the vector results
}

// Reranker reorders vector search candidates for a query.
type Reranker interface {
	Rerank(query string, docs []vectorstore.SearchResult, topK int) []Scored
}

// KeywordReranker blends vector similarity with query term overlap.
type KeywordReranker struct {
	// VectorWeight is the share of the combined score taken from the
	// similarity score; the rest comes from term overlap.
	VectorWeight float32
}

// NewKeywordReranker returns a reranker weighting both signals equally.
func NewKeywordReranker() *KeywordReranker {
	return &KeywordReranker{VectorWeight: 0.5}
}

// Rerank scores every candidate and returns the best topK (all when topK <= 0).
// Ties keep the vector order.
func (r *KeywordReranker) Rerank(query string, docs []vectorstore.SearchResult, topK int) []Scored {
	if topK <= 0 || topK > len(docs) {
		topK = len(docs)
	}
	if len(docs) == 0 {
		return []Scored{}
	}

	queryTokens := tokenize(query)
	scored := make([]Scored, len(docs))
	for i, doc := range docs {
		var overlap float32
		combined := doc.Score
		if len(queryTokens) > 0 {
			overlap = termOverlap(queryTokens, tokenize(doc.Content))
			combined = r.VectorWeight*doc.Score + (1-r.VectorWeight)*overlap
		}
		scored[i] = Scored{
			SearchResult:  doc,
			KeywordScore:  overlap,
			CombinedScore: combined,
			OriginalRank:  i,
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].CombinedScore > scored[j].CombinedScore
	})
	return scored[:topK]
}

// tokenize lowercases text and splits it into syllables of letters and
// digits, dropping stopwords and single characters.
func tokenize(text string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	filtered := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if utf8.RuneCountInString(token) > 1 && !stopwords[token] {
			filtered = append(filtered, token)
		}
	}
	return filtered
}

var stopwords = map[string]bool{
	"và": true, "của": true, "là": true, "có": true, "các": true, "những": true,
	"được": true, "trong": true, "cho": true, "với": true, "một": true, "này": true,
	"đó": true, "không": true, "thì": true, "để": true, "từ": true, "khi": true,
	"đã": true, "sẽ": true, "về": true, "theo": true, "như": true, "nào": true,
	"gì": true, "bị": true, "do": true, "nên": true, "mà": true, "hay": true,
	"the": true, "and": true, "of": true, "to": true, "in": true, "is": true,
}

// termOverlap is the fraction of distinct query terms present in the document.
func termOverlap(queryTokens, docTokens []string) float32 {
	docSet := make(map[string]bool, len(docTokens))
	for _, t := range docTokens {
		docSet[t] = true
	}

	distinct := make(map[string]bool, len(queryTokens))
	matches := 0
	for _, t := range queryTokens {
		if distinct[t] {
			continue
		}
		distinct[t] = true
		if docSet[t] {
			matches++
		}
	}
	return float32(matches) / float32(len(distinct))
}
