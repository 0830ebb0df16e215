// Package strategy holds the per-domain answering parameters.
package strategy

import (
	"fmt"

	"github.com/fyrsmithlabs/mcqrouter/internal/llm"
	"github.com/fyrsmithlabs/mcqrouter/internal/question"
)

// Strategy describes how one domain is answered.
type Strategy struct {
	UseRAG      bool
	Tier        llm.Tier
	Temperature float64
	TopKDocs    int
	Description string
}

// Retrieves reports whether the strategy calls the retriever.
func (s Strategy) Retrieves() bool {
	return s.UseRAG && s.TopKDocs > 0
}

// Table maps every domain to its strategy. A Table is read-only once built.
type Table struct {
	entries map[question.Domain]Strategy
}

// New builds a table and checks that every domain has a valid entry.
func New(entries map[question.Domain]Strategy) (Table, error) {
	out := make(map[question.Domain]Strategy, len(entries))
	for _, d := range question.Domains {
		s, ok := entries[d]
		if !ok {
			return Table{}, fmt.Errorf("missing strategy for domain %s", d)
		}
		if s.Temperature < 0 || s.Temperature > 1 {
			return Table{}, fmt.Errorf("domain %s: temperature %.2f outside [0,1]", d, s.Temperature)
		}
		if s.TopKDocs < 0 {
			return Table{}, fmt.Errorf("domain %s: negative top_k_docs", d)
		}
		if s.Tier != llm.TierSmall && s.Tier != llm.TierLarge {
			return Table{}, fmt.Errorf("domain %s: unknown model tier %q", d, s.Tier)
		}
		out[d] = s
	}
	for d := range entries {
		if !d.Valid() {
			return Table{}, fmt.Errorf("strategy for unknown domain %q", d)
		}
	}
	return Table{entries: out}, nil
}

// Default returns the competition-tuned table.
func Default() Table {
	t, err := New(map[question.Domain]Strategy{
		question.DomainPrecisionCritical: {
			UseRAG: false, Tier: llm.TierSmall, Temperature: 0.1, TopKDocs: 0,
			Description: "harmful or sensitive requests that must be refused",
		},
		question.DomainCompulsory: {
			UseRAG: true, Tier: llm.TierSmall, Temperature: 0.2, TopKDocs: 3,
			Description: "Vietnamese culture, history and politics facts",
		},
		question.DomainRAG: {
			UseRAG: false, Tier: llm.TierSmall, Temperature: 0.3, TopKDocs: 0,
			Description: "reading comprehension over an embedded passage",
		},
		question.DomainSTEM: {
			UseRAG: true, Tier: llm.TierSmall, Temperature: 0.0, TopKDocs: 2,
			Description: "mathematics and logical reasoning",
		},
		question.DomainMultidomain: {
			UseRAG: true, Tier: llm.TierSmall, Temperature: 0.4, TopKDocs: 5,
			Description: "general knowledge across fields",
		},
	})
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the strategy for d.
func (t Table) Lookup(d question.Domain) (Strategy, bool) {
	s, ok := t.entries[d]
	return s, ok
}

// MustLookup panics on an unknown domain. Callers only pass domains returned
// by a Classifier, so a miss is a programming error.
func (t Table) MustLookup(d question.Domain) Strategy {
	s, ok := t.entries[d]
	if !ok {
		panic(fmt.Sprintf("strategy: no entry for domain %q", d))
	}
	return s
}
