package question

import (
	"fmt"
	"strings"
)

// Domain is one of the five fixed answering categories.
type Domain string

const (
	DomainPrecisionCritical Domain = "PRECISION_CRITICAL"
	DomainCompulsory        Domain = "COMPULSORY"
	DomainRAG               Domain = "RAG"
	DomainSTEM              Domain = "STEM"
	DomainMultidomain       Domain = "MULTIDOMAIN"
)

// Domains lists every domain in the fixed order used when draining buffers.
var Domains = []Domain{
	DomainPrecisionCritical,
	DomainCompulsory,
	DomainRAG,
	DomainSTEM,
	DomainMultidomain,
}

// Valid reports whether d is a known domain.
func (d Domain) Valid() bool {
	switch d {
	case DomainPrecisionCritical, DomainCompulsory, DomainRAG, DomainSTEM, DomainMultidomain:
		return true
	}
	return false
}

func (d Domain) String() string {
	return string(d)
}

// Key is the lowercase form used to pick prompt templates.
func (d Domain) Key() string {
	return strings.ToLower(string(d))
}

// ParseDomain accepts either the upper or lower case spelling.
func ParseDomain(s string) (Domain, error) {
	d := Domain(strings.ToUpper(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown domain %q", s)
	}
	return d, nil
}
