// Package prompt renders the system and user messages sent to the model for
// one question or for a same-domain batch.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/fyrsmithlabs/mcqrouter/internal/llm"
	"github.com/fyrsmithlabs/mcqrouter/internal/passage"
	"github.com/fyrsmithlabs/mcqrouter/internal/question"
)

// BatchSeparator sits between question blocks in a batch prompt.
const BatchSeparator = "\n----------------\n"

// Item is one question ready to be rendered.
type Item struct {
	Question string
	Choices  []string
	Context  string
}

type itemData struct {
	Index    int
	Context  string
	Question string
	Choices  string
}

// FormatChoices renders choices as "A. text" lines in input order.
func FormatChoices(choices []string) string {
	lines := make([]string, len(choices))
	for i, c := range choices {
		lines[i] = question.Label(i) + ". " + c
	}
	return strings.Join(lines, "\n")
}

// Single returns the system and user messages for one question. Unknown
// domains use the multidomain prompts.
func Single(d question.Domain, item Item) ([]llm.Message, error) {
	tmpl, ok := userTemplates[d]
	if !ok {
		tmpl = userTemplates[question.DomainMultidomain]
	}
	user, err := render(tmpl, itemData{
		Context:  orPlaceholder(item.Context),
		Question: item.Question,
		Choices:  FormatChoices(item.Choices),
	})
	if err != nil {
		return nil, err
	}
	return []llm.Message{llm.System(SystemPrompt(d)), llm.User(user)}, nil
}

// Batch returns the messages for a batch. Blocks are numbered from 1 in the
// order given, independent of qids.
func Batch(d question.Domain, items []Item) ([]llm.Message, error) {
	blocks := make([]string, len(items))
	for i, item := range items {
		b, err := render(batchBlockTemplate, itemData{
			Index:    i + 1,
			Context:  orPlaceholder(item.Context),
			Question: item.Question,
			Choices:  FormatChoices(item.Choices),
		})
		if err != nil {
			return nil, err
		}
		blocks[i] = b
	}

	user, err := render(batchTemplate, struct {
		Count  int
		Blocks string
	}{Count: len(items), Blocks: strings.Join(blocks, BatchSeparator)})
	if err != nil {
		return nil, err
	}
	return []llm.Message{llm.System(BatchSystemPrompt(d)), llm.User(user)}, nil
}

// SystemPrompt returns the single-question system instruction for d.
func SystemPrompt(d question.Domain) string {
	if p, ok := systemPrompts[d]; ok {
		return p
	}
	return systemPrompts[question.DomainMultidomain]
}

// BatchSystemPrompt returns the batch system instruction for d.
func BatchSystemPrompt(d question.Domain) string {
	if p, ok := batchSystemPrompts[d]; ok {
		return p
	}
	return batchSystemPrompts[question.DomainMultidomain]
}

func orPlaceholder(s string) string {
	if s == "" {
		return passage.NoContext
	}
	return s
}

func render(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", t.Name(), err)
	}
	return sb.String(), nil
}
