package router

import (
	"context"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/mcqrouter/internal/question"
)

// maxClassifyLength caps the text inspected by the keyword rules.
const maxClassifyLength = 8192

// domainRule pairs a pattern with the domain it detects and a base
// confidence. Rules are evaluated in order; the first match wins.
type domainRule struct {
	regex      *regexp.Regexp
	domain     question.Domain
	confidence float64
	// onChoices matches the rule against the joined choices instead of the
	// question text.
	onChoices bool
}

// KeywordClassifier routes Vietnamese questions with ordered keyword rules.
// Safe for concurrent use.
type KeywordClassifier struct {
	rules []domainRule
}

// NewKeywordClassifier creates a classifier with the built-in rules.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{rules: buildDomainRules()}
}

// Patterns run against lowercased text. Go's \b is ASCII-only, so
// Vietnamese cue words are matched as plain substrings.
func buildDomainRules() []domainRule {
	return []domainRule{
		// Reading comprehension carries its own passage.
		{
			regex:      regexp.MustCompile(`đoạn thông tin|đoạn văn sau|dựa vào đoạn|theo đoạn văn|bài đọc`),
			domain:     question.DomainRAG,
			confidence: 0.95,
		},
		// Refusal options mark questions that must not be answered helpfully.
		{
			regex:      regexp.MustCompile(`không thể chia sẻ|tôi không thể|từ chối|không được phép cung cấp|không thể hỗ trợ`),
			domain:     question.DomainPrecisionCritical,
			confidence: 0.9,
			onChoices:  true,
		},
		{
			regex:      regexp.MustCompile(`(?:làm thế nào|cách nào|hướng dẫn|cách để).{0,60}(?:trốn thuế|gian lận|lừa đảo|đánh cắp|hack|ma túy|vũ khí|chế tạo bom|rửa tiền|làm giả|xâm nhập)`),
			domain:     question.DomainPrecisionCritical,
			confidence: 0.85,
		},
		// Arithmetic, formulas and the natural sciences.
		{
			regex:      regexp.MustCompile(`\d+\s*[-+×*/^=]\s*\d+|\$[^$]+\$|\\frac|\\sqrt|phương trình|hàm số|đạo hàm|tích phân|xác suất|logarit|ma trận|vận tốc|gia tốc|khối lượng|điện trở|cường độ|nồng độ|\bmol\b|\bkpa\b|giá trị của`),
			domain:     question.DomainSTEM,
			confidence: 0.8,
		},
		// Vietnamese history, culture and politics.
		{
			regex:      regexp.MustCompile(`việt nam|lịch sử|đảng cộng sản|hồ chí minh|triều đại|nhà nguyễn|nhà trần|nhà lý|hiến pháp|quốc hội|cách mạng|kháng chiến|văn hóa|chủ tịch nước|thủ đô`),
			domain:     question.DomainCompulsory,
			confidence: 0.75,
		},
		// Broader STEM fallback with single keywords.
		{
			regex:      regexp.MustCompile(`tính|bao nhiêu|số nào|công thức`),
			domain:     question.DomainSTEM,
			confidence: 0.6,
		},
	}
}

// Classify implements Classifier. Unmatched questions are MULTIDOMAIN with
// confidence 0.5.
func (c *KeywordClassifier) Classify(_ context.Context, text string, choices []string) (question.Domain, float64) {
	q := truncate(strings.ToLower(text))
	ch := truncate(strings.ToLower(strings.Join(choices, "\n")))

	for _, rule := range c.rules {
		target := q
		if rule.onChoices {
			target = ch
		}
		if rule.regex.MatchString(target) {
			return rule.domain, rule.confidence
		}
	}
	return question.DomainMultidomain, 0.5
}

// truncate bounds regex work on very long passages.
func truncate(s string) string {
	if len(s) > maxClassifyLength {
		return s[:maxClassifyLength]
	}
	return s
}
