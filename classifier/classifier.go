package classifier

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Luismorlan/infoflow/model"
)

const (
	neutralConfidence = 0.8
	entityConfidence  = 0.6
	maxEntities       = 5
	maxEntityRunes    = 32
)

var entityToken = regexp.MustCompile(`[A-Za-z]{4,}|\p{Han}{2,}`)

// Prediction is one automatic tag produced for an item.
type Prediction struct {
	Name       string
	Category   string
	Confidence float64
}

type matcher struct {
	keyword string
	pattern *regexp.Regexp
}

type topicMatcher struct {
	rule     TopicRule
	matchers []matcher
}

// Classifier tags text with topics, a sentiment and entities using keyword
// rules. It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	topics   []topicMatcher
	positive []matcher
	negative []matcher
}

func NewClassifier(topics []TopicRule, positive, negative []string) *Classifier {
	c := &Classifier{
		positive: newMatchers(positive),
		negative: newMatchers(negative),
	}
	for _, rule := range topics {
		c.topics = append(c.topics, topicMatcher{rule: rule, matchers: newMatchers(rule.Keywords)})
	}
	return c
}

func NewDefaultClassifier() *Classifier {
	return NewClassifier(DefaultTopicRules, DefaultPositiveWords, DefaultNegativeWords)
}

// Latin keywords match whole words, plural forms included. Anything else,
// such as Chinese keywords or emoji, matches as a substring.
func newMatchers(keywords []string) []matcher {
	res := make([]matcher, 0, len(keywords))
	for _, kw := range keywords {
		m := matcher{keyword: strings.ToLower(kw)}
		if isLatin(kw) {
			m.pattern = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `(?:s|es)?\b`)
		}
		res = append(res, m)
	}
	return res
}

func isLatin(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-') {
			return false
		}
	}
	return true
}

func (m matcher) count(lowered string) int {
	if m.pattern != nil {
		return len(m.pattern.FindAllStringIndex(lowered, -1))
	}
	return strings.Count(lowered, m.keyword)
}

// Classify returns topic, sentiment and entity predictions, in that order.
func (c *Classifier) Classify(title, body string) []Prediction {
	text := strings.ToLower(title + " " + body)
	res := c.Topics(text)
	res = append(res, c.Sentiment(text))
	return append(res, Entities(body)...)
}

// Topics expects lowered text. Confidence grows with the number of keyword
// hits and saturates at three.
func (c *Classifier) Topics(text string) []Prediction {
	res := []Prediction{}
	for _, topic := range c.topics {
		hits := 0
		for _, m := range topic.matchers {
			hits += m.count(text)
		}
		if hits == 0 {
			continue
		}
		res = append(res, Prediction{
			Name:       topic.rule.Name,
			Category:   model.TagCategoryTopic,
			Confidence: confidence(float64(hits) / 3),
		})
	}
	return res
}

// Sentiment expects lowered text. Every listed word counts once.
func (c *Classifier) Sentiment(text string) Prediction {
	positive, negative := 0, 0
	for _, m := range c.positive {
		if m.count(text) > 0 {
			positive++
		}
	}
	for _, m := range c.negative {
		if m.count(text) > 0 {
			negative++
		}
	}
	switch {
	case positive > negative:
		return Prediction{Name: SentimentPositive, Category: model.TagCategorySentiment, Confidence: confidence(float64(positive-negative) / 3)}
	case negative > positive:
		return Prediction{Name: SentimentNegative, Category: model.TagCategorySentiment, Confidence: confidence(float64(negative-positive) / 3)}
	default:
		return Prediction{Name: SentimentNeutral, Category: model.TagCategorySentiment, Confidence: neutralConfidence}
	}
}

// Entities picks the most frequent keyword tokens of the body, ties go to
// the token seen first.
func Entities(body string) []Prediction {
	freq := map[string]int{}
	order := []string{}
	for _, token := range entityToken.FindAllString(body, -1) {
		token = strings.ToLower(token)
		if entityStopWords[token] || utf8.RuneCountInString(token) > maxEntityRunes {
			continue
		}
		if _, ok := freq[token]; !ok {
			order = append(order, token)
		}
		freq[token]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})
	if len(order) > maxEntities {
		order = order[:maxEntities]
	}
	res := make([]Prediction, 0, len(order))
	for _, token := range order {
		res = append(res, Prediction{Name: token, Category: model.TagCategoryEntity, Confidence: entityConfidence})
	}
	return res
}

func confidence(v float64) float64 {
	return math.Round(math.Min(1, v)*100) / 100
}
