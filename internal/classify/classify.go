// Package classify scores incoming request text and decides between the
// direct single-call path and the multi-agent path. Analyze is pure:
// no I/O, no external services, same input always yields the same score.
package classify

import (
	"strings"
	"unicode/utf8"

	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/types"
)

type Category string

const (
	CategoryGeneral       Category = "general"
	CategoryFactual       Category = "factual"
	CategoryCoding        Category = "coding"
	CategoryVision        Category = "vision"
	CategoryStrategy      Category = "business_strategy"
	CategoryMultiFileCode Category = "multi_file_code"
)

// Score is the classification outcome for one request.
type Score struct {
	// Value is the complexity on a 1..5 scale.
	Value int
	// RequiresMultiAgent is true when Value >= MultiAgentThreshold or
	// the category is inherently multi-step.
	RequiresMultiAgent bool
	Category           Category
}

// MultiAgentThreshold is the complexity at or above which a request is
// handed to the multi-agent engine.
const MultiAgentThreshold = 3

// simpleCap bounds the score of short single-sentence factual questions.
const simpleCap = 2

// TaskType maps the category onto the model capability needed to serve
// the request on the direct path.
func (s Score) TaskType() types.TaskType {
	switch s.Category {
	case CategoryCoding, CategoryMultiFileCode:
		return types.TaskCoding
	case CategoryVision:
		return types.TaskVision
	default:
		return types.TaskDialog
	}
}

// Classifier scores request text against a fixed rule table.
type Classifier struct {
	rules []Rule
}

func New() *Classifier {
	return &Classifier{rules: DefaultRules()}
}

// Analyze computes the complexity score for the given text.
//
// Base complexity derives from text length, multi-step signals bump it,
// and short factual questions are capped low — but the cap yields to
// any matched bump signal, so an ambiguous "question that asks for a
// plan" resolves to the more conservative multi-agent path.
func (c *Classifier) Analyze(text string) Score {
	value := baseComplexity(text)

	bumped := false
	multiStep := false
	category := Category("")
	for _, r := range c.rules {
		if !r.Regex.MatchString(text) {
			continue
		}
		value += r.Bump
		if r.Bump > 0 {
			bumped = true
		}
		if r.MultiStep {
			multiStep = true
		}
		if category == "" && r.Category != "" {
			category = r.Category
		}
	}

	if !bumped && isSimpleQuestion(text) {
		if value > simpleCap {
			value = simpleCap
		}
		if category == "" {
			category = CategoryFactual
		}
	}
	if category == "" {
		category = CategoryGeneral
	}

	value = clamp(value, 1, 5)
	return Score{
		Value:              value,
		RequiresMultiAgent: multiStep || value >= MultiAgentThreshold,
		Category:           category,
	}
}

// baseComplexity maps text length to a 1..5 starting score.
func baseComplexity(text string) int {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	switch {
	case n <= 80:
		return 1
	case n <= 240:
		return 2
	case n <= 600:
		return 3
	case n <= 1200:
		return 4
	default:
		return 5
	}
}

// isSimpleQuestion reports whether text is a short, single-sentence
// factual question.
func isSimpleQuestion(text string) bool {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) > 160 {
		return false
	}
	if !simpleQuestion.MatchString(trimmed) {
		return false
	}
	return len(sentenceEnd.FindAllString(trimmed, -1)) <= 1
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
