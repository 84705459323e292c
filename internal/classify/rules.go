package classify

import "regexp"

// Rule is one complexity signal. Bump is added to the base score when
// the pattern matches; Category tags the request (first matching rule
// with a category wins, table order is precedence); MultiStep marks
// categories that always need the multi-agent path regardless of score.
type Rule struct {
	Name      string
	Regex     *regexp.Regexp
	Bump      int
	Category  Category
	MultiStep bool
}

// DefaultRules returns the built-in complexity signals.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:      "business_strategy",
			Regex:     regexp.MustCompile(`(?i)\b(marketing|business|growth|go-to-market|pricing)\s+(strategy|plan)\b`),
			Bump:      2,
			Category:  CategoryStrategy,
			MultiStep: true,
		},
		{
			Name:      "multi_file_code",
			Regex:     regexp.MustCompile(`(?i)(multi-file|across\s+(multiple\s+)?(files|modules)|(whole|entire)\s+(project|codebase|repo(sitory)?))`),
			Bump:      2,
			Category:  CategoryMultiFileCode,
			MultiStep: true,
		},
		{
			Name:     "sequence_connective",
			Regex:    regexp.MustCompile(`(?i)(\band\s+then\b|,\s*then\b|\bafter\s+that\b|\bfollowed\s+by\b)`),
			Bump:     1,
			Category: "",
		},
		{
			Name:     "numbered_list",
			Regex:    regexp.MustCompile(`(?m)^\s*\d+[.)]\s+`),
			Bump:     1,
			Category: "",
		},
		{
			Name:     "step_marker",
			Regex:    regexp.MustCompile(`(?i)\bstep\s*\d`),
			Bump:     1,
			Category: "",
		},
		{
			Name:     "deliverable_enumeration",
			Regex:    regexp.MustCompile(`(?i)\b(with|including)\b[^.?!]*,[^.?!]*\band\b`),
			Bump:     1,
			Category: "",
		},
		{
			Name:     "vision",
			Regex:    regexp.MustCompile(`(?i)\b(image|picture|photo|screenshot|diagram|chart)\b`),
			Bump:     0,
			Category: CategoryVision,
		},
		{
			Name:     "coding",
			Regex:    regexp.MustCompile(`(?i)\b(code|function|class|script|bug|debug|compile|implement|refactor|unit\s+test)\b`),
			Bump:     0,
			Category: CategoryCoding,
		},
	}
}

// simpleQuestion matches short factual openers ("what is", "how many").
var simpleQuestion = regexp.MustCompile(`(?i)^\s*(what|who|when|where|which|how\s+(many|much|old)|is|are|does|do|can)\b`)

// sentenceEnd counts sentence terminators for the single-sentence test.
var sentenceEnd = regexp.MustCompile(`[.?!]+`)
