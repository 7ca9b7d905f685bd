package selector

import (
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/xkilldash9x/crow/api/schemas"
)

// HeuristicRules holds the ordered indicator lists used to guess a locate
// strategy. XPath indicators are evaluated first.
type HeuristicRules struct {
	XPathPatterns []*regexp.Regexp
	CSSPatterns   []*regexp.Regexp
}

// DefaultRules returns the standard indicator lists.
func DefaultRules() HeuristicRules {
	xpath := []*regexp.Regexp{
		regexp.MustCompile(`^//`),      // relative path
		regexp.MustCompile(`^/[^/]`),   // absolute path
		regexp.MustCompile(`//`),       // descendant step inside the path
		regexp.MustCompile(`@\w+`),     // attribute axis
		regexp.MustCompile(`::`),       // explicit axis
		regexp.MustCompile(`\[\d+]`),   // positional predicate
		regexp.MustCompile(`text\(\)`), // text node test
		regexp.MustCompile(`contains\(`),
		regexp.MustCompile(`\|`), // union
		regexp.MustCompile(`ancestor::`),
		regexp.MustCompile(`descendant::`),
		regexp.MustCompile(`following::`),
		regexp.MustCompile(`preceding::`),
		regexp.MustCompile(`self::`),
	}
	css := []*regexp.Regexp{
		regexp.MustCompile(`\.`),        // class
		regexp.MustCompile(`#`),         // id
		regexp.MustCompile(`\[.+?]`),    // attribute bracket
		regexp.MustCompile(`::?[\w-]+`), // pseudo-class or pseudo-element
		regexp.MustCompile(`>`),         // child combinator
		regexp.MustCompile(`\+`),        // adjacent sibling
		regexp.MustCompile(`~`),         // general sibling
		regexp.MustCompile(`\s`),        // descendant combinator
	}
	return HeuristicRules{XPathPatterns: xpath, CSSPatterns: css}
}

// Classify guesses the strategy of body. The result is best effort: inputs
// matching neither family (a bare tag name) come back as unknown and callers
// that need certainty must declare the strategy.
func (r HeuristicRules) Classify(body string) schemas.LocateStrategy {
	for _, re := range r.XPathPatterns {
		if re.MatchString(body) {
			return schemas.StrategyXPath
		}
	}
	for _, re := range r.CSSPatterns {
		if re.MatchString(body) {
			return schemas.StrategyCSS
		}
	}
	return schemas.StrategyUnknown
}

// classifier memoizes Classify per selector body.
type classifier struct {
	rules HeuristicRules
	cache *lru.Cache[string, schemas.LocateStrategy]
}

func newClassifier(rules HeuristicRules, size int) (*classifier, error) {
	c := &classifier{rules: rules}
	if size > 0 {
		cache, err := lru.New[string, schemas.LocateStrategy](size)
		if err != nil {
			return nil, err
		}
		c.cache = cache
	}
	return c, nil
}

func (c *classifier) classify(body string) schemas.LocateStrategy {
	if c.cache != nil {
		if s, ok := c.cache.Get(body); ok {
			return s
		}
	}
	s := c.rules.Classify(body)
	if c.cache != nil {
		c.cache.Add(body, s)
	}
	return s
}
