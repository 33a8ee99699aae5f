package venue

import (
	"fmt"
	"regexp"
	"strings"

	"stopover-food/internal/apperr"
	"stopover-food/internal/config"
)

type category struct {
	keyword string
	re      *regexp.Regexp
}

// Categories resolves search keywords and their aliases to the pattern a
// venue's category field must match.
type Categories struct {
	byName map[string]*category
	order  []string
}

func NewCategories(cats []config.Category) (*Categories, error) {
	c := &Categories{byName: make(map[string]*category, len(cats))}
	for _, cat := range cats {
		re, err := regexp.Compile(cat.Pattern)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", cat.Keyword, err)
		}
		entry := &category{keyword: cat.Keyword, re: re}
		c.byName[cat.Keyword] = entry
		c.order = append(c.order, cat.Keyword)
		for _, a := range cat.Aliases {
			c.byName[strings.ToLower(a)] = entry
		}
	}
	return c, nil
}

// Keywords lists canonical keywords in catalog order.
func (c *Categories) Keywords() []string {
	return append([]string(nil), c.order...)
}

// Resolve maps a keyword or alias to its canonical keyword.
func (c *Categories) Resolve(keyword string) (string, error) {
	cat, err := c.lookup(keyword)
	if err != nil {
		return "", err
	}
	return cat.keyword, nil
}

func (c *Categories) lookup(keyword string) (*category, error) {
	k := strings.TrimSpace(keyword)
	if cat, ok := c.byName[k]; ok {
		return cat, nil
	}
	if cat, ok := c.byName[strings.ToLower(k)]; ok {
		return cat, nil
	}
	return nil, fmt.Errorf("unknown category %q: %w", keyword, apperr.ErrInvalidInput)
}
