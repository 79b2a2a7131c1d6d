package harvest

import (
	"context"
	"strings"
	"unicode/utf8"

	"courseharvest/internal/components/engine"
	"courseharvest/pkg/htmlutil"
)

const (
	minTitleLength = 3
	fallbackTitle  = "main_page"
)

// PickTitle returns the first heading usable as a lesson title. Headings that
// are too short or that are the store handle (starting with @) are skipped.
func PickTitle(headings []string) string {
	for _, h := range headings {
		text := htmlutil.NormalizeText(h)
		if utf8.RuneCountInString(text) < minTitleLength {
			continue
		}
		if strings.HasPrefix(text, "@") {
			continue
		}
		return text
	}
	return ""
}

// ReadTitle picks the title of the session's current page from its headings,
// "" when none qualifies.
func ReadTitle(ctx context.Context, session engine.Session) (string, error) {
	var headings []string
	err := session.Evaluate(ctx, queryHeadings, &headings)
	if err != nil {
		return "", err
	}
	return PickTitle(headings), nil
}
