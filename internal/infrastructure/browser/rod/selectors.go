package rod

import (
	"fmt"
	"strings"

	"browser-query/internal/application/port/output"
	"browser-query/internal/domain/entity"
)

var cssEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func toCSS(by entity.By) (string, error) {
	switch by.Strategy {
	case entity.StrategyCSS, entity.StrategyTagName:
		return by.Value, nil
	case entity.StrategyID:
		return fmt.Sprintf(`[id="%s"]`, cssEscaper.Replace(by.Value)), nil
	case entity.StrategyName:
		return fmt.Sprintf(`[name="%s"]`, cssEscaper.Replace(by.Value)), nil
	case entity.StrategyClassName:
		return fmt.Sprintf(`[class~="%s"]`, cssEscaper.Replace(by.Value)), nil
	}
	return "", fmt.Errorf("%s: %w", by.Strategy, output.ErrUnsupportedStrategy)
}

// toXPath translates xpath and link text strategies. Link text lookups under
// an element stay relative to it.
func toXPath(by entity.By, scoped bool) string {
	prefix := "//"
	if scoped {
		prefix = ".//"
	}
	switch by.Strategy {
	case entity.StrategyLinkText:
		return fmt.Sprintf("%sa[normalize-space(.)=%s]", prefix, xpathLiteral(by.Value))
	case entity.StrategyPartialLinkText:
		return fmt.Sprintf("%sa[contains(normalize-space(.), %s)]", prefix, xpathLiteral(by.Value))
	}
	return by.Value
}

func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}
