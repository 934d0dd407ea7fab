package browser

import (
	"regexp"
	"strings"

	"github.com/chromedp/chromedp"

	"digital.vasic.keywords/pkg/locator"
)

// query is a locator translated to a chromedp selector.
type query struct {
	sel  string
	opts []chromedp.QueryOption
}

var simpleIdent = regexp.MustCompile(`^[A-Za-z_][\w-]*$`)

// toQuery maps a locator to the chromedp selector and query
// options that resolve it. Link text strategies become XPath
// searches over anchors.
func toQuery(loc locator.Locator) query {
	v := loc.Value
	switch loc.Strategy {
	case locator.ID:
		if simpleIdent.MatchString(v) {
			return query{"#" + v, []chromedp.QueryOption{chromedp.ByID}}
		}
		return byQuery(`[id=` + cssString(v) + `]`)
	case locator.Name:
		return byQuery(`[name=` + cssString(v) + `]`)
	case locator.XPath:
		return query{v, []chromedp.QueryOption{chromedp.BySearch}}
	case locator.ClassName:
		if simpleIdent.MatchString(v) {
			return byQuery("." + v)
		}
		return byQuery(`[class~=` + cssString(v) + `]`)
	case locator.TagName:
		return byQuery(v)
	case locator.LinkText:
		return query{
			`//a[normalize-space(.)=` + xpathLiteral(v) + `]`,
			[]chromedp.QueryOption{chromedp.BySearch},
		}
	case locator.PartialLinkText:
		return query{
			`//a[contains(normalize-space(.),` +
				xpathLiteral(v) + `)]`,
			[]chromedp.QueryOption{chromedp.BySearch},
		}
	default:
		return byQuery(v)
	}
}

func byQuery(sel string) query {
	return query{sel, []chromedp.QueryOption{chromedp.ByQuery}}
}

// cssString quotes s as a CSS string literal.
func cssString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// xpathLiteral quotes s as an XPath 1.0 string literal. XPath
// has no escapes, so values holding both quote kinds are built
// with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}
	parts := strings.Split(s, `"`)
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`, '"', `)
		}
		b.WriteString(`"` + p + `"`)
	}
	b.WriteString(")")
	return b.String()
}

// with returns the query options plus extra ones.
func (q query) with(extra ...chromedp.QueryOption) []chromedp.QueryOption {
	opts := make([]chromedp.QueryOption, 0, len(q.opts)+len(extra))
	opts = append(opts, q.opts...)
	return append(opts, extra...)
}
