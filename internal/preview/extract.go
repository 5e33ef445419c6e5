package preview

import (
	"regexp"
	"strings"
)

var (
	returnParenRe = regexp.MustCompile(`\breturn\s*\(`)
	classNameRe   = regexp.MustCompile(`\bclassName=`)
	htmlForRe     = regexp.MustCompile(`\bhtmlFor=`)
	tagRe         = regexp.MustCompile(`<(/?)([A-Za-z][\w.-]*)([^<>]*?)(/?)>`)
	attrNameRe    = regexp.MustCompile(`\s*[A-Za-z_:][\w:.-]*=$`)
	numberRe      = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
)

// ExtractMarkupFragment pulls static markup out of component source. It looks
// for the first parenthesised return block holding markup; without one it
// takes the first balanced element span. The bool is false when neither
// exists.
func ExtractMarkupFragment(source string) (string, bool) {
	if body, ok := returnBlock(source); ok {
		return collapseExpressions(rewriteAttributes(body)), true
	}
	if span, ok := firstElementSpan(source); ok {
		return rewriteAttributes(span), true
	}
	return "", false
}

// returnBlock finds the first "return (" whose balanced body contains a tag.
func returnBlock(source string) (string, bool) {
	for _, loc := range returnParenRe.FindAllStringIndex(source, -1) {
		open := loc[1] - 1
		end := matchClosing(source, open, '(', ')')
		if end < 0 {
			continue
		}
		body := strings.TrimSpace(source[open+1 : end])
		if strings.Contains(body, "<") {
			return body, true
		}
	}
	return "", false
}

// matchClosing returns the index of the delimiter closing the one at open, or
// -1 when the input ends first.
func matchClosing(s string, open int, left, right byte) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case left:
			depth++
		case right:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// matchExpression is matchClosing for a {...} expression: braces inside
// quoted or template strings do not count. Markup text is not scanned this
// way since apostrophes are common there.
func matchExpression(s string, open int) int {
	depth := 0
	var quote byte
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func rewriteAttributes(s string) string {
	s = classNameRe.ReplaceAllString(s, "class=")
	return htmlForRe.ReplaceAllString(s, "for=")
}

// collapseExpressions replaces literal expressions with their text and drops
// every other {...} block. An attribute bound to a dynamic expression is
// dropped together with its name.
func collapseExpressions(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			out = append(out, s[i])
			continue
		}
		end := matchExpression(s, i)
		if end < 0 {
			// unbalanced: drop the rest
			break
		}
		inner := strings.TrimSpace(s[i+1 : end])
		literal, isLiteral := literalText(inner)
		inAttr := len(out) > 0 && out[len(out)-1] == '='
		switch {
		case inAttr && isLiteral:
			out = append(out, '"')
			out = append(out, strings.ReplaceAll(literal, `"`, "&quot;")...)
			out = append(out, '"')
		case inAttr:
			if loc := attrNameRe.FindIndex(out); loc != nil {
				out = out[:loc[0]]
			}
		case isLiteral:
			out = append(out, literal...)
		}
		i = end
	}
	return string(out)
}

func literalText(expr string) (string, bool) {
	if len(expr) >= 2 {
		first, last := expr[0], expr[len(expr)-1]
		if first == last {
			inner := expr[1 : len(expr)-1]
			switch first {
			case '`':
				if !strings.Contains(inner, "${") && !strings.Contains(inner, "`") {
					return inner, true
				}
			case '"', '\'':
				if !strings.ContainsRune(inner, rune(first)) {
					return inner, true
				}
			}
		}
	}
	if numberRe.MatchString(expr) {
		return expr, true
	}
	return "", false
}

// firstElementSpan returns the first element together with its matching
// closing tag, counting nested elements of the same name.
func firstElementSpan(source string) (string, bool) {
	tags := tagRe.FindAllStringSubmatchIndex(source, -1)
	for i, t := range tags {
		closing := t[3] > t[2]
		selfClosing := t[9] > t[8]
		if closing || selfClosing {
			continue
		}
		name := source[t[4]:t[5]]
		depth := 0
		for _, u := range tags[i:] {
			if source[u[4]:u[5]] != name || u[9] > u[8] {
				continue
			}
			if u[3] > u[2] {
				depth--
			} else {
				depth++
			}
			if depth == 0 {
				return source[t[0]:u[1]], true
			}
		}
	}
	return "", false
}
