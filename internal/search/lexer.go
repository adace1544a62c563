package search

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// tokenKind enumerates the lexical elements shared by both parsers.
type tokenKind int

const (
	tokTerm tokenKind = iota
	tokPhrase
	tokRange
	tokAnd
	tokOr
	tokNot
	tokPlus
	tokMinus
	tokLParen
	tokRParen
)

// token is one lexical element of a query string.
type token struct {
	kind  tokenKind
	text  string // term text or phrase body
	field string // field override, "" means the default field

	fuzzy    bool
	fuzzyVal float64 // explicit ~value; 0 means "use configured default"

	slop int // phrase slop from ~N; -1 means "use configured default"

	lo, hi       string // range bounds; "" means open
	incLo, incHi bool
}

// lex splits a raw query string into tokens. It returns an error for
// structurally malformed input (unterminated phrase or range, range
// without TO); the compiler converts such errors into "no query".
func lex(input string) ([]token, error) {
	runes := []rune(input)
	var toks []token
	pendingField := ""

	emit := func(t token) {
		if t.field == "" {
			t.field = pendingField
		}
		pendingField = ""
		toks = append(toks, t)
	}

	i := 0
	for i < len(runes) {
		r := runes[i]

		switch {
		case unicode.IsSpace(r):
			pendingField = ""
			i++

		case r == '(':
			emit(token{kind: tokLParen})
			i++

		case r == ')':
			emit(token{kind: tokRParen})
			i++

		case r == '+' && i+1 < len(runes) && !unicode.IsSpace(runes[i+1]):
			emit(token{kind: tokPlus})
			i++

		case r == '-' && i+1 < len(runes) && !unicode.IsSpace(runes[i+1]):
			emit(token{kind: tokMinus})
			i++

		case r == '"':
			body, next, err := scanUntil(runes, i+1, '"')
			if err != nil {
				return nil, err
			}
			slop, next := scanSlop(runes, next)
			emit(token{kind: tokPhrase, text: body, slop: slop})
			i = next

		case r == '[' || r == '{':
			closer := rune(']')
			if r == '{' {
				closer = '}'
			}
			tok, next, err := scanRange(runes, i, closer)
			if err != nil {
				return nil, err
			}
			emit(tok)
			i = next

		default:
			tok, fieldOnly, next := scanWord(runes, i)
			if fieldOnly != "" {
				pendingField = fieldOnly
			} else {
				emit(tok)
			}
			i = next
		}
	}

	return toks, nil
}

// scanUntil reads runes from start until the closing rune, returning the
// body and the index after the closer.
func scanUntil(runes []rune, start int, close rune) (string, int, error) {
	for i := start; i < len(runes); i++ {
		if runes[i] == close {
			return string(runes[start:i]), i + 1, nil
		}
	}
	return "", 0, fmt.Errorf("unterminated %q", close)
}

// scanSlop reads an optional ~N suffix after a phrase. Returns -1 when
// absent so the configured default applies.
func scanSlop(runes []rune, i int) (int, int) {
	if i >= len(runes) || runes[i] != '~' {
		return -1, i
	}
	j := i + 1
	for j < len(runes) && unicode.IsDigit(runes[j]) {
		j++
	}
	if j == i+1 {
		return -1, i // bare ~ after a phrase carries no meaning
	}
	n, err := strconv.Atoi(string(runes[i+1 : j]))
	if err != nil {
		return -1, i
	}
	return n, j
}

// scanRange reads a [lo TO hi] or {lo TO hi} range starting at the opening
// bracket. Mixed inclusivity ([a TO b}) is allowed.
func scanRange(runes []rune, start int, close rune) (token, int, error) {
	incLo := runes[start] == '['
	i := start + 1
	for i < len(runes) {
		if runes[i] == ']' || runes[i] == '}' {
			break
		}
		i++
	}
	if i >= len(runes) {
		return token{}, 0, fmt.Errorf("unterminated range")
	}
	incHi := runes[i] == ']'
	body := strings.TrimSpace(string(runes[start+1 : i]))

	parts := splitRangeBody(body)
	if parts == nil {
		return token{}, 0, fmt.Errorf("range without TO: %q", body)
	}

	lo, hi := parts[0], parts[1]
	if lo == "*" {
		lo = ""
	}
	if hi == "*" {
		hi = ""
	}

	return token{kind: tokRange, lo: lo, hi: hi, incLo: incLo, incHi: incHi, slop: -1}, i + 1, nil
}

// splitRangeBody splits "lo TO hi" on a case-insensitive TO keyword.
// Returns nil when the keyword is missing.
func splitRangeBody(body string) []string {
	fields := strings.Fields(body)
	for i, f := range fields {
		if strings.EqualFold(f, "TO") {
			return []string{
				strings.TrimSpace(strings.Join(fields[:i], " ")),
				strings.TrimSpace(strings.Join(fields[i+1:], " ")),
			}
		}
	}
	return nil
}

// scanWord reads a bare word starting at i. It handles field prefixes
// (title:foo, or title: followed by a phrase/range), operator keywords,
// and fuzzy ~ suffixes. When the word is a dangling field prefix the
// second return carries the field name and no token is produced.
func scanWord(runes []rune, start int) (token, string, int) {
	i := start
	for i < len(runes) {
		r := runes[i]
		if unicode.IsSpace(r) || r == '(' || r == ')' || r == '"' {
			break
		}
		// A colon binds the preceding word as a field name for whatever
		// follows, including a phrase or range atom.
		if r == ':' {
			field := string(runes[start:i])
			if field == "" {
				i++
				continue
			}
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				return token{}, field, i + 1
			}
			if runes[i+1] == '"' || runes[i+1] == '[' || runes[i+1] == '{' {
				return token{}, field, i + 1
			}
			rest, _, next := scanWord(runes, i+1)
			rest.field = field
			return rest, "", next
		}
		i++
	}

	word := string(runes[start:i])

	switch word {
	case "AND", "&&":
		return token{kind: tokAnd}, "", i
	case "OR", "||":
		return token{kind: tokOr}, "", i
	case "NOT", "!":
		return token{kind: tokNot}, "", i
	}

	tok := token{kind: tokTerm, text: word, slop: -1}

	// Fuzzy suffix: term~ or term~0.8 or term~2.
	if idx := strings.LastIndex(word, "~"); idx > 0 {
		suffix := word[idx+1:]
		if suffix == "" {
			tok.text = word[:idx]
			tok.fuzzy = true
		} else if v, err := strconv.ParseFloat(suffix, 64); err == nil {
			tok.text = word[:idx]
			tok.fuzzy = true
			tok.fuzzyVal = v
		}
	}

	return tok, "", i
}
