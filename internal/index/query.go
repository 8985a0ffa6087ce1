package index

import (
	"strings"
	"unicode"
)

// Expression turns a user query into an FTS5 MATCH expression. Queries made
// only of words become an OR of quoted terms, so every word contributes to
// ranking without being required. Anything else is treated as FTS5 syntax
// and passed through unchanged; if it is malformed the engine reports
// ErrSyntax and callers fall back to Escape.
func Expression(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}
	plain := true
	for _, r := range query {
		if !isTokenRune(r) && !unicode.IsSpace(r) {
			plain = false
			break
		}
	}
	if !plain {
		return query
	}
	return orTerms(strings.Fields(query))
}

// Escape neutralises every FTS5 operator in query by keeping only its words,
// each quoted, joined with OR.
func Escape(query string) string {
	return orTerms(strings.FieldsFunc(query, func(r rune) bool {
		return !isTokenRune(r)
	}))
}

// GuestClause restricts a match to documents whose guest column contains the
// normalized guest name as a phrase.
func GuestClause(normalizedGuest string) string {
	return fieldNames[FieldGuest] + ":" + quote(normalizedGuest)
}

// And joins two expressions so both must match. Empty operands are dropped.
func And(left, right string) string {
	switch {
	case left == "":
		return right
	case right == "":
		return left
	}
	return "(" + left + ") AND " + right
}

func orTerms(words []string) string {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		quoted = append(quoted, quote(w))
	}
	return strings.Join(quoted, " OR ")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// queryTerm is a scoring term recovered from an FTS5 expression.
type queryTerm struct {
	text   string
	field  Field // -1 means any field
	prefix bool
}

// extractTerms walks an FTS5 expression and collects the terms that should
// contribute to a document's score: bare words, phrase words and prefix
// terms, each scoped to a column when a column filter precedes it. Operators
// are skipped, as is the operand directly following NOT.
func extractTerms(expr string) []queryTerm {
	var (
		terms    []queryTerm
		seen     = make(map[queryTerm]struct{})
		scope    = []Field{-1}
		pending  Field = -1
		hasCol   bool
		skipNext bool
		depth    int
		skipAt   = -1
	)

	current := func() Field {
		if hasCol {
			return pending
		}
		return scope[len(scope)-1]
	}
	emit := func(words []string, prefixLast bool) {
		f := current()
		hasCol = false
		if skipNext {
			skipNext = false
			return
		}
		if skipAt >= 0 {
			return
		}
		for i, w := range words {
			t := queryTerm{text: w, field: f, prefix: prefixLast && i == len(words)-1}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			terms = append(terms, t)
		}
	}

	rs := []rune(expr)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r), r == '^', r == '+', r == ',':
			i++

		case r == '(':
			f := current()
			hasCol = false
			if skipNext {
				skipNext = false
				if skipAt < 0 {
					skipAt = depth
				}
			}
			depth++
			scope = append(scope, f)
			i++

		case r == ')':
			if len(scope) > 1 {
				scope = scope[:len(scope)-1]
			}
			depth--
			if skipAt == depth {
				skipAt = -1
			}
			i++

		case r == '"':
			j := i + 1
			var sb strings.Builder
			for j < len(rs) {
				if rs[j] == '"' {
					if j+1 < len(rs) && rs[j+1] == '"' {
						sb.WriteRune('"')
						j += 2
						continue
					}
					break
				}
				sb.WriteRune(rs[j])
				j++
			}
			i = j + 1
			prefix := i < len(rs) && rs[i] == '*'
			if prefix {
				i++
			}
			emit(Tokenize(sb.String()), prefix)

		case r == '{' || r == '-' && i+1 < len(rs) && rs[i+1] == '{':
			j := i
			for j < len(rs) && rs[j] != '}' {
				j++
			}
			cols := strings.Fields(strings.Trim(string(rs[i:min(j, len(rs))]), "-{"))
			pending, hasCol = -1, true
			if r == '{' && len(cols) == 1 {
				if f, ok := fieldByName(cols[0]); ok {
					pending = f
				}
			}
			i = j + 1
			if i < len(rs) && rs[i] == ':' {
				i++
			}

		case isBareword(r):
			j := i
			for j < len(rs) && isBareword(rs[j]) {
				j++
			}
			word := string(rs[i:j])
			i = j

			if i < len(rs) && rs[i] == ':' {
				i++
				pending, hasCol = -1, true
				if f, ok := fieldByName(word); ok {
					pending = f
				}
				continue
			}

			switch word {
			case "AND", "OR", "NEAR":
				continue
			case "NOT":
				skipNext = true
				continue
			}

			prefix := i < len(rs) && rs[i] == '*'
			if prefix {
				i++
			}
			emit(Tokenize(word), prefix)

		default:
			i++
		}
	}
	return terms
}

// isBareword reports whether r may appear in an unquoted FTS5 string.
func isBareword(r rune) bool {
	return r == '_' || r > 127 || unicode.IsLetter(r) || unicode.IsDigit(r)
}
