package store

import (
	"fmt"
	"regexp"
	"strings"
)

// TokenKind tags the variants of a query Token.
type TokenKind uint8

const (
	// TokenExact matches one named segment.
	TokenExact TokenKind = iota
	// TokenAny matches every immediate child.
	TokenAny
	// TokenRecursive matches the current subtree itself and every
	// descendant at any depth.
	TokenRecursive
	// TokenPattern matches immediate children whose segment matches a
	// regular expression anchored at the start of the segment.
	TokenPattern
)

// Token is one element of a Query.
type Token struct {
	kind    TokenKind
	segment string
	pattern *regexp.Regexp
}

// Exact matches the segment form of v.
func Exact(v any) Token { return Token{kind: TokenExact, segment: segmentOf(v)} }

// Any matches every immediate child.
func Any() Token { return Token{kind: TokenAny} }

// Recursive matches a whole subtree.
func Recursive() Token { return Token{kind: TokenRecursive} }

// Match matches immediate children for which re matches at the start of the
// segment.
func Match(re *regexp.Regexp) Token { return Token{kind: TokenPattern, pattern: re} }

// MustMatch is Match for an expression that is known to compile.
func MustMatch(expr string) Token { return Match(regexp.MustCompile(expr)) }

func (t Token) Kind() TokenKind { return t.kind }

func (t Token) String() string {
	switch t.kind {
	case TokenAny:
		return ":"
	case TokenRecursive:
		return "..."
	case TokenPattern:
		if t.pattern == nil {
			return "re()"
		}
		return "re(" + t.pattern.String() + ")"
	default:
		return t.segment
	}
}

// matches reports whether the pattern matches name at its first byte.
func (t Token) matches(name string) bool {
	loc := t.pattern.FindStringIndex(name)
	return loc != nil && loc[0] == 0
}

// Query is a composite search key mixing exact segments with tokens.
type Query []Token

// Q builds a Query. Tokens and *regexp.Regexp values become tokens, Keys,
// string slices and Queries are flattened, and any other value becomes an
// exact segment.
//
//	Q(Any(), "1", Any())
//	Q(regexp.MustCompile("[ab]"), "1", Recursive())
func Q(parts ...any) Query {
	q := make(Query, 0, len(parts))
	for _, p := range parts {
		switch x := p.(type) {
		case Token:
			q = append(q, x)
		case *regexp.Regexp:
			q = append(q, Match(x))
		case Query:
			q = append(q, x...)
		case Key:
			for _, seg := range x {
				q = append(q, Exact(seg))
			}
		case []string:
			for _, seg := range x {
				q = append(q, Exact(seg))
			}
		default:
			q = append(q, Exact(p))
		}
	}
	return q
}

func (q Query) String() string {
	parts := make([]string, len(q))
	for i, t := range q {
		parts[i] = t.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// step is a run of exact segments or one non-exact token.
type step struct {
	exact Key
	token Token
}

func (st step) isExact() bool { return st.token.kind == TokenExact }

// steps splits q into alternating runs of exact segments and tokens,
// validating every exact segment.
func (q Query) steps() ([]step, error) {
	var out []step
	for _, t := range q {
		if t.kind == TokenExact {
			if err := validateSegment(t.segment); err != nil {
				return nil, err
			}
			if n := len(out); n > 0 && out[n-1].isExact() {
				out[n-1].exact = append(out[n-1].exact, t.segment)
				continue
			}
			out = append(out, step{exact: Key{t.segment}})
			continue
		}
		if t.kind == TokenPattern && t.pattern == nil {
			return nil, fmt.Errorf("pattern token without expression")
		}
		out = append(out, step{token: t})
	}
	return out, nil
}
