package discovery

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"shardrun/internal/domain"
	"shardrun/internal/runerrors"
)

// Filter selects the test cases eligible for execution.
//
// An expression is a list of terms separated by whitespace or commas:
//
//	LoginTest*            wildcard match on the full test id
//	class:*LoginTest      match on the class part of the id
//	package:com.example   match on the package prefix of the class
//	!term                 exclude whatever term matches
//
// A test is eligible when it matches at least one include term (or there are none)
// and no exclude term.
type Filter struct {
	expr     string
	includes []term
	excludes []term
}

type termKind int

const (
	termWildcard termKind = iota
	termClass
	termPackage
)

type term struct {
	kind    termKind
	pattern string
}

// CompileFilter parses a filter expression. The empty expression matches everything.
func CompileFilter(expr string) (*Filter, error) {
	f := &Filter{expr: expr}
	fields := strings.FieldsFunc(expr, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	for _, field := range fields {
		exclude := strings.HasPrefix(field, "!")
		field = strings.TrimPrefix(field, "!")

		t := term{kind: termWildcard, pattern: field}
		switch {
		case strings.HasPrefix(field, "class:"):
			t = term{kind: termClass, pattern: strings.TrimPrefix(field, "class:")}
		case strings.HasPrefix(field, "package:"):
			t = term{kind: termPackage, pattern: strings.TrimPrefix(field, "package:")}
		}
		if t.pattern == "" {
			return nil, errors.WithStack(&runerrors.ErrInvalidArgument{
				Name:    "filterExpression",
				Value:   expr,
				Message: "empty filter term",
			})
		}
		if _, err := filepath.Match(t.pattern, ""); err != nil {
			return nil, errors.WithStack(&runerrors.ErrInvalidArgument{
				Name:    "filterExpression",
				Value:   expr,
				Message: "malformed pattern " + t.pattern,
			})
		}

		if exclude {
			f.excludes = append(f.excludes, t)
		} else {
			f.includes = append(f.includes, t)
		}
	}
	return f, nil
}

// String returns the source expression
func (f *Filter) String() string {
	return f.expr
}

// Match reports whether the test id is eligible
func (f *Filter) Match(id string) bool {
	for _, t := range f.excludes {
		if t.match(id) {
			return false
		}
	}
	if len(f.includes) == 0 {
		return true
	}
	for _, t := range f.includes {
		if t.match(id) {
			return true
		}
	}
	return false
}

// Split separates eligible test cases from filtered ones, keeping discovery order in both
func (f *Filter) Split(cases []domain.TestCase) (eligible, filtered []domain.TestCase) {
	for _, tc := range cases {
		if f.Match(tc.ID) {
			eligible = append(eligible, tc)
		} else {
			filtered = append(filtered, tc)
		}
	}
	return eligible, filtered
}

func (t term) match(id string) bool {
	class, _, _ := strings.Cut(id, "#")
	switch t.kind {
	case termClass:
		simple := class[strings.LastIndex(class, ".")+1:]
		return matchWildcard(t.pattern, class) || matchWildcard(t.pattern, simple)
	case termPackage:
		pkg := ""
		if i := strings.LastIndex(class, "."); i >= 0 {
			pkg = class[:i]
		}
		return pkg == t.pattern || strings.HasPrefix(pkg, t.pattern+".")
	default:
		return matchWildcard(t.pattern, id)
	}
}

// matchWildcard matches name against a pattern with * and ? wildcards.
// Patterns without wildcards match as substrings; for patterns like "*Payment*" every
// literal part has to be contained in the name.
func matchWildcard(pattern, name string) bool {
	if matched, err := filepath.Match(pattern, name); err == nil && matched {
		return true
	}

	if strings.Contains(pattern, "*") {
		hasNonEmptyPart := false
		for _, part := range strings.Split(pattern, "*") {
			if part == "" {
				continue
			}
			if strings.Contains(part, "?") || !strings.Contains(name, part) {
				return false
			}
			hasNonEmptyPart = true
		}
		return hasNonEmptyPart
	}

	if !strings.Contains(pattern, "?") {
		return strings.Contains(name, pattern)
	}
	return false
}
