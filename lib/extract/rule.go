package extract

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidRule is returned by Compile when a rule cannot be used.
var ErrInvalidRule = errors.New("invalid extraction rule")

type Kind string

const (
	// KindSpan captures the text between a label and the nearest terminator.
	KindSpan Kind = "span"
	// KindBold captures the emphasized value following "Label:".
	KindBold Kind = "bold"
	// KindCapture captures the first submatch of a pattern.
	KindCapture Kind = "capture"
)

// Rule describes how a single named field is located in an html blob.
// Rules are plain data so they can be declared in config files.
type Rule struct {
	Field string `json:"field"`
	Kind  Kind   `json:"kind"`

	// Label is a regexp fragment, used by span and bold rules.
	Label string `json:"label,omitempty"`
	// Terminators are regexp fragments that end a span, the nearest match wins.
	Terminators []string `json:"terminators,omitempty"`
	// Fallback terminators are tried in order when no primary terminator matches.
	Fallback []string `json:"fallback,omitempty"`
	// Emphasis is the tag wrapping a bold value, defaults to "b".
	Emphasis string `json:"emphasis,omitempty"`
	// Pattern is the full regexp of a capture rule.
	Pattern string `json:"pattern,omitempty"`
}

type compiledRule struct {
	field       string
	kind        Kind
	label       *regexp.Regexp
	terminators []*regexp.Regexp
	fallback    []*regexp.Regexp
	pattern     *regexp.Regexp
	group       int
}

var tagName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9]*$`)

func invalid(field, format string, args ...any) error {
	return fmt.Errorf("%w: %q: %s", ErrInvalidRule, field, fmt.Sprintf(format, args...))
}

func compileAll(field string, fragments []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, len(fragments))
	for i, f := range fragments {
		re, err := regexp.Compile("(?s)" + f)
		if err != nil {
			return nil, invalid(field, "terminator %q: %v", f, err)
		}
		out[i] = re
	}
	return out, nil
}

func compileRule(r Rule) (compiledRule, error) {
	c := compiledRule{field: r.Field, kind: r.Kind}

	switch r.Kind {
	case KindSpan:
		if r.Label == "" {
			return c, invalid(r.Field, "span rule has no label")
		}
		if len(r.Terminators) == 0 && len(r.Fallback) == 0 {
			return c, invalid(r.Field, "span rule has no terminators")
		}
		label, err := regexp.Compile("(?s)" + r.Label)
		if err != nil {
			return c, invalid(r.Field, "label: %v", err)
		}
		c.label = label
		c.terminators, err = compileAll(r.Field, r.Terminators)
		if err != nil {
			return c, err
		}
		c.fallback, err = compileAll(r.Field, r.Fallback)
		if err != nil {
			return c, err
		}
	case KindBold:
		if r.Label == "" {
			return c, invalid(r.Field, "bold rule has no label")
		}
		emphasis := r.Emphasis
		if emphasis == "" {
			emphasis = "b"
		}
		if !tagName.MatchString(emphasis) {
			return c, invalid(r.Field, "emphasis %q is not a tag name", emphasis)
		}
		pattern, err := regexp.Compile(fmt.Sprintf(
			`(?is)(?:%s)\s*:\s*<%s(?:\s[^>]*)?>(.*?)</%s\s*>`,
			r.Label, emphasis, emphasis,
		))
		if err != nil {
			return c, invalid(r.Field, "label: %v", err)
		}
		c.pattern = pattern
		c.group = pattern.NumSubexp()
	case KindCapture:
		if r.Pattern == "" {
			return c, invalid(r.Field, "capture rule has no pattern")
		}
		pattern, err := regexp.Compile("(?s)" + r.Pattern)
		if err != nil {
			return c, invalid(r.Field, "pattern: %v", err)
		}
		if pattern.NumSubexp() < 1 {
			return c, invalid(r.Field, "capture pattern has no group")
		}
		c.pattern = pattern
		c.group = 1
	default:
		return c, invalid(r.Field, "unknown kind %q", r.Kind)
	}
	return c, nil
}
