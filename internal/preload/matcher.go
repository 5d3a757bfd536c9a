package preload

import (
	"regexp"

	"github.com/pkg/errors"
)

// Matcher decides whether a window title belongs to an application. It is
// built once at configuration time and stored on the Record.
type Matcher interface {
	Match(title string) bool
	String() string
}

type regexMatcher struct {
	re *regexp.Regexp
}

// NewRegexMatcher compiles pattern into a Matcher
func NewRegexMatcher(pattern string) (Matcher, error) {
	if pattern == "" {
		return nil, errors.New("window pattern is empty")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid window pattern %q", pattern)
	}
	return &regexMatcher{re: re}, nil
}

// MustRegexMatcher is like NewRegexMatcher but panics on error
func MustRegexMatcher(pattern string) Matcher {
	m, err := NewRegexMatcher(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *regexMatcher) Match(title string) bool {
	return m.re.MatchString(title)
}

func (m *regexMatcher) String() string {
	return m.re.String()
}
