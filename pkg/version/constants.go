package version

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
)

// Separators lists the characters that may join a scope and a version, in
// the order they are tried.
var Separators = []rune{'@', '/', '_'}

// Part selects which component of a version a bump increments.
type Part string

const (
	Patch Part = "patch"
	Minor Part = "minor"
	Major Part = "major"
)

var Parts = []Part{Patch, Minor, Major}

var _ pflag.Value = (*Part)(nil)

func (p *Part) String() string {
	return string(*p)
}

func (p *Part) Set(v string) error {
	actual := Part(strings.ToLower(v))
	if !slices.Contains(Parts, actual) {
		return fmt.Errorf("must be one of %s", AllowedParts())
	}
	*p = actual
	return nil
}

func (p *Part) Type() string {
	return "part"
}

// ParsePart converts a user supplied string into a Part.
func ParsePart(s string) (Part, error) {
	var p Part
	if err := p.Set(s); err != nil {
		return "", fmt.Errorf("invalid part %q: %w", s, err)
	}
	return p, nil
}

func AllowedParts() string {
	var quoted []string
	for _, v := range Parts {
		quoted = append(quoted, "\""+string(v)+"\"")
	}
	return strings.Join(quoted, ", ")
}

type Strategy string

const (
	StrategyDynamic Strategy = "dynamic"
	StrategyExact   Strategy = "exact"
	StrategyRange   Strategy = "range"
)
