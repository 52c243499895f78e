package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ParseOption configures a Parser.
type ParseOption func(p *Parser)

// WithVPrefix makes the parser accept versions written as "v1.2.3". The
// prefix is remembered so the tag renders back unchanged.
func WithVPrefix() ParseOption {
	return func(p *Parser) {
		p.vPrefix = true
	}
}

// Parser recognizes scoped and unscoped version tags.
type Parser struct {
	vPrefix bool
}

func NewParser(opts ...ParseOption) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses raw with the default, strict parser.
func Parse(raw string) (ScopedTag, error) {
	return NewParser().Parse(raw)
}

// Parse splits raw at the last occurrence of each separator in turn and
// returns the first split whose suffix is a version. A bare version is tried
// last.
func (p *Parser) Parse(raw string) (ScopedTag, error) {
	for _, sep := range Separators {
		i := strings.LastIndex(raw, string(sep))
		if i <= 0 {
			continue
		}
		v, prefixed, ok := p.parseVersion(raw[i+len(string(sep)):])
		if !ok {
			continue
		}
		return ScopedTag{scope: Named(raw[:i]), version: v, sep: sep, vPrefix: prefixed}, nil
	}
	if v, prefixed, ok := p.parseVersion(raw); ok {
		return ScopedTag{scope: Unscoped, version: v, vPrefix: prefixed}, nil
	}
	return ScopedTag{}, &NotAVersionError{Raw: raw}
}

func (p *Parser) parseVersion(s string) (*semver.Version, bool, bool) {
	prefixed := false
	if p.vPrefix && strings.HasPrefix(s, "v") {
		s = s[1:]
		prefixed = true
	}
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return nil, false, false
	}
	return v, prefixed, true
}

// ParseVersionOrRange tries single version (e.g. "1.2.3") first; if that fails,
// tries a range with "~>" expansions.
func ParseVersionOrRange(input string) (bool, *semver.Version, *semver.Constraints, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return false, nil, nil, fmt.Errorf("empty version input")
	}

	v, errVer := semver.NewVersion(input)
	if errVer == nil {
		return true, v, nil, nil
	}

	c, errConstr := semver.NewConstraint(ExpandTerraformTildeArrow(input))
	if errConstr != nil {
		return false, nil, nil, fmt.Errorf("invalid version or constraint %q: %w", input, errConstr)
	}
	return false, nil, c, nil
}

// ParseConstraint parses a listing filter. An exact version matches only
// itself.
func ParseConstraint(input string) (*semver.Constraints, error) {
	isVer, v, c, err := ParseVersionOrRange(input)
	if err != nil {
		return nil, err
	}
	if isVer {
		return semver.NewConstraint("= " + v.String())
	}
	return c, nil
}

// ExpandTerraformTildeArrow rewrites Terraform pessimistic constraints: only
// the rightmost given component may grow, so "~> X.Y.Z" becomes
// ">=X.Y.Z, <X.Y+1.0" while "~> X.Y" and "~> X" become ">=X.Y.0, <X+1.0.0".
func ExpandTerraformTildeArrow(version string) string {
	if !strings.Contains(version, "~>") {
		return version
	}

	var result []string
	for _, part := range strings.Split(version, "||") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "~>") {
			part = strings.TrimSpace(strings.TrimPrefix(part, "~>"))
			result = append(result, buildRangeFromTildePart(part))
		} else {
			result = append(result, part)
		}
	}

	return strings.Join(result, " || ")
}

func buildRangeFromTildePart(version string) string {
	components := strings.Split(strings.SplitN(version, "-", 2)[0], ".")
	if version == "" || len(components) > 3 {
		return "~>INVALID"
	}

	ver, err := semver.NewVersion(version)
	if err != nil {
		return ">=0.0.0, <1.0.0"
	}

	if len(components) == 3 {
		return fmt.Sprintf(">=%s, <%d.%d.0", ver.String(), ver.Major(), ver.Minor()+1)
	}
	return fmt.Sprintf(">=%d.%d.%d, <%d.0.0", ver.Major(), ver.Minor(), ver.Patch(), ver.Major()+1)
}
