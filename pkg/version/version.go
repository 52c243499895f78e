package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Scope is an optional scope name. The zero value is the unscoped scope.
type Scope struct {
	Name  string
	Valid bool
}

// Unscoped identifies tags that are a bare version.
var Unscoped = Scope{}

// Named returns a present scope.
func Named(name string) Scope {
	return Scope{Name: name, Valid: true}
}

// ScopeFromArg maps an optional CLI argument to a scope: an empty string
// means unscoped.
func ScopeFromArg(arg string) Scope {
	if arg == "" {
		return Unscoped
	}
	return Named(arg)
}

func (s Scope) String() string {
	if !s.Valid {
		return "<unscoped>"
	}
	return s.Name
}

// Less orders the unscoped scope before every named scope and named scopes
// by name.
func (s Scope) Less(o Scope) bool {
	if s.Valid != o.Valid {
		return !s.Valid
	}
	return s.Name < o.Name
}

// ScopedTag is a parsed version tag. It is never mutated; Bump returns a new
// value.
type ScopedTag struct {
	scope   Scope
	version *semver.Version
	sep     rune
	vPrefix bool
}

// NewScopedTag builds a tag from its parts. A zero separator with a named
// scope falls back to '/'.
func NewScopedTag(scope Scope, v *semver.Version, sep rune) ScopedTag {
	if !scope.Valid {
		sep = 0
	} else if sep == 0 {
		sep = '/'
	}
	return ScopedTag{scope: scope, version: v, sep: sep}
}

func (t ScopedTag) Scope() Scope {
	return t.scope
}

func (t ScopedTag) Version() *semver.Version {
	return t.version
}

// Separator returns the rune that joined scope and version, or 0 when the
// tag is unscoped.
func (t ScopedTag) Separator() rune {
	return t.sep
}

func (t ScopedTag) HasVPrefix() bool {
	return t.vPrefix
}

// Bump returns the successor tag for part. Pre-release and build metadata
// are always dropped. Bump panics on a part outside Parts; parts coming from
// users go through Part.Set first.
func (t ScopedTag) Bump(part Part) ScopedTag {
	major, minor, patch := t.version.Major(), t.version.Minor(), t.version.Patch()
	switch part {
	case Major:
		major, minor, patch = major+1, 0, 0
	case Minor:
		minor, patch = minor+1, 0
	case Patch:
		patch++
	default:
		panic(fmt.Sprintf("version: unknown part %q", string(part)))
	}
	return ScopedTag{
		scope:   t.scope,
		version: semver.New(major, minor, patch, "", ""),
		sep:     t.sep,
		vPrefix: t.vPrefix,
	}
}

func (t ScopedTag) versionString() string {
	if t.vPrefix {
		return "v" + t.version.String()
	}
	return t.version.String()
}

// String renders the tag exactly as it is stored in the repository.
func (t ScopedTag) String() string {
	if !t.scope.Valid {
		return t.versionString()
	}
	var b strings.Builder
	b.WriteString(t.scope.Name)
	b.WriteRune(t.sep)
	b.WriteString(t.versionString())
	return b.String()
}
