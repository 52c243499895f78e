package version

import (
	"slices"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// Entry is one version of a scope together with its tag text.
type Entry struct {
	Tag ScopedTag
}

func (e Entry) Version() *semver.Version {
	return e.Tag.version
}

func (e Entry) String() string {
	return e.Tag.String()
}

// Group holds the tags of a single scope ordered by ascending version.
type Group struct {
	scope   Scope
	entries []Entry
}

func (g *Group) Scope() Scope {
	return g.scope
}

func (g *Group) Len() int {
	return len(g.entries)
}

// Entries returns the versions in ascending order.
func (g *Group) Entries() []Entry {
	return slices.Clone(g.entries)
}

// Tags returns the rendered tags in ascending version order.
func (g *Group) Tags() []string {
	out := make([]string, 0, len(g.entries))
	for _, e := range g.entries {
		out = append(out, e.String())
	}
	return out
}

// Latest returns the highest version of the scope.
func (g *Group) Latest() (ScopedTag, bool) {
	if len(g.entries) == 0 {
		return ScopedTag{}, false
	}
	return g.entries[len(g.entries)-1].Tag, true
}

// Registry maps scopes to their ordered versions. It is rebuilt from the
// tag list on every invocation.
type Registry struct {
	groups   map[Scope]*Group
	shadowed []ScopedTag
}

// GroupTags parses every raw tag and groups the parseable ones by scope.
// Unparseable tags are dropped. When two tags share scope and version, the
// one whose separator comes first in Separators is kept and the other is
// reported by Shadowed, so the result does not depend on input order.
func GroupTags(raw []string, opts ...ParseOption) *Registry {
	p := NewParser(opts...)
	byKey := map[Scope]map[string]ScopedTag{}
	var shadowed []ScopedTag

	for _, s := range raw {
		tag, err := p.Parse(s)
		if err != nil {
			continue
		}
		versions, ok := byKey[tag.scope]
		if !ok {
			versions = map[string]ScopedTag{}
			byKey[tag.scope] = versions
		}
		key := tag.version.String()
		existing, found := versions[key]
		if found && existing.String() == s {
			continue
		}
		if !found {
			versions[key] = tag
			continue
		}
		if preferred(tag, existing) {
			versions[key] = tag
			shadowed = append(shadowed, existing)
		} else {
			shadowed = append(shadowed, tag)
		}
	}

	r := &Registry{groups: make(map[Scope]*Group, len(byKey))}
	for scope, versions := range byKey {
		g := &Group{scope: scope, entries: make([]Entry, 0, len(versions))}
		for _, tag := range versions {
			g.entries = append(g.entries, Entry{Tag: tag})
		}
		sortEntries(g.entries)
		r.groups[scope] = g
	}
	sort.Slice(shadowed, func(i, j int) bool {
		return shadowed[i].String() < shadowed[j].String()
	})
	r.shadowed = shadowed
	return r
}

// preferred reports whether a should win over b on a (scope, version)
// collision.
func preferred(a, b ScopedTag) bool {
	ai, bi := slices.Index(Separators, a.sep), slices.Index(Separators, b.sep)
	if ai != bi {
		return ai < bi
	}
	// Same separator means only the "v" prefix differs.
	return !a.vPrefix && b.vPrefix
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		vi, vj := entries[i].Version(), entries[j].Version()
		if c := vi.Compare(vj); c != 0 {
			return c < 0
		}
		return vi.Metadata() < vj.Metadata()
	})
}

// Scopes returns every scope with at least one tag: unscoped first, then
// named scopes by name.
func (r *Registry) Scopes() []Scope {
	scopes := make([]Scope, 0, len(r.groups))
	for s := range r.groups {
		scopes = append(scopes, s)
	}
	sort.Slice(scopes, func(i, j int) bool {
		return scopes[i].Less(scopes[j])
	})
	return scopes
}

func (r *Registry) Get(scope Scope) (*Group, bool) {
	g, ok := r.groups[scope]
	return g, ok
}

// Latest returns the highest version tagged under scope.
func (r *Registry) Latest(scope Scope) (ScopedTag, error) {
	g, ok := r.groups[scope]
	if !ok {
		return ScopedTag{}, &NoTagsError{Scope: scope}
	}
	tag, ok := g.Latest()
	if !ok {
		return ScopedTag{}, &NoTagsError{Scope: scope}
	}
	return tag, nil
}

// Shadowed returns tags dropped because another tag already claimed the
// same scope and version.
func (r *Registry) Shadowed() []ScopedTag {
	return slices.Clone(r.shadowed)
}

// Filter returns a registry holding only versions that satisfy c. Scopes
// left without versions are removed.
func (r *Registry) Filter(c *semver.Constraints) *Registry {
	out := &Registry{groups: map[Scope]*Group{}, shadowed: r.shadowed}
	for scope, g := range r.groups {
		var kept []Entry
		for _, e := range g.Entries() {
			if c.Check(e.Version()) {
				kept = append(kept, e)
			}
		}
		if len(kept) > 0 {
			out.groups[scope] = &Group{scope: scope, entries: kept}
		}
	}
	return out
}
