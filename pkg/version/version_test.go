package version

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Masterminds/semver/v3"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input     string
		wantScope Scope
		wantSep   rune
		wantVer   string
	}{
		{"1.0.0", Unscoped, 0, "1.0.0"},
		{"backend/1.2.3", Named("backend"), '/', "1.2.3"},
		{"team/service/1.2.3", Named("team/service"), '/', "1.2.3"},
		{"scope/subscope/0.1.2", Named("scope/subscope"), '/', "0.1.2"},
		{"scope/subscope@0.1.2", Named("scope/subscope"), '@', "0.1.2"},
		{"scope/subscope_0.1.2", Named("scope/subscope"), '_', "0.1.2"},
		{"web@2.0.0-rc.1+build.7", Named("web"), '@', "2.0.0-rc.1+build.7"},

		// Separator priority: '@' is tried before '/', '/' before '_'.
		{"x_1.0.0@2.0.0", Named("x_1.0.0"), '@', "2.0.0"},
		{"a@b/1.2.3", Named("a@b"), '/', "1.2.3"},
		{"lib_a/b_3.4.5", Named("lib_a/b"), '_', "3.4.5"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			tag, err := Parse(tc.input)
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tc.input, err)
			}
			if tag.Scope() != tc.wantScope {
				t.Errorf("Parse(%q) scope = %v, want %v", tc.input, tag.Scope(), tc.wantScope)
			}
			if tag.Separator() != tc.wantSep {
				t.Errorf("Parse(%q) separator = %q, want %q", tc.input, tag.Separator(), tc.wantSep)
			}
			if got := tag.Version().String(); got != tc.wantVer {
				t.Errorf("Parse(%q) version = %q, want %q", tc.input, got, tc.wantVer)
			}
			if got := tag.String(); got != tc.input {
				t.Errorf("Parse(%q).String() = %q, want round trip", tc.input, got)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, input := range []string{
		"invalid",
		"scope/invalid",
		"scope/subscope/nothing",
		"",
		"1.2",
		"v1.2.3",
		"backend/v1.2.3",
		"/1.2.3",
		"@1.2.3",
	} {
		_, err := Parse(input)
		if err == nil {
			t.Errorf("Parse(%q) expected error, got none", input)
			continue
		}
		if !errors.Is(err, ErrNotAVersion) {
			t.Errorf("Parse(%q) error = %v, want ErrNotAVersion", input, err)
		}
		var nav *NotAVersionError
		if !errors.As(err, &nav) || nav.Raw != input {
			t.Errorf("Parse(%q) error should carry the raw tag, got %v", input, err)
		}
	}
}

func TestParseVPrefix(t *testing.T) {
	p := NewParser(WithVPrefix())

	tests := []struct {
		input      string
		wantScope  Scope
		wantPrefix bool
	}{
		{"v1.2.3", Unscoped, true},
		{"1.2.3", Unscoped, false},
		{"plugin/v0.1.1", Named("plugin"), true},
		{"x/engine/v2.0.0", Named("x/engine"), true},
	}
	for _, tc := range tests {
		tag, err := p.Parse(tc.input)
		if err != nil {
			t.Errorf("Parse(%q) unexpected error: %v", tc.input, err)
			continue
		}
		if tag.Scope() != tc.wantScope || tag.HasVPrefix() != tc.wantPrefix {
			t.Errorf("Parse(%q) = (%v, prefix=%v), want (%v, prefix=%v)",
				tc.input, tag.Scope(), tag.HasVPrefix(), tc.wantScope, tc.wantPrefix)
		}
		if tag.String() != tc.input {
			t.Errorf("Parse(%q).String() = %q", tc.input, tag.String())
		}
	}

	bumped := mustParse(t, p, "plugin/v0.1.1").Bump(Minor)
	if bumped.String() != "plugin/v0.2.0" {
		t.Errorf("bumped = %q, want plugin/v0.2.0", bumped.String())
	}
}

func TestRoundTrip(t *testing.T) {
	scopes := []Scope{Unscoped, Named("backend"), Named("team/service"), Named("a_b@c")}
	for _, scope := range scopes {
		for _, sep := range Separators {
			for major := uint64(0); major < 3; major++ {
				for minor := uint64(0); minor < 12; minor += 5 {
					for patch := uint64(0); patch < 11; patch += 10 {
						tag := NewScopedTag(scope, semver.New(major, minor, patch, "", ""), sep)
						parsed, err := Parse(tag.String())
						if err != nil {
							t.Fatalf("Parse(%q) unexpected error: %v", tag.String(), err)
						}
						if parsed.Scope() != scope {
							t.Errorf("Parse(%q) scope = %v, want %v", tag.String(), parsed.Scope(), scope)
						}
						if !parsed.Version().Equal(tag.Version()) {
							t.Errorf("Parse(%q) version = %s, want %s", tag.String(), parsed.Version(), tag.Version())
						}
					}
				}
			}
		}
	}
}

func TestBump(t *testing.T) {
	tests := []struct {
		input string
		part  Part
		want  string
	}{
		{"1.2.3", Patch, "1.2.4"},
		{"1.2.3", Minor, "1.3.0"},
		{"1.2.3", Major, "2.0.0"},
		{"1.2.3-rc.1+build.5", Patch, "1.2.4"},
		{"1.2.3-rc.1", Minor, "1.3.0"},
		{"0.9.9+meta", Major, "1.0.0"},
		{"web@1.9.9", Minor, "web@1.10.0"},
		{"team/service/0.0.1", Patch, "team/service/0.0.2"},
		{"lib_4.0.0-beta", Major, "lib_5.0.0"},
	}
	for _, tc := range tests {
		tag := mustParse(t, NewParser(), tc.input)
		got := tag.Bump(tc.part)
		if got.String() != tc.want {
			t.Errorf("Bump(%q, %s) = %q, want %q", tc.input, tc.part, got.String(), tc.want)
		}
		if got.Scope() != tag.Scope() || got.Separator() != tag.Separator() {
			t.Errorf("Bump(%q, %s) changed scope or separator", tc.input, tc.part)
		}
		if got.Version().Prerelease() != "" || got.Version().Metadata() != "" {
			t.Errorf("Bump(%q, %s) kept pre-release or metadata: %s", tc.input, tc.part, got.Version())
		}
		if tag.String() != tc.input {
			t.Errorf("Bump mutated its receiver: %q", tag.String())
		}
	}
}

func TestBumpUnknownPart(t *testing.T) {
	for _, part := range []Part{"", "prerelease"} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Bump(%q) did not panic", part)
				}
			}()
			mustParse(t, NewParser(), "1.2.3").Bump(part)
		}()
	}
}

func TestPartSet(t *testing.T) {
	var p Part
	for _, in := range []string{"patch", "minor", "major", "MAJOR"} {
		if err := p.Set(in); err != nil {
			t.Errorf("Set(%q) unexpected error: %v", in, err)
		}
	}
	if p != Major {
		t.Errorf("expected %q, got %q", Major, p)
	}
	if err := p.Set("prerelease"); err == nil {
		t.Error("Set(prerelease) expected error, got none")
	}
	if _, err := ParsePart("build"); err == nil {
		t.Error("ParsePart(build) expected error, got none")
	}
}

func TestScopeOrdering(t *testing.T) {
	if !Unscoped.Less(Named("")) {
		t.Error("unscoped must sort before any named scope")
	}
	if !Named("api").Less(Named("web")) {
		t.Error("named scopes must sort by name")
	}
	if Named("web").Less(Unscoped) {
		t.Error("named scope must not sort before unscoped")
	}
	if ScopeFromArg("") != Unscoped || ScopeFromArg("api") != Named("api") {
		t.Error("ScopeFromArg mapping is wrong")
	}
}

func TestParseVersionOrRange(t *testing.T) {
	tests := []struct {
		input     string
		wantIsVer bool
		wantErr   bool
	}{
		{"1.2.3", true, false},
		{"v2.0.0", true, false},
		{">=1.0.0,<2.0.0", false, false},
		{"^1.5.0", false, false},
		{"~>3.1.2", false, false},
		{">= 1, < 2", false, false},
		{"", false, true},
		{"not a version", false, true},
	}
	for _, tc := range tests {
		isVer, _, _, err := ParseVersionOrRange(tc.input)
		if tc.wantErr != (err != nil) {
			t.Errorf("input=%q err=%v, wantErr=%v", tc.input, err, tc.wantErr)
			continue
		}
		if isVer != tc.wantIsVer {
			t.Errorf("input=%q isVersion=%v, want %v", tc.input, isVer, tc.wantIsVer)
		}
	}
}

func TestExpandTerraformTildeArrow(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"~> 1.2", ">=1.2.0, <2.0.0"},
		{"~>3.1.2", ">=3.1.2, <3.2.0"},
		{"~> 0.4.7", ">=0.4.7, <0.5.0"},
		{"~> 2", ">=2.0.0, <3.0.0"},
		{">= 1.0.0", ">= 1.0.0"},
		{"~> 1 || ~> 3", ">=1.0.0, <2.0.0 || >=3.0.0, <4.0.0"},
	}
	for _, tc := range tests {
		if got := ExpandTerraformTildeArrow(tc.input); got != tc.want {
			t.Errorf("ExpandTerraformTildeArrow(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParseConstraintPessimistic(t *testing.T) {
	tests := []struct {
		input string
		match map[string]bool
	}{
		{"~> 1.2.3", map[string]bool{"1.2.3": true, "1.2.10": true, "1.3.0": false, "1.9.0": false, "1.2.2": false}},
		{"~> 1.2", map[string]bool{"1.2.0": true, "1.9.0": true, "2.0.0": false}},
		{"1.2.3", map[string]bool{"1.2.3": true, "1.2.4": false}},
	}
	for _, tc := range tests {
		c, err := ParseConstraint(tc.input)
		if err != nil {
			t.Fatalf("ParseConstraint(%q) unexpected error: %v", tc.input, err)
		}
		for v, want := range tc.match {
			if got := c.Check(semver.MustParse(v)); got != want {
				t.Errorf("ParseConstraint(%q).Check(%s) = %v, want %v", tc.input, v, got, want)
			}
		}
	}
}

func TestApplyVersionStrategy(t *testing.T) {
	tests := []struct {
		strategy Strategy
		newVer   string
		existing string
		want     string
	}{
		{StrategyExact, "1.3.0", ">= 1, < 2", "1.3.0"},
		{StrategyRange, "1.3.0", "1.2.0", ">= 1.3.0, < 2.0.0"},
		{StrategyDynamic, "1.3.0", ">= 1, < 2", ">= 1, < 2"},
		{StrategyDynamic, "2.0.0", ">= 1, < 2", ">= 2.0.0, < 3.0.0"},
		{StrategyDynamic, "1.5.0", "~> 1.2", "~> 1.2"},
		{StrategyDynamic, "1.2.9", "~> 1.2.3", "~> 1.2.3"},
		{StrategyDynamic, "1.5.0", "~> 1.2.3", ">= 1.5.0, < 2.0.0"},
		{StrategyDynamic, "1.3.0", "1.2.0", "1.3.0"},
		{StrategyDynamic, "1.3.0", "", "1.3.0"},
		{"", "0.2.0", "", "0.2.0"},
	}
	for _, tc := range tests {
		name := fmt.Sprintf("%s/%s/%s", tc.strategy, tc.newVer, tc.existing)
		t.Run(name, func(t *testing.T) {
			got, err := ApplyVersionStrategy(tc.strategy, semver.MustParse(tc.newVer), tc.existing)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}

	if _, err := ApplyVersionStrategy("sideways", semver.MustParse("1.0.0"), ""); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func mustParse(t *testing.T, p *Parser, raw string) ScopedTag {
	t.Helper()
	tag, err := p.Parse(raw)
	if err != nil {
		t.Fatalf("Parse(%q) unexpected error: %v", raw, err)
	}
	return tag
}
