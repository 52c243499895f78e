package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ApplyVersionStrategy renders a freshly bumped version for a consumer that
// currently pins existing (an exact version, a constraint, or "").
func ApplyVersionStrategy(strategy Strategy, newVersion *semver.Version, existing string) (string, error) {
	switch strategy {
	case StrategyExact:
		return ConvertToExactVersion(newVersion), nil
	case StrategyRange:
		return ConvertToRangeVersion(newVersion), nil
	case StrategyDynamic, "":
		return ApplyDynamicStrategy(newVersion, existing), nil
	default:
		return "", fmt.Errorf("unknown strategy %q", strategy)
	}
}

func ConvertToExactVersion(v *semver.Version) string {
	return v.String()
}

// ConvertToRangeVersion pins the major version: ">= X.Y.Z, < X+1.0.0".
func ConvertToRangeVersion(v *semver.Version) string {
	return fmt.Sprintf(">= %s, < %d.0.0", v.String(), v.Major()+1)
}

// ApplyDynamicStrategy keeps an existing constraint that already admits the
// new version, widens a range that no longer fits, and otherwise pins the
// exact version.
func ApplyDynamicStrategy(newVersion *semver.Version, existing string) string {
	existing = strings.TrimSpace(existing)
	if existing == "" {
		return ConvertToExactVersion(newVersion)
	}

	isVer, _, constraint, err := ParseVersionOrRange(existing)
	if err != nil || isVer {
		return ConvertToExactVersion(newVersion)
	}
	if constraint.Check(newVersion) {
		return existing
	}
	return ConvertToRangeVersion(newVersion)
}

// NormalizeVersionString strips whitespace so that constraints differing
// only in spacing compare equal.
func NormalizeVersionString(version string) string {
	return strings.Join(strings.Fields(version), "")
}
