package version

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAVersion is matched by errors returned when a tag carries no
	// recognizable semantic version.
	ErrNotAVersion = errors.New("not a version tag")
	// ErrNoTagsForScope is matched by errors returned when a scope has no tags.
	ErrNoTagsForScope = errors.New("no tags for scope")
)

// NotAVersionError reports a raw tag that could not be parsed.
type NotAVersionError struct {
	Raw string
}

func (e *NotAVersionError) Error() string {
	return fmt.Sprintf("unable to parse tag %q as a version", e.Raw)
}

func (e *NotAVersionError) Is(target error) bool {
	return target == ErrNotAVersion
}

// NoTagsError reports a scope without any parseable tags.
type NoTagsError struct {
	Scope Scope
}

func (e *NoTagsError) Error() string {
	if !e.Scope.Valid {
		return "no unscoped tags found"
	}
	return fmt.Sprintf("no tags found for scope '%s'", e.Scope.Name)
}

func (e *NoTagsError) Is(target error) bool {
	return target == ErrNoTagsForScope
}
