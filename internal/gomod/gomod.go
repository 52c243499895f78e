// Package gomod bumps require directives for a released scope in go.mod
// files of downstream modules.
package gomod

import (
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/david1155/tagsemver/pkg/version"
	"github.com/sirupsen/logrus"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"
)

// Syncer rewrites require lines for the module released by a tag.
type Syncer struct {
	Files []string
	// Module is matched as a path suffix of required modules. Defaults to the
	// tag's scope name.
	Module string
	Logger logrus.FieldLogger
}

// Sync bumps the matching require directive in every configured go.mod and
// returns the files that changed.
func (s *Syncer) Sync(tag version.ScopedTag, dryRun bool) ([]string, error) {
	logger := s.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	mod := s.Module
	if mod == "" {
		mod = tag.Scope().Name
	}
	if mod == "" {
		return nil, fmt.Errorf("go.mod sync for %s: no module configured", tag.Scope())
	}
	goVersion := GoVersion(tag)
	if !semver.IsValid(goVersion) {
		return nil, fmt.Errorf("%s is not a valid Go module version", goVersion)
	}

	var updated []string
	for _, file := range s.Files {
		changed, err := BumpRequire(file, mod, goVersion, dryRun, logger)
		if err != nil {
			return nil, err
		}
		if changed {
			updated = append(updated, file)
		}
	}
	return updated, nil
}

// GoVersion renders the tag's version the way go.mod expects it.
func GoVersion(tag version.ScopedTag) string {
	return "v" + tag.Version().String()
}

// matchesModule reports whether path ends with mod, ignoring a trailing
// major version suffix such as "/v2".
func matchesModule(path, mod string) bool {
	prefix, _, ok := module.SplitPathVersion(path)
	if !ok {
		prefix = path
	}
	mod = strings.Trim(mod, "/")
	return prefix == mod || strings.HasSuffix(prefix, "/"+mod)
}

// BumpRequire sets the version of every direct requirement matching mod in
// filename. Requirements whose path major suffix does not admit goVersion
// are left alone with a warning.
func BumpRequire(filename, mod, goVersion string, dryRun bool, logger logrus.FieldLogger) (bool, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", filename, err)
	}
	f, err := modfile.Parse(filename, data, nil)
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", filename, err)
	}

	needsAction := false
	for _, req := range f.Require {
		if req.Indirect || !matchesModule(req.Mod.Path, mod) {
			continue
		}
		if req.Mod.Version == goVersion {
			continue
		}
		_, pathMajor, _ := module.SplitPathVersion(req.Mod.Path)
		if err := module.CheckPathMajor(goVersion, pathMajor); err != nil {
			logger.Warnf("[%s] not bumping %s to %s: %v", filename, req.Mod.Path, goVersion, err)
			continue
		}
		prefix := ""
		if dryRun {
			prefix = "[dry-run] "
		}
		logger.Infof("%s[%s] bumping %s: %s -> %s", prefix, filename, req.Mod.Path, req.Mod.Version, goVersion)
		if err := f.AddRequire(req.Mod.Path, goVersion); err != nil {
			return false, fmt.Errorf("updating %s in %s: %w", req.Mod.Path, filename, err)
		}
		needsAction = true
	}

	if !needsAction || dryRun {
		return needsAction, nil
	}

	f.Cleanup()
	out, err := f.Format()
	if err != nil {
		return needsAction, fmt.Errorf("formatting %s: %w", filename, err)
	}
	perm := fs.FileMode(0o644)
	if fi, err := os.Stat(filename); err == nil {
		perm = fi.Mode().Perm()
	}
	if err := os.WriteFile(filename, out, perm); err != nil {
		return needsAction, fmt.Errorf("writing %s: %w", filename, err)
	}
	return needsAction, nil
}
