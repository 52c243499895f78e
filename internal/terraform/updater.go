package terraform

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/david1155/tagsemver/pkg/version"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/sirupsen/logrus"
	"github.com/zclconf/go-cty/cty"
)

// Change describes one module block whose version was (or would be)
// rewritten.
type Change struct {
	File       string
	Module     string
	OldVersion string
	NewVersion string
}

// Syncer pins module blocks that consume a released scope to its new
// version.
type Syncer struct {
	// Dir is walked for *.tf files.
	Dir string
	// Source is matched against module "source" path segments.
	Source   string
	Strategy version.Strategy
	// Force adds a version attribute to matching modules that lack one.
	Force  bool
	Logger logrus.FieldLogger
}

// Sync rewrites every matching module block under Dir and returns the files
// that changed. With dryRun nothing is written.
func (s *Syncer) Sync(tag version.ScopedTag, dryRun bool) ([]string, error) {
	logger := s.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	source := s.Source
	if source == "" {
		source = tag.Scope().Name
	}
	if source == "" {
		return nil, fmt.Errorf("terraform sync for %s: no module source configured", tag.Scope())
	}

	changes, err := ScanAndUpdateModules(s.Dir, source, tag.Version(), s.Strategy, dryRun, s.Force, logger)
	if err != nil {
		return nil, err
	}

	var files []string
	seen := map[string]bool{}
	for _, c := range changes {
		prefix := ""
		if dryRun {
			prefix = "[dry-run] "
		}
		logger.Infof("%s%s: module %q version %q -> %q", prefix, c.File, c.Module, c.OldVersion, c.NewVersion)
		if !seen[c.File] {
			seen[c.File] = true
			files = append(files, c.File)
		}
	}
	return files, nil
}

// ScanAndUpdateModules walks rootDir, searching for *.tf files, and updates
// the module blocks whose source matches.
func ScanAndUpdateModules(
	rootDir string,
	source string,
	newVer *semver.Version,
	strategy version.Strategy,
	dryRun bool,
	force bool,
	logger logrus.FieldLogger,
) ([]Change, error) {
	var changes []Change
	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if d.Name() == ".terraform" || d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(path, ".tf") {
			return nil
		}

		fileChanges, err := UpdateModuleVersionInFile(path, source, newVer, strategy, dryRun, force, logger)
		if err != nil {
			return fmt.Errorf("error updating file %s: %w", path, err)
		}
		changes = append(changes, fileChanges...)
		return nil
	})
	return changes, err
}

// matchModuleSource checks if the source contains pattern as a run of whole
// path segments
func matchModuleSource(source, pattern string) bool {
	// Git sources may carry a "?ref=" query.
	if i := strings.IndexByte(source, '?'); i >= 0 {
		source = source[:i]
	}
	sourceParts := strings.Split(source, "/")
	patternParts := strings.Split(strings.Trim(pattern, "/"), "/")

	for i := 0; i <= len(sourceParts)-len(patternParts); i++ {
		matched := true
		for j := range patternParts {
			if sourceParts[i+j] != patternParts[j] {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

func attrString(attr *hclwrite.Attribute) string {
	return strings.Trim(strings.TrimSpace(string(attr.Expr().BuildTokens(nil).Bytes())), `"`)
}

// UpdateModuleVersionInFile reads a single .tf file, finds module blocks
// whose "source" matches, and sets their "version" attribute according to
// strategy.
func UpdateModuleVersionInFile(
	filename string,
	source string,
	newVer *semver.Version,
	strategy version.Strategy,
	dryRun bool,
	force bool,
	logger logrus.FieldLogger,
) ([]Change, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot read file: %w", err)
	}

	file, diags := hclwrite.ParseConfig(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse error in %s: %s", filename, diags.Error())
	}

	var changes []Change
	for _, block := range file.Body().Blocks() {
		if block.Type() != "module" {
			continue
		}

		sourceAttr := block.Body().GetAttribute("source")
		if sourceAttr == nil {
			continue
		}
		sourceValue := attrString(sourceAttr)
		if !matchModuleSource(sourceValue, source) {
			continue
		}

		name := strings.Join(block.Labels(), ".")
		var oldVersion string
		if versionAttr := block.Body().GetAttribute("version"); versionAttr != nil {
			oldVersion = attrString(versionAttr)
		} else if !force {
			logger.Warnf("module %q in %s has no version attribute; use force to add one", name, filename)
			continue
		}

		finalVersion, err := version.ApplyVersionStrategy(strategy, newVer, oldVersion)
		if err != nil {
			return nil, fmt.Errorf("failed to apply version strategy: %w", err)
		}

		if version.NormalizeVersionString(oldVersion) == version.NormalizeVersionString(finalVersion) {
			continue
		}
		block.Body().SetAttributeValue("version", cty.StringVal(finalVersion))
		changes = append(changes, Change{
			File:       filename,
			Module:     name,
			OldVersion: oldVersion,
			NewVersion: finalVersion,
		})
	}

	if len(changes) == 0 || dryRun {
		return changes, nil
	}

	perm := fs.FileMode(0o644)
	if fi, err := os.Stat(filename); err == nil {
		perm = fi.Mode().Perm()
	}
	if err := os.WriteFile(filename, file.Bytes(), perm); err != nil {
		return nil, fmt.Errorf("failed to write file %s: %w", filename, err)
	}
	return changes, nil
}
