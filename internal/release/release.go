// Package release implements the list and bump workflows on top of a git
// repository's tags.
package release

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/david1155/tagsemver/internal/git"
	"github.com/david1155/tagsemver/internal/gomod"
	"github.com/david1155/tagsemver/internal/terraform"
	"github.com/david1155/tagsemver/pkg/config"
	"github.com/david1155/tagsemver/pkg/version"
)

// ErrNotMainBranch is returned when bumping from a branch that is not
// configured as a main branch.
var ErrNotMainBranch = errors.New("not on a main branch")

// Syncer propagates a new tag into files that pin the released scope.
type Syncer interface {
	Sync(tag version.ScopedTag, dryRun bool) ([]string, error)
}

type Releaser struct {
	repo    git.Repository
	cfg     *config.Config
	workDir string
	logger  logrus.FieldLogger
}

func New(repo git.Repository, cfg *config.Config, workDir string, logger logrus.FieldLogger) *Releaser {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Releaser{repo: repo, cfg: cfg, workDir: workDir, logger: logger}
}

type ListOptions struct {
	Scope     version.Scope
	Latest    bool
	AllScopes bool
	// Match restricts the listing to versions satisfying a version or
	// constraint such as "~> 1.2".
	Match  string
	NoPull bool
}

type BumpOptions struct {
	Scope version.Scope
	// Part defaults to the scope's configured part.
	Part version.Part
	// Push overrides the scope's configured push setting when non-nil.
	Push         *bool
	DryRun       bool
	AllowNonMain bool
	NoPull       bool
}

type Result struct {
	Old          version.ScopedTag
	New          version.ScopedTag
	Part         version.Part
	DryRun       bool
	Pushed       bool
	UpdatedFiles []string
}

type ScopeSummary struct {
	Scope  version.Scope
	Count  int
	Latest version.ScopedTag
}

func (r *Releaser) pull(ctx context.Context, noPull bool) error {
	if noPull || !r.cfg.ShouldPull() {
		return nil
	}
	r.logger.Debugf("pulling from %s", r.cfg.Remote)
	if err := r.repo.Pull(ctx, r.cfg.Remote); err != nil {
		return fmt.Errorf("unable to pull from remote: %w", err)
	}
	return nil
}

func (r *Releaser) registry(ctx context.Context) (*version.Registry, error) {
	tags, err := r.repo.TagNames(ctx)
	if err != nil {
		return nil, err
	}
	reg := version.GroupTags(tags, r.cfg.ParseOptions()...)
	for _, tag := range reg.Shadowed() {
		r.logger.Warnf("tag %s duplicates version %s of %s under another separator; ignoring it",
			tag, tag.Version(), tag.Scope())
	}
	return reg, nil
}

// List returns the rendered tags selected by opts, grouped by scope in
// scope order and ascending version order.
func (r *Releaser) List(ctx context.Context, opts ListOptions) ([]string, error) {
	if err := r.pull(ctx, opts.NoPull); err != nil {
		return nil, err
	}
	reg, err := r.registry(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Match != "" {
		c, err := version.ParseConstraint(opts.Match)
		if err != nil {
			return nil, fmt.Errorf("invalid match expression: %w", err)
		}
		reg = reg.Filter(c)
	}

	scopes := reg.Scopes()
	if !opts.AllScopes {
		scopes = lo.Filter(scopes, func(s version.Scope, _ int) bool {
			return s == opts.Scope
		})
	}

	var out []string
	for _, scope := range scopes {
		group, _ := reg.Get(scope)
		if opts.Latest {
			if tag, ok := group.Latest(); ok {
				out = append(out, tag.String())
			}
			continue
		}
		out = append(out, group.Tags()...)
	}
	return out, nil
}

// Scopes summarizes every scope that has at least one tag.
func (r *Releaser) Scopes(ctx context.Context, noPull bool) ([]ScopeSummary, error) {
	if err := r.pull(ctx, noPull); err != nil {
		return nil, err
	}
	reg, err := r.registry(ctx)
	if err != nil {
		return nil, err
	}
	return lo.FilterMap(reg.Scopes(), func(s version.Scope, _ int) (ScopeSummary, bool) {
		g, ok := reg.Get(s)
		if !ok {
			return ScopeSummary{}, false
		}
		latest, ok := g.Latest()
		return ScopeSummary{Scope: s, Count: g.Len(), Latest: latest}, ok
	}), nil
}

// Bump creates the successor of the latest tag of opts.Scope.
func (r *Releaser) Bump(ctx context.Context, opts BumpOptions) (Result, error) {
	if err := r.pull(ctx, opts.NoPull); err != nil {
		return Result{}, err
	}

	branch, err := r.repo.CurrentBranch(ctx)
	if err != nil {
		return Result{}, err
	}
	if !opts.AllowNonMain && !lo.Contains(r.cfg.MainBranches, branch) {
		return Result{}, fmt.Errorf("%w: you must be on a main branch (%s), currently on '%s'",
			ErrNotMainBranch, strings.Join(r.cfg.MainBranches, "/"), branch)
	}

	reg, err := r.registry(ctx)
	if err != nil {
		return Result{}, err
	}
	latest, err := reg.Latest(opts.Scope)
	if err != nil {
		return Result{}, err
	}
	// The registry only holds parsed tags; a failure here means the
	// rendering and the parser disagree.
	if _, err := version.NewParser(r.cfg.ParseOptions()...).Parse(latest.String()); err != nil {
		return Result{}, fmt.Errorf("unable to parse tag '%s' as a valid version: %w", latest, err)
	}

	part := opts.Part
	if part == "" {
		part = config.GetEffectivePart(r.cfg, opts.Scope)
	}
	part, err = version.ParsePart(string(part))
	if err != nil {
		return Result{}, err
	}
	next := latest.Bump(part)
	res := Result{
		Old:    latest,
		New:    next,
		Part:   part,
		DryRun: opts.DryRun,
	}
	push := config.GetEffectivePush(r.cfg, opts.Scope)
	if opts.Push != nil {
		push = *opts.Push
	}

	if opts.DryRun {
		r.logger.Infof("[dry-run] git tag %s", next)
		if push {
			r.logger.Infof("[dry-run] git push %s %s", r.cfg.Remote, next)
		}
	} else {
		if err := r.repo.CreateTag(ctx, next.String()); err != nil {
			return res, err
		}
		if push {
			if err := r.repo.PushTag(ctx, r.cfg.Remote, next.String()); err != nil {
				return res, err
			}
			res.Pushed = true
		}
	}

	for _, s := range r.syncersFor(opts.Scope) {
		files, err := s.Sync(next, opts.DryRun)
		if err != nil {
			return res, fmt.Errorf("syncing %s: %w", next, err)
		}
		res.UpdatedFiles = append(res.UpdatedFiles, files...)
	}
	res.UpdatedFiles = lo.Uniq(res.UpdatedFiles)
	if len(res.UpdatedFiles) > 0 && !opts.DryRun {
		r.logger.Infof("updated %d file(s) pinning %s; review and commit them", len(res.UpdatedFiles), opts.Scope)
	}
	return res, nil
}

func (r *Releaser) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.workDir, path)
}

func (r *Releaser) syncersFor(scope version.Scope) []Syncer {
	eff := config.GetEffectiveScopeConfig(r.cfg, scope)
	var syncers []Syncer
	if tf := eff.Terraform; tf != nil {
		dir := r.resolve(tf.Dir)
		if dir == "" {
			dir = r.workDir
		}
		syncers = append(syncers, &terraform.Syncer{
			Dir:      dir,
			Source:   tf.Source,
			Strategy: tf.Strategy,
			Force:    tf.Force,
			Logger:   r.logger,
		})
	}
	if gm := eff.GoMod; gm != nil && len(gm.Files) > 0 {
		syncers = append(syncers, &gomod.Syncer{
			Files:  lo.Map(gm.Files, func(f string, _ int) string { return r.resolve(f) }),
			Module: gm.Module,
			Logger: r.logger,
		})
	}
	return syncers
}
