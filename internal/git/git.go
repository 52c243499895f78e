// Package git runs the git executable for the tag operations tagsemver
// needs: listing and creating tags, pushing a tag, pulling and reading the
// current branch.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Repository is the version-control surface used by the release commands.
type Repository interface {
	TagNames(ctx context.Context) ([]string, error)
	CreateTag(ctx context.Context, tag string) error
	PushTag(ctx context.Context, remote, tag string) error
	Pull(ctx context.Context, remote string) error
	CurrentBranch(ctx context.Context) (string, error)
}

// CommandError is returned when git exits unsuccessfully.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s failed", strings.Join(e.Args, " "))
	if e.ExitCode >= 0 {
		msg += fmt.Sprintf(" with exit code %d", e.ExitCode)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// CheckGit verifies that git can be executed.
func CheckGit() error {
	if err := exec.Command("git", "--version").Run(); err != nil {
		return errors.New("git is not available on the system")
	}
	return nil
}

// Client implements Repository by shelling out to git in dir.
type Client struct {
	dir    string
	logger logrus.FieldLogger
}

var _ Repository = (*Client)(nil)

func New(dir string, logger logrus.FieldLogger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{dir: dir, logger: logger}
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debugf("running git %s", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return "", &CommandError{
			Args:     args,
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}
	return stdout.String(), nil
}

// TagNames lists every tag in the repository.
func (c *Client) TagNames(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "tag", "--list")
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	var tags []string
	for _, line := range strings.Split(out, "\n") {
		if tag := strings.TrimSpace(line); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

// CreateTag creates a lightweight tag on HEAD.
func (c *Client) CreateTag(ctx context.Context, tag string) error {
	if _, err := c.run(ctx, "tag", tag); err != nil {
		return fmt.Errorf("creating tag %q: %w", tag, err)
	}
	c.logger.Infof("created tag %s", tag)
	return nil
}

func (c *Client) PushTag(ctx context.Context, remote, tag string) error {
	if _, err := c.run(ctx, "push", remote, "refs/tags/"+tag); err != nil {
		return fmt.Errorf("pushing tag %q to %s: %w", tag, remote, err)
	}
	c.logger.Infof("pushed tag %s to %s", tag, remote)
	return nil
}

// Pull rebases the current branch onto remote and fetches its tags.
func (c *Client) Pull(ctx context.Context, remote string) error {
	if _, err := c.run(ctx, "pull", "--rebase", "--tags", remote); err != nil {
		return fmt.Errorf("pulling from %s: %w", remote, err)
	}
	return nil
}

// CurrentBranch returns the checked out branch, or "" on a detached HEAD.
func (c *Client) CurrentBranch(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "branch", "--show-current")
	if err != nil {
		return "", fmt.Errorf("getting current branch: %w", err)
	}
	return strings.TrimSpace(out), nil
}
