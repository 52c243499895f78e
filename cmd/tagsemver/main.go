package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/david1155/tagsemver/internal/git"
	"github.com/david1155/tagsemver/internal/release"
	"github.com/david1155/tagsemver/pkg/config"
	"github.com/david1155/tagsemver/pkg/version"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

type globalOptions struct {
	configFile string
	dir        string
	noPull     bool
	verbose    bool
}

func newLogger(out io.Writer, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.InfoLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func (g *globalOptions) releaser(errOut io.Writer) (*release.Releaser, error) {
	cfg, err := config.Resolve(g.configFile, g.dir)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if err := git.CheckGit(); err != nil {
		return nil, err
	}
	logger := newLogger(errOut, g.verbose)
	return release.New(git.New(g.dir, logger), cfg, g.dir, logger), nil
}

func scopeArg(args []string) version.Scope {
	if len(args) == 0 {
		return version.Unscoped
	}
	return version.ScopeFromArg(args[0])
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:           "tagsemver",
		Short:         "Manage scoped semantic version tags in a git repository.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&g.configFile, "config", "", "Path to config file (JSON or YAML), defaults to "+config.DefaultFile+" in --dir when present")
	flags.StringVar(&g.dir, "dir", ".", "Repository directory")
	flags.BoolVar(&g.noPull, "no-pull", false, "Do not pull new commits and tags before any action")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newListCommand(g, out, errOut), newBumpCommand(g, out, errOut), newScopesCommand(g, out, errOut))
	return root
}

func newListCommand(g *globalOptions, out, errOut io.Writer) *cobra.Command {
	opts := release.ListOptions{}
	cmd := &cobra.Command{
		Use:   "list [scope]",
		Short: "List releases",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.releaser(errOut)
			if err != nil {
				return err
			}
			opts.Scope = scopeArg(args)
			opts.NoPull = g.noPull
			tags, err := r.List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			for _, tag := range tags {
				fmt.Fprintln(out, tag)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&opts.Latest, "latest", false, "Only print the latest release of each scope")
	flags.BoolVar(&opts.AllScopes, "all-scopes", false, "List every scope instead of the given one")
	flags.StringVar(&opts.Match, "match", "", "Only list versions matching a version or constraint, e.g. \"~> 1.2\"")
	return cmd
}

func newBumpCommand(g *globalOptions, out, errOut io.Writer) *cobra.Command {
	opts := release.BumpOptions{}
	var push bool
	cmd := &cobra.Command{
		Use:   "bump [scope]",
		Short: "Bump version",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.releaser(errOut)
			if err != nil {
				return err
			}
			opts.Scope = scopeArg(args)
			opts.NoPull = g.noPull
			if cmd.Flags().Changed("push") {
				opts.Push = &push
			}
			res, err := r.Bump(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Bumping %s -> %s\n", res.Old, res.New)
			if len(res.UpdatedFiles) > 0 {
				if res.DryRun {
					fmt.Fprintln(out, "Files that would be updated:")
				} else {
					fmt.Fprintln(out, "Files updated:")
				}
				for _, f := range res.UpdatedFiles {
					fmt.Fprintf(out, "  %s\n", f)
				}
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.VarP(&opts.Part, "part", "p", "Part to bump: "+version.AllowedParts()+" (default from config, else \"patch\")")
	flags.BoolVar(&push, "push", false, "Push the new tag to the remote (overrides the scope's configured push)")
	flags.BoolVar(&opts.DryRun, "dry-run", false, "Only log all steps, no tag is created and no file is modified")
	flags.BoolVar(&opts.AllowNonMain, "allow-non-main", false, "Allow bumping from a branch other than the main branches")
	return cmd
}

func newScopesCommand(g *globalOptions, out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "scopes",
		Short: "List scopes with their latest release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := g.releaser(errOut)
			if err != nil {
				return err
			}
			summaries, err := r.Scopes(cmd.Context(), g.noPull)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SCOPE\tTAGS\tLATEST")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%d\t%s\n", s.Scope, s.Count, s.Latest)
			}
			return w.Flush()
		},
	}
}

func run(ctx context.Context, args []string, out, errOut io.Writer) error {
	root := newRootCommand(out, errOut)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
