package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/spf13/cobra"
	"go.etcd.io/bbolt"

	"github.com/fardream/gitview"
	"github.com/fardream/gitview/cmd"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootCmd struct {
	*cobra.Command

	specFile  string
	repoPath  string
	cachePath string
	squash    bool
	reverse   bool
	infofile  bool
	verbose   bool
}

func newRootCmd() *rootCmd {
	c := &rootCmd{
		Command: &cobra.Command{
			Use:   "gitview [source:target] [filter]",
			Short: "rewrite git history through a filter, and rewrite edits back",
			Args:  cobra.MaximumNArgs(2),
		},
		repoPath: ".",
	}

	c.Flags().StringVar(&c.specFile, "file", c.specFile, "file containing [source:target] filter entries")
	c.MarkFlagFilename("file")
	c.Flags().StringVar(&c.repoPath, "repo", c.repoPath, "path to the repository")
	c.Flags().StringVar(&c.cachePath, "cache", c.cachePath, "path to a cache database carried across runs")
	c.Flags().BoolVar(&c.squash, "squash", c.squash, "collapse history before the source head into a single base")
	c.Flags().BoolVar(&c.reverse, "reverse", c.reverse, "rewrite the edited target back onto the source history")
	c.Flags().BoolVar(&c.infofile, "infofile", c.infofile, "annotate filtered trees with provenance info")
	c.Flags().BoolVarP(&c.verbose, "verbose", "v", c.verbose, "log per-commit progress")

	c.RunE = func(_ *cobra.Command, args []string) error {
		c.SilenceUsage = true

		return c.run(args)
	}

	return c
}

func (c *rootCmd) run(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	gitview.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	spectext := c.specText(args)

	entries, err := gitview.ParseSpec(spectext)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return errors.New("no [source:target] entries to process")
	}

	repo, err := git.PlainOpenWithOptions(c.repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return fmt.Errorf("failed to open repository at %s: %w", c.repoPath, err)
	}

	var db *bbolt.DB
	if c.cachePath != "" {
		db, err = bbolt.Open(c.cachePath, 0o600, nil)
		if err != nil {
			return fmt.Errorf("failed to open cache at %s: %w", c.cachePath, err)
		}
		defer db.Close()
	}

	maps := gitview.NewViewMaps()

	// entries are independent: one failing does not stop the rest.
	var errs []error
	for _, entry := range entries {
		if err := c.runEntry(ctx, repo, db, maps, entry); err != nil {
			errs = append(errs, fmt.Errorf("entry [%s:%s]: %w", entry.Source, entry.Target, err))
		}
	}

	return errors.Join(errs...)
}

// specText assembles the spec: the --file content, or a single entry built
// from the positional source:target and filter arguments.
func (c *rootCmd) specText(args []string) string {
	if c.specFile != "" {
		return string(cmd.GetOrPanic(os.ReadFile(c.specFile)))
	}

	fromto, filtertext := "", ""
	if len(args) > 0 {
		fromto = args[0]
	}
	if len(args) > 1 {
		filtertext = args[1]
	}

	return fmt.Sprintf("[%s]%s", fromto, filtertext)
}

func (c *rootCmd) runEntry(
	ctx context.Context,
	repo *git.Repository,
	db *bbolt.DB,
	maps *gitview.ViewMaps,
	entry *gitview.Entry,
) error {
	filter := entry.Filter

	if c.infofile {
		for _, m := range filter.Members() {
			filter = gitview.NewChain(filter, gitview.NewInfo(m.Path, []gitview.InfoField{
				{Key: "commit", Value: "#sha1"},
				{Key: "tree", Value: "#tree"},
				{Key: "src", Value: entry.Source},
				{Key: "view", Value: m.Spec},
			}))
		}
	}

	if c.squash {
		filter = gitview.NewChain(gitview.NewCutoff(entry.Source), filter)
	}

	// pin cutoffs before touching the cache so its keys are tied to
	// commit positions, not ref names.
	if err := gitview.PinCutoffs(repo.Storer, filter); err != nil {
		return err
	}

	if db != nil {
		if err := gitview.LoadViewMaps(db, filter, maps); err != nil {
			return fmt.Errorf("failed to load cache: %w", err)
		}
	}

	target := entry.Target
	if c.reverse {
		target = gitview.StagingRef
	}

	if _, err := gitview.Apply(ctx, repo.Storer, []gitview.RefPair{
		{Source: entry.Source, Target: target},
	}, filter, maps); err != nil {
		return err
	}

	if c.reverse {
		if err := c.runReverse(ctx, repo, maps, filter, entry); err != nil {
			return err
		}
	}

	if db != nil {
		if err := gitview.SaveViewMaps(db, filter, maps); err != nil {
			return fmt.Errorf("failed to save cache: %w", err)
		}
	}

	return nil
}

// runReverse rewrites the user-edited target back onto the source history:
// the staging ref holds what the filter produced, the target holds what the
// user made of it, and the difference lands on the source branch.
func (c *rootCmd) runReverse(
	ctx context.Context,
	repo *git.Repository,
	maps *gitview.ViewMaps,
	filter gitview.Filter,
	entry *gitview.Entry,
) error {
	oldhash, err := gitview.ResolveCommit(repo.Storer, gitview.StagingRef)
	if err != nil {
		return err
	}
	newhash, err := gitview.ResolveCommit(repo.Storer, entry.Target)
	if err != nil {
		return err
	}

	old, err := object.GetCommit(repo.Storer, oldhash)
	if err != nil {
		return err
	}
	edited, err := object.GetCommit(repo.Storer, newhash)
	if err != nil {
		return err
	}

	rewritten, err := gitview.Unapply(ctx, repo.Storer, maps, filter, old, edited)
	if err != nil {
		return fmt.Errorf("cannot rewrite %s onto %s: %w", entry.Target, entry.Source, err)
	}

	srcref, err := gitview.FindRef(repo.Storer, entry.Source)
	if err != nil {
		return err
	}

	return gitview.UpdateRef(repo.Storer, srcref.Name().String(), rewritten.Hash)
}
