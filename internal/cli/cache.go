package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackdoc/pkg/buildcache"
	"github.com/matzehuels/stackdoc/pkg/deps"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	var storeKind string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the build cache, crate archives and registry responses",
	}
	cmd.PersistentFlags().StringVar(&storeKind, "store", "", "store whose build entries to address: ipfs or local")

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheGetCommand(&storeKind))
	cmd.AddCommand(c.cacheForgetCommand(&storeKind))

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete everything in the cache directory",
		Long: `Delete build cache entries, downloaded crates and cached registry
responses from the cache directory. Entries in a Redis build cache are
not touched; use "cache forget" for those.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			dir := cfg.Cache.Dir

			if _, err := os.Stat(dir); os.IsNotExist(err) {
				printInfo("Cache is empty")
				return nil
			}
			lock, err := acquireLock(cfg.LockPath(), false)
			if err != nil {
				printError("A build is running (%s)", cfg.LockPath())
				return fmt.Errorf("cache is locked: %w", err)
			}
			defer lock.Release()

			count, err := clearDir(dir, lock.Path())
			if err != nil {
				return err
			}
			printSuccess("Cleared %d cached entries", count)
			printDetail("Directory: %s", dir)
			return nil
		},
	}
}

// clearDir removes every file below dir except keep, then the emptied
// subdirectories. Files that cannot be removed are skipped.
func clearDir(dir string, keep ...string) (int, error) {
	count := 0
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || path == dir || slices.Contains(keep, path) {
			return nil
		}
		if !info.IsDir() {
			if err := os.Remove(path); err == nil {
				count++
			}
		}
		return nil
	})
	if err != nil {
		return count, err
	}

	var dirs []string
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && path != dir && info.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	// Deepest first so parents are empty by the time they are removed.
	for i := len(dirs) - 1; i >= 0; i-- {
		os.Remove(dirs[i])
	}
	return count, nil
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Cache.Dir)
			return nil
		},
	}
}

// cacheGetCommand creates the "cache get" subcommand.
func (c *CLI) cacheGetCommand(storeKind *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <crate> <version>",
		Short: "Print the cached build hash of a crate version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bc, err := c.openBuildCacheFor(cmd.Context(), *storeKind)
			if err != nil {
				return err
			}
			defer bc.Close()

			pv := deps.PackageVersion{Name: args[0], Version: args[1]}
			h, ok, err := bc.Get(cmd.Context(), pv)
			if err != nil {
				return err
			}
			if !ok {
				printInfo("%s is not cached", pv)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}

// cacheForgetCommand creates the "cache forget" subcommand.
func (c *CLI) cacheForgetCommand(storeKind *string) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <crate> <version>",
		Short: "Drop the cached build of a crate version so the next build redoes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bc, err := c.openBuildCacheFor(cmd.Context(), *storeKind)
			if err != nil {
				return err
			}
			defer bc.Close()

			pv := deps.PackageVersion{Name: args[0], Version: args[1]}
			if err := bc.Delete(cmd.Context(), pv); err != nil {
				return err
			}
			printSuccess("Forgot %s", pv)
			return nil
		},
	}
}

// openBuildCacheFor opens the build cache scoped to the configured store, or
// to storeKind if set.
func (c *CLI) openBuildCacheFor(ctx context.Context, storeKind string) (*buildcache.Cache, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	if storeKind != "" {
		cfg.Store.Kind = storeKind
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return openBuildCache(ctx, cfg)
}
