package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackdoc/pkg/deps"
	"github.com/matzehuels/stackdoc/pkg/errors"
	"github.com/matzehuels/stackdoc/pkg/index"
)

// indexCommand creates the index inspection commands.
func (c *CLI) indexCommand() *cobra.Command {
	var storeKind string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect the global documentation index",
	}
	cmd.PersistentFlags().StringVar(&storeKind, "store", "", "content store: ipfs or local")

	cmd.AddCommand(c.indexShowCommand(&storeKind))
	cmd.AddCommand(c.indexGetCommand(&storeKind))
	return cmd
}

func (c *CLI) indexShowCommand(storeKind *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show [crate]",
		Short: "List indexed crates, or the versions of one crate",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ix, err := c.openIndexFor(ctx, *storeKind)
			if err != nil {
				return err
			}

			fmt.Println(StyleTitle.Render("Index") + " " + StyleHash.Render(ix.Root().String()))
			if len(args) == 1 {
				return showVersions(ctx, ix, args[0])
			}

			names, err := ix.Names(ctx)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				printInfo("Index is empty")
				return nil
			}
			for _, n := range names {
				if err := showVersions(ctx, ix, n.Name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func showVersions(ctx context.Context, ix *index.Index, name string) error {
	versions, err := ix.Versions(ctx, name)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		printInfo("%s is not indexed", name)
		return nil
	}
	for _, v := range versions {
		printLink(name+"@"+v.Name, v.Hash.String())
	}
	return nil
}

func (c *CLI) indexGetCommand(storeKind *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <crate> <version>",
		Short: "Print the documentation hash of an indexed crate version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ix, err := c.openIndexFor(ctx, *storeKind)
			if err != nil {
				return err
			}
			pv := deps.PackageVersion{Name: args[0], Version: args[1]}
			h, ok, err := ix.Lookup(ctx, pv)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New(errors.ErrCodeInvalidPackage, "%s is not indexed", pv)
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}

// openIndexFor opens the index on the configured store, or storeKind if set.
func (c *CLI) openIndexFor(ctx context.Context, storeKind string) (*index.Index, error) {
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
	s, err := c.openStore(cfg)
	if err != nil {
		return nil, err
	}
	return openIndex(ctx, cfg, s)
}
