package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stackdoc/internal/config"
	"github.com/matzehuels/stackdoc/pkg/builder"
	"github.com/matzehuels/stackdoc/pkg/deps"
	"github.com/matzehuels/stackdoc/pkg/deps/rust"
	"github.com/matzehuels/stackdoc/pkg/errors"
	"github.com/matzehuels/stackdoc/pkg/integrations/crates"
	"github.com/matzehuels/stackdoc/pkg/observability"
	"github.com/matzehuels/stackdoc/pkg/rustdoc"
)

// buildOptions holds the build flags. Non-empty values override the config.
type buildOptions struct {
	noCache       bool
	replace       bool
	keepWorkspace bool
	forceUnlock   bool
	metricsFile   string
	storeKind     string
	toolchain     string
}

func (o *buildOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&o.noCache, "no-cache", false, "ignore and do not update the build cache")
	f.BoolVar(&o.replace, "replace", false, "overwrite an index entry that points to a different hash")
	f.BoolVar(&o.keepWorkspace, "keep-workspace", false, "keep unpacked sources and generated docs")
	f.BoolVar(&o.forceUnlock, "force-unlock", false, "replace the build lock file held by a stuck build")
	f.StringVar(&o.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the build")
	f.StringVar(&o.storeKind, "store", "", "content store: ipfs or local")
	f.StringVar(&o.toolchain, "toolchain", "", "rustup toolchain used for cargo (default nightly)")
}

// apply layers the flags over cfg.
func (o *buildOptions) apply(cfg *config.Config) error {
	if o.storeKind != "" {
		cfg.Store.Kind = o.storeKind
	}
	if o.toolchain != "" {
		cfg.Build.Toolchain = o.toolchain
	}
	if o.metricsFile != "" {
		cfg.MetricsFile = o.metricsFile
	}
	if o.noCache {
		cfg.Cache.Backend = config.CacheNone
	}
	return cfg.Validate()
}

// buildCommand creates the "build" command.
func (c *CLI) buildCommand() *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build <crate> [version]",
		Short: "Build, publish and index documentation for a crate",
		Long: `Build documentation for a crate and, recursively, for every library it
depends on. Each crate is published with a .deps node linking its
dependencies, and the root crate is added to the global index.

Without a version the newest stable release on crates.io is used.`,
		Example: `  stackdoc build serde 1.0.197
  stackdoc build tokio --store local
  stackdoc serde 1.0.197`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd, args, opts)
		},
	}
	opts.register(cmd)
	return cmd
}

func (c *CLI) runBuild(cmd *cobra.Command, args []string, opts buildOptions) error {
	ctx := withLogger(cmd.Context(), c.Logger)

	cfg, err := c.config()
	if err != nil {
		return err
	}
	if err := opts.apply(cfg); err != nil {
		return err
	}

	client := c.newCratesClient(cfg)
	pv, err := resolvePackage(ctx, client, args)
	if err != nil {
		return err
	}

	lock, err := acquireLock(cfg.LockPath(), opts.forceUnlock)
	if err != nil {
		return err
	}
	defer lock.Release()

	var metrics *observability.Prometheus
	if cfg.MetricsFile != "" {
		metrics = observability.NewPrometheus(nil)
		metrics.Register()
		defer observability.Reset()
	}

	workspace, err := newWorkspace(cfg.Build.Workspace)
	if err != nil {
		return err
	}
	if opts.keepWorkspace {
		defer printDetail("Workspace kept at %s", workspace)
	} else {
		defer os.RemoveAll(workspace)
	}

	res, indexRoot, err := c.build(ctx, cfg, client, pv, workspace, opts)
	if metrics != nil {
		if werr := metrics.WriteToTextfile(cfg.MetricsFile); werr != nil {
			c.Logger.Warn("write metrics", "path", cfg.MetricsFile, "err", werr)
		}
	}
	if err != nil {
		return err
	}

	printSuccess("Published %s", pv)
	printKeyValue("Hash", res.Hash.String())
	printKeyValue("Index", indexRoot)
	printStats(res.Built, res.CacheHits, len(res.Omitted))
	for _, o := range res.Omitted {
		printWarning("%s omitted from %s: %s", o.Dep, o.Parent, errors.UserMessage(o.Err))
	}
	return nil
}

// build runs the builder for pv and records the result in the index.
func (c *CLI) build(ctx context.Context, cfg *config.Config, client *crates.Client, pv deps.PackageVersion, workspace string, opts buildOptions) (*builder.Result, string, error) {
	logger := loggerFromContext(ctx)
	s, err := c.openStore(cfg)
	if err != nil {
		return nil, "", err
	}
	bc, err := openBuildCache(ctx, cfg)
	if err != nil {
		return nil, "", err
	}
	defer bc.Close()
	fetcher, err := c.newFetcher(cfg, client)
	if err != nil {
		return nil, "", err
	}
	runner := c.newRunner()

	run := builder.New(builder.Config{
		Cache:       bc,
		Fetcher:     fetcher,
		Resolver:    deps.NewResolver(rust.NewCargoSource(runner, cfg.Build.Cargo, cfg.Build.Toolchain)),
		Generator:   rustdoc.NewGenerator(runner, cfg.Build.Cargo, cfg.Build.Toolchain),
		Store:       s,
		Logger:      logger,
		WorkDir:     workspace,
		KeepSources: opts.keepWorkspace,
	})

	prog := newProgress(logger)
	res, err := run.BuildRoot(ctx, pv)
	if err != nil {
		return nil, "", err
	}
	prog.done(fmt.Sprintf("Built %s", pv))

	if err := s.Pin(ctx, res.Hash); err != nil {
		return nil, "", errors.Wrap(errors.ErrCodeStore, err, "pin %s", res.Hash)
	}

	prog = newProgress(logger)
	ix, err := openIndex(ctx, cfg, s)
	if err != nil {
		return nil, "", err
	}
	ix.Replace = opts.replace
	if err := ix.Add(ctx, pv, res.Hash); err != nil {
		return nil, "", err
	}
	if ix.Dirty() {
		if err := ix.Commit(ctx); err != nil {
			return nil, "", err
		}
		prog.done("Committed index")
	}
	return res, ix.Root().String(), nil
}

// resolvePackage validates the arguments and fills in the newest version
// from crates.io when none was given.
func resolvePackage(ctx context.Context, client *crates.Client, args []string) (deps.PackageVersion, error) {
	pv := deps.PackageVersion{Name: args[0]}
	if err := errors.ValidateCrateName(pv.Name); err != nil {
		return pv, err
	}
	if len(args) > 1 {
		pv.Version = args[1]
		return pv, errors.ValidateVersion(pv.Version)
	}

	spinner := newSpinnerWithContext(ctx, "Looking up latest "+pv.Name)
	spinner.Start()
	info, err := client.FetchCrate(ctx, pv.Name, false)
	spinner.Stop()
	if err != nil {
		return pv, errors.Wrap(errors.ErrCodeFetch, err, "look up %s", pv.Name)
	}
	pv.Version = info.Version
	printInfo("Using %s", pv)
	return pv, nil
}

// newWorkspace creates a fresh run directory under root.
func newWorkspace(root string) (string, error) {
	dir := filepath.Join(root, appName+"-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create workspace: %w", err)
	}
	return dir, nil
}
