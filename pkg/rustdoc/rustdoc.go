// Package rustdoc runs `cargo doc` for one crate and post-processes its
// output so links to dependency documentation are relative.
//
// Dependencies are documented separately and published under the crate's
// ".deps" node, but their final location relative to each page is only
// known after generation. Every extern crate is therefore given the html
// root [Placeholder]/<package>, and [Rewrite] replaces the placeholder with
// a relative path once the output tree exists.
package rustdoc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/stackdoc/pkg/deps"
	"github.com/matzehuels/stackdoc/pkg/execx"
)

// Placeholder stands in for the dependency documentation root in generated
// pages.
const Placeholder = "STACKDOC-DEPS-PLACEHOLDER"

// Extern is a dependency whose documentation links should resolve into
// .deps.
type Extern struct {
	Lib  string // extern crate name as seen by rustdoc
	Name string // package name, the link name under .deps
}

type commandRunner interface {
	Run(ctx context.Context, c execx.Command) error
}

// Generator builds documentation with cargo.
type Generator struct {
	runner    commandRunner
	cargo     string
	toolchain string
}

// NewGenerator creates a generator. The placeholder links rely on unstable
// rustdoc flags, so toolchain is normally a nightly.
func NewGenerator(runner *execx.Runner, cargo, toolchain string) *Generator {
	if cargo == "" {
		cargo = "cargo"
	}
	return &Generator{runner: runner, cargo: cargo, toolchain: toolchain}
}

// Generate documents the library in sourceDir and returns the output
// directory. Externs are linked through the placeholder; call Rewrite on the
// result before publishing.
func (g *Generator) Generate(ctx context.Context, sourceDir string, cfg deps.BuildConfig, externs []Extern) (string, error) {
	args := Args(cfg)
	if g.toolchain != "" {
		args = append([]string{"+" + g.toolchain}, args...)
	}

	env := make(map[string]string, len(cfg.Env)+1)
	for k, v := range cfg.Env {
		env[k] = v
	}
	env["RUSTDOCFLAGS"] = strings.Join(RustdocFlags(cfg, externs), " ")

	if err := g.runner.Run(ctx, execx.Command{Name: g.cargo, Args: args, Dir: sourceDir, Env: env}); err != nil {
		return "", err
	}

	docDir := DocDir(sourceDir, cfg)
	info, err := os.Stat(docDir)
	if err != nil {
		return "", fmt.Errorf("cargo doc produced no output: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", docDir)
	}
	return docDir, nil
}

// Args serialises cfg to `cargo doc` arguments.
func Args(cfg deps.BuildConfig) []string {
	args := []string{"doc", "--no-deps", "--lib"}
	if cfg.AllFeatures {
		args = append(args, "--all-features")
	}
	if cfg.NoDefaultFeatures {
		args = append(args, "--no-default-features")
	}
	if len(cfg.Features) > 0 {
		args = append(args, "--features", strings.Join(cfg.Features, ","))
	}
	if cfg.Target != "" {
		args = append(args, "--target", cfg.Target)
	}
	return args
}

// RustdocFlags returns the RUSTDOCFLAGS for cfg: one placeholder html root
// per extern, followed by the crate's own rustdoc arguments.
func RustdocFlags(cfg deps.BuildConfig, externs []Extern) []string {
	flags := []string{"-Z", "unstable-options"}
	if len(externs) > 0 {
		flags = append(flags, "--extern-html-root-takes-precedence")
	}
	for _, e := range externs {
		flags = append(flags, "--extern-html-root-url", e.Lib+"="+Placeholder+"/"+e.Name)
	}
	return append(flags, cfg.RustdocFlags...)
}

// DocDir is where cargo writes documentation for cfg.
func DocDir(sourceDir string, cfg deps.BuildConfig) string {
	if cfg.Target != "" {
		return filepath.Join(sourceDir, "target", cfg.Target, "doc")
	}
	return filepath.Join(sourceDir, "target", "doc")
}
