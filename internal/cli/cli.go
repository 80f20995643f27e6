// Package cli implements the kindview command-line interface.
//
// Commands:
//   - eval: evaluate one form and print its rendering
//   - render: export a script as an HTML notebook
//   - note: render a declarative YAML or JSON note
//   - kinds: list the registered kinds
//   - repl: interactive evaluation loop
//   - serve: HTTP API
//   - cache: manage the artifact cache
//
// All commands accept --config and --verbose (-v).
package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/kindview/internal/config"
	"github.com/matzehuels/kindview/pkg/buildinfo"
	"github.com/matzehuels/kindview/pkg/cache"
	"github.com/matzehuels/kindview/pkg/eval"
	"github.com/matzehuels/kindview/pkg/kernel/starlark"
	"github.com/matzehuels/kindview/pkg/render"
	"github.com/matzehuels/kindview/pkg/render/builtin"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	noCache    bool
	cfg        *config.Config
}

// New creates a CLI logging to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "kindview",
		Short:        "kindview renders values by kind",
		Long:         `kindview evaluates Starlark forms and renders their values as HTML, markdown, charts, diagrams and images, choosing a renderer by each value's kind.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	flags.BoolVar(&c.noCache, "no-cache", false, "disable the artifact cache")

	root.AddCommand(c.evalCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.noteCommand())
	root.AddCommand(c.kindsCommand())
	root.AddCommand(c.replCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// config loads the configuration once per process.
func (c *CLI) config() (config.Config, error) {
	if c.cfg != nil {
		return *c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return config.Config{}, err
	}
	c.cfg = &cfg
	return cfg, nil
}

// session is an evaluator together with the resources it holds.
type session struct {
	eval   *eval.Evaluator
	kernel *starlark.Kernel
	store  cache.Cache
}

func (s *session) Close() error {
	return s.store.Close()
}

// newSession builds the evaluator used by every command. Output printed
// by scripts goes to out.
func (c *CLI) newSession(out io.Writer) (*session, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	store := cache.Cache(cache.NewNullCache())
	if !c.noCache {
		if store, err = cfg.OpenCache(); err != nil {
			return nil, err
		}
	}

	opts := append(cfg.EngineOptions(), render.WithLogger(c.Logger))
	engine, err := builtin.NewEngine(cfg.Builtin(store), opts...)
	if err != nil {
		store.Close()
		return nil, err
	}
	k := starlark.New(starlark.WithOutput(out), starlark.WithLogger(c.Logger))
	return &session{eval: eval.New(k, engine), kernel: k, store: store}, nil
}

// readSource reads a file, or stdin when path is "-".
func readSource(path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}
