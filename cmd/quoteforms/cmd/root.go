// Package cmd wires the quoteforms command tree.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-quoteforms/components/usstates"
	"github.com/goliatone/go-quoteforms/internal/config"
	"github.com/goliatone/go-quoteforms/internal/logging"
	"github.com/goliatone/go-quoteforms/pkg/forms"
)

// Version information, set at build time.
var (
	Version = "dev"
	Commit  = "none"
)

// app carries what every subcommand needs once the root has parsed flags.
type app struct {
	configPath string
	envFile    string
	formsDir   string
	cfg        config.Config
	logger     *zap.Logger
	states     *usstates.Component
}

// NewRootCommand creates the quoteforms command.
func NewRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "quoteforms",
		Short: "Multi-step insurance quote request wizards",
		Long: `quoteforms serves the quote request wizards over HTTP, runs them in the
terminal and checks form definitions.`,
		Version:       fmt.Sprintf("%s (commit: %s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", os.Getenv(config.EnvPrefix+"CONFIG"), "config file (yaml, toml or json)")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file with QUOTEFORMS_* overrides")
	flags.StringVar(&a.formsDir, "forms-dir", "", "load form definitions from this directory instead of the bundled set")

	cmd.AddCommand(newServeCommand(a))
	cmd.AddCommand(newFormsCommand(a))
	cmd.AddCommand(newFillCommand(a))
	cmd.AddCommand(newOpenAPICommand(a))
	return cmd
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath, config.WithEnvFile(a.envFile))
	if err != nil {
		return err
	}
	if a.formsDir != "" {
		cfg.Forms.Dir = a.formsDir
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.states = usstates.New()
	return nil
}

// registry loads the configured definitions with option sources resolved.
func (a *app) registry() (*forms.Registry, error) {
	opts := []forms.Option{forms.WithDecorators(forms.OptionsDecorator(a.states))}
	if a.cfg.Forms.Dir == "" {
		return forms.Default(opts...)
	}
	return forms.Load(os.DirFS(a.cfg.Forms.Dir), opts...)
}
