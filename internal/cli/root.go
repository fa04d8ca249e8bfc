// Package cli implements the taxtrack command line client.
package cli

import (
	"fmt"
	"slices"

	"taxtracker/internal/app"
	"taxtracker/internal/config"
	"taxtracker/internal/logger"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands
type RootOptions struct {
	State   string // SQLite state file
	API     string // remote API base url
	Format  string // "json" | "text"
	Verbose bool
	EnvFile string

	// getenv is swapped in tests
	getenv func(string) string
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxtrack",
		Short: "Tax tracker command line client",
		Long: `Compute personal and business income tax, keep the result as a pending
calculation and save it to the tax tracker as a record.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.State, "state", "", "session state file (default $SQLITE_PATH or taxtracker.db)")
	cmd.PersistentFlags().StringVar(&opts.API, "api", "", "remote API base url (default $API_BASE_URL)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose logging on stderr")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", config.DefaultEnvFile, "dotenv file")

	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewWhoamiCommand(opts))
	cmd.AddCommand(NewComputeCommand(opts))
	cmd.AddCommand(NewPendingCommand(opts))
	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewPayCommand(opts))
	cmd.AddCommand(NewRemindersCommand(opts))
	cmd.AddCommand(NewRulesetsCommand(opts))

	return cmd
}

// open builds the application over the SQLite state file. The caller closes it.
func (o *RootOptions) open() (*app.App, error) {
	var (
		cfg config.Config
		err error
	)
	if o.getenv != nil {
		cfg, err = config.FromEnv(o.getenv)
	} else {
		cfg, err = config.Load(o.EnvFile)
	}
	if err != nil {
		return nil, err
	}

	if cfg.StorageDriver == config.DriverMemory {
		cfg.StorageDriver = config.DriverSQLite
	}
	if o.State != "" {
		cfg.StorageDriver = config.DriverSQLite
		cfg.SQLitePath = o.State
	}
	if o.API != "" {
		cfg.APIBaseURL = o.API
	}

	level := "warn"
	if o.Verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{Level: level, Env: cfg.Env, Stderr: true})
	if err != nil {
		return nil, err
	}

	return app.New(cfg, log, app.Options{})
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

// withApp opens the application for one command run
func withApp(opts *RootOptions, fn func(a *app.App, out *OutputFormatter) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := opts.open()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()
		return fn(a, opts.formatter(cmd))
	}
}
