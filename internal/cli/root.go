// Package cli implements the inapp command line.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tOgg1/inapp/internal/config"
	"github.com/tOgg1/inapp/internal/logging"
)

// rootOptions holds the persistent flags and the configuration they resolve to.
type rootOptions struct {
	configFile string
	logLevel   string
	logFormat  string
	dbPath     string
	payload    string
	endpoint   string
	jsonOut    bool
	yamlOut    bool

	cfg       *config.Config
	logCloser io.Closer
}

// Execute runs the root command until it returns or the process is interrupted.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd(version).ExecuteContext(ctx)
}

func newRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "inapp",
		Short:         "Sync, select and browse in-app messages",
		Long:          "inapp merges server in-app message sets into a local inbox, picks the next message to show and records analytics events.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.logCloser != nil {
				return opts.logCloser.Close()
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default searches ~/.config/inapp/config.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format (console, json)")
	flags.StringVar(&opts.dbPath, "db", "", "database path")
	flags.StringVar(&opts.payload, "payload", "", "read messages from a local JSON payload file")
	flags.StringVar(&opts.endpoint, "endpoint", "", "fetch messages from an HTTP endpoint")
	flags.BoolVar(&opts.jsonOut, "json", false, "output JSON")
	flags.BoolVar(&opts.yamlOut, "yaml", false, "output YAML")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")

	cmd.AddCommand(
		newSyncCmd(opts),
		newInboxCmd(opts),
		newNextCmd(opts),
		newReadCmd(opts),
		newTrackCmd(opts),
		newRemoveCmd(opts),
		newEventsCmd(opts),
		newSessionsCmd(opts),
		newWatchCmd(opts),
		newBrowseCmd(opts),
		newUserCmd(opts),
		newResetCmd(opts),
	)

	return cmd
}

// load resolves configuration with flag overrides applied last and
// initializes logging.
func (o *rootOptions) load(cmd *cobra.Command) error {
	loader := config.NewLoader()
	if o.configFile != "" {
		loader.SetConfigFile(o.configFile)
	}
	if o.logLevel != "" {
		loader.Set("logging.level", o.logLevel)
	}
	if o.logFormat != "" {
		loader.Set("logging.format", o.logFormat)
	}
	if o.dbPath != "" {
		loader.Set("database.path", o.dbPath)
	}
	if o.payload != "" {
		loader.Set("fetch.payload_path", o.payload)
	}
	if o.endpoint != "" {
		loader.Set("fetch.endpoint", o.endpoint)
	}

	cfg, err := loader.Load()
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}

	out, closer, err := logging.Open(cfg.Logging.File)
	if err != nil {
		return err
	}
	logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       out,
		EnableCaller: cfg.Logging.EnableCaller,
	})
	logging.Debug().
		Str("config_file", loader.ConfigFileUsed()).
		Str("command", cmd.CommandPath()).
		Msg("configuration loaded")

	o.cfg = cfg
	o.logCloser = closer
	return nil
}
