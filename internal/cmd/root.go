// Package cmd implements the configcat command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/harrison/configcat-cli/internal/api"
	"github.com/harrison/configcat-cli/internal/config"
	"github.com/harrison/configcat-cli/internal/gitinfo"
	"github.com/harrison/configcat-cli/internal/logger"
	"github.com/harrison/configcat-cli/internal/models"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// FlagSource provides the flags of a config.
type FlagSource interface {
	GetFlags(ctx context.Context, configID string) ([]models.Flag, error)
	GetDeletedFlags(ctx context.Context, configID string) ([]models.DeletedFlag, error)
}

// Uploader sends code references.
type Uploader interface {
	UploadCodeReferences(ctx context.Context, req *models.CodeReferenceRequest) error
}

// ConfigSource lists the configs reachable with the credentials.
type ConfigSource interface {
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetConfigs(ctx context.Context, productID string) ([]models.Config, error)
}

// APIClient is the part of the management API the commands use.
type APIClient interface {
	FlagSource
	ConfigSource
	Uploader
}

// GitInfoSource reads repository metadata. Gather returns nil outside a repository.
type GitInfoSource interface {
	Gather(path string) (*gitinfo.Info, error)
}

// Dependencies are the external collaborators of the commands.
type Dependencies struct {
	NewAPIClient func(cfg *config.Config, log *logger.ConsoleLogger) APIClient
	Git          GitInfoSource
}

// DefaultDependencies talk to the real API and read git metadata with go-git.
func DefaultDependencies() Dependencies {
	return Dependencies{
		NewAPIClient: func(cfg *config.Config, log *logger.ConsoleLogger) APIClient {
			return newAPIClient(cfg, log)
		},
		Git: gitinfo.Reader{},
	}
}

func newAPIClient(cfg *config.Config, log *logger.ConsoleLogger) *api.Client {
	return api.NewClient(api.Options{
		Host:       cfg.Auth.Host,
		Username:   cfg.Auth.Username,
		Password:   cfg.Auth.Password,
		Version:    Version,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		Logger:     log,
	})
}

// app holds state shared by the commands of one invocation.
type app struct {
	deps       Dependencies
	configPath string
	verbose    bool
	cfg        *config.Config
	log        *logger.ConsoleLogger
}

// NewRootCommand creates and returns the root cobra command for configcat
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithDependencies(DefaultDependencies())
}

// NewRootCommandWithDependencies creates the root command with the given collaborators.
func NewRootCommandWithDependencies(deps Dependencies) *cobra.Command {
	a := &app{deps: deps}

	cmd := &cobra.Command{
		Use:   "configcat",
		Short: "ConfigCat command line interface",
		Long: `configcat works with ConfigCat feature flags from the command line.

The scan command searches a source tree for references to the flags of a
config, reports references to deleted flags, and can upload the references
so they show up on the ConfigCat dashboard.

Credentials are read from the config file written by 'configcat setup'
(default: $XDG_CONFIG_HOME/configcat/cli.yaml) and from the CONFIGCAT_API_HOST,
CONFIGCAT_API_USER and CONFIGCAT_API_PASS environment variables. A .env file in
the working directory is loaded as well.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to config file (default: $XDG_CONFIG_HOME/configcat/cli.yaml)")
	cmd.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "Show detailed progress on stderr")
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	cmd.AddCommand(newScanCommand(a))
	cmd.AddCommand(newFlagCommand(a))
	cmd.AddCommand(newSetupCommand(a))

	return cmd
}

// init loads the configuration and creates the logger.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.verbose {
		level := "debug"
		cfg.MergeWithFlags(&level, nil, nil, nil, nil)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.cfg = cfg
	a.log = logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	return nil
}

// UsageError reports invalid command-line input. It maps to exit code 2.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string {
	return e.Err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

func usageErrorf(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// usageArgs wraps a positional argument validator so its errors are usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &UsageError{Err: err}
		}
		return nil
	}
}

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	var usage *UsageError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &usage):
		return ExitUsage
	default:
		return ExitError
	}
}

// Execute runs the command line and returns the exit code. Errors are written
// to stderr, followed by the command usage for usage errors.
func Execute(ctx context.Context, root *cobra.Command, args []string, stdout, stderr io.Writer) int {
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		var usage *UsageError
		if errors.As(err, &usage) && cmd != nil {
			fmt.Fprintln(stderr)
			fmt.Fprint(stderr, cmd.UsageString())
		}
	}
	return ExitCode(err)
}
