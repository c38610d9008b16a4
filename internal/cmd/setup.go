package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrison/configcat-cli/internal/config"
	"github.com/harrison/configcat-cli/internal/display"
)

type setupOptions struct {
	apiHost  string
	username string
	password string
}

func newSetupCommand(a *app) *cobra.Command {
	opts := &setupOptions{}

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Save the management API credentials",
		Long: `Setup stores the management API host and basic auth credentials in the
config file. Values not given as flags are read from standard input.

The credentials can be generated on the ConfigCat dashboard under
"My account > Public API credentials".`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSetup(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.apiHost, "api-host", "s", "", "Management API host (default: "+config.DefaultAPIHost+")")
	f.StringVarP(&opts.username, "username", "u", "", "Management API basic auth user name")
	f.StringVarP(&opts.password, "password", "p", "", "Management API basic auth password")

	return cmd
}

func (a *app) runSetup(cmd *cobra.Command, opts *setupOptions) error {
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	host := opts.apiHost
	if host == "" {
		host = a.cfg.Auth.Host
	}
	username := opts.username
	if username == "" {
		v, err := prompt(in, out, "Username", a.cfg.Auth.Username)
		if err != nil {
			return err
		}
		username = v
	}
	password := opts.password
	if password == "" {
		v, err := prompt(in, out, "Password", "")
		if err != nil {
			return err
		}
		password = v
	}
	if username == "" || password == "" {
		return usageErrorf("both --username and --password are required")
	}

	path := a.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	// environment overrides are not persisted
	stored, err := config.LoadConfig(path)
	if err != nil {
		return err
	}
	stored.Auth = config.AuthConfig{Host: host, Username: username, Password: password}
	if err := stored.Save(path); err != nil {
		return err
	}

	display.NewPrinter(out).Success(fmt.Sprintf("Setup complete. Configuration saved to %s", path))
	return nil
}

// prompt reads one line from in, returning def for an empty answer.
func prompt(in *bufio.Reader, out io.Writer, label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	if v := strings.TrimSpace(line); v != "" {
		return v, nil
	}
	return def, nil
}
