package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/configcat-cli/internal/display"
	"github.com/harrison/configcat-cli/internal/models"
)

type flagListOptions struct {
	configID string
	tagName  string
	tagID    int
	json     bool
}

func newFlagCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "flag",
		Aliases: []string{"setting", "f"},
		Short:   "Manage feature flags and settings",
		Args:    usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newFlagListCommand(a))
	return cmd
}

func newFlagListCommand(a *app) *cobra.Command {
	opts := &flagListOptions{}

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List the feature flags and settings of a config",
		Args:    usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFlagList(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configID, "config-id", "c", "", "ID of the config (default: scan.config_id or CONFIGCAT_CONFIG_ID, else every config)")
	f.StringVarP(&opts.tagName, "tag-name", "n", "", "Show only flags having this tag name")
	f.IntVarP(&opts.tagID, "tag-id", "t", 0, "Show only flags having this tag id")
	f.BoolVar(&opts.json, "json", false, "Format the output as JSON")

	return cmd
}

func (a *app) runFlagList(cmd *cobra.Command, opts *flagListOptions) error {
	var configID *string
	if cmd.Flags().Changed("config-id") {
		configID = &opts.configID
	}
	a.cfg.MergeWithFlags(nil, configID, nil, nil, nil)
	if err := a.cfg.ValidateAuth(); err != nil {
		return err
	}

	client := a.deps.NewAPIClient(a.cfg, a.log)
	var flags []models.Flag
	var err error
	if a.cfg.Scan.ConfigID != "" {
		flags, err = client.GetFlags(cmd.Context(), a.cfg.Scan.ConfigID)
	} else {
		flags, err = allFlags(cmd.Context(), client)
	}
	if err != nil {
		return err
	}

	var tagID *int
	if cmd.Flags().Changed("tag-id") {
		tagID = &opts.tagID
	}
	if opts.tagName != "" || tagID != nil {
		filtered := make([]models.Flag, 0, len(flags))
		for _, f := range flags {
			if f.HasTag(opts.tagName, tagID) {
				filtered = append(filtered, f)
			}
		}
		flags = filtered
	}

	if opts.json {
		if flags == nil {
			flags = []models.Flag{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(flags); err != nil {
			return fmt.Errorf("failed to encode flags: %w", err)
		}
		return nil
	}
	return display.NewPrinter(cmd.OutOrStdout()).Flags(flags)
}

// allFlags collects the flags of every config of every product.
func allFlags(ctx context.Context, client APIClient) ([]models.Flag, error) {
	products, err := client.GetProducts(ctx)
	if err != nil {
		return nil, err
	}
	var flags []models.Flag
	for _, p := range products {
		configs, err := client.GetConfigs(ctx, p.ProductID)
		if err != nil {
			return nil, err
		}
		for _, c := range configs {
			f, err := client.GetFlags(ctx, c.ConfigID)
			if err != nil {
				return nil, err
			}
			flags = append(flags, f...)
		}
	}
	return flags, nil
}
