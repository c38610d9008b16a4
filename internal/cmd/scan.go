package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/configcat-cli/internal/display"
	"github.com/harrison/configcat-cli/internal/fileutil"
	"github.com/harrison/configcat-cli/internal/gitinfo"
	"github.com/harrison/configcat-cli/internal/models"
	"github.com/harrison/configcat-cli/internal/reference"
	"github.com/harrison/configcat-cli/internal/scanner"
)

type scanOptions struct {
	directory         string
	configID          string
	lineCount         int
	print             bool
	upload            bool
	repo              string
	branch            string
	commitHash        string
	fileURLTemplate   string
	commitURLTemplate string
	runner            string
	aliasDiscovery    bool
	workers           int
}

func newScanCommand(a *app) *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan <directory>",
		Short: "Scan a source tree for feature flag and setting references",
		Long: `Scan searches the files under a directory for the keys of the feature flags
and settings of a config, and for their aliases.

Files matched by .gitignore, .ignore or .ccignore files are skipped; rules in
deeper directories override rules in their ancestors. Binary files are skipped.

References to flags deleted from the config are reported separately.
With --upload the active references are sent to ConfigCat together with the
branch and commit of the enclosing Git repository.

Examples:
  configcat scan . --config-id <config-id> --print
  configcat scan ./src -c <config-id> -l 2 --upload --repo my-app
  configcat scan . -c <config-id> -u -r my-app \
    -f "https://github.com/me/my-app/blob/{commitHash}/{filePath}#L{lineNumber}" \
    -t "https://github.com/me/my-app/commit/{commitHash}"`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.directory = args[0]
			return a.runScan(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configID, "config-id", "c", "", "ID of the config to scan against (default: scan.config_id or CONFIGCAT_CONFIG_ID)")
	f.IntVarP(&opts.lineCount, "line-count", "l", scanner.DefaultContextLines, "Context line count before and after the reference line (min: 1, max: 10)")
	f.BoolVarP(&opts.print, "print", "p", false, "Print the found references")
	f.BoolVarP(&opts.upload, "upload", "u", false, "Upload the references to ConfigCat")
	f.StringVarP(&opts.repo, "repo", "r", "", "Repository name, mandatory for upload")
	f.StringVarP(&opts.branch, "branch", "b", "", "Branch name; read from Git when omitted")
	f.StringVarP(&opts.commitHash, "commit-hash", "m", "", "Commit hash; read from Git when omitted")
	f.StringVarP(&opts.fileURLTemplate, "file-url-template", "f", "", "Template of file links; parameters: {branch}, {filePath}, {lineNumber}, {commitHash}")
	f.StringVarP(&opts.commitURLTemplate, "commit-url-template", "t", "", "Template of commit links; parameters: {commitHash}, {branch}")
	f.StringVar(&opts.runner, "runner", "", "Uploader name recorded with the references (default: ConfigCat CLI <version>)")
	f.BoolVar(&opts.aliasDiscovery, "alias-discovery", true, "Find identifiers assigned a flag key and search for them as aliases")
	f.IntVar(&opts.workers, "workers", 0, "Number of scanning workers (0 = one per CPU)")

	return cmd
}

func (a *app) runScan(cmd *cobra.Command, opts *scanOptions) error {
	ctx := cmd.Context()
	start := time.Now()

	dir, err := filepath.Abs(opts.directory)
	if err != nil {
		return usageErrorf("invalid directory %q: %w", opts.directory, err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return usageErrorf("directory %s does not exist", opts.directory)
	}
	if opts.upload && opts.repo == "" {
		return usageErrorf("The --repo argument is required for code reference upload.")
	}

	flags := cmd.Flags()
	var configID *string
	if flags.Changed("config-id") {
		configID = &opts.configID
	}
	var lineCount *int
	if flags.Changed("line-count") {
		lineCount = &opts.lineCount
	}
	var workers *int
	if flags.Changed("workers") {
		workers = &opts.workers
	}
	var aliasDiscovery *bool
	if flags.Changed("alias-discovery") {
		aliasDiscovery = &opts.aliasDiscovery
	}
	a.cfg.MergeWithFlags(nil, configID, lineCount, workers, aliasDiscovery)
	if err := a.cfg.Validate(); err != nil {
		return usageErrorf("invalid configuration: %w", err)
	}
	if a.cfg.Scan.ConfigID == "" {
		return usageErrorf("--config-id is required")
	}
	if err := a.cfg.ValidateAuth(); err != nil {
		return err
	}

	client := a.deps.NewAPIClient(a.cfg, a.log)

	active, err := client.GetFlags(ctx, a.cfg.Scan.ConfigID)
	if err != nil {
		return err
	}
	deleted, err := client.GetDeletedFlags(ctx, a.cfg.Scan.ConfigID)
	if err != nil {
		return err
	}
	targets := scanner.BuildTargets(active, deleted)
	a.log.LogDebug(fmt.Sprintf("Loaded %d active and %d deleted flag(s), %d scan target(s)", len(active), len(deleted), len(targets)))

	collected, err := fileutil.Collect(ctx, dir, fileutil.CollectOptions{
		ExcludeDirs:     a.cfg.Scan.ExcludeDirs,
		EngineCacheSize: a.cfg.Scan.EngineCacheSize,
		Logger:          a.log,
	})
	if err != nil {
		return fmt.Errorf("failed to collect files: %w", err)
	}
	for _, e := range collected.Errors {
		a.log.LogDebug(e.Error())
	}
	if n := len(collected.Errors); n > 0 {
		a.log.LogWarn(fmt.Sprintf("%d path(s) could not be read and were skipped, run with --verbose for details", n))
	}
	a.log.LogDebug(fmt.Sprintf("Collected %d file(s), %d ignored", len(collected.Files), collected.Ignored))

	if a.cfg.Scan.AliasDiscovery {
		targets, err = scanner.DiscoverAliases(ctx, collected.Files, targets, a.cfg.Scan.Workers)
		if err != nil {
			return err
		}
	}

	s := scanner.New(scanner.Options{
		ContextLines: a.cfg.Scan.LineCount,
		Workers:      a.cfg.Scan.Workers,
		Logger:       a.log,
	})
	report, err := s.Scan(ctx, collected.Files, targets)
	if err != nil {
		return err
	}

	alive, deletedRefs := reference.Partition(report.Groups)
	out := display.NewPrinter(cmd.OutOrStdout())

	out.Summary(reference.Summarize(alive))
	if opts.print {
		out.References(alive)
	}
	out.DeletedSummary(reference.Summarize(deletedRefs))
	if opts.print {
		out.References(deletedRefs)
	}
	a.log.LogInfo(fmt.Sprintf("Scan finished in %s", time.Since(start).Round(time.Millisecond)))

	if !opts.upload {
		return nil
	}
	return a.upload(cmd, client, out, dir, opts, alive)
}

func (a *app) upload(cmd *cobra.Command, client Uploader, out *display.Printer, dir string, opts *scanOptions, alive []models.FileMatchGroup) error {
	out.Line("")
	out.Line("Initiating code reference upload...")

	info, err := a.deps.Git.Gather(dir)
	if err != nil {
		out.Warn(display.Warning{
			Title:      "Could not read Git metadata",
			Message:    err.Error(),
			Suggestion: "Use the --branch and --commit-hash arguments.",
		})
		info = nil
	}
	if info == nil {
		info = &gitinfo.Info{}
	}

	branch := firstNonEmpty(opts.branch, info.Branch)
	if branch == "" {
		return usageErrorf("Could not determine the current branch name, make sure the scanned folder is inside a Git repository, or use the --branch argument.")
	}
	commitHash := firstNonEmpty(opts.commitHash, info.CommitHash)
	root := firstNonEmpty(info.WorkingDirectory, filepath.ToSlash(dir))

	out.Field("Repository", opts.repo)
	out.Field("Branch", branch)
	out.Field("Commit", commitHash)

	req := reference.BuildRequest(alive, reference.UploadOptions{
		RepositoryRoot:    root,
		Repository:        opts.repo,
		Branch:            branch,
		CommitHash:        commitHash,
		FileURLTemplate:   opts.fileURLTemplate,
		CommitURLTemplate: opts.commitURLTemplate,
		ActiveBranches:    info.ActiveBranches,
		ConfigID:          a.cfg.Scan.ConfigID,
		Runner:            opts.runner,
		Version:           Version,
	})

	if err := client.UploadCodeReferences(cmd.Context(), req); err != nil {
		return err
	}
	out.Success("Code reference upload completed.")
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
