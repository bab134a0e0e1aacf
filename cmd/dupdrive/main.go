package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"dupdrive/internal/app"
	"dupdrive/internal/config"
	"dupdrive/internal/dedupe"
	"dupdrive/internal/journal"
	"dupdrive/internal/report"
	"dupdrive/internal/source"
	"dupdrive/internal/tui"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, source.ErrCredentialsMissing) {
			printCredentialsHelp()
		}
		os.Exit(1)
	}
}

func printCredentialsHelp() {
	fmt.Fprintln(os.Stderr, "Download OAuth credentials from Google Cloud Console:")
	fmt.Fprintln(os.Stderr, "  1. Go to https://console.cloud.google.com/apis/credentials")
	fmt.Fprintln(os.Stderr, "  2. Create OAuth 2.0 Client ID (Desktop app)")
	fmt.Fprintln(os.Stderr, "  3. Download JSON and save as credentials.json")
}

func loadConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults["config_path"], nil
}

// newApp reads the config and creates a DupApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Scan", "Export").
// The root --credentials and --dump flags override the configured source.
func newApp(cmd *cobra.Command, operation string, opts app.Options) (*app.DupApp, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if dump, _ := cmd.Flags().GetString("dump"); dump != "" {
		cfg.Source = config.SourceConfig{Type: "dump", DumpPath: dump}
	} else if creds, _ := cmd.Flags().GetString("credentials"); creds != "" {
		cfg.Source = config.SourceConfig{Type: "drive", CredentialsPath: creds}
	}

	if opts.Parameters == "" {
		opts.Parameters = strings.Join(os.Args[1:], " ")
	}

	a, err := app.NewDupApp(cfg, operation, opts)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// readPassphrase prompts on stderr and reads without echo.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func printMarkdown(md string) error {
	return report.Render(os.Stdout, md)
}

var rootCmd = &cobra.Command{
	Use:          "dupdrive",
	Short:        "Find and review duplicate files in Google Drive",
	SilenceUsage: true,
}

// find command
var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Write a CSV report of every duplicate pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp(cmd, "Find", app.Options{Console: os.Stderr})
		if err != nil {
			return err
		}
		defer a.Close()

		if output == "" {
			output = filepath.Join(a.OutputDir(), "duplicates.csv")
		}

		if path != "" {
			fmt.Printf("Filtering to path: %s\n", path)
		}
		fmt.Println("Finding duplicates...")
		summary, err := a.Find(cmd.Context(), path, output)
		if err != nil {
			return err
		}

		if summary.Skipped > 0 {
			fmt.Printf("Skipped %d Google Workspace files (Docs, Sheets, etc. - no MD5)\n", summary.Skipped)
		}
		fmt.Printf("Found %d duplicate groups (%d files)\n", summary.Groups, summary.Files)
		if summary.Uncertain > 0 {
			fmt.Printf("  %d groups flagged as uncertain (same MD5, different size)\n", summary.Uncertain)
		}
		fmt.Printf("Wrote %d pairs to %s\n", summary.Pairs, output)
		fmt.Printf("\nPotential space savings: %s\n", dedupe.FormatSize(summary.Savings))
		fmt.Println("Done!")
		return nil
	},
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for duplicates and save the results for review",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")

		a, err := newApp(cmd, "Scan", app.Options{Console: os.Stderr})
		if err != nil {
			return err
		}
		defer a.Close()

		ws, summary, err := a.Scan(cmd.Context(), path)
		if err != nil {
			return err
		}
		return printMarkdown(report.ScanMarkdown(summary, ws.Stats()))
	},
}

// review command
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review duplicate groups interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Review", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		ws, err := a.Open()
		if err != nil {
			return err
		}
		if filter, _ := cmd.Flags().GetString("filter"); filter != "" {
			f, err := dedupe.ParseFilterStatus(filter)
			if err != nil {
				return err
			}
			ws.Session.SetFilter(f)
		}
		if search, _ := cmd.Flags().GetString("search"); search != "" {
			ws.Session.Search(search)
		}

		if err := tui.Run(ws, a); err != nil {
			return fmt.Errorf("running review: %w", err)
		}
		return printMarkdown(report.DecisionMarkdown(ws.Stats(), ws.DeletionPlan()))
	},
}

// decide command
var decideCmd = &cobra.Command{
	Use:   "decide CHECKSUM",
	Short: "Record a decision for one duplicate group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keep, _ := cmd.Flags().GetString("keep")
		skip, _ := cmd.Flags().GetBool("skip")
		if (keep == "") == !skip {
			return fmt.Errorf("exactly one of --keep or --skip is required")
		}

		a, err := newApp(cmd, "Decide", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		d, err := a.DecideGroup(args[0], keep, skip)
		if err != nil {
			return err
		}
		if d.IsSkip() {
			fmt.Printf("Skipped group %s\n", d.Checksum)
			return nil
		}
		fmt.Printf("Keeping %s, %d file(s) marked for deletion\n", d.KeepID, len(d.DeleteIDs))
		return nil
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize decisions on the saved scan",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Status", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		ws, stats, err := a.Status()
		if err != nil {
			return err
		}
		return printMarkdown(report.DecisionMarkdown(stats, ws.DeletionPlan()))
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the decision file, pair report and deletion plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		csvPath, _ := cmd.Flags().GetString("csv")
		planPath, _ := cmd.Flags().GetString("plan")
		publish, _ := cmd.Flags().GetBool("publish")
		vaultName, _ := cmd.Flags().GetString("vault")

		a, err := newApp(cmd, "Export", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		if planPath == "" {
			planPath = filepath.Join(a.OutputDir(), app.PlanArtifact)
		}

		res, err := a.Export(cmd.Context(), app.ExportOptions{
			CSVPath:  csvPath,
			PlanPath: planPath,
			Publish:  publish,
			Vault:    vaultName,
		})
		if err != nil {
			return err
		}

		if csvPath != "" {
			fmt.Printf("Wrote %d pairs to %s\n", res.Pairs, csvPath)
		}
		fmt.Printf("Wrote deletion plan to %s (%d files, %s)\n", planPath, len(res.Plan.Files), dedupe.FormatSize(res.Plan.TotalBytes))
		for _, name := range res.Published {
			fmt.Printf("Published %s\n", name)
		}
		return nil
	},
}

// fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch NAME",
	Short: "Download a published artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		vaultName, _ := cmd.Flags().GetString("vault")

		a, err := newApp(cmd, "Fetch", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		var w io.Writer = os.Stdout
		if out != "" {
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			defer f.Close()
			w = f
		}

		return a.Fetch(cmd.Context(), vaultName, args[0], w, func() (string, error) {
			return readPassphrase("Passphrase: ")
		})
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View journaled scans, decisions and operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		group, _ := cmd.Flags().GetString("group")
		showOps, _ := cmd.Flags().GetBool("ops")

		a, err := newApp(cmd, "History", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		switch {
		case showOps:
			return printOperations(a, limit)
		case group != "":
			entries, err := a.GroupHistory(group)
			if err != nil {
				return err
			}
			return printDecisions(entries)
		}

		scans, err := a.Scans(limit)
		if err != nil {
			return err
		}
		if len(scans) == 0 {
			fmt.Println("No scans recorded.")
		}
		for _, s := range scans {
			path := s.ScanPath
			if path == "" {
				path = "(whole drive)"
			}
			fmt.Printf("%s  %s  %6d files  %5d groups  %5d pairs  %10s  %s\n",
				truncate(s.ID, 8),
				s.ScannedAt.Local().Format("2006-01-02 15:04:05"),
				s.ScannedFiles,
				s.DuplicateGroups,
				s.Pairs,
				dedupe.FormatSize(s.SavingsBytes),
				path,
			)
		}

		entries, err := a.Decisions(limit)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			fmt.Println()
		}
		return printDecisions(entries)
	},
}

func printOperations(a *app.DupApp, limit int) error {
	ops, err := a.Operations(limit)
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		fmt.Println("No operations recorded.")
		return nil
	}
	for _, op := range ops {
		duration := ""
		if op.FinishedAt.Valid {
			d := op.FinishedAt.Time.Sub(op.StartedAt)
			duration = d.Truncate(time.Millisecond).String()
		}
		fmt.Printf("#%d  %-10s  %s  %-8s  %-10s  %s\n",
			op.ID,
			op.Operation,
			op.StartedAt.Local().Format("2006-01-02 15:04:05"),
			op.Status,
			duration,
			op.Parameters,
		)
	}
	return nil
}

func printDecisions(entries []*journal.DecisionEntry) error {
	if len(entries) == 0 {
		fmt.Println("No decisions recorded.")
		return nil
	}
	for _, e := range entries {
		detail := "skip"
		if e.KeepFileID != "" {
			detail = fmt.Sprintf("keep %s, delete %s", e.KeepFileID, strings.Join(e.DeleteFileIDs, ","))
		}
		fmt.Printf("%s  %-16s  %s\n", e.DecidedAt.Local().Format("2006-01-02 15:04:05"), truncate(e.Checksum, 16), detail)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// dump command
var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Save the full Drive listing for offline scans",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")

		a, err := newApp(cmd, "Dump", app.Options{Console: os.Stderr})
		if err != nil {
			return err
		}
		defer a.Close()

		if out == "" {
			out = filepath.Join(a.OutputDir(), "listing.json")
		}
		n, err := a.Dump(cmd.Context(), out)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s records to %s\n", report.Count(n), out)
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		installID := uuid.New().String()
		cfg := config.NewConfig(installID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Install ID:  %s\n", installID)
		fmt.Printf("Base Dir:    %s\n", defaults["base_dir"])
		fmt.Printf("Credentials: %s\n", cfg.Source.CredentialsPath)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Install ID:  %s\n", cfg.InstallID)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Output Dir:  %s\n", cfg.OutputDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Source:      %s\n", cfg.Source.Type)
		fmt.Printf("Journal:     %s\n", cfg.Journal.Type)
		fmt.Printf("Encryption:  %s\n", cfg.Encryption.Type)
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:       %s (%s)\n", v.Name, v.Type)
		}
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var configKeysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the key pair for published artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "SetupKeys", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		pass, err := readPassphrase("New passphrase: ")
		if err != nil {
			return fmt.Errorf("reading passphrase: %w", err)
		}
		confirm, err := readPassphrase("Confirm passphrase: ")
		if err != nil {
			return fmt.Errorf("reading passphrase: %w", err)
		}
		if pass != confirm {
			return fmt.Errorf("passphrases do not match")
		}
		if pass == "" {
			return fmt.Errorf("passphrase must not be empty")
		}

		if err := a.SetupKeys(pass); err != nil {
			return err
		}
		fmt.Printf("Keys written to %s and %s\n", a.Config().Encryption.PublicKeyPath, a.Config().Encryption.PrivateKeyPath)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("credentials", "c", "", "OAuth client credentials file (overrides config)")
	rootCmd.PersistentFlags().String("dump", "", "Read the listing from a dump file instead of Drive")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeysCmd)
	configKeysCmd.AddCommand(configKeysInitCmd)

	// root commands
	rootCmd.AddCommand(configCmd)

	rootCmd.AddCommand(findCmd)
	findCmd.Flags().StringP("path", "p", "", "Only scan files under this path (e.g. \"/My Drive/Photos\")")
	findCmd.Flags().StringP("output", "o", "", "CSV output file (default <output_dir>/duplicates.csv)")

	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringP("path", "p", "", "Only scan files under this path")

	rootCmd.AddCommand(reviewCmd)
	reviewCmd.Flags().String("filter", "", "Start with this filter: pending, decided or skipped")
	reviewCmd.Flags().String("search", "", "Start with this search term")

	rootCmd.AddCommand(decideCmd)
	decideCmd.Flags().String("keep", "", "ID of the file to keep")
	decideCmd.Flags().Bool("skip", false, "Defer the group")

	rootCmd.AddCommand(statusCmd)

	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("csv", "", "Also write the pair report to this file")
	exportCmd.Flags().String("plan", "", "Deletion plan output file (default <output_dir>/deletion_plan.json)")
	exportCmd.Flags().Bool("publish", false, "Upload decisions, plan and journal snapshot to a vault")
	exportCmd.Flags().String("vault", "", "Vault name (default: first configured vault)")

	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringP("out", "o", "", "Write to this file instead of stdout")
	fetchCmd.Flags().String("vault", "", "Vault name (default: first configured vault)")

	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of entries to show")
	historyCmd.Flags().String("group", "", "Show every decision for one group checksum")
	historyCmd.Flags().Bool("ops", false, "Show operations instead of scans and decisions")

	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().StringP("out", "o", "", "Dump file (default <output_dir>/listing.json)")
}
