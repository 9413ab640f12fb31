package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"chronovault/internal/app"
	"chronovault/internal/chrono"
	"chronovault/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a ChronoApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "CreateSeal", "ListSeals").
func newApp(ctx context.Context, operation string) (*app.ChronoApp, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewChronoApp(ctx, cfg, operation, &cliNotifier{w: os.Stderr})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func readConfig() (*config.Config, error) {
	paths, err := app.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("resolving paths: %w", err)
	}

	cfg, err := config.ReadFromFile(paths.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:          "chronovault",
	Short:        "Seal messages and media until a chosen time",
	SilenceUsage: true,
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
		paths, err := app.ResolvePaths()
		if err != nil {
			return fmt.Errorf("failed to resolve paths: %w", err)
		}

		cfg := paths.NewConfig()
		if err := config.Init(paths.ConfigFile, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		if err := paths.Ensure(); err != nil {
			return err
		}
		if err := app.MigrateLedger(cfg); err != nil {
			return err
		}

		fmt.Printf("Configuration initialized at %s\n", paths.ConfigFile)
		fmt.Printf("Ledger:   %s\n", paths.LedgerFile())
		fmt.Printf("Media:    %s\n", paths.MediaRoot)
		fmt.Println("Run 'chronovault wallet init' to create a signing identity.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := app.ResolvePaths()
		if err != nil {
			return fmt.Errorf("failed to resolve paths: %w", err)
		}

		cfg, err := config.ReadFromFile(paths.ConfigFile)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", paths.ConfigFile)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Wallet:   %s (chain %d)\n", cfg.Wallet.Type, cfg.Wallet.ChainID)
		fmt.Printf("Ledger:   %s\n", cfg.Ledger.Type)
		fmt.Printf("Indexer:  %s\n", cfg.Indexer.Type)
		fmt.Printf("Media:    %s\n", cfg.Media.Type)
		if !cfg.Indexer.ReadsLedger() {
			fmt.Println("\nRead-only: seals cannot be created with this indexer.")
		}
		return nil
	},
}

// wallet command
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage the signing identity",
}

var walletInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a passphrase-protected identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		passphrase, err := readNewPassphrase()
		if err != nil {
			return err
		}

		address, err := app.InitWallet(cfg, passphrase)
		if err != nil {
			return fmt.Errorf("creating wallet: %w", err)
		}

		fmt.Printf("Wallet created at %s\n", cfg.Wallet.KeyPath)
		fmt.Printf("Address: %s\n", address)
		return nil
	},
}

var walletAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the wallet address",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		address, err := app.WalletAddress(cfg)
		if err != nil {
			return err
		}
		fmt.Println(address)
		return nil
	},
}

// ledger command
var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Maintain the local ledger",
}

var ledgerMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		if err := app.MigrateLedger(cfg); err != nil {
			return err
		}
		fmt.Println("Ledger is up to date.")
		return nil
	},
}

var ledgerBackupCmd = &cobra.Command{
	Use:   "backup DEST",
	Short: "Write a snapshot of the ledger to DEST",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		if err := app.BackupLedger(cfg, args[0]); err != nil {
			return fmt.Errorf("backing up ledger: %w", err)
		}
		fmt.Printf("Ledger written to %s\n", args[0])
		return nil
	},
}

var ledgerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the ledger head and unconfirmed writes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		info, err := app.LedgerStatus(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		fmt.Printf("Ledger:  %s\n", info.Path)
		fmt.Printf("Head:    block %d\n", info.Head)
		fmt.Printf("Pending: %d\n", len(info.Pending))
		for _, hash := range info.Pending {
			fmt.Printf("  %s\n", hash)
		}
		return nil
	},
}

var ledgerConfirmCmd = &cobra.Command{
	Use:   "confirm",
	Short: "Include writes left pending by an interrupted seal create",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		receipts, err := app.ConfirmPending(cmd.Context(), cfg)
		for _, r := range receipts {
			fmt.Printf("%s included in block %d\n", r.TxHash, r.BlockNumber)
		}
		if err != nil {
			return err
		}
		if len(receipts) == 0 {
			fmt.Println("Nothing pending.")
		}
		return nil
	},
}

// seal command
var sealCmd = &cobra.Command{
	Use:   "seal",
	Short: "Create and open seals",
}

var sealCreateCmd = &cobra.Command{
	Use:   "create [CONTENT...]",
	Short: "Seal a message until the unlock time",
	Long: `Seal a message until the unlock time.

The message is taken from the arguments or, when none are given, from stdin.
--unlock accepts a duration from now ("72h") or an RFC 3339 timestamp and
defaults to one hour from now.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		unlock, _ := cmd.Flags().GetString("unlock")
		emotion, _ := cmd.Flags().GetString("emotion")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		files, _ := cmd.Flags().GetStringSlice("file")

		content, err := readContent(args, os.Stdin)
		if err != nil {
			return err
		}
		unlockAt, err := parseUnlock(unlock, time.Now())
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, "CreateSeal")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readPassphrase("Wallet passphrase: ")
		if err != nil {
			return err
		}
		if _, err := a.Connect(ctx, passphrase); err != nil {
			return err
		}

		txID, err := a.CreateSeal(ctx, chrono.Draft{
			Title:    title,
			Content:  content,
			Emotion:  emotion,
			Tags:     tags,
			UnlockAt: unlockAt,
		}, files)
		if err != nil {
			return err
		}

		fmt.Println(txID)
		return nil
	},
}

var sealShowCmd = &cobra.Command{
	Use:   "show TXID",
	Short: "Show a seal; locked content stays hidden unless --force is given",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		ctx := cmd.Context()
		a, err := newApp(ctx, "OpenSeal")
		if err != nil {
			return err
		}
		defer a.Close()

		view, err := a.OpenSeal(ctx, args[0], force)
		if err != nil {
			return err
		}
		renderView(os.Stdout, view)
		return nil
	},
}

var sealListCmd = &cobra.Command{
	Use:   "list",
	Short: "List seals created by an address",
	RunE: func(cmd *cobra.Command, args []string) error {
		address, _ := cmd.Flags().GetString("address")
		search, _ := cmd.Flags().GetString("search")
		status, _ := cmd.Flags().GetString("status")

		ctx := cmd.Context()
		a, err := newApp(ctx, "ListSeals")
		if err != nil {
			return err
		}
		defer a.Close()

		seals, err := a.ListSeals(ctx, address, search, status)
		if err != nil {
			return err
		}
		if len(seals) == 0 {
			fmt.Println("No seals found.")
			return nil
		}

		now := time.Now()
		for _, s := range seals {
			renderSealRow(os.Stdout, s, now)
		}
		return nil
	},
}

var sealFeedCmd = &cobra.Command{
	Use:   "feed",
	Short: "List the most recent seals from every creator",
	RunE: func(cmd *cobra.Command, args []string) error {
		first, _ := cmd.Flags().GetInt("first")
		skip, _ := cmd.Flags().GetInt("skip")

		ctx := cmd.Context()
		a, err := newApp(ctx, "Feed")
		if err != nil {
			return err
		}
		defer a.Close()

		seals, err := a.Feed(ctx, first, skip)
		if err != nil {
			return err
		}

		now := time.Now()
		for _, s := range seals {
			renderSealRow(os.Stdout, s, now)
		}
		return nil
	},
}

// media command
var mediaCmd = &cobra.Command{
	Use:   "media",
	Short: "Manage stored attachments",
}

var mediaAddCmd = &cobra.Command{
	Use:   "add PATH",
	Short: "Upload a file and print its id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "AddMedia")
		if err != nil {
			return err
		}
		defer a.Close()

		asset, err := a.AddMedia(ctx, args[0])
		if err != nil {
			return err
		}
		renderAsset(os.Stdout, asset)
		fmt.Println(asset.ID)
		return nil
	},
}

var mediaShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show an attachment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "ShowMedia")
		if err != nil {
			return err
		}
		defer a.Close()

		asset, err := a.ShowMedia(ctx, args[0])
		if err != nil {
			return err
		}
		renderAsset(os.Stdout, asset)
		return nil
	},
}

var mediaExportCmd = &cobra.Command{
	Use:   "export ID DEST",
	Short: "Copy an attachment to DEST and verify its checksum",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "ExportMedia")
		if err != nil {
			return err
		}
		defer a.Close()

		asset, err := a.ExportMedia(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s written to %s (%d bytes)\n", asset.Name, args[1], asset.Size)
		return nil
	},
}

var mediaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored attachments",
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("type")
		limit, _ := cmd.Flags().GetInt("limit")

		ctx := cmd.Context()
		a, err := newApp(ctx, "ListMedia")
		if err != nil {
			return err
		}
		defer a.Close()

		assets, err := a.ListMedia(ctx, chrono.MediaFilter{Type: chrono.MediaType(kind), Limit: limit})
		if err != nil {
			return err
		}
		if len(assets) == 0 {
			fmt.Println("No attachments.")
			return nil
		}
		for _, asset := range assets {
			renderAsset(os.Stdout, asset)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// wallet subcommands
	walletCmd.AddCommand(walletInitCmd)
	walletCmd.AddCommand(walletAddressCmd)

	// ledger subcommands
	ledgerCmd.AddCommand(ledgerMigrateCmd)
	ledgerCmd.AddCommand(ledgerBackupCmd)
	ledgerCmd.AddCommand(ledgerStatusCmd)
	ledgerCmd.AddCommand(ledgerConfirmCmd)

	// seal subcommands
	sealCmd.AddCommand(sealCreateCmd)
	sealCreateCmd.Flags().StringP("title", "t", "", "Seal title (defaults to the creation time)")
	sealCreateCmd.Flags().StringP("unlock", "u", "", "Unlock time: a duration from now or RFC 3339")
	sealCreateCmd.Flags().StringP("emotion", "e", "", "Mood to record with the seal")
	sealCreateCmd.Flags().StringSlice("tag", nil, "Tag to attach (repeatable)")
	sealCreateCmd.Flags().StringSliceP("file", "f", nil, "File to attach (repeatable)")
	sealCmd.AddCommand(sealShowCmd)
	sealShowCmd.Flags().Bool("force", false, "Reveal a locked seal before its unlock time")
	sealCmd.AddCommand(sealListCmd)
	sealListCmd.Flags().StringP("address", "a", "", "Creator address (defaults to the wallet)")
	sealListCmd.Flags().StringP("search", "s", "", "Case-insensitive text to match in title or content")
	sealListCmd.Flags().String("status", "all", "all, locked or unlocked")
	sealCmd.AddCommand(sealFeedCmd)
	sealFeedCmd.Flags().IntP("first", "n", 20, "Number of seals to show")
	sealFeedCmd.Flags().Int("skip", 0, "Number of seals to skip")

	// media subcommands
	mediaCmd.AddCommand(mediaAddCmd)
	mediaCmd.AddCommand(mediaShowCmd)
	mediaCmd.AddCommand(mediaExportCmd)
	mediaCmd.AddCommand(mediaListCmd)
	mediaListCmd.Flags().String("type", "", "image, audio, video or other")
	mediaListCmd.Flags().IntP("limit", "n", 0, "Maximum number of attachments to show")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(walletCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(sealCmd)
	rootCmd.AddCommand(mediaCmd)
}
