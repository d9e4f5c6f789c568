package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rowjay/scenesnap/internal/app"
	"github.com/rowjay/scenesnap/internal/config"
	"github.com/rowjay/scenesnap/internal/corpus/memory"
	"github.com/rowjay/scenesnap/internal/logging"
	"github.com/rowjay/scenesnap/internal/notify"
	"github.com/rowjay/scenesnap/internal/provider"
	"github.com/rowjay/scenesnap/internal/scope"
	"github.com/rowjay/scenesnap/internal/snapshot"
	"github.com/rowjay/scenesnap/internal/storage"
	"github.com/rowjay/scenesnap/internal/version"
)

type rootFlags struct {
	ConfigPath string
	ScenePath  string
	LogLevel   string
	LogFormat  string
	Progress   bool
}

type overrideFlags struct {
	SnapshotRoot  string
	Storage       string
	LocalPath     string
	S3Endpoint    string
	S3Bucket      string
	S3AccessKey   string
	S3SecretKey   string
	S3Region      string
	S3UseSSL      string
	S3PathStyle   string
	EncryptionKey string
}

func main() {
	root := &rootFlags{}
	overrides := &overrideFlags{}

	rootCmd := &cobra.Command{
		Use:          "snap",
		Short:        "Snapshot and restore scene state",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&root.ConfigPath, "config", "", "Path to config file (yaml/toml/json or .enc)")
	rootCmd.PersistentFlags().StringVar(&root.ScenePath, "scene", "", "Scene document to operate on")
	rootCmd.PersistentFlags().StringVar(&root.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&root.LogFormat, "log-format", "", "Log format (json, console)")
	rootCmd.PersistentFlags().BoolVar(&root.Progress, "progress", false, "Print progress to stderr")

	rootCmd.PersistentFlags().StringVar(&overrides.SnapshotRoot, "snapshot-root", "", "Folder that holds snapshot folders")
	rootCmd.PersistentFlags().StringVar(&overrides.Storage, "storage", "", "Export storage backend (local, s3)")
	rootCmd.PersistentFlags().StringVar(&overrides.LocalPath, "storage-path", "", "Local export storage path")
	rootCmd.PersistentFlags().StringVar(&overrides.S3Endpoint, "s3-endpoint", "", "S3 endpoint (MinIO/OSS)")
	rootCmd.PersistentFlags().StringVar(&overrides.S3Bucket, "s3-bucket", "", "S3 bucket")
	rootCmd.PersistentFlags().StringVar(&overrides.S3AccessKey, "s3-access-key", "", "S3 access key")
	rootCmd.PersistentFlags().StringVar(&overrides.S3SecretKey, "s3-secret-key", "", "S3 secret key")
	rootCmd.PersistentFlags().StringVar(&overrides.S3Region, "s3-region", "", "S3 region")
	rootCmd.PersistentFlags().StringVar(&overrides.S3UseSSL, "s3-ssl", "", "Use SSL for S3 endpoint (true/false)")
	rootCmd.PersistentFlags().StringVar(&overrides.S3PathStyle, "s3-path-style", "", "Force path-style S3 (true/false)")
	rootCmd.PersistentFlags().StringVar(&overrides.EncryptionKey, "encryption-key", "", "Encryption key (base64 or hex) for exports")

	rootCmd.AddCommand(newBackupCmd(root, overrides))
	rootCmd.AddCommand(newRestoreCmd(root, overrides))
	rootCmd.AddCommand(newSwapSchemaCmd(root, overrides))
	rootCmd.AddCommand(newListCmd(root, overrides))
	rootCmd.AddCommand(newPruneCmd(root, overrides))
	rootCmd.AddCommand(newBundleCmd(root, overrides))
	rootCmd.AddCommand(newExportCmd(root, overrides))
	rootCmd.AddCommand(newImportCmd(root, overrides))
	rootCmd.AddCommand(newExportsCmd(root, overrides))
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// session is everything one command needs: config, logger, the loaded scene and the app.
type session struct {
	cfg    *config.Config
	log    zerolog.Logger
	scene  *memory.Scene
	app    *app.App
	cancel context.CancelFunc
	ctx    context.Context
}

func (s *session) Close() { s.cancel() }

// open loads config and builds the app. needScene is false for commands that only
// touch snapshot folders or export storage.
func open(root *rootFlags, overrides *overrideFlags, needScene, needStorage bool) (*session, error) {
	cfg, err := loadConfig(root, overrides)
	if err != nil {
		return nil, err
	}
	logger := logging.Configure(cfg.Global.LogLevel, cfg.Global.LogFormat)

	scene := memory.New()
	if needScene {
		if cfg.Global.Scene == "" {
			return nil, errors.New("no scene document: set --scene or global.scene")
		}
		scene, err = memory.Load(cfg.Global.Scene)
		if err != nil {
			return nil, err
		}
	}

	prov, err := provider.New(cfg.Snapshot.Provider, provider.Options{Log: logger})
	if err != nil {
		return nil, err
	}
	var store storage.Storage
	if needStorage {
		store, err = storage.New(cfg.Storage)
		if err != nil {
			return nil, err
		}
	}
	appSvc := app.New(cfg, scene, prov, store, logger, notify.FromConfig(cfg.Notifications))
	if needScene {
		appSvc.Save = func() error {
			if err := memory.Save(scene, cfg.Global.Scene); err != nil {
				return err
			}
			logger.Info().Str("scene", cfg.Global.Scene).Msg("scene saved")
			return nil
		}
	}
	if root.Progress {
		appSvc.Progress = printProgress
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Global.OperationTimeout)
	return &session{cfg: cfg, log: logger, scene: scene, app: appSvc, ctx: ctx, cancel: cancel}, nil
}

func printProgress(message string, fraction float64) {
	fmt.Fprintf(os.Stderr, "[%3.0f%%] %s\n", fraction*100, message)
}

func newBackupCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	var scopeName, target, label, prov string
	var categories []string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Capture a snapshot of the scene",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(root, overrides, true, false)
			if err != nil {
				return err
			}
			defer s.Close()
			if scopeName != "" {
				s.cfg.Snapshot.Scope = scopeName
			}
			if target != "" {
				s.cfg.Snapshot.Target = target
			}
			if label != "" {
				s.cfg.Snapshot.Label = label
			}
			if len(categories) > 0 {
				s.cfg.Snapshot.Categories = categories
			}
			if prov != "" {
				p, err := provider.New(prov, provider.Options{Log: s.log})
				if err != nil {
					return err
				}
				s.app.Provider = p
			}

			sc, err := buildScope(s.scene, s.cfg.Snapshot)
			if err != nil {
				return err
			}
			res, err := s.app.Backup(s.ctx, sc)
			if err != nil {
				return err
			}
			fmt.Println(res.Dir)
			for c, cerr := range res.Failed {
				s.log.Error().Err(cerr).Str("category", string(c)).Msg("category not written")
			}
			if len(res.Failed) > 0 {
				return fmt.Errorf("%d categories failed", len(res.Failed))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&scopeName, "scope", "", "Scope (corpus, entity, subtree)")
	cmd.Flags().StringVar(&target, "target", "", "Node path for entity and subtree scopes")
	cmd.Flags().StringSliceVar(&categories, "categories", nil, "Categories to capture (materials, behaviors, textures, hierarchy, assets)")
	cmd.Flags().StringVar(&label, "label", "", "Snapshot label")
	cmd.Flags().StringVar(&prov, "provider", "", "Capture provider (full, materials)")
	return cmd
}

func buildScope(scene *memory.Scene, cfg config.SnapshotConfig) (scope.Scope, error) {
	kind, err := scope.ParseKind(cfg.Scope)
	if err != nil {
		return scope.Scope{}, err
	}
	if kind == scope.EntireCorpus {
		return scope.Corpus(), nil
	}
	if cfg.Target == "" {
		return scope.Scope{}, fmt.Errorf("scope %s needs a target node path", kind)
	}
	h, ok := scene.FindNode(cfg.Target)
	if !ok {
		return scope.Scope{}, fmt.Errorf("target node not found: %s", cfg.Target)
	}
	if kind == scope.SingleEntity {
		return scope.Entity(h), nil
	}
	return scope.Subtree(h), nil
}

func newRestoreCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	var dryRun, requireManifest, noSave bool
	var categories []string

	cmd := &cobra.Command{
		Use:   "restore <snapshot|latest>",
		Short: "Restore a snapshot onto the scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(root, overrides, true, false)
			if err != nil {
				return err
			}
			defer s.Close()
			if dryRun {
				s.cfg.Restore.DryRun = true
			}
			if requireManifest {
				s.cfg.Restore.RequireManifest = true
			}
			if noSave {
				s.cfg.Restore.SaveScene = false
			}
			if len(categories) > 0 {
				s.cfg.Restore.Categories = categories
			}

			name := args[0]
			if name == "latest" {
				if name, err = s.app.Latest(); err != nil {
					return err
				}
			}
			sum, err := s.app.Restore(s.ctx, name)
			if sum != nil {
				fmt.Print(sum.String())
			}
			if err != nil {
				return err
			}
			if !sum.OK() {
				return errors.New("restore finished with failures")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would change without touching the scene")
	cmd.Flags().BoolVar(&requireManifest, "require-manifest", false, "Refuse snapshots without a manifest")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Leave the scene document untouched after restoring")
	cmd.Flags().StringSliceVar(&categories, "categories", nil, "Categories to restore")
	return cmd
}

func newSwapSchemaCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "swap-schema <material> <shader>",
		Short: "Switch a material to another shader, carrying its values over",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(root, overrides, true, false)
			if err != nil {
				return err
			}
			defer s.Close()
			res, err := s.app.SwapSchema(s.ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("transferred=%d skipped=%d not_found=%d failed=%d\n", res.Transferred, res.Skipped, res.NotFound, res.Failed)
			return nil
		},
	}
}

func newListCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots under the snapshot root",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(root, overrides, false, false)
			if err != nil {
				return err
			}
			defer s.Close()
			items, err := s.app.List()
			if err != nil {
				return err
			}
			for _, item := range items {
				state := "complete"
				if !item.Complete {
					state = "incomplete"
				}
				target := "-"
				if item.Manifest != nil && item.Manifest.TargetIdentity != "" {
					target = item.Manifest.TargetIdentity
				}
				fmt.Printf("%s\t%s\t%s\t%s\t%s\n", item.Name, target, humanize.Bytes(uint64(item.SizeBytes)), item.Modified.Format(time.RFC3339), state)
			}
			return nil
		},
	}
}

func newPruneCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete snapshots beyond the retention policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(root, overrides, false, false)
			if err != nil {
				return err
			}
			defer s.Close()
			pruned, err := s.app.Prune(s.ctx)
			if err != nil {
				return err
			}
			for _, item := range pruned {
				fmt.Println(item.Path)
			}
			return nil
		},
	}
}

func newBundleCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "bundle <snapshot> <file>",
		Short: "Write a snapshot as a single-file bundle (.json, .json.gz or .json.zst)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(root, overrides, false, false)
			if err != nil {
				return err
			}
			defer s.Close()
			loaded, err := snapshot.Open(args[0], snapshot.OpenOptions{RequireManifest: true})
			if err != nil {
				return err
			}
			if err := snapshot.WriteBundle(args[1], loaded.Snapshot); err != nil {
				return err
			}
			s.log.Info().Str("bundle", args[1]).Msg("bundle written")
			return nil
		},
	}
}

func newExportCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	var compression string
	var encrypt bool

	cmd := &cobra.Command{
		Use:   "export <snapshot|latest>",
		Short: "Archive a snapshot into export storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(root, overrides, false, true)
			if err != nil {
				return err
			}
			defer s.Close()
			if compression != "" {
				s.cfg.Export.Compression = strings.ToLower(compression)
			}
			if encrypt {
				s.cfg.Export.Encryption = true
			}
			name := args[0]
			if name == "latest" {
				if name, err = s.app.Latest(); err != nil {
					return err
				}
			}
			res, err := s.app.Export(s.ctx, name)
			if err != nil {
				return err
			}
			fmt.Println(res.Key)
			return nil
		},
	}
	cmd.Flags().StringVar(&compression, "compression", "", "Compression (none/gzip/zstd)")
	cmd.Flags().BoolVar(&encrypt, "encrypt", false, "Encrypt the archive")
	return cmd
}

func newImportCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <key>",
		Short: "Download an exported archive into the snapshot root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(root, overrides, false, true)
			if err != nil {
				return err
			}
			defer s.Close()
			dest, err := s.app.Import(s.ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(dest)
			return nil
		},
	}
}

func newExportsCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "exports",
		Short: "List exported archives",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(root, overrides, false, true)
			if err != nil {
				return err
			}
			defer s.Close()
			items, err := s.app.Exports(s.ctx)
			if err != nil {
				return err
			}
			for _, item := range items {
				target := item.TargetIdentity
				if target == "" {
					target = "-"
				}
				fmt.Printf("%s\t%s\t%s\t%s\n", item.Key, target, humanize.Bytes(uint64(item.SizeBytes)), item.ExportedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	var input string
	var output string
	var key string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Config utilities",
	}

	required := func() error {
		if input == "" || output == "" || key == "" {
			return fmt.Errorf("--input, --output, and --key are required")
		}
		return nil
	}
	encrypt := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := required(); err != nil {
				return err
			}
			return config.EncryptConfigFile(input, output, key)
		},
	}
	decrypt := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := required(); err != nil {
				return err
			}
			return config.DecryptConfigFile(input, output, key)
		},
	}
	for _, c := range []*cobra.Command{encrypt, decrypt} {
		c.Flags().StringVar(&input, "input", "", "Input config file")
		c.Flags().StringVar(&output, "output", "", "Output config file")
		c.Flags().StringVar(&key, "key", "", "Encryption key (base64:, hex:, file: or env:)")
	}

	cmd.AddCommand(encrypt, decrypt)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("snap %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

func loadConfig(root *rootFlags, overrides *overrideFlags) (*config.Config, error) {
	cfg, err := config.Load(root.ConfigPath)
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, root, overrides)
	return cfg, nil
}

func applyOverrides(cfg *config.Config, root *rootFlags, overrides *overrideFlags) {
	if root.LogLevel != "" {
		cfg.Global.LogLevel = root.LogLevel
	}
	if root.LogFormat != "" {
		cfg.Global.LogFormat = root.LogFormat
	}
	if root.ScenePath != "" {
		cfg.Global.Scene = root.ScenePath
	}
	if overrides.SnapshotRoot != "" {
		cfg.Snapshot.Root = overrides.SnapshotRoot
	}

	if overrides.Storage != "" {
		cfg.Storage.Backend = overrides.Storage
	}
	if overrides.LocalPath != "" {
		cfg.Storage.Local.Path = overrides.LocalPath
	}
	if overrides.S3Endpoint != "" {
		cfg.Storage.S3.Endpoint = overrides.S3Endpoint
	}
	if overrides.S3Bucket != "" {
		cfg.Storage.S3.Bucket = overrides.S3Bucket
	}
	if overrides.S3AccessKey != "" {
		cfg.Storage.S3.AccessKey = overrides.S3AccessKey
	}
	if overrides.S3SecretKey != "" {
		cfg.Storage.S3.SecretKey = overrides.S3SecretKey
	}
	if overrides.S3Region != "" {
		cfg.Storage.S3.Region = overrides.S3Region
	}
	if overrides.S3UseSSL != "" {
		cfg.Storage.S3.UseSSL = parseBool(overrides.S3UseSSL)
	}
	if overrides.S3PathStyle != "" {
		cfg.Storage.S3.ForcePathStyle = parseBool(overrides.S3PathStyle)
	}
	if overrides.EncryptionKey != "" {
		cfg.Export.EncryptionKey = overrides.EncryptionKey
	}

	cfg.Snapshot.Provider = strings.ToLower(cfg.Snapshot.Provider)
	cfg.Export.Compression = strings.ToLower(cfg.Export.Compression)
	cfg.Storage.Backend = strings.ToLower(cfg.Storage.Backend)
}

func parseBool(s string) bool {
	return strings.EqualFold(s, "true") || s == "1"
}
