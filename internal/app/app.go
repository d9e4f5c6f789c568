package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/rowjay/scenesnap/internal/config"
	"github.com/rowjay/scenesnap/internal/corpus"
	"github.com/rowjay/scenesnap/internal/lock"
	"github.com/rowjay/scenesnap/internal/notify"
	"github.com/rowjay/scenesnap/internal/provider"
	"github.com/rowjay/scenesnap/internal/remap"
	"github.com/rowjay/scenesnap/internal/snapshot"
	"github.com/rowjay/scenesnap/internal/storage"
)

// App wires one host scene to the snapshot engine and its outer surfaces.
type App struct {
	Cfg      *config.Config
	Host     corpus.Host
	Provider provider.Provider
	Remapper *remap.Remapper
	// Storage is only needed for export and import.
	Storage  storage.Storage
	Log      zerolog.Logger
	Notifier notify.Notifier
	Progress snapshot.Progress
	// Save persists the host after a mutating operation. It runs while the target
	// lock is held; nil means the host has nothing to persist.
	Save func() error
}

func New(cfg *config.Config, host corpus.Host, prov provider.Provider, store storage.Storage, log zerolog.Logger, notifier notify.Notifier) *App {
	return &App{
		Cfg:      cfg,
		Host:     host,
		Provider: prov,
		Remapper: Remapper(cfg.Remap),
		Storage:  store,
		Log:      log,
		Notifier: notifier,
	}
}

// Remapper builds the schema remapper from the built-in tables and cfg.
func Remapper(cfg config.RemapConfig) *remap.Remapper {
	rules := remap.Rules{Skip: cfg.Skip, Synonyms: cfg.Synonyms}
	if !cfg.NoDefaults {
		rules = remap.DefaultRules().Merge(rules)
	}
	return remap.New(rules)
}

func (a *App) persist() error {
	if a.Save == nil {
		return nil
	}
	if err := a.Save(); err != nil {
		return fmt.Errorf("save host: %w", err)
	}
	return nil
}

func (a *App) lockTarget(identity string) (*lock.Lock, error) {
	return lock.AcquireFor(a.Cfg.Global.LockDir, identity)
}

func (a *App) notify(event notify.Event, start time.Time, opErr error) {
	if a.Notifier == nil {
		return
	}
	event.StartedAt = start
	event.EndedAt = time.Now()
	event.Duration = time.Since(start).String()
	if event.Status == "" {
		event.Status = statusFromErr(opErr)
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}
	if err := a.Notifier.Notify(context.Background(), event); err != nil {
		a.Log.Warn().Err(err).Str("event", event.Type).Msg("notification failed")
	}
}

// resolveSnapshot accepts a snapshot path or a folder name under the snapshot root.
func (a *App) resolveSnapshot(name string) (string, error) {
	if name == "" {
		return "", errors.New("snapshot name is required")
	}
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}
	candidate := filepath.Join(a.Cfg.Snapshot.Root, name)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	return "", fmt.Errorf("snapshot not found: %s", name)
}

// Latest returns the newest complete snapshot under the snapshot root.
func (a *App) Latest() (string, error) {
	infos, err := snapshot.List(a.Cfg.Snapshot.Root)
	if err != nil {
		return "", err
	}
	for _, info := range infos {
		if info.Complete {
			return info.Path, nil
		}
	}
	return "", fmt.Errorf("no complete snapshot in %s", a.Cfg.Snapshot.Root)
}

func (a *App) List() ([]snapshot.Info, error) {
	return snapshot.List(a.Cfg.Snapshot.Root)
}

func countsOf(m snapshot.Manifest) map[string]int {
	out := make(map[string]int, len(m.Counts))
	for c, n := range m.Counts {
		out[string(c)] = n
	}
	return out
}

func names(categories []snapshot.Category) []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = string(c)
	}
	return out
}

func statusFromErr(err error) string {
	if err == nil {
		return "success"
	}
	return "failed"
}
