// Package provider holds the capture strategies a backup can run with.
package provider

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rowjay/scenesnap/internal/capture"
	"github.com/rowjay/scenesnap/internal/corpus"
	"github.com/rowjay/scenesnap/internal/scope"
	"github.com/rowjay/scenesnap/internal/snapshot"
)

type Provider interface {
	Name() string
	Capabilities() Capabilities
	Capture(host corpus.Host, sc scope.Scope, categories []snapshot.Category) (*Result, error)
}

type Capabilities struct {
	Categories []snapshot.Category
}

// Supports reports whether the provider can capture c.
func (c Capabilities) Supports(cat snapshot.Category) bool {
	for _, s := range c.Categories {
		if s == cat {
			return true
		}
	}
	return false
}

// Result is a captured snapshot plus the per-category serializer tallies.
type Result struct {
	Snapshot *snapshot.Snapshot
	Stats    map[snapshot.Category]capture.Stats
	// Unsupported lists requested categories the provider cannot capture.
	Unsupported []snapshot.Category
}

type Options struct {
	Log    zerolog.Logger
	Hasher snapshot.Hasher
}

func New(kind string, opts Options) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "full", "default":
		return NewFullProvider(opts), nil
	case "materials", "material-only":
		return NewMaterialsProvider(opts), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", kind)
	}
}

// manifest fills the scope and host fields every provider records.
func manifest(host corpus.Host, sc scope.Scope, name string) snapshot.Manifest {
	m := snapshot.Manifest{
		ScopeKind:      string(sc.Kind),
		TargetIdentity: TargetIdentity(host, sc),
		Provider:       name,
	}
	if env, ok := host.(corpus.Environment); ok {
		m.HostEnvironment = env.Environment()
	}
	return m
}

// TargetIdentity names the captured target: the root node path, or "corpus".
func TargetIdentity(host corpus.Host, sc scope.Scope) string {
	if sc.Kind == scope.EntireCorpus || !sc.Root.Valid() {
		return "corpus"
	}
	if id, ok := host.Identity(sc.Root); ok {
		return id
	}
	return sc.Root.String()
}

func split(categories []snapshot.Category, caps Capabilities) (supported, unsupported []snapshot.Category) {
	for _, c := range categories {
		if caps.Supports(c) {
			supported = append(supported, c)
		} else {
			unsupported = append(unsupported, c)
		}
	}
	return supported, unsupported
}
