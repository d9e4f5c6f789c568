package provider

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rowjay/scenesnap/internal/capture"
	"github.com/rowjay/scenesnap/internal/corpus"
	"github.com/rowjay/scenesnap/internal/scope"
	"github.com/rowjay/scenesnap/internal/snapshot"
)

// FullProvider captures every category, including the asset manifest when the host
// can stream asset bytes.
type FullProvider struct {
	log    zerolog.Logger
	hasher snapshot.Hasher
}

func NewFullProvider(opts Options) *FullProvider {
	if opts.Hasher == nil {
		opts.Hasher = snapshot.SHA256
	}
	return &FullProvider{log: opts.Log, hasher: opts.Hasher}
}

func (p *FullProvider) Name() string { return "full" }

func (p *FullProvider) Capabilities() Capabilities {
	return Capabilities{Categories: append([]snapshot.Category(nil), snapshot.Categories...)}
}

func (p *FullProvider) Capture(host corpus.Host, sc scope.Scope, categories []snapshot.Category) (*Result, error) {
	supported, unsupported := split(categories, p.Capabilities())
	res := &Result{
		Snapshot:    &snapshot.Snapshot{Manifest: manifest(host, sc, p.Name())},
		Stats:       map[snapshot.Category]capture.Stats{},
		Unsupported: unsupported,
	}
	resolver := scope.Resolver{Host: host}
	ser := capture.Serializer{Host: host, Log: p.log}
	snap := res.Snapshot

	for _, c := range supported {
		switch c {
		case snapshot.CategoryMaterials:
			targets, err := resolver.Materials(sc)
			if err != nil {
				return nil, fmt.Errorf("resolve materials: %w", err)
			}
			var stats capture.Stats
			snap.Materials, stats = ser.Materials(targets)
			res.Stats[c] = stats
		case snapshot.CategoryBehaviors:
			targets, err := resolver.Behaviors(sc)
			if err != nil {
				return nil, fmt.Errorf("resolve behaviors: %w", err)
			}
			var stats capture.Stats
			snap.Behaviors, stats = ser.Behaviors(targets)
			res.Stats[c] = stats
		case snapshot.CategoryTextures:
			targets, err := resolver.Textures(sc)
			if err != nil {
				return nil, fmt.Errorf("resolve textures: %w", err)
			}
			var stats capture.Stats
			snap.Textures, stats = ser.Textures(targets)
			res.Stats[c] = stats
		case snapshot.CategoryHierarchy:
			targets, err := resolver.Nodes(sc)
			if err != nil {
				return nil, fmt.Errorf("resolve nodes: %w", err)
			}
			var stats capture.Stats
			snap.Nodes, stats = ser.Nodes(targets)
			res.Stats[c] = stats
		case snapshot.CategoryAssets:
			src, ok := host.(corpus.AssetSource)
			if !ok {
				p.log.Warn().Msg("host cannot stream assets, asset manifest skipped")
				res.Unsupported = append(res.Unsupported, c)
				continue
			}
			paths, err := p.assetPaths(resolver, sc)
			if err != nil {
				return nil, err
			}
			var stats capture.Stats
			snap.Assets, stats = capture.Assets(src, paths, p.hasher, p.log)
			res.Stats[c] = stats
		}
	}
	return res, nil
}

// assetPaths lists the texture assets in scope; they are the only assets with bytes.
func (p *FullProvider) assetPaths(resolver scope.Resolver, sc scope.Scope) ([]string, error) {
	targets, err := resolver.Textures(sc)
	if err != nil {
		return nil, fmt.Errorf("resolve assets: %w", err)
	}
	var paths []string
	for _, t := range targets {
		if t.Restorable {
			paths = append(paths, t.Identity)
		}
	}
	return paths, nil
}
