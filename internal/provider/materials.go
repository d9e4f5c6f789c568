package provider

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rowjay/scenesnap/internal/capture"
	"github.com/rowjay/scenesnap/internal/corpus"
	"github.com/rowjay/scenesnap/internal/scope"
	"github.com/rowjay/scenesnap/internal/snapshot"
)

// MaterialsProvider is the fallback for hosts that only expose material properties.
type MaterialsProvider struct {
	log zerolog.Logger
}

func NewMaterialsProvider(opts Options) *MaterialsProvider {
	return &MaterialsProvider{log: opts.Log}
}

func (p *MaterialsProvider) Name() string { return "materials" }

func (p *MaterialsProvider) Capabilities() Capabilities {
	return Capabilities{Categories: []snapshot.Category{snapshot.CategoryMaterials}}
}

func (p *MaterialsProvider) Capture(host corpus.Host, sc scope.Scope, categories []snapshot.Category) (*Result, error) {
	supported, unsupported := split(categories, p.Capabilities())
	res := &Result{
		Snapshot:    &snapshot.Snapshot{Manifest: manifest(host, sc, p.Name())},
		Stats:       map[snapshot.Category]capture.Stats{},
		Unsupported: unsupported,
	}
	if len(unsupported) > 0 {
		p.log.Warn().Interface("categories", unsupported).Msg("provider captures materials only")
	}
	if len(supported) == 0 {
		return res, nil
	}
	targets, err := scope.Resolver{Host: host}.Materials(sc)
	if err != nil {
		return nil, fmt.Errorf("resolve materials: %w", err)
	}
	records, stats := capture.Serializer{Host: host, Log: p.log}.Materials(targets)
	res.Snapshot.Materials = records
	res.Stats[snapshot.CategoryMaterials] = stats
	return res, nil
}
