package remap

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rowjay/scenesnap/internal/capture"
	"github.com/rowjay/scenesnap/internal/corpus"
	"github.com/rowjay/scenesnap/internal/property"
)

// Transfer tallies one property transfer. Every input entry lands in exactly one of
// Transferred, Skipped, NotFound or Failed.
type Transfer struct {
	Transferred int
	Skipped     int
	NotFound    int
	Failed      int
	Messages    []string
}

func (t *Transfer) Add(o Transfer) {
	t.Transferred += o.Transferred
	t.Skipped += o.Skipped
	t.NotFound += o.NotFound
	t.Failed += o.Failed
	t.Messages = append(t.Messages, o.Messages...)
}

// ValueHook may rewrite or reject a decoded value before it is written. Errors
// wrapping corpus.ErrNotFound are tallied as NotFound.
type ValueHook func(key string, v any) (any, error)

// Apply writes entries onto h through the target schema, continuing past failures.
func (m *Remapper) Apply(host corpus.Properties, h corpus.Handle, entries []property.Entry, target []property.Info, hook ValueHook) Transfer {
	names := make([]string, len(target))
	tags := make(map[string]property.Tag, len(target))
	for i, info := range target {
		names[i] = info.Name
		tags[info.Name] = info.Type
	}
	var res Transfer
	for _, e := range entries {
		name, ok := m.Resolve(e.Key, names)
		if !ok {
			res.Skipped++
			continue
		}
		v, err := property.Convert(e, tags[name])
		if err == nil && hook != nil {
			v, err = hook(name, v)
		}
		if err == nil {
			err = host.SetProperty(h, name, v)
		}
		switch {
		case err == nil:
			res.Transferred++
		case errors.Is(err, corpus.ErrNotFound):
			res.NotFound++
			res.Messages = append(res.Messages, fmt.Sprintf("%s -> %s: %v", e.Key, name, err))
		default:
			res.Failed++
			res.Messages = append(res.Messages, fmt.Sprintf("%s -> %s: %v", e.Key, name, err))
		}
	}
	return res
}

// SwapSchema changes the schema of h and carries its current property values over
// to the new schema wherever the remapper finds a home for them.
func SwapSchema(host corpus.Host, h corpus.Handle, schema string, m *Remapper, log zerolog.Logger) (Transfer, error) {
	target, err := host.SchemaProperties(h.Kind, schema)
	if err != nil {
		return Transfer{}, fmt.Errorf("swap %s to %s: %w", h, schema, err)
	}
	entries, unreadable, err := capture.Serializer{Host: host, Log: log}.Properties(h)
	if err != nil {
		return Transfer{}, fmt.Errorf("read %s: %w", h, err)
	}
	from := host.SchemaName(h)
	if err := host.SetSchema(h, schema); err != nil {
		return Transfer{}, fmt.Errorf("swap %s to %s: %w", h, schema, err)
	}
	res := m.Apply(host, h, entries, target, nil)
	res.Skipped += unreadable
	log.Info().
		Str("entity", h.String()).
		Str("from", from).
		Str("to", schema).
		Int("transferred", res.Transferred).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Msg("schema swapped")
	return res, nil
}
