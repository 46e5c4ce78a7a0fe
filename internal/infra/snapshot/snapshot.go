// Package snapshot encodes the ledger document for durable storage and
// imports every shape the bot has written over time.
//
// Current shape (version 2):
//
//	{"version":2,"weekStart":"…","itemCounters":{…},"goals":{…},"salesTotals":{…},"salesGoal":0}
//
// Older shapes:
//   - version 1: a flat user → item → count object with no top-level keys
//   - intermediate iterations that used quotas/objectifs/ventes/objectifVente/lastReset
package snapshot

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/quotabot/quotabot/internal/domain"
)

func init() {
	// Amounts are written as JSON numbers so the file stays hand-editable.
	decimal.MarshalJSONWithoutQuotes = true
}

// Origin describes which shape a snapshot was decoded from.
type Origin int

const (
	// OriginCurrent is a complete document in the current shape.
	OriginCurrent Origin = iota
	// OriginPartial is the current shape with some keys missing.
	OriginPartial
	// OriginAliased used field names from an earlier iteration.
	OriginAliased
	// OriginLegacy is the flat version 1 counter map.
	OriginLegacy
)

// String returns the metric label for the origin.
func (o Origin) String() string {
	switch o {
	case OriginCurrent:
		return "current"
	case OriginPartial:
		return "partial"
	case OriginAliased:
		return "aliased"
	case OriginLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// NeedsRewrite reports whether the document should be saved again in the current shape.
func (o Origin) NeedsRewrite() bool { return o != OriginCurrent }

// field maps a current top-level key to the names earlier iterations used.
type field struct {
	name    string
	aliases []string
}

var (
	fieldVersion      = field{name: "version"}
	fieldWeekStart    = field{name: "weekStart", aliases: []string{"lastReset"}}
	fieldItemCounters = field{name: "itemCounters", aliases: []string{"quotas"}}
	fieldGoals        = field{name: "goals", aliases: []string{"objectifs"}}
	fieldSalesTotals  = field{name: "salesTotals", aliases: []string{"ventes"}}
	fieldSalesGoal    = field{name: "salesGoal", aliases: []string{"objectifVente"}}

	documentFields = []field{fieldVersion, fieldWeekStart, fieldItemCounters, fieldGoals, fieldSalesTotals, fieldSalesGoal}
)

// Encode serializes doc in the current shape, indented for humans.
func Encode(doc *domain.Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode ledger: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses data in any known shape. Keys missing from data are taken
// from fresh, which is not modified. Errors wrap domain.ErrSnapshotCorrupt.
func Decode(data []byte, fresh *domain.Document) (*domain.Document, Origin, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrSnapshotCorrupt, err)
	}
	if top == nil {
		return nil, 0, fmt.Errorf("%w: document is null", domain.ErrSnapshotCorrupt)
	}

	if !hasAnyField(top) {
		return decodeLegacy(data, fresh)
	}

	doc := fresh.Clone()
	origin := OriginCurrent
	note := func(o Origin) {
		if o > origin {
			origin = o
		}
	}

	for _, f := range documentFields {
		raw, aliased, ok := lookup(top, f)
		switch {
		case !ok:
			note(OriginPartial)
			continue
		case aliased:
			note(OriginAliased)
		}
		if err := decodeField(doc, f, raw); err != nil {
			return nil, 0, fmt.Errorf("%w: %s: %v", domain.ErrSnapshotCorrupt, f.name, err)
		}
	}

	if doc.WeekStart.IsZero() {
		doc.WeekStart = fresh.WeekStart
		note(OriginPartial)
	}
	if doc.Version < domain.DocumentVersion {
		note(OriginPartial)
	}
	doc.Normalize()
	return doc, origin, nil
}

func decodeLegacy(data []byte, fresh *domain.Document) (*domain.Document, Origin, error) {
	var counters domain.OrderedMap[domain.UserID, *domain.ItemCounts]
	if err := json.Unmarshal(data, &counters); err != nil {
		return nil, 0, fmt.Errorf("%w: not a known ledger shape: %v", domain.ErrSnapshotCorrupt, err)
	}
	doc := fresh.Clone()
	doc.ItemCounters = counters
	doc.Normalize()
	return doc, OriginLegacy, nil
}

func hasAnyField(top map[string]json.RawMessage) bool {
	for _, f := range documentFields {
		if _, _, ok := lookup(top, f); ok {
			return true
		}
	}
	return false
}

func lookup(top map[string]json.RawMessage, f field) (raw json.RawMessage, aliased, ok bool) {
	if raw, ok := top[f.name]; ok {
		return raw, false, true
	}
	for _, alias := range f.aliases {
		if raw, ok := top[alias]; ok {
			return raw, true, true
		}
	}
	return nil, false, false
}

func decodeField(doc *domain.Document, f field, raw json.RawMessage) error {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	switch f.name {
	case fieldVersion.name:
		return json.Unmarshal(raw, &doc.Version)
	case fieldWeekStart.name:
		t, err := decodeTime(raw)
		if err != nil {
			return err
		}
		doc.WeekStart = t
		return nil
	case fieldItemCounters.name:
		return json.Unmarshal(raw, &doc.ItemCounters)
	case fieldGoals.name:
		return json.Unmarshal(raw, &doc.Goals)
	case fieldSalesTotals.name:
		return json.Unmarshal(raw, &doc.SalesTotals)
	case fieldSalesGoal.name:
		return json.Unmarshal(raw, &doc.SalesGoal)
	}
	return nil
}

// decodeTime accepts an RFC 3339 string or epoch milliseconds, which is how
// earlier iterations stored their reset marker.
func decodeTime(raw json.RawMessage) (time.Time, error) {
	var t time.Time
	if err := json.Unmarshal(raw, &t); err == nil {
		return t, nil
	}
	ms, err := strconv.ParseInt(string(bytes.TrimSpace(raw)), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("week start %s is neither a timestamp nor epoch milliseconds", raw)
	}
	return time.UnixMilli(ms), nil
}
