package persistence

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"

	"github.com/talgya/wellspring/internal/catalog"
	"github.com/talgya/wellspring/internal/engine"
)

// SchemaVersion is written into every snapshot. Older snapshots are migrated on load.
const SchemaVersion = 2

// document is the stored form of a session. Ids are plain strings so that
// snapshots written against an older catalog still decode.
type document struct {
	Version   int                         `json:"version"`
	Resources engine.Resources            `json:"resources"`
	Stats     engine.Stats                `json:"stats"`
	Buildings map[string]*engine.Building `json:"buildings"`
	Upgrades  struct {
		Available []string `json:"available"`
		Purchased []string `json:"purchased"`
	} `json:"upgrades"`
}

// encode serializes st into a compressed blob and its checksum.
// The active event is not part of a snapshot.
func encode(st engine.State) ([]byte, string, error) {
	doc := document{
		Version:   SchemaVersion,
		Resources: st.Resources,
		Stats:     st.Stats,
		Buildings: make(map[string]*engine.Building, len(st.Buildings)),
	}
	for id, b := range st.Buildings {
		doc.Buildings[string(id)] = b
	}
	for _, id := range st.Upgrades.Available {
		doc.Upgrades.Available = append(doc.Upgrades.Available, string(id))
	}
	for _, id := range st.Upgrades.Purchased {
		doc.Upgrades.Purchased = append(doc.Upgrades.Purchased, string(id))
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, "", fmt.Errorf("marshal snapshot: %w", err)
	}
	blob, err := compress(raw)
	if err != nil {
		return nil, "", err
	}
	return blob, checksum(blob), nil
}

// decode verifies, decompresses and migrates a stored blob.
func decode(blob []byte, sum string) (engine.State, error) {
	if checksum(blob) != sum {
		return engine.State{}, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	raw, err := decompress(blob)
	if err != nil {
		return engine.State{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return engine.State{}, fmt.Errorf("%w: decode snapshot: %v", ErrCorrupt, err)
	}
	if doc.Version > SchemaVersion {
		return engine.State{}, fmt.Errorf("%w: snapshot version %d is newer than %d", ErrCorrupt, doc.Version, SchemaVersion)
	}
	return migrate(doc), nil
}

// migrate turns a document of any known version into a current State.
// Buildings missing from the snapshot start unowned, unknown building and
// upgrade ids are dropped, and static fields come from the catalog.
func migrate(doc document) engine.State {
	st := engine.NewState()
	st.Resources = doc.Resources
	st.Stats = doc.Stats

	for _, def := range catalog.Buildings() {
		saved, ok := doc.Buildings[string(def.ID)]
		if !ok || saved == nil {
			continue
		}
		b := st.Buildings[def.ID]
		b.Count = max(saved.Count, 0)
		b.Cost = saved.Cost
		b.ProductionRate = saved.ProductionRate
		b.PollutionRate = saved.PollutionRate
		// Version 1 snapshots had no base fields; keep the catalog values then.
		if doc.Version >= 2 {
			b.BaseCost = saved.BaseCost
			b.BaseProduction = saved.BaseProduction
			b.BasePollution = saved.BasePollution
		}
		if b.Cost <= 0 {
			b.Cost = b.BaseCost
		}
	}

	var purchased []catalog.UpgradeID
	for _, raw := range doc.Upgrades.Purchased {
		id := catalog.UpgradeID(raw)
		if _, ok := catalog.LookupUpgrade(id); ok && !slices.Contains(purchased, id) {
			purchased = append(purchased, id)
		}
	}
	var available []catalog.UpgradeID
	for _, raw := range doc.Upgrades.Available {
		id := catalog.UpgradeID(raw)
		if _, ok := catalog.LookupUpgrade(id); !ok {
			continue
		}
		if slices.Contains(purchased, id) || slices.Contains(available, id) {
			continue
		}
		available = append(available, id)
	}
	if purchased != nil {
		st.Upgrades.Purchased = purchased
	}
	if available != nil {
		st.Upgrades.Available = available
	}

	if st.Stats.Day < 1 {
		st.Stats.Day = 1
	}
	if st.Stats.Forecast == "" {
		st.Stats.Forecast = engine.ForecastLabel(st.Stats.Day)
	}
	st.Stats.AquiferLevel = max(0, min(100, st.Stats.AquiferLevel))
	st.Stats.PollutionLevel = max(0, min(100, st.Stats.PollutionLevel))
	st.Stats.EcoScore = max(0, min(100, st.Stats.EcoScore))
	return st
}

func compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(src); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(src []byte) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(src))
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	return out, nil
}

func checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
