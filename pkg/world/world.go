// Package world holds the static world/data-center/region catalog and the
// token resolver used to fan queries out across a data center.
package world

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// World is a single game shard.
type World struct {
	ID   int32
	Name string
}

// DataCenter is a named grouping of worlds sharing market infrastructure.
type DataCenter struct {
	Name     string
	Region   string
	WorldIDs map[int32]struct{}
}

// Region is a coarse geographic grouping of data centers.
//
// Region id 6 ("Eorzea") appears in the upstream game data with a
// question-mark comment and no documented meaning. It is preserved here
// literally; do not infer one.
type Region struct {
	ID   uint8
	Name string
}

// forceIncludedWorlds are public-but-unflagged in the source game data and
// must be included regardless of their IsPublic bit.
var forceIncludedWorlds = map[int32]struct{}{
	408: {}, 409: {}, 410: {}, 411: {},
}

// excludedWorlds collide with other catalog entries and must never be
// included even if the game data marks them public.
var excludedWorlds = map[int32]struct{}{
	25: {}, // "Chaos" collision
}

// staticRegions are regions absent from the game-data file (served players
// on Chinese and Korean infrastructure, tracked out-of-band).
var staticRegions = []Region{
	{ID: 4, Name: "中国"},
	{ID: 5, Name: "한국"},
	{ID: 6, Name: "Eorzea"}, // meaning undocumented upstream; preserved as-is
}

// GameDataRow is the minimal shape the GameDataReader capability must supply
// per world; it mirrors the upstream worldtable/DC sheets closely enough to
// apply the loading rules without depending on a concrete file reader.
type GameDataRow struct {
	WorldID          int32
	WorldName        string
	DataCenterID     int32
	DataCenterName   string
	DataCenterRegion string
	IsPublic         bool
}

// ItemRow is the minimal shape needed from the item catalog.
type ItemRow struct {
	ItemID              int32
	StackSize           int32
	ItemSearchCategory  int32 // row id; >=1 means marketable
}

// GameDataReader is the external collaborator that reads the game-data
// file(s) this catalog is loaded from. Only referenced by capability, per
// the hard core's scope boundary.
type GameDataReader interface {
	ReadWorlds() ([]GameDataRow, error)
	ReadItems() ([]ItemRow, error)
}

// Resolver is the immutable, lock-free WorldDcResolver. It is built once at
// startup and handed out as a read-only snapshot; there is no public mutator.
type Resolver struct {
	worldsByID    map[int32]string
	worldsByName  map[string]int32
	worldIDs      []int32
	marketable    []int32
	stackSizes    map[int32]int32
	dcs           []DataCenter
	dcByLowerName map[string]DataCenter
	regions       []Region
}

// WorldOrDcKind discriminates the union returned by Resolve.
type WorldOrDcKind int

const (
	KindWorld WorldOrDcKind = iota
	KindDc
)

// WorldOrDc is the disjoint union produced by resolving a token.
type WorldOrDc struct {
	Kind    WorldOrDcKind
	WorldID int32  // valid when Kind == KindWorld
	Dc      string // valid when Kind == KindDc
}

// ErrNotFound is returned by Resolve when a token matches neither a world
// nor a data center.
var ErrNotFound = fmt.Errorf("world: token not found")

// Load builds a Resolver from a GameDataReader in one shot. It never
// mutates its inputs after returning and the result is safe for concurrent
// use without locking.
func Load(reader GameDataReader) (*Resolver, error) {
	worldRows, err := reader.ReadWorlds()
	if err != nil {
		return nil, fmt.Errorf("world: read worlds: %w", err)
	}
	itemRows, err := reader.ReadItems()
	if err != nil {
		return nil, fmt.Errorf("world: read items: %w", err)
	}

	r := &Resolver{
		worldsByID:    make(map[int32]string),
		worldsByName:  make(map[string]int32),
		stackSizes:    make(map[int32]int32),
		dcByLowerName: make(map[string]DataCenter),
	}

	dcWorlds := make(map[string]map[int32]struct{})
	dcMeta := make(map[string]GameDataRow)

	for _, row := range worldRows {
		if _, excluded := excludedWorlds[row.WorldID]; excluded {
			continue
		}

		_, forced := forceIncludedWorlds[row.WorldID]
		include := forced || (row.DataCenterID > 0 && row.IsPublic)
		if !include {
			continue
		}

		r.worldsByID[row.WorldID] = row.WorldName
		r.worldsByName[row.WorldName] = row.WorldID
		r.worldIDs = append(r.worldIDs, row.WorldID)

		if row.DataCenterID > 0 && row.DataCenterID < 99 {
			if dcWorlds[row.DataCenterName] == nil {
				dcWorlds[row.DataCenterName] = make(map[int32]struct{})
			}
			dcWorlds[row.DataCenterName][row.WorldID] = struct{}{}
			dcMeta[row.DataCenterName] = row
		}
	}

	for name, ids := range dcWorlds {
		if len(ids) == 0 {
			continue
		}
		dc := DataCenter{
			Name:     name,
			Region:   dcMeta[name].DataCenterRegion,
			WorldIDs: ids,
		}
		r.dcs = append(r.dcs, dc)
		r.dcByLowerName[strings.ToLower(name)] = dc
	}

	for _, item := range itemRows {
		if item.ItemSearchCategory >= 1 {
			r.marketable = append(r.marketable, item.ItemID)
			r.stackSizes[item.ItemID] = item.StackSize
		}
	}

	r.regions = append(r.regions, staticRegions...)

	sort.Slice(r.worldIDs, func(i, j int) bool { return r.worldIDs[i] < r.worldIDs[j] })
	sort.Slice(r.marketable, func(i, j int) bool { return r.marketable[i] < r.marketable[j] })
	sort.Slice(r.dcs, func(i, j int) bool { return r.dcs[i].Name < r.dcs[j].Name })

	return r, nil
}

// WorldsByID returns a fresh copy of the id->name map.
func (r *Resolver) WorldsByID() map[int32]string {
	out := make(map[int32]string, len(r.worldsByID))
	for k, v := range r.worldsByID {
		out[k] = v
	}
	return out
}

// WorldsByName returns a fresh copy of the name->id map.
func (r *Resolver) WorldsByName() map[string]int32 {
	out := make(map[string]int32, len(r.worldsByName))
	for k, v := range r.worldsByName {
		out[k] = v
	}
	return out
}

// WorldIDs returns the sorted set of known world ids.
func (r *Resolver) WorldIDs() []int32 {
	out := make([]int32, len(r.worldIDs))
	copy(out, r.worldIDs)
	return out
}

// MarketableItems returns the sorted set of marketable item ids.
func (r *Resolver) MarketableItems() []int32 {
	out := make([]int32, len(r.marketable))
	copy(out, r.marketable)
	return out
}

// IsMarketable reports whether item is a known marketable item.
func (r *Resolver) IsMarketable(item int32) bool {
	_, ok := r.stackSizes[item]
	return ok
}

// StackSize returns the stack size for a marketable item, or 0 if unknown.
func (r *Resolver) StackSize(item int32) int32 {
	return r.stackSizes[item]
}

// DataCenters returns the loaded data centers in stable, name-sorted order.
func (r *Resolver) DataCenters() []DataCenter {
	out := make([]DataCenter, len(r.dcs))
	copy(out, r.dcs)
	return out
}

// DataCenterByName returns a defensive copy of the data center named name
// (case-insensitive), as produced by a KindDc Resolve result.
func (r *Resolver) DataCenterByName(name string) (DataCenter, bool) {
	dc, ok := r.dcByLowerName[strings.ToLower(name)]
	if !ok {
		return DataCenter{}, false
	}
	ids := make(map[int32]struct{}, len(dc.WorldIDs))
	for id := range dc.WorldIDs {
		ids[id] = struct{}{}
	}
	return DataCenter{Name: dc.Name, Region: dc.Region, WorldIDs: ids}, true
}

// Regions returns the static region catalog.
func (r *Resolver) Regions() []Region {
	out := make([]Region, len(r.regions))
	copy(out, r.regions)
	return out
}

// normalizeName applies the canonical "upper(first) + lower(rest)" form,
// ASCII-only, once (see spec design notes on world-name normalization).
func normalizeName(s string) string {
	if s == "" {
		return s
	}
	first := strings.ToUpper(s[:1])
	rest := strings.ToLower(s[1:])
	return first + rest
}

// Resolve parses a "worldOrDc" token into a World or a Dc, in that
// preference order: numeric world id, then world name, then data center
// name (case-insensitive exact match).
func (r *Resolver) Resolve(token string) (WorldOrDc, error) {
	if token == "" {
		return WorldOrDc{}, ErrNotFound
	}

	if n, err := strconv.Atoi(token); err == nil && n > 0 {
		if _, ok := r.worldsByID[int32(n)]; ok {
			return WorldOrDc{Kind: KindWorld, WorldID: int32(n)}, nil
		}
	}

	normalized := normalizeName(token)
	if id, ok := r.worldsByName[normalized]; ok {
		return WorldOrDc{Kind: KindWorld, WorldID: id}, nil
	}

	if dc, ok := r.dcByLowerName[strings.ToLower(token)]; ok {
		return WorldOrDc{Kind: KindDc, Dc: dc.Name}, nil
	}

	return WorldOrDc{}, ErrNotFound
}
