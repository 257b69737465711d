// Package gamedata is the concrete, minimal world.GameDataReader: two CSV
// files (worlds.csv, items.csv) read off disk at startup. The spec treats
// this file format as an external collaborator referenced only by
// capability, so this adapter stays deliberately thin.
package gamedata

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cuemby/universalis/pkg/world"
)

// CSVReader reads worlds.csv and items.csv from a directory.
//
// worlds.csv columns: world_id,world_name,data_center_id,data_center_name,data_center_region,is_public
// items.csv columns:  item_id,stack_size,item_search_category
type CSVReader struct {
	Dir string
}

func (r CSVReader) ReadWorlds() ([]world.GameDataRow, error) {
	records, err := readCSV(filepath.Join(r.Dir, "worlds.csv"))
	if err != nil {
		return nil, err
	}

	rows := make([]world.GameDataRow, 0, len(records))
	for i, rec := range records {
		if len(rec) < 6 {
			return nil, fmt.Errorf("gamedata: worlds.csv row %d: want 6 columns, got %d", i, len(rec))
		}
		worldID, err := strconv.ParseInt(rec[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("gamedata: worlds.csv row %d: world_id: %w", i, err)
		}
		dcID, err := strconv.ParseInt(rec[2], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("gamedata: worlds.csv row %d: data_center_id: %w", i, err)
		}
		isPublic, err := strconv.ParseBool(rec[5])
		if err != nil {
			return nil, fmt.Errorf("gamedata: worlds.csv row %d: is_public: %w", i, err)
		}
		rows = append(rows, world.GameDataRow{
			WorldID:          int32(worldID),
			WorldName:        rec[1],
			DataCenterID:     int32(dcID),
			DataCenterName:   rec[3],
			DataCenterRegion: rec[4],
			IsPublic:         isPublic,
		})
	}
	return rows, nil
}

func (r CSVReader) ReadItems() ([]world.ItemRow, error) {
	records, err := readCSV(filepath.Join(r.Dir, "items.csv"))
	if err != nil {
		return nil, err
	}

	rows := make([]world.ItemRow, 0, len(records))
	for i, rec := range records {
		if len(rec) < 3 {
			return nil, fmt.Errorf("gamedata: items.csv row %d: want 3 columns, got %d", i, len(rec))
		}
		itemID, err := strconv.ParseInt(rec[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("gamedata: items.csv row %d: item_id: %w", i, err)
		}
		stackSize, err := strconv.ParseInt(rec[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("gamedata: items.csv row %d: stack_size: %w", i, err)
		}
		category, err := strconv.ParseInt(rec[2], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("gamedata: items.csv row %d: item_search_category: %w", i, err)
		}
		rows = append(rows, world.ItemRow{
			ItemID:             int32(itemID),
			StackSize:          int32(stackSize),
			ItemSearchCategory: int32(category),
		})
	}
	return rows, nil
}

// readCSV reads path and drops a header row if the first column isn't
// numeric.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gamedata: open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("gamedata: parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	if _, err := strconv.Atoi(records[0][0]); err != nil {
		records = records[1:]
	}
	return records, nil
}
