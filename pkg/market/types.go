// Package market implements the listing, sales, tax-rate, upload-counter,
// trusted-source, and blacklist stores, plus the data-center aggregator
// that fans queries out across a data center's member worlds.
package market

import "time"

// Materia is a slotted augmentation attached to a listing. Order matters:
// it round-trips through a JSON array and consumers depend on slot order.
type Materia struct {
	SlotID    int32 `json:"slot_id"`
	MateriaID int32 `json:"materia_id"`
}

// Listing is a live auction-house offer.
type Listing struct {
	ListingID       string    `json:"listing_id"`
	WorldID         int32     `json:"world_id"`
	ItemID          int32     `json:"item_id"`
	HQ              bool      `json:"hq"`
	OnMannequin     bool      `json:"on_mannequin"`
	Materia         []Materia `json:"materia"`
	UnitPrice       int32     `json:"unit_price"`
	Quantity        int32     `json:"quantity"`
	DyeID           int32     `json:"dye_id"`
	CreatorID       string    `json:"creator_id"`
	CreatorName     string    `json:"creator_name"`
	LastReviewTime  time.Time `json:"last_review_time"`
	RetainerID      string    `json:"retainer_id"`
	RetainerName    string    `json:"retainer_name"`
	RetainerCityID  int32     `json:"retainer_city_id"`
	SellerID        string    `json:"seller_id"`
	UploadedAt      time.Time `json:"uploaded_at"`
	Source          string    `json:"source"`
}

// Sale is a completed purchase recorded for historical analysis.
type Sale struct {
	WorldID    int32     `json:"world_id"`
	ItemID     int32     `json:"item_id"`
	HQ         bool      `json:"hq"`
	UnitPrice  int32     `json:"unit_price"`
	Quantity   int32     `json:"quantity"`
	BuyerName  string    `json:"buyer_name"`
	SoldAt     time.Time `json:"sold_at"`
}

// TaxRates holds the eight city tax rates uploaded for a world, plus the
// name of the uploading application.
type TaxRates struct {
	WorldID       int32  `json:"world_id"`
	LimsaLominsa  int32  `json:"limsa_lominsa"`
	Gridania      int32  `json:"gridania"`
	Uldah         int32  `json:"uldah"`
	Ishgard       int32  `json:"ishgard"`
	Kugane        int32  `json:"kugane"`
	Crystarium    int32  `json:"crystarium"`
	OldSharlayan  int32  `json:"old_sharlayan"`
	Tuliyollal    int32  `json:"tuliyollal"`
	Source        string `json:"source"`
}

// TaxRatesUpload is what a client sends: any field may be absent, meaning
// "leave unchanged." A nil pointer means absent; a present pointer with a
// value (including zero) overwrites.
type TaxRatesUpload struct {
	LimsaLominsa *int32
	Gridania     *int32
	Uldah        *int32
	Ishgard      *int32
	Kugane       *int32
	Crystarium   *int32
	OldSharlayan *int32
	Tuliyollal   *int32
}

// UploadCountHistory is a process-wide singleton tracking a rolling daily
// upload count, index 0 being today.
type UploadCountHistory struct {
	LastPush time.Time `json:"last_push"`
	Counts   []int64   `json:"counts"`
}

// TrustedSource is an authenticated uploading application.
type TrustedSource struct {
	APIKeyHash  string `json:"api_key_hash"`
	Name        string `json:"name"`
	UploadCount int64  `json:"upload_count"`
}
