package market

import (
	"encoding/json"

	"github.com/golang/snappy"
)

// listingCodec encodes/decodes []Listing for the L2 cache tier: JSON then
// Snappy, so values stay small over the wire to a shared Redis instance.
type listingCodec struct{}

func (listingCodec) Encode(v []Listing) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, raw), nil
}

func (listingCodec) Decode(data []byte) ([]Listing, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, err
	}
	var v []Listing
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
