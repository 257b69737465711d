package upload

import (
	"fmt"

	"github.com/cuemby/universalis/pkg/apierr"
)

// Validate structurally checks a parsed payload: listing prices/quantities
// must be positive, and a listing inherits price<1 rejection before it
// ever reaches ListingStore. This is the upload layer's rejection, not the
// store's.
func Validate(p *Payload) error {
	if p.UploaderID == "" {
		return apierr.New(apierr.BadRequest, "upload.validate", fmt.Errorf("uploader_id is required"))
	}
	for i, l := range p.Listings {
		if l.UnitPrice < 1 {
			return apierr.New(apierr.BadRequest, "upload.validate", fmt.Errorf("listing[%d]: unit_price must be >= 1", i))
		}
		if l.Quantity < 1 {
			return apierr.New(apierr.BadRequest, "upload.validate", fmt.Errorf("listing[%d]: quantity must be >= 1", i))
		}
		if l.ListingID == "" {
			return apierr.New(apierr.BadRequest, "upload.validate", fmt.Errorf("listing[%d]: listing_id is required", i))
		}
	}
	return nil
}
