package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func int32p(n int32) *int32 { return &n }

func TestMergeTaxRatesUploadPrefersUploadedField(t *testing.T) {
	existing := TaxRates{WorldID: 23, LimsaLominsa: 5, Gridania: 5, Source: "old"}
	upload := TaxRatesUpload{Gridania: int32p(4)}

	merged := MergeTaxRatesUpload(existing, true, upload, 23, "X")

	assert.Equal(t, int32(5), merged.LimsaLominsa, "absent field keeps existing value")
	assert.Equal(t, int32(4), merged.Gridania, "present field overwrites")
	assert.Equal(t, "X", merged.Source)
}

func TestMergeTaxRatesUploadNoExistingDefaultsToZero(t *testing.T) {
	upload := TaxRatesUpload{Uldah: int32p(2)}

	merged := MergeTaxRatesUpload(TaxRates{}, false, upload, 23, "X")

	assert.Equal(t, int32(0), merged.LimsaLominsa)
	assert.Equal(t, int32(2), merged.Uldah)
}
