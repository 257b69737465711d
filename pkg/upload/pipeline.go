// Package upload implements the upload pipeline: authentication, uploader
// hashing, blacklist short-circuit, and an ordered chain of behaviors that
// each decide independently whether an uploaded payload concerns them.
package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/cuemby/universalis/pkg/apierr"
	"github.com/cuemby/universalis/pkg/log"
	"github.com/cuemby/universalis/pkg/market"
	"github.com/cuemby/universalis/pkg/metrics"
)

// Payload is the parsed, structurally-validated upload body.
type Payload struct {
	WorldID   *int32
	ItemID    *int32
	UploaderID string
	Listings  []market.Listing
	Entries   []market.Sale
	TaxRates  *market.TaxRatesUpload
}

// Behavior is one unit of upload side-effects. ShouldExecute is consulted
// before Execute on every behavior, every upload, in pipeline order.
type Behavior interface {
	Name() string
	ShouldExecute(p *Payload) bool
	Execute(ctx context.Context, source market.TrustedSource, p *Payload) error
}

// Authenticator resolves an API key to its trusted source. Satisfied by
// *market.SourceRegistry; an interface here keeps the pipeline testable
// without a database.
type Authenticator interface {
	Get(ctx context.Context, apiKey string) (market.TrustedSource, error)
}

// BlacklistChecker tests uploader-hash membership. Satisfied by
// *market.BlacklistStore.
type BlacklistChecker interface {
	Has(ctx context.Context, hash string) (bool, error)
}

// Pipeline authenticates, hashes, checks the blacklist, then runs its
// behaviors in order. It is fail-fast with partial-commit semantics:
// earlier behaviors are not rolled back when a later one fails, and the
// first failing behavior stops the remaining ones from running.
type Pipeline struct {
	sources   Authenticator
	blacklist BlacklistChecker
	behaviors []Behavior
}

// NewPipeline builds a Pipeline over the given registry, blacklist, and
// ordered behavior list.
func NewPipeline(sources Authenticator, blacklist BlacklistChecker, behaviors ...Behavior) *Pipeline {
	return &Pipeline{sources: sources, blacklist: blacklist, behaviors: behaviors}
}

// UploaderHash returns sha256(uploaderID) as a hex string, the opaque
// identity used for blacklisting.
func UploaderHash(uploaderID string) string {
	sum := sha256.Sum256([]byte(uploaderID))
	return hex.EncodeToString(sum[:])
}

// Run executes the pipeline for one upload: authenticate, hash, check the
// blacklist, then run behaviors in order. A blacklisted uploader's upload
// succeeds with no side-effects at all, including no registry increment.
func (p *Pipeline) Run(ctx context.Context, apiKey string, payload *Payload) error {
	source, err := p.sources.Get(ctx, apiKey)
	if err != nil {
		return err
	}

	if err := Validate(payload); err != nil {
		return err
	}

	hash := UploaderHash(payload.UploaderID)
	blacklisted, err := p.blacklist.Has(ctx, hash)
	if err != nil {
		return err
	}
	if blacklisted {
		log.Debug("upload from blacklisted uploader suppressed")
		return nil
	}

	for _, b := range p.behaviors {
		if !b.ShouldExecute(payload) {
			continue
		}
		timer := metrics.NewTimer()
		err := b.Execute(ctx, source, payload)
		timer.ObserveDurationVec(metrics.UploadBehaviorDuration, b.Name())
		if err != nil {
			metrics.UploadsTotal.WithLabelValues(apierr.KindOf(err).String()).Inc()
			return err
		}
	}

	metrics.UploadsTotal.WithLabelValues("ok").Inc()
	return nil
}
