package upload

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/universalis/pkg/apierr"
	"github.com/cuemby/universalis/pkg/market"
)

type fakeAuthenticator struct {
	source market.TrustedSource
	err    error
}

func (f fakeAuthenticator) Get(ctx context.Context, apiKey string) (market.TrustedSource, error) {
	return f.source, f.err
}

type fakeBlacklist struct {
	blocked map[string]bool
}

func (f fakeBlacklist) Has(ctx context.Context, hash string) (bool, error) {
	return f.blocked[hash], nil
}

type recordingBehavior struct {
	name      string
	should    bool
	executed  *int
	err       error
}

func (b recordingBehavior) Name() string                { return b.name }
func (b recordingBehavior) ShouldExecute(p *Payload) bool { return b.should }
func (b recordingBehavior) Execute(ctx context.Context, source market.TrustedSource, p *Payload) error {
	*b.executed++
	return b.err
}

func validPayload() *Payload {
	return &Payload{UploaderID: "player-1"}
}

func TestPipelineRunsBehaviorsInOrder(t *testing.T) {
	var order []string
	b1 := recordingBehavior{name: "a", should: true, executed: new(int)}
	b2 := recordingBehavior{name: "b", should: true, executed: new(int)}

	auth := fakeAuthenticator{source: market.TrustedSource{Name: "Test"}}
	bl := fakeBlacklist{blocked: map[string]bool{}}

	p := NewPipeline(auth, bl,
		recordOrder(&order, b1), recordOrder(&order, b2),
	)

	err := p.Run(context.Background(), "key", validPayload())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, order)
}

type orderTrackingBehavior struct {
	recordingBehavior
	order *[]string
}

func (b orderTrackingBehavior) Execute(ctx context.Context, source market.TrustedSource, p *Payload) error {
	*b.order = append(*b.order, b.name)
	return b.recordingBehavior.Execute(ctx, source, p)
}

func recordOrder(order *[]string, b recordingBehavior) Behavior {
	return orderTrackingBehavior{recordingBehavior: b, order: order}
}

func TestPipelineSkipsBehaviorWhenShouldExecuteFalse(t *testing.T) {
	b := recordingBehavior{name: "skip-me", should: false, executed: new(int)}
	auth := fakeAuthenticator{source: market.TrustedSource{}}
	bl := fakeBlacklist{blocked: map[string]bool{}}

	p := NewPipeline(auth, bl, b)
	err := p.Run(context.Background(), "key", validPayload())

	require.NoError(t, err)
	assert.Equal(t, 0, *b.executed)
}

func TestPipelineStopsAtFirstFailingBehavior(t *testing.T) {
	b1 := recordingBehavior{name: "ok", should: true, executed: new(int)}
	b2 := recordingBehavior{name: "fails", should: true, executed: new(int), err: errors.New("boom")}
	b3 := recordingBehavior{name: "never-runs", should: true, executed: new(int)}

	auth := fakeAuthenticator{source: market.TrustedSource{}}
	bl := fakeBlacklist{blocked: map[string]bool{}}

	p := NewPipeline(auth, bl, b1, b2, b3)
	err := p.Run(context.Background(), "key", validPayload())

	require.Error(t, err)
	assert.Equal(t, 1, *b1.executed)
	assert.Equal(t, 1, *b2.executed)
	assert.Equal(t, 0, *b3.executed, "behaviors after the first failure must not run")
}

func TestPipelineBlacklistedUploaderShortCircuits(t *testing.T) {
	hash := UploaderHash("bad")
	b := recordingBehavior{name: "any", should: true, executed: new(int)}

	auth := fakeAuthenticator{source: market.TrustedSource{}}
	bl := fakeBlacklist{blocked: map[string]bool{hash: true}}

	p := NewPipeline(auth, bl, b)
	payload := &Payload{UploaderID: "bad"}
	err := p.Run(context.Background(), "key", payload)

	require.NoError(t, err, "blacklisted uploads still respond success")
	assert.Equal(t, 0, *b.executed, "no behavior runs for a blacklisted uploader")
}

func TestPipelineUnknownAPIKeyIsForbidden(t *testing.T) {
	auth := fakeAuthenticator{err: apierr.New(apierr.Forbidden, "test", errors.New("not found"))}
	bl := fakeBlacklist{blocked: map[string]bool{}}

	p := NewPipeline(auth, bl)
	err := p.Run(context.Background(), "unknown", validPayload())
	assert.Error(t, err)
	assert.Equal(t, apierr.Forbidden, apierr.KindOf(err))
}

func TestPipelineRejectsInvalidPayload(t *testing.T) {
	auth := fakeAuthenticator{source: market.TrustedSource{}}
	bl := fakeBlacklist{blocked: map[string]bool{}}

	p := NewPipeline(auth, bl)
	err := p.Run(context.Background(), "key", &Payload{})
	assert.Error(t, err, "missing uploader_id must be rejected before hashing")
}
