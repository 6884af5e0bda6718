package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campcal/internal/app/commands"
)

type bumpCommand struct {
	IdemKey string
	Amount  int
}

func (c bumpCommand) Key() string            { return "test.bump" }
func (c bumpCommand) IdempotencyKey() string { return c.IdemKey }
func (c bumpCommand) ResultPrototype() any   { return &bumpResult{} }
func (c bumpCommand) Validate() error {
	if c.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	return nil
}

type bumpResult struct {
	Total int `json:"total"`
}

type memStore struct {
	mu    sync.Mutex
	items map[string]IdempotencyRecord
}

func (s *memStore) Get(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[key]
	return rec, ok, nil
}

func (s *memStore) Save(_ context.Context, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rec.Key] = rec
	return nil
}

type counter struct {
	total int
	calls int
	fail  error
}

func (c *counter) Handle(_ context.Context, cmd bumpCommand) (*bumpResult, error) {
	c.calls++
	if c.fail != nil {
		return nil, c.fail
	}
	c.total += cmd.Amount
	return &bumpResult{Total: c.total}, nil
}

func newPipeline(h *counter, store *memStore) commands.Bus {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler[bumpCommand, *bumpResult](bus, "test.bump", h)
	return ChainCommands(bus,
		Authorization(CapabilityAuthorizer{}),
		Validation(SelfValidator{}),
		Idempotency(store, nil),
	)
}

func TestCapabilityRequired(t *testing.T) {
	h := &counter{}
	bus := newPipeline(h, &memStore{items: map[string]IdempotencyRecord{}})

	_, err := commands.Dispatch[bumpCommand, *bumpResult](context.Background(), bus, bumpCommand{Amount: 1})
	assert.ErrorIs(t, err, ErrNotPermitted)
	assert.Zero(t, h.calls)

	ctx := WithCapability(context.Background(), true)
	res, err := commands.Dispatch[bumpCommand, *bumpResult](ctx, bus, bumpCommand{Amount: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
}

func TestValidationStopsBadCommands(t *testing.T) {
	h := &counter{}
	bus := newPipeline(h, &memStore{items: map[string]IdempotencyRecord{}})
	ctx := WithCapability(context.Background(), true)

	_, err := commands.Dispatch[bumpCommand, *bumpResult](ctx, bus, bumpCommand{Amount: 0})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Zero(t, h.calls)
}

func TestIdempotencyReplaysSuccess(t *testing.T) {
	h := &counter{}
	store := &memStore{items: map[string]IdempotencyRecord{}}
	bus := newPipeline(h, store)
	ctx := WithCapability(context.Background(), true)

	first, err := commands.Dispatch[bumpCommand, *bumpResult](ctx, bus, bumpCommand{IdemKey: "k1", Amount: 5})
	require.NoError(t, err)
	second, err := commands.Dispatch[bumpCommand, *bumpResult](ctx, bus, bumpCommand{IdemKey: "k1", Amount: 5})
	require.NoError(t, err)

	assert.Equal(t, 1, h.calls)
	assert.Equal(t, first.Total, second.Total)
	assert.Contains(t, store.items, "test.bump:k1")
}

func TestIdempotencyKeepsFailuresRetryable(t *testing.T) {
	h := &counter{fail: errors.New("upstream 503")}
	store := &memStore{items: map[string]IdempotencyRecord{}}
	bus := newPipeline(h, store)
	ctx := WithCapability(context.Background(), true)

	_, err := commands.Dispatch[bumpCommand, *bumpResult](ctx, bus, bumpCommand{IdemKey: "k1", Amount: 2})
	require.Error(t, err)
	assert.Empty(t, store.items)

	h.fail = nil
	res, err := commands.Dispatch[bumpCommand, *bumpResult](ctx, bus, bumpCommand{IdemKey: "k1", Amount: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, h.calls)
}
