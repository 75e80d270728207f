package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIdempotencyStore_Expiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryIdempotencyStore(time.Minute)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "e-1"))
	seen, err := s.Contains(ctx, "e-1")
	require.NoError(t, err)
	assert.True(t, seen)

	now = now.Add(2 * time.Minute)
	seen, err = s.Contains(ctx, "e-1")
	require.NoError(t, err)
	assert.False(t, seen)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryIdempotencyStore_PrunesWhenLarge(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryIdempotencyStore(time.Minute)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	for i := range 1024 {
		require.NoError(t, s.Add(ctx, fmt.Sprintf("old-%d", i)))
	}
	now = now.Add(time.Hour)
	require.NoError(t, s.Add(ctx, "fresh"))

	assert.Equal(t, 1, s.Len())
}

type failingStore struct{ containsErr, addErr error }

func (f failingStore) Contains(context.Context, string) (bool, error) { return false, f.containsErr }
func (f failingStore) Add(context.Context, string) error { return f.addErr }

func TestIdempotentHandler(t *testing.T) {
	tests := []struct {
		name      string
		store     IdempotencyStore
		event     *Event
		innerErr  error
		deliver   int
		wantCalls int
		wantErr   bool
	}{
		{"duplicate skipped", NewMemoryIdempotencyStore(time.Hour), &Event{EventID: "e-1"}, nil, 2, 1, false},
		{"failure not recorded", NewMemoryIdempotencyStore(time.Hour), &Event{EventID: "e-1"}, errors.New("boom"), 2, 2, true},
		{"no id always handled", NewMemoryIdempotencyStore(time.Hour), &Event{}, nil, 2, 2, false},
		{"lookup error still handled", failingStore{containsErr: errors.New("down")}, &Event{EventID: "e-1"}, nil, 1, 1, false},
		{"record error swallowed", failingStore{addErr: errors.New("down")}, &Event{EventID: "e-1"}, nil, 1, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			h := IdempotentHandler(tt.store, func(context.Context, *Event) error {
				calls++
				return tt.innerErr
			}, testLogger())

			var err error
			for range tt.deliver {
				err = h(context.Background(), tt.event)
			}

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
