package store_test

import (
	"testing"

	"github.com/aigendrug/cid-dispatch/store"
	"github.com/stretchr/testify/assert"
)

func TestValidTransition(t *testing.T) {
	tests := []struct {
		name string
		from store.Status
		to   store.Status
		want bool
	}{
		{
			name: "Created To Dispatched",
			from: store.StatusCreated,
			to:   store.StatusDispatched,
			want: true,
		},
		{
			name: "Created To Failed",
			from: store.StatusCreated,
			to:   store.StatusFailed,
			want: true,
		},
		{
			name: "Created To Completed",
			from: store.StatusCreated,
			to:   store.StatusCompleted,
			want: false,
		},
		{
			name: "Dispatched To Completed",
			from: store.StatusDispatched,
			to:   store.StatusCompleted,
			want: true,
		},
		{
			name: "Dispatched To Failed",
			from: store.StatusDispatched,
			to:   store.StatusFailed,
			want: true,
		},
		{
			name: "Dispatched To Created",
			from: store.StatusDispatched,
			to:   store.StatusCreated,
			want: false,
		},
		{
			name: "Completed Is Terminal",
			from: store.StatusCompleted,
			to:   store.StatusDispatched,
			want: false,
		},
		{
			name: "Failed Is Terminal",
			from: store.StatusFailed,
			to:   store.StatusDispatched,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, store.ValidTransition(tt.from, tt.to))
		})
	}
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, store.StatusCreated.Terminal())
	assert.False(t, store.StatusDispatched.Terminal())
	assert.True(t, store.StatusCompleted.Terminal())
	assert.True(t, store.StatusFailed.Terminal())
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "created", store.StatusCreated.String())
	assert.Equal(t, "dispatched", store.StatusDispatched.String())
	assert.Equal(t, "completed", store.StatusCompleted.String())
	assert.Equal(t, "failed", store.StatusFailed.String())
	assert.Equal(t, "unknown", store.Status(42).String())
}
