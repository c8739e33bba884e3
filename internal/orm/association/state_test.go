package association

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadStateString(t *testing.T) {
	assert.Equal(t, "not_loaded", NotLoaded.String())
	assert.Equal(t, "loaded", Loaded.String())
	assert.Equal(t, "stale", Stale.String())
}

func TestStateTransitions(t *testing.T) {
	cases := []struct {
		from  LoadState
		event stateEvent
		want  LoadState
	}{
		{NotLoaded, eventLoaded, Loaded},
		{NotLoaded, eventKeyChanged, NotLoaded},
		{NotLoaded, eventReset, NotLoaded},
		{Loaded, eventLoaded, Loaded},
		{Loaded, eventKeyChanged, Stale},
		{Loaded, eventReset, NotLoaded},
		{Stale, eventLoaded, Loaded},
		{Stale, eventKeyChanged, Stale},
		{Stale, eventReset, NotLoaded},
	}
	for _, tc := range cases {
		got := nextState(tc.from, tc.event)
		assert.Equal(t, tc.want, got, "%s + event %d", tc.from, tc.event)
	}
}
