package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBus(t *testing.T) {
	bus := NewEventBus()

	var got []any
	bus.Subscribe("room.game", func(val any) { got = append(got, val) })
	bus.Subscribe("room.game", func(any) { panic("bad subscriber") })
	bus.Subscribe("room.game", func(val any) { got = append(got, val) })

	bus.Publish("room.game", 1)
	bus.Publish("log.logger", 2)

	require.Equal(t, []any{1, 1}, got)
}
