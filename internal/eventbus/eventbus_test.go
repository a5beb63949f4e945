package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type ping struct{ N int }
type pong struct{ N int }

func TestDispatchByType(t *testing.T) {
	b := New()
	var pings, pongs []int
	On(b, func(_ context.Context, e ping) { pings = append(pings, e.N) })
	On(b, func(_ context.Context, e pong) { pongs = append(pongs, e.N) })

	Emit(context.Background(), b, ping{1})
	Emit(context.Background(), b, pong{2})
	Emit(context.Background(), b, ping{3})

	assert.Equal(t, []int{1, 3}, pings)
	assert.Equal(t, []int{2}, pongs)
}

func TestUnsubscribeRemovesOnlyThatHandler(t *testing.T) {
	b := New()
	var got []string
	h := func(_ context.Context, e ping) { got = append(got, "a") }
	unsubA := On(b, h)
	On(b, h)
	On(b, func(_ context.Context, e ping) { got = append(got, "c") })

	unsubA()
	unsubA()
	Emit(context.Background(), b, ping{})

	assert.Equal(t, []string{"a", "c"}, got)
}

func TestGlobalBus(t *testing.T) {
	defer Use(nil)

	Publish(context.Background(), ping{1})
	noop := Subscribe(func(context.Context, ping) { t.Fatal("no bus installed") })
	noop()

	Use(New())
	var n int
	unsub := Subscribe(func(_ context.Context, e ping) { n += e.N })
	Publish(context.Background(), ping{2})
	unsub()
	Publish(context.Background(), ping{5})
	assert.Equal(t, 2, n)
}
