package alarm

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhdi-khosravi/Crypto-price-alert/internal/poller"
	"github.com/mhdi-khosravi/Crypto-price-alert/internal/types"
)

type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *counter) value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func testPresenter() (*Presenter, *counter, *counter) {
	beeps := &counter{}
	notes := &counter{}
	p := NewPresenter()
	p.beep = func() error { beeps.inc(); return nil }
	p.notify = func(title, body string) error { notes.inc(); return nil }
	return p, beeps, notes
}

func trigger(id string) poller.Trigger {
	return poller.Trigger{
		Alert: types.Alert{
			ID:          id,
			Symbol:      "BTCUSDT",
			TargetPrice: decimal.NewFromInt(70000),
			Condition:   types.ConditionGTE,
		},
		Price: decimal.NewFromInt(70500),
		At:    time.Now(),
	}
}

func TestPresentNotifiesOnceAndBeeps(t *testing.T) {
	p, beeps, notes := testPresenter()

	ring := p.Present(trigger("a1"), 5*time.Second)
	defer ring.Silence()

	assert.Equal(t, 1, notes.value())
	assert.Eventually(t, func() bool { return beeps.value() >= 1 }, time.Second, 10*time.Millisecond)
}

func TestToneAutoSilences(t *testing.T) {
	p, beeps, _ := testPresenter()

	p.Present(trigger("a1"), 50*time.Millisecond)

	// Wait past the deadline plus one full tick, then confirm the loop
	// stopped.
	time.Sleep(700 * time.Millisecond)
	settled := beeps.value()
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, settled, beeps.value())
}

func TestSilenceStopsTone(t *testing.T) {
	p, beeps, _ := testPresenter()

	p.Present(trigger("a1"), time.Minute)
	require.Eventually(t, func() bool { return beeps.value() >= 1 }, time.Second, 10*time.Millisecond)

	p.Silence("a1")
	time.Sleep(700 * time.Millisecond)
	settled := beeps.value()
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, settled, beeps.value())
}

func TestSimultaneousTriggersGetOwnRings(t *testing.T) {
	p, _, notes := testPresenter()

	r1 := p.Present(trigger("a1"), time.Minute)
	r2 := p.Present(trigger("a2"), time.Minute)
	defer p.SilenceAll()

	assert.Equal(t, 2, notes.value())
	assert.NotSame(t, r1, r2)
}

func TestSilenceAll(t *testing.T) {
	p, beeps, _ := testPresenter()

	p.Present(trigger("a1"), time.Minute)
	p.Present(trigger("a2"), time.Minute)
	require.Eventually(t, func() bool { return beeps.value() >= 2 }, time.Second, 10*time.Millisecond)

	p.SilenceAll()
	time.Sleep(700 * time.Millisecond)
	settled := beeps.value()
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, settled, beeps.value())
}
