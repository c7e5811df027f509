package alarm

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
	log "github.com/sirupsen/logrus"

	"github.com/mhdi-khosravi/Crypto-price-alert/internal/poller"
	"github.com/mhdi-khosravi/Crypto-price-alert/lib/helpers"
	"github.com/mhdi-khosravi/Crypto-price-alert/lib/translation"
)

// Ring is the handle of one sounding alarm.
type Ring struct {
	stop chan struct{}
	once sync.Once
}

// Silence stops the tone. The visual presentation is unaffected.
func (r *Ring) Silence() {
	r.once.Do(func() { close(r.stop) })
}

// Presenter raises the audible side of an alarm: a desktop notification
// and a repeating tone that silences itself after the configured duration.
// Every trigger gets its own ring; simultaneous triggers are not merged.
type Presenter struct {
	mu    sync.Mutex
	rings map[string]*Ring

	beep   func() error
	notify func(title, body string) error
}

func NewPresenter() *Presenter {
	return &Presenter{
		rings: make(map[string]*Ring),
		beep: func() error {
			return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration)
		},
		notify: func(title, body string) error {
			return beeep.Alert(title, body, "")
		},
	}
}

// Present notifies and starts the tone loop for one trigger. The returned
// ring lets the user silence the tone early; it stops on its own after
// autoSilence.
func (p *Presenter) Present(t poller.Trigger, autoSilence time.Duration) *Ring {
	title := translation.Translate("Price alert triggered: %s", t.Alert.Symbol)
	body := fmt.Sprintf("%s: %s %s %s (%s: %s)",
		t.Alert.Symbol,
		translation.Translate("target"),
		t.Alert.Condition,
		helpers.FormatPrice(t.Alert.TargetPrice),
		translation.Translate("current"),
		helpers.FormatPrice(t.Price),
	)
	if err := p.notify(title, body); err != nil {
		log.Warnf("could not show notification: %v", err)
	}

	ring := &Ring{stop: make(chan struct{})}

	p.mu.Lock()
	if old, ok := p.rings[t.Alert.ID]; ok {
		old.Silence()
	}
	p.rings[t.Alert.ID] = ring
	p.mu.Unlock()

	go p.ringLoop(ring, autoSilence)
	return ring
}

func (p *Presenter) ringLoop(r *Ring, autoSilence time.Duration) {
	deadline := time.NewTimer(autoSilence)
	defer deadline.Stop()

	for {
		if err := p.beep(); err != nil {
			log.Debugf("beep failed: %v", err)
		}
		select {
		case <-r.stop:
			return
		case <-deadline.C:
			r.Silence()
			return
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// Silence stops the tone of one alert's alarm, if it is sounding.
func (p *Presenter) Silence(alertID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ring, ok := p.rings[alertID]; ok {
		ring.Silence()
		delete(p.rings, alertID)
	}
}

// SilenceAll stops every sounding alarm, used on shutdown.
func (p *Presenter) SilenceAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, ring := range p.rings {
		ring.Silence()
		delete(p.rings, id)
	}
}
