package poller

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/mhdi-khosravi/Crypto-price-alert/internal/exchange"
	"github.com/mhdi-khosravi/Crypto-price-alert/internal/store"
	"github.com/mhdi-khosravi/Crypto-price-alert/internal/types"
)

// Trigger is one satisfied alert condition, handed to the presenter.
type Trigger struct {
	Alert  types.Alert
	Price  decimal.Decimal
	Source string
	At     time.Time
}

// CycleResult summarizes one poll cycle for the status line.
type CycleResult struct {
	Checked   int
	Triggered int
	Errors    int
	At        time.Time
}

// Hooks receive trigger and cycle events. They are called from the
// poller's goroutine; the UI wires them through its own dispatcher.
type Hooks struct {
	OnTrigger func(Trigger)
	OnCycle   func(CycleResult)
}

type pair struct {
	symbol   string
	exchange string
}

// Poller runs the timer-driven fetch-and-evaluate loop. Cycles never
// overlap: the next wait starts only after every fetch of the current
// cycle has resolved or timed out.
type Poller struct {
	store       *store.Store
	registry    *exchange.Registry
	hooks       Hooks
	minInterval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
	kick   chan struct{}
	once   sync.Once
}

func New(st *store.Store, registry *exchange.Registry, minInterval time.Duration, hooks Hooks) *Poller {
	return &Poller{
		store:       st,
		registry:    registry,
		hooks:       hooks,
		minInterval: minInterval,
		done:        make(chan struct{}),
		kick:        make(chan struct{}, 1),
	}
}

// Start launches the poll loop. The first cycle runs immediately.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	go p.loop(ctx)
	log.Info("price poller started")
}

// Stop cancels in-flight fetches and waits for the loop to exit.
func (p *Poller) Stop() {
	p.once.Do(func() {
		if p.cancel == nil {
			return
		}
		p.cancel()
		<-p.done
		log.Info("price poller stopped")
	})
}

// Kick schedules an immediate cycle after the current one, for the
// manual refresh action. It never blocks.
func (p *Poller) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	for {
		p.RunOnce(ctx)

		interval := p.store.Settings().CheckInterval(p.minInterval)
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-p.kick:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// RunOnce executes a single poll cycle: dedupe the (symbol, exchange)
// pairs of the active alerts, fetch them concurrently, then evaluate each
// matching alert exactly once against its pair's fetched price.
func (p *Poller) RunOnce(ctx context.Context) CycleResult {
	alerts := p.store.ActiveAlerts()
	pairs := lo.Uniq(lo.Map(alerts, func(a types.Alert, _ int) pair {
		return pair{symbol: a.Symbol, exchange: a.Exchange}
	}))

	type fetched struct {
		pair
		price  decimal.Decimal
		source string
		err    error
	}

	results := make([]fetched, len(pairs))
	var wg sync.WaitGroup
	for i, pr := range pairs {
		wg.Add(1)
		go func(i int, pr pair) {
			defer wg.Done()
			price, source, err := p.registry.LastPrice(ctx, pr.symbol, pr.exchange)
			results[i] = fetched{pair: pr, price: price, source: source, err: err}
		}(i, pr)
	}
	wg.Wait()

	res := CycleResult{At: time.Now()}
	for _, fr := range results {
		if fr.err != nil {
			res.Errors++
			log.Warnf("fetch error for %s: %v", fr.symbol, fr.err)
			continue
		}
		res.Checked++

		for _, a := range alerts {
			if a.Symbol != fr.symbol || a.Exchange != fr.exchange {
				continue
			}
			if !a.Condition.Evaluate(fr.price, a.TargetPrice) {
				continue
			}

			now := time.Now()
			if err := p.store.MarkTriggered(a.ID, now); err != nil {
				log.Warnf("could not mark alert %s triggered: %v", a.ID, err)
			}
			res.Triggered++
			log.Infof("alert triggered for %s | target %s %s | current %s (%s)",
				a.Symbol, a.Condition, a.TargetPrice, fr.price, fr.source)

			if p.hooks.OnTrigger != nil {
				p.hooks.OnTrigger(Trigger{Alert: a, Price: fr.price, Source: fr.source, At: now})
			}
		}
	}

	if p.hooks.OnCycle != nil {
		p.hooks.OnCycle(res)
	}
	return res
}
