package ui

import (
	"fmt"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/mhdi-khosravi/Crypto-price-alert/internal/alarm"
	"github.com/mhdi-khosravi/Crypto-price-alert/internal/poller"
	"github.com/mhdi-khosravi/Crypto-price-alert/internal/store"
	"github.com/mhdi-khosravi/Crypto-price-alert/internal/types"
	"github.com/mhdi-khosravi/Crypto-price-alert/lib/helpers"
	"github.com/mhdi-khosravi/Crypto-price-alert/lib/translation"
)

// App owns the main window, the tray presence and the visibility state
// machine. Everything it shows comes from the store; the poller posts
// trigger and cycle events back through HandleTrigger/HandleCycle.
type App struct {
	fyneApp   fyne.App
	win       fyne.Window
	store     *store.Store
	presenter *alarm.Presenter
	poller    *poller.Poller
	exchanges []string

	visibility *Visibility

	alerts   []types.Alert
	filter   string
	selected int

	list   *widget.List
	status *widget.Label
}

func New(fyneApp fyne.App, st *store.Store, presenter *alarm.Presenter, exchanges []string) *App {
	a := &App{
		fyneApp:   fyneApp,
		store:     st,
		presenter: presenter,
		exchanges: exchanges,
		selected:  -1,
	}

	a.win = fyneApp.NewWindow(translation.Translate("Crypto Price Alert"))
	a.win.Resize(fyne.NewSize(860, 560))

	a.visibility = NewVisibility(
		func() { a.win.Show() },
		func() { a.win.Hide() },
		a.shutdown,
	)
	a.win.SetCloseIntercept(func() { a.visibility.Handle(EventCloseRequested) })

	a.fyneApp.Settings().SetTheme(themeForName(st.Settings().Theme))
	a.setupTray()
	a.rebuild()
	return a
}

// SetPoller wires the poller in after construction; the poller's hooks
// point back at this App.
func (a *App) SetPoller(p *poller.Poller) { a.poller = p }

// Run shows the main window and enters the event loop.
func (a *App) Run() {
	a.win.ShowAndRun()
}

func (a *App) shutdown() {
	if a.poller != nil {
		a.poller.Stop()
	}
	a.presenter.SilenceAll()
	log.Info("app closed")
	a.fyneApp.Quit()
}

// HandleTrigger is called from the poller goroutine when an alert fires.
func (a *App) HandleTrigger(t poller.Trigger) {
	autoSilence := a.store.Settings().AutoSilence()
	ring := a.presenter.Present(t, autoSilence)
	fyne.Do(func() {
		a.refreshList()
		a.showAlarm(t, ring, autoSilence)
	})
}

// HandleCycle is called from the poller goroutine after every poll cycle.
func (a *App) HandleCycle(res poller.CycleResult) {
	fyne.Do(func() {
		ts := res.At.Format("2006-01-02 15:04:05")
		if res.Errors > 0 {
			a.status.SetText(translation.Translate("Last check %s - %d error(s)", ts, res.Errors))
		} else {
			a.status.SetText(translation.Translate("Last check %s - OK", ts))
		}
	})
}

// rebuild recreates the whole window content. Called at startup and after
// a language switch, so every label picks up the active catalog.
func (a *App) rebuild() {
	a.status = widget.NewLabel(translation.Translate("Ready"))
	a.list = a.buildList()

	top := container.NewBorder(nil, nil,
		widget.NewLabel(translation.Translate("Search:")), a.buildListActions(), a.buildSearch())

	content := container.NewBorder(
		container.NewVBox(top, a.buildAddForm(), a.buildSettingsForm()),
		a.status,
		nil, nil,
		a.list,
	)
	a.win.SetContent(content)
	a.refreshList()
}

func (a *App) buildSearch() *widget.Entry {
	search := widget.NewEntry()
	search.SetPlaceHolder(translation.Translate("symbol filter"))
	search.SetText(a.filter)
	search.OnChanged = func(text string) {
		a.filter = strings.ToUpper(strings.TrimSpace(text))
		a.refreshList()
	}
	return search
}

func (a *App) buildList() *widget.List {
	list := widget.NewList(
		func() int { return len(a.alerts) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, obj fyne.CanvasObject) {
			if i >= len(a.alerts) {
				return
			}
			obj.(*widget.Label).SetText(a.rowText(a.alerts[i]))
		},
	)
	list.OnSelected = func(i widget.ListItemID) { a.selected = i }
	list.OnUnselected = func(widget.ListItemID) { a.selected = -1 }
	return list
}

func (a *App) rowText(al types.Alert) string {
	status := translation.Translate("active")
	if !al.Active {
		status = translation.Translate("triggered")
		if al.TriggeredAt == nil {
			status = translation.Translate("disabled")
		}
	}
	return fmt.Sprintf("%-12s  %s %s  |  %s  |  %s",
		al.Symbol, al.Condition, helpers.FormatPrice(al.TargetPrice), al.Exchange, status)
}

func (a *App) buildListActions() fyne.CanvasObject {
	return container.NewHBox(
		widget.NewButton(translation.Translate("Edit"), a.editSelected),
		widget.NewButton(translation.Translate("Delete"), a.deleteSelected),
		widget.NewButton(translation.Translate("Re-arm"), a.rearmSelected),
		widget.NewButton(translation.Translate("Refresh now"), func() {
			if a.poller != nil {
				a.poller.Kick()
			}
		}),
	)
}

func (a *App) buildAddForm() fyne.CanvasObject {
	symbol := widget.NewEntry()
	symbol.SetPlaceHolder("BTC or BTCUSDT")
	price := widget.NewEntry()
	price.SetPlaceHolder("70000")
	condition := widget.NewSelect([]string{string(types.ConditionGTE), string(types.ConditionLTE)}, nil)
	condition.SetSelected(string(types.ConditionGTE))
	exch := widget.NewSelect(a.exchangeOptions(), nil)
	exch.SetSelected(types.ExchangeAny)

	add := widget.NewButton(translation.Translate("Add alert"), func() {
		alert, err := a.parseAlert(symbol.Text, price.Text, condition.Selected, exch.Selected, true)
		if err != nil {
			a.surfaceError(err)
			return
		}
		if _, err := a.store.Add(alert); err != nil {
			a.surfaceError(err)
			return
		}
		symbol.SetText("")
		price.SetText("")
		a.refreshList()
	})

	return container.NewHBox(
		widget.NewLabel(translation.Translate("Symbol:")), symbol,
		widget.NewLabel(translation.Translate("Target price:")), price,
		widget.NewLabel(translation.Translate("Condition:")), condition,
		widget.NewLabel(translation.Translate("Exchange:")), exch,
		add,
	)
}

func (a *App) buildSettingsForm() fyne.CanvasObject {
	settings := a.store.Settings()

	interval := widget.NewEntry()
	interval.SetText(strconv.Itoa(settings.CheckIntervalSeconds))
	silence := widget.NewEntry()
	silence.SetText(strconv.Itoa(settings.AutoSilenceSeconds))
	lang := widget.NewSelect([]string{"en", "fa"}, nil)
	lang.SetSelected(settings.Language)
	themeSel := widget.NewSelect([]string{"light", "dark"}, nil)
	themeSel.SetSelected(settings.Theme)

	save := widget.NewButton(translation.Translate("Save settings"), func() {
		next := a.store.Settings()
		var err error
		next.CheckIntervalSeconds, err = strconv.Atoi(strings.TrimSpace(interval.Text))
		if err != nil {
			a.surfaceError(&store.ValidationError{Field: "check interval", Reason: "must be a number"})
			return
		}
		next.AutoSilenceSeconds, err = strconv.Atoi(strings.TrimSpace(silence.Text))
		if err != nil {
			a.surfaceError(&store.ValidationError{Field: "auto-silence", Reason: "must be a number"})
			return
		}
		next.Language = lang.Selected
		next.Theme = themeSel.Selected

		prev := a.store.Settings()
		if err := a.store.UpdateSettings(next); err != nil {
			a.surfaceError(err)
			return
		}
		a.fyneApp.Settings().SetTheme(themeForName(next.Theme))
		if next.Language != prev.Language {
			a.switchLanguage(next.Language)
			return
		}
		a.status.SetText(translation.Translate("Settings saved"))
	})

	return container.NewHBox(
		widget.NewLabel(translation.Translate("Check interval (sec):")), interval,
		widget.NewLabel(translation.Translate("Auto-silence after (sec):")), silence,
		widget.NewLabel(translation.Translate("Language:")), lang,
		widget.NewLabel(translation.Translate("Theme:")), themeSel,
		save,
	)
}

// switchLanguage swaps the active catalog and relabels the whole surface
// in place. Alert state and the running poller are untouched.
func (a *App) switchLanguage(lang string) {
	if err := translation.SetLanguage(lang); err != nil {
		log.Warnf("language switch failed: %v", err)
		return
	}
	a.win.SetTitle(translation.Translate("Crypto Price Alert"))
	a.setupTray()
	a.rebuild()
}

func (a *App) exchangeOptions() []string {
	return append([]string{types.ExchangeAny}, a.exchanges...)
}

func (a *App) parseAlert(symbol, price, condition, exch string, active bool) (types.Alert, error) {
	target, err := decimal.NewFromString(strings.TrimSpace(price))
	if err != nil {
		return types.Alert{}, &store.ValidationError{Field: "target price", Reason: "must be a positive number"}
	}
	cond, err := types.ParseCondition(condition)
	if err != nil {
		return types.Alert{}, &store.ValidationError{Field: "condition", Reason: "must be >= or <="}
	}
	return types.Alert{
		Symbol:      symbol,
		TargetPrice: target,
		Condition:   cond,
		Exchange:    exch,
		Active:      active,
	}, nil
}

func (a *App) selectedAlert() (types.Alert, bool) {
	if a.selected < 0 || a.selected >= len(a.alerts) {
		return types.Alert{}, false
	}
	return a.alerts[a.selected], true
}

func (a *App) editSelected() {
	current, ok := a.selectedAlert()
	if !ok {
		dialog.ShowInformation(translation.Translate("Edit"),
			translation.Translate("Select an alert first"), a.win)
		return
	}

	symbol := widget.NewEntry()
	symbol.SetText(current.Symbol)
	price := widget.NewEntry()
	price.SetText(current.TargetPrice.String())
	condition := widget.NewSelect([]string{string(types.ConditionGTE), string(types.ConditionLTE)}, nil)
	condition.SetSelected(string(current.Condition))
	exch := widget.NewSelect(a.exchangeOptions(), nil)
	exch.SetSelected(current.Exchange)
	active := widget.NewCheck(translation.Translate("active"), nil)
	active.SetChecked(current.Active)

	items := []*widget.FormItem{
		widget.NewFormItem(translation.Translate("Symbol:"), symbol),
		widget.NewFormItem(translation.Translate("Target price:"), price),
		widget.NewFormItem(translation.Translate("Condition:"), condition),
		widget.NewFormItem(translation.Translate("Exchange:"), exch),
		widget.NewFormItem(translation.Translate("Status:"), active),
	}

	dialog.ShowForm(translation.Translate("Edit alert"), translation.Translate("Save"),
		translation.Translate("Cancel"), items, func(confirmed bool) {
			if !confirmed {
				return
			}
			fields, err := a.parseAlert(symbol.Text, price.Text, condition.Selected, exch.Selected, active.Checked)
			if err != nil {
				a.surfaceError(err)
				return
			}
			if _, err := a.store.Update(current.ID, fields); err != nil {
				a.surfaceError(err)
				return
			}
			a.refreshList()
		}, a.win)
}

func (a *App) deleteSelected() {
	current, ok := a.selectedAlert()
	if !ok {
		dialog.ShowInformation(translation.Translate("Delete"),
			translation.Translate("Select an alert first"), a.win)
		return
	}
	if err := a.store.Remove(current.ID); err != nil {
		a.surfaceError(err)
		return
	}
	a.selected = -1
	a.refreshList()
}

func (a *App) rearmSelected() {
	current, ok := a.selectedAlert()
	if !ok {
		dialog.ShowInformation(translation.Translate("Re-arm"),
			translation.Translate("Select an alert first"), a.win)
		return
	}
	if err := a.store.SetActive(current.ID, !current.Active); err != nil {
		a.surfaceError(err)
		return
	}
	a.refreshList()
}

// refreshList re-snapshots the store and applies the symbol filter.
func (a *App) refreshList() {
	all := a.store.List()
	if a.filter == "" {
		a.alerts = all
	} else {
		a.alerts = a.alerts[:0]
		for _, al := range all {
			if strings.Contains(al.Symbol, a.filter) {
				a.alerts = append(a.alerts, al)
			}
		}
	}
	a.list.Refresh()
}

// surfaceError shows store errors per their contract: validation and
// not-found inline, persistence failures as a logged non-fatal warning.
func (a *App) surfaceError(err error) {
	var pe *store.PersistenceError
	if errors.As(err, &pe) {
		log.Warnf("persistence failure: %v", pe)
		dialog.ShowInformation(translation.Translate("Warning"),
			translation.Translate("Changes could not be saved to disk; they remain in memory"), a.win)
		return
	}
	dialog.ShowError(err, a.win)
}
