package ui

import (
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/mhdi-khosravi/Crypto-price-alert/internal/alarm"
	"github.com/mhdi-khosravi/Crypto-price-alert/internal/poller"
	"github.com/mhdi-khosravi/Crypto-price-alert/lib/helpers"
	"github.com/mhdi-khosravi/Crypto-price-alert/lib/translation"
)

// showAlarm opens one popup per trigger. The window stays until the user
// closes it; only the tone auto-silences.
func (a *App) showAlarm(t poller.Trigger, ring *alarm.Ring, autoSilence time.Duration) {
	win := a.fyneApp.NewWindow(translation.Translate("Price alert triggered: %s", t.Alert.Symbol))

	info := widget.NewLabel(
		translation.Translate("Target price: %s", helpers.FormatPrice(t.Alert.TargetPrice)) + "\n" +
			translation.Translate("Current price: %s (%s)", helpers.FormatPrice(t.Price), t.Source) + "\n\n" +
			translation.Translate("Sound stops after %d seconds; this window stays until you close it.",
				int(autoSilence.Seconds())),
	)
	info.Alignment = fyne.TextAlignCenter

	silence := widget.NewButton(translation.Translate("Silence sound"), func() {
		ring.Silence()
	})
	closeBtn := widget.NewButton(translation.Translate("Close window"), func() {
		win.Close()
	})
	win.SetOnClosed(func() { ring.Silence() })

	win.SetContent(container.NewVBox(info, container.NewCenter(container.NewHBox(silence, closeBtn))))
	win.Resize(fyne.NewSize(420, 220))
	win.Show()
}
