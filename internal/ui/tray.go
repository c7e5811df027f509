package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"github.com/mhdi-khosravi/Crypto-price-alert/lib/translation"
)

// setupTray installs the tray menu on platforms with a system tray. The
// menu is rebuilt on language switch so its labels follow the catalog.
func (a *App) setupTray() {
	desk, ok := a.fyneApp.(desktop.App)
	if !ok {
		return
	}

	menu := fyne.NewMenu(translation.Translate("Crypto Price Alert"),
		fyne.NewMenuItem(translation.Translate("Show"), func() {
			a.visibility.Handle(EventTrayShow)
		}),
		fyne.NewMenuItem(translation.Translate("Hide"), func() {
			a.visibility.Handle(EventCloseRequested)
		}),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem(translation.Translate("Exit"), func() {
			a.visibility.Handle(EventTrayExit)
		}),
	)
	desk.SetSystemTrayMenu(menu)
}
