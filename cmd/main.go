package main

import (
	"context"
	"io"
	"os"
	"time"

	"fyne.io/fyne/v2/app"
	log "github.com/sirupsen/logrus"

	"github.com/mhdi-khosravi/Crypto-price-alert/config"
	"github.com/mhdi-khosravi/Crypto-price-alert/internal/alarm"
	"github.com/mhdi-khosravi/Crypto-price-alert/internal/exchange"
	"github.com/mhdi-khosravi/Crypto-price-alert/internal/poller"
	"github.com/mhdi-khosravi/Crypto-price-alert/internal/store"
	"github.com/mhdi-khosravi/Crypto-price-alert/internal/ui"
	"github.com/mhdi-khosravi/Crypto-price-alert/lib/translation"
)

func init() {
	config.InitConfig()
	setupLogging()
}

func main() {
	timeout := time.Duration(config.GetInt("fetch_timeout_seconds")) * time.Second
	registry := exchange.DefaultRegistry(timeout)

	st := store.New(config.DBPath(), registry.Names(), config.GetInt("min_interval_seconds"))
	if err := st.Load(); err != nil {
		// App keeps running on in-memory defaults; persistence retries on
		// the next mutation.
		log.Warnf("could not load persisted state: %v", err)
	}

	lang := st.Settings().Language
	if lang == "" {
		lang = config.GetString("lang")
	}
	translation.Configure(config.GetString("locales_dir"), lang)

	fyneApp := app.NewWithID("com.mhdi-khosravi.crypto-price-alert")
	presenter := alarm.NewPresenter()
	window := ui.New(fyneApp, st, presenter, registry.Names())

	minInterval := time.Duration(config.GetInt("min_interval_seconds")) * time.Second
	checker := poller.New(st, registry, minInterval, poller.Hooks{
		OnTrigger: window.HandleTrigger,
		OnCycle:   window.HandleCycle,
	})
	window.SetPoller(checker)

	checker.Start(context.Background())
	defer checker.Stop()

	window.Run()
}

func setupLogging() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}

	if err := os.MkdirAll(config.GetString("data_dir"), 0o755); err != nil {
		log.Warnf("could not create data directory: %v", err)
		return
	}
	f, err := os.OpenFile(config.LogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Warnf("could not open log file: %v", err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
}
