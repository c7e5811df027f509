package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

var once sync.Once

func InitConfig() {
	once.Do(func() {
		viper.SetDefault("data_dir", defaultDataDir())
		viper.SetDefault("db_filename", "crypto_alerts.json")
		viper.SetDefault("log_filename", "log.txt")
		viper.SetDefault("locales_dir", "locales")
		viper.SetDefault("debug", false)
		viper.SetDefault("lang", "en")
		viper.SetDefault("fetch_timeout_seconds", 10)
		viper.SetDefault("min_interval_seconds", 10)
	})
}

func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(base, "crypto-price-alert")
}

// DBPath is the location of the persisted alerts/settings document.
func DBPath() string {
	InitConfig()
	return filepath.Join(viper.GetString("data_dir"), viper.GetString("db_filename"))
}

// LogPath is the location of the append-only log file.
func LogPath() string {
	InitConfig()
	return filepath.Join(viper.GetString("data_dir"), viper.GetString("log_filename"))
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}
