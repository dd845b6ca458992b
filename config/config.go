// koanf_api
package config

import (
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cloudfinch-harshad/rampart/logger"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
)

const (
	Configfile string = "config.toml"
	EnvPrefix  string = "RAMPART_"
)

//Main Config
type MainConfig struct {
	General      GeneralConfig      `koanf:"general"`
	Database     DatabaseConfig     `koanf:"database"`
	Session      SessionConfig      `koanf:"session"`
	Notification NotificationConfig `koanf:"notification"`
	Scheduler    SchedulerConfig    `koanf:"scheduler"`
	Client       ClientConfig       `koanf:"client"`
}

type GeneralConfig struct {
	LogLevel        string   `koanf:"loglevel"`
	LogFile         string   `koanf:"logfile"`
	LogFileSize     int      `koanf:"logfilesize"`
	LogFileCount    int      `koanf:"logfilecount"`
	LogCompress     bool     `koanf:"logcompress"`
	WebPort         string   `koanf:"webport"`
	CorsOrigins     []string `koanf:"corsorigins"`
	WatchConfig     bool     `koanf:"watchconfig"`
	FiscalYear      string   `koanf:"fiscalyear"`
	DefaultPageSize int      `koanf:"defaultpagesize"`
	PageSizeOptions []int    `koanf:"pagesizeoptions"`
}

type DatabaseConfig struct {
	Path       string `koanf:"path"`
	BackupDir  string `koanf:"backupdir"`
	MaxBackups int    `koanf:"maxbackups"`
}

type SessionConfig struct {
	StorePath    string        `koanf:"storepath"`
	TTL          time.Duration `koanf:"ttl"`
	CookieName   string        `koanf:"cookiename"`
	SecureCookie bool          `koanf:"securecookie"`
	PublicPaths  []string      `koanf:"publicpaths"`

	// login attempts allowed per email within LoginLimiterSeconds
	LoginLimiterCalls   int `koanf:"loginlimitercalls"`
	LoginLimiterSeconds int `koanf:"loginlimiterseconds"`
}

type NotificationConfig struct {
	PushoverAppKey         string `koanf:"pushoverappkey"`
	PushoverRecipient      string `koanf:"pushoverrecipient"`
	PushoverLimiterCalls   int    `koanf:"pushoverlimitercalls"`
	PushoverLimiterSeconds int    `koanf:"pushoverlimiterseconds"`
}

type SchedulerConfig struct {
	Disabled      bool          `koanf:"disabled"`
	Workers       int           `koanf:"workers"`
	QueueSize     int           `koanf:"queuesize"`
	PurgeInterval time.Duration `koanf:"purgeinterval"`
	ReminderCron  string        `koanf:"remindercron"`
	BackupCron    string        `koanf:"backupcron"`
}

type ClientConfig struct {
	BaseURL              string        `koanf:"baseurl"`
	TokenStorePath       string        `koanf:"tokenstorepath"`
	Timeout              time.Duration `koanf:"timeout"`
	ClientLimiterCalls   int           `koanf:"limitercalls"`
	ClientLimiterSeconds int           `koanf:"limiterseconds"`
}

var (
	cfglock sync.RWMutex
	current = Defaults()
)

// Defaults returns a configuration where every value is set. The loaded file
// and the environment only override it.
func Defaults() MainConfig {
	return MainConfig{
		General: GeneralConfig{
			LogLevel:        "info",
			LogFile:         "./logs/rampart.log",
			LogFileSize:     10,
			LogFileCount:    5,
			WebPort:         "9090",
			CorsOrigins:     []string{"http://localhost:3000"},
			FiscalYear:      "2025-2026",
			DefaultPageSize: 10,
			PageSizeOptions: []int{10, 20, 50, 100},
		},
		Database: DatabaseConfig{
			Path:       "./databases/rampart.db",
			BackupDir:  "./backup",
			MaxBackups: 5,
		},
		Session: SessionConfig{
			StorePath:    "./databases/session.db",
			TTL:          24 * time.Hour,
			CookieName:   "authToken",
			SecureCookie: false,
			PublicPaths: []string{
				"/api/login",
				"/api/register-company",
				"/api/forgot-password",
				"/api/get-brsr-vendor",
				"/api/get-brsr-compliance",
				"/api/get-brsr-items",
				"/api/save-brsr-item",
				"/api/health",
			},
			LoginLimiterCalls:   5,
			LoginLimiterSeconds: 60,
		},
		Notification: NotificationConfig{
			PushoverLimiterCalls:   1,
			PushoverLimiterSeconds: 1,
		},
		Scheduler: SchedulerConfig{
			Workers:       2,
			QueueSize:     100,
			PurgeInterval: 30 * time.Minute,
			ReminderCron:  "0 0 8 * * *",
			BackupCron:    "0 30 3 * * 0",
		},
		Client: ClientConfig{
			BaseURL:              "http://localhost:9090/api",
			TokenStorePath:       "./databases/client.db",
			Timeout:              30 * time.Second,
			ClientLimiterCalls:   10,
			ClientLimiterSeconds: 1,
		},
	}
}

// Get returns the active configuration.
func Get() MainConfig {
	cfglock.RLock()
	defer cfglock.RUnlock()
	return current
}

// Set replaces the active configuration.
func Set(cfg MainConfig) {
	cfglock.Lock()
	current = cfg
	cfglock.Unlock()
}

// envKey maps RAMPART_SESSION__TTL to session.ttl.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// LoadCfg reads defaults, the toml file (when it exists) and the environment,
// stores the result as the active configuration and returns the file provider
// for Watch. The provider is nil when no file was read.
func LoadCfg(configfile string) (MainConfig, *file.File, error) {
	var f *file.File
	if configfile != "" {
		if _, err := os.Stat(configfile); err == nil {
			f = file.Provider(configfile)
		} else if !errors.Is(err, os.ErrNotExist) {
			return MainConfig{}, nil, err
		}
	}
	cfg, err := loadCfgData(f)
	if err != nil {
		return MainConfig{}, nil, err
	}
	Set(cfg)
	return cfg, f, nil
}

func loadCfgData(f *file.File) (MainConfig, error) {
	var k = koanf.New(".")
	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return MainConfig{}, err
	}
	if f != nil {
		if err := k.Load(f, toml.Parser()); err != nil {
			logger.Log.Errorln("Error loading config. ", err)
			return MainConfig{}, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return MainConfig{}, err
	}
	if k.Sprint() == "" {
		return MainConfig{}, errors.New("error loading config")
	}
	var out MainConfig
	if err := k.Unmarshal("", &out); err != nil {
		return MainConfig{}, err
	}
	return out, nil
}

// Watch reloads the configuration whenever the file changes and hands the new
// values to onReload. Broken files keep the previous configuration active.
func Watch(f *file.File, onReload func(MainConfig)) {
	if f == nil {
		return
	}
	f.Watch(func(event interface{}, err error) {
		if err != nil {
			logger.Log.Errorln("watch error: ", err)
			return
		}
		time.Sleep(time.Duration(2) * time.Second)
		cfg, err := loadCfgData(f)
		if err != nil {
			logger.Log.Errorln("cfg reload failed: ", err)
			return
		}
		Set(cfg)
		logger.Log.Infoln("cfg reloaded")
		if onReload != nil {
			onReload(cfg)
		}
	})
}

// LoggerConfig converts the general section for logger.InitLogger.
func (c GeneralConfig) LoggerConfig() logger.LoggerConfig {
	return logger.LoggerConfig{
		LogLevel:     c.LogLevel,
		LogFile:      c.LogFile,
		LogFileSize:  c.LogFileSize,
		LogFileCount: c.LogFileCount,
		LogCompress:  c.LogCompress,
	}
}
