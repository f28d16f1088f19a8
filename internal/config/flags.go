package config

import (
	"strings"

	"github.com/spf13/pflag"
)

// BindFlags registers command-line overrides for the most commonly changed
// settings. Call Apply on the result after parsing.
func BindFlags(fs *pflag.FlagSet) *Overrides {
	o := &Overrides{}
	fs.StringVar(&o.Backend, "backend", "", "ticket storage backend (local|remote)")
	fs.StringVar(&o.LocalPath, "local-path", "", "path of the local ticket database")
	fs.StringVar(&o.Subscription, "subscription", "", "live list delivery mode (push|poll)")
	fs.StringVar(&o.Port, "port", "", "HTTP listen port")
	fs.StringVar(&o.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	return o
}

// Overrides holds flag values; empty fields leave the loaded config untouched.
type Overrides struct {
	Backend      string
	LocalPath    string
	Subscription string
	Port         string
	LogLevel     string
}

// Apply copies non-empty overrides into cfg and revalidates it.
func (o *Overrides) Apply(cfg *Config) error {
	if o.Backend != "" {
		cfg.Store.Backend = strings.ToLower(o.Backend)
	}
	if o.LocalPath != "" {
		cfg.Store.LocalPath = o.LocalPath
	}
	if o.Subscription != "" {
		cfg.Subscription.Mode = strings.ToLower(o.Subscription)
	}
	if o.Port != "" {
		cfg.App.Port = o.Port
	}
	if o.LogLevel != "" {
		cfg.Logger.Level = o.LogLevel
	}
	return cfg.Validate()
}
