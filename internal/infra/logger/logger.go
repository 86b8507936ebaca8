// internal/infra/logger/logger.go
package logger

import (
	"io"
	"net/url"
	"os"
	"strings"

	"originality_sync/internal/infra/config"

	"github.com/sirupsen/logrus"
)

const (
	redacted = "[REDACTED]"
	// shorter values would mask ordinary words
	minSecretLen = 6
)

// Log is the global logger instance
var Log = logrus.New()

// Init configures the global logger: level and format from the environment,
// plus a hook that masks the configured secrets in every entry.
func Init(cfg *config.AppConfig) {
	Log.SetOutput(os.Stdout)
	Log.ReplaceHooks(make(logrus.LevelHooks))

	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		Log.Warnf("Invalid log level '%s', defaulting to 'info'. Error: %v", cfg.LogLevel, err)
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)
	Log.SetFormatter(formatterFor(cfg.Environment))

	if hook := newRedactHook(secretsOf(cfg)...); hook != nil {
		Log.AddHook(hook)
	}
	Log.WithFields(logrus.Fields{"level": Log.GetLevel().String(), "environment": cfg.Environment}).Debug("Logger configured")
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}

// Discard returns an entry that writes nowhere. Used by tests.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func formatterFor(env string) logrus.Formatter {
	switch strings.ToLower(env) {
	case "production", "staging":
		return &logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"}
	default:
		return &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			ForceColors:     true,
		}
	}
}

// secretsOf lists the configured values that must never reach the log: the
// checking service password, the bot token and the database password.
func secretsOf(cfg *config.AppConfig) []string {
	secrets := []string{cfg.AntiplagiatPassword, cfg.TelegramToken}
	if u, err := url.Parse(cfg.DatabaseURL); err == nil && u.User != nil {
		if pass, ok := u.User.Password(); ok {
			secrets = append(secrets, pass)
		}
	}
	return secrets
}

// redactHook replaces secrets in the message and string fields of an entry.
type redactHook struct {
	replacer *strings.Replacer
}

func newRedactHook(secrets ...string) *redactHook {
	var pairs []string
	for _, s := range secrets {
		if len(s) >= minSecretLen {
			pairs = append(pairs, s, redacted)
		}
	}
	if len(pairs) == 0 {
		return nil
	}
	return &redactHook{replacer: strings.NewReplacer(pairs...)}
}

func (h *redactHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *redactHook) Fire(e *logrus.Entry) error {
	e.Message = h.replacer.Replace(e.Message)
	for k, v := range e.Data {
		switch val := v.(type) {
		case string:
			e.Data[k] = h.replacer.Replace(val)
		case error:
			e.Data[k] = h.replacer.Replace(val.Error())
		}
	}
	return nil
}
