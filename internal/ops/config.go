// Package ops holds runtime configuration.
package ops

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/yanun0323/errors"

	"main/pkg/wsclient"
)

// Config is the environment-derived runtime configuration.
type Config struct {
	GatewayURL     string        `env:"CHAT_GATEWAY_URL" envDefault:"ws://localhost:8000/api/v1/ws/chat"`
	APIBaseURL     string        `env:"CHAT_API_URL" envDefault:"http://localhost:8000/api/v1"`
	Token          string        `env:"CHAT_TOKEN"`
	TokenFile      string        `env:"CHAT_TOKEN_FILE"`
	ReconnectDelay time.Duration `env:"CHAT_RECONNECT_DELAY"`
	PyroscopeAddr  string        `env:"CHAT_PYROSCOPE_ADDR"`
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse env config")
	}
	return cfg, nil
}

// TokenSource exposes the configured credential as the session token source.
// A token file is re-read on every call, mirroring how session storage is
// consulted at each connect attempt: emptying or removing the file reads as
// a logout.
func (c Config) TokenSource() wsclient.TokenSource {
	if c.TokenFile != "" {
		path := c.TokenFile
		return wsclient.TokenFunc(func() (string, bool) {
			raw, err := os.ReadFile(path)
			if err != nil {
				return "", false
			}
			token := strings.TrimSpace(string(raw))
			return token, token != ""
		})
	}
	return wsclient.StaticToken(c.Token)
}
