package extension

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fsandov/klipper-gotify/pkg/config"
	"github.com/fsandov/klipper-gotify/pkg/gotify"
	"github.com/fsandov/klipper-gotify/pkg/logs"
	"go.uber.org/zap"
)

const DefaultSection = "gotify"

var knownOptions = map[string]bool{
	"token":                          true,
	"server":                         true,
	"priority":                       true,
	"serverport":                     true,
	"disable_certificate_validation": true,
}

// Config is the [gotify] section after parsing. It is not modified after New.
type Config struct {
	Section            string
	Server             string
	Port               int
	Token              string
	Priority           int
	InsecureSkipVerify bool
}

// ConfigFromSection reads token, server, priority, serverport and
// disable_certificate_validation from sec.
func ConfigFromSection(sec *config.Section) (Config, error) {
	cfg := Config{Section: sec.Name()}
	var err error

	if cfg.Token, err = sec.Get("token"); err != nil {
		return Config{}, err
	}
	if cfg.Server, err = sec.Get("server"); err != nil {
		return Config{}, err
	}
	if cfg.Priority, err = sec.GetInt("priority", gotify.DefaultPriority); err != nil {
		return Config{}, err
	}
	cfg.Port = gotify.DefaultPort
	if sec.Has("serverport") {
		portStr, _ := sec.Get("serverport")
		if cfg.Port, err = strconv.Atoi(strings.TrimSpace(portStr)); err != nil || cfg.Port < 1 || cfg.Port > 65535 {
			return Config{}, fmt.Errorf("Unable to parse option 'serverport' in section '%s'", sec.Name())
		}
	}
	if cfg.InsecureSkipVerify, err = sec.GetBool("disable_certificate_validation", false); err != nil {
		return Config{}, err
	}
	for _, opt := range UnknownOptions(sec) {
		logs.Warn(context.Background(), "ignoring unknown option",
			zap.String("option", opt), zap.String("section", sec.Name()))
	}
	return cfg, cfg.Validate()
}

// UnknownOptions lists the options of sec that the notifier does not read.
func UnknownOptions(sec *config.Section) []string {
	var unknown []string
	for _, opt := range sec.Options() {
		if !knownOptions[opt] {
			unknown = append(unknown, opt)
		}
	}
	return unknown
}

// LoadConfig reads section from the configuration file at path.
func LoadConfig(path, section string) (Config, error) {
	if section == "" {
		section = DefaultSection
	}
	sec, err := config.Load(path, section)
	if err != nil {
		return Config{}, err
	}
	return ConfigFromSection(sec)
}

func (c Config) Validate() error {
	section := c.Section
	if section == "" {
		section = DefaultSection
	}
	if strings.TrimSpace(c.Token) == "" {
		return fmt.Errorf("Option 'token' in section '%s' must be specified", section)
	}
	if strings.TrimSpace(c.Server) == "" {
		return fmt.Errorf("Option 'server' in section '%s' must be specified", section)
	}
	return nil
}
