// Package config reads an extension's section out of the printer configuration.
//
// Klipper style files (printer.cfg, *.ini) are parsed as INI with `key: value`
// or `key = value` pairs. YAML, JSON and TOML files are read through viper and
// the section is the top level key of the same name. In both cases environment
// variables named <SECTION>_<OPTION> take precedence over the file.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

var ErrSectionNotFound = errors.New("section not found")

// Section is one named block of options.
type Section struct {
	name   string
	values map[string]string
	env    *viper.Viper
}

// NewSection builds a section from literal values. Option names are case insensitive.
func NewSection(name string, values map[string]string) *Section {
	s := &Section{name: name, values: make(map[string]string, len(values))}
	for k, v := range values {
		s.values[strings.ToLower(k)] = v
	}
	return s
}

// Load reads section from the file at path.
func Load(path, section string) (*Section, error) {
	var (
		sec *Section
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json", ".toml":
		sec, err = loadViper(path, section)
	default:
		sec, err = loadINI(path, section)
	}
	if err != nil {
		return nil, err
	}
	sec.env = envOverlay(section)
	return sec, nil
}

func loadINI(path, section string) (*Section, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		Insensitive:                true,
		AllowPythonMultilineValues: true,
		SpaceBeforeInlineComment:   true,
		SkipUnrecognizableLines:    true,
		PreserveSurroundedQuote:    true,
	}, path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	s, err := f.GetSection(strings.ToLower(section))
	if err != nil {
		return nil, fmt.Errorf("config %s: [%s]: %w", path, section, ErrSectionNotFound)
	}
	return NewSection(section, s.KeysHash()), nil
}

func loadViper(path, section string) (*Section, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	sub := v.Sub(section)
	if sub == nil {
		return nil, fmt.Errorf("config %s: %s: %w", path, section, ErrSectionNotFound)
	}
	values := make(map[string]string)
	for _, key := range sub.AllKeys() {
		values[key] = sub.GetString(key)
	}
	return NewSection(section, values), nil
}

func envOverlay(section string) *viper.Viper {
	ev := viper.New()
	ev.SetEnvPrefix(strings.ToUpper(section))
	ev.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_", " ", "_"))
	ev.AutomaticEnv()
	return ev
}

func (s *Section) Name() string {
	return s.name
}

func (s *Section) lookup(opt string) (string, bool) {
	opt = strings.ToLower(opt)
	if s.env != nil && s.env.IsSet(opt) {
		return s.env.GetString(opt), true
	}
	v, ok := s.values[opt]
	return v, ok
}

// Has reports whether the option is present in the file or the environment.
func (s *Section) Has(opt string) bool {
	_, ok := s.lookup(opt)
	return ok
}

// Options lists the option names present in the file, sorted.
func (s *Section) Options() []string {
	out := make([]string, 0, len(s.values))
	for k := range s.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Get returns a required option.
func (s *Section) Get(opt string) (string, error) {
	v, ok := s.lookup(opt)
	if !ok {
		return "", fmt.Errorf("Option '%s' in section '%s' must be specified", opt, s.name)
	}
	return v, nil
}

func (s *Section) GetDefault(opt, def string) string {
	if v, ok := s.lookup(opt); ok {
		return v
	}
	return def
}

func (s *Section) GetInt(opt string, def int) (int, error) {
	v, ok := s.lookup(opt)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("Unable to parse option '%s' in section '%s'", opt, s.name)
	}
	return n, nil
}

func (s *Section) GetBool(opt string, def bool) (bool, error) {
	v, ok := s.lookup(opt)
	if !ok {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "yes", "true", "on":
		return true, nil
	case "0", "no", "false", "off":
		return false, nil
	}
	return false, fmt.Errorf("Unable to parse option '%s' in section '%s'", opt, s.name)
}
