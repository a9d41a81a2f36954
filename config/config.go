// Package config loads the INI-style config file spec.md describes:
// a "[default]" section of free-form key/value settings, plus one
// "[registry:name]" section per configured registry carrying its URL and
// credentials. The pack carries no INI library (see DESIGN.md), so this
// hand-rolls a small line scanner in the style of auth.LoadAuthConfig:
// bufio.Scanner, strings.Fields-style splitting, line-numbered errors.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Registry is one configured package registry.
type Registry struct {
	Name     string
	URL      string
	Username string
	Password string
	// Token is a bearer JWT cached after a successful "register" exchange
	// of Username/Password, so subsequent runs skip re-authenticating.
	Token string
}

// Config is a parsed config file.
type Config struct {
	Default    map[string]string
	Registries map[string]Registry
}

// InvalidConfigError reports a config file that failed to parse.
type InvalidConfigError struct {
	Line   int
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("config: line %d: %s", e.Line, e.Reason)
}

// Load reads an INI-style config file. An empty path yields an empty,
// all-defaults Config rather than an error, since every setting it holds
// has a command-line or environment-variable equivalent.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Default:    map[string]string{},
		Registries: map[string]Registry{},
	}
	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: failed to open config file: %w", err)
	}
	defer file.Close()

	section := "default"
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return nil, &InvalidConfigError{Line: lineNum, Reason: "unterminated section header"}
			}
			section = strings.TrimSpace(line[1 : len(line)-1])
			if section != "default" {
				name, ok := strings.CutPrefix(section, "registry:")
				if !ok || name == "" {
					return nil, &InvalidConfigError{Line: lineNum, Reason: fmt.Sprintf("unrecognized section %q", section)}
				}
				if _, exists := cfg.Registries[name]; !exists {
					cfg.Registries[name] = Registry{Name: name}
				}
			}
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, &InvalidConfigError{Line: lineNum, Reason: "expected key = value"}
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if section == "default" {
			cfg.Default[key] = value
			continue
		}

		name := strings.TrimPrefix(section, "registry:")
		reg := cfg.Registries[name]
		switch key {
		case "url", "registry":
			reg.URL = value
		case "username":
			reg.Username = value
		case "password":
			reg.Password = value
		case "token":
			reg.Token = value
		default:
			return nil, &InvalidConfigError{Line: lineNum, Reason: fmt.Sprintf("unrecognized key %q in section [%s]", key, section)}
		}
		cfg.Registries[name] = reg
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: error reading config file: %w", err)
	}

	return cfg, nil
}

// Get returns a "[default]" section value.
func (c *Config) Get(key string) (string, bool) {
	v, ok := c.Default[key]
	return v, ok
}

// Registry returns the named registry's configuration.
func (c *Config) Registry(name string) (Registry, bool) {
	r, ok := c.Registries[name]
	return r, ok
}

// SetToken records a bearer token for name, for persisting back to disk
// after a successful "register" credential exchange.
func (c *Config) SetToken(name, token string) {
	reg := c.Registries[name]
	reg.Name = name
	reg.Token = token
	c.Registries[name] = reg
}

// Save writes cfg back to path in the same INI format Load reads,
// preserving default keys and one "[registry:name]" section per registry.
func (c *Config) Save(path string) error {
	var b strings.Builder
	b.WriteString("[default]\n")
	for k, v := range c.Default {
		fmt.Fprintf(&b, "%s = %s\n", k, v)
	}
	for name, reg := range c.Registries {
		fmt.Fprintf(&b, "\n[registry:%s]\n", name)
		if reg.URL != "" {
			fmt.Fprintf(&b, "url = %s\n", reg.URL)
		}
		if reg.Username != "" {
			fmt.Fprintf(&b, "username = %s\n", reg.Username)
		}
		if reg.Password != "" {
			fmt.Fprintf(&b, "password = %s\n", reg.Password)
		}
		if reg.Token != "" {
			fmt.Fprintf(&b, "token = %s\n", reg.Token)
		}
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("config: failed to write config file: %w", err)
	}
	return nil
}

// DefaultPath returns the config file path used when neither --config-file
// nor PKGRUN_CONFIG is set: "<user config dir>/pkgrun/config".
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: failed to determine user config directory: %w", err)
	}
	return dir + "/pkgrun/config", nil
}
