// Package trust gates publish and register operations behind an SSH
// public-key allowlist, adapted from the teacher's push-authentication
// layer (auth.AuthConfig) to a package-registry's trust model: a key
// either may publish new package versions, or may only resolve otherwise
// private packages during install.
package trust

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
)

// Permission is the level of access an authorized key carries.
type Permission string

const (
	// PermissionInstall allows resolving and downloading private packages
	// but not publishing new versions.
	PermissionInstall Permission = "r"
	// PermissionPublish allows publishing and registering packages, and
	// implies PermissionInstall.
	PermissionPublish Permission = "w"
)

// AuthorizedKey is a single trusted SSH public key and its permission.
type AuthorizedKey struct {
	Permission Permission
	PublicKey  ssh.PublicKey
	Comment    string
}

// Config is the parsed trust file: the set of keys allowed to install
// private packages or publish/register new ones.
type Config struct {
	Keys []AuthorizedKey
	// RequirePermissionForInstall is true once any key in the file is
	// install-only, signalling that the registry has at least one private
	// package gated behind key-based trust.
	RequirePermissionForInstall bool
}

// Load reads a trust file. Each non-blank, non-comment line has the form
// "r|w ssh-keytype base64key comment". An empty path yields an empty,
// unrestricted Config (every package is installable, nothing is
// publishable without some other gate).
func Load(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trust: failed to open trust file: %w", err)
	}
	defer file.Close()

	var cfg Config
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 3 {
			return nil, fmt.Errorf("trust: invalid format on line %d: expected at least 3 fields", lineNum)
		}

		var perm Permission
		switch parts[0] {
		case "r":
			perm = PermissionInstall
			cfg.RequirePermissionForInstall = true
		case "w":
			perm = PermissionPublish
		default:
			return nil, fmt.Errorf("trust: invalid permission on line %d: expected 'r' or 'w', got %q", lineNum, parts[0])
		}

		keyLine := strings.Join(parts[1:], " ")
		pubKey, comment, _, _, err := ssh.ParseAuthorizedKey([]byte(keyLine))
		if err != nil {
			return nil, fmt.Errorf("trust: invalid SSH key on line %d: %w", lineNum, err)
		}

		cfg.Keys = append(cfg.Keys, AuthorizedKey{
			Permission: perm,
			PublicKey:  pubKey,
			Comment:    comment,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("trust: error reading trust file: %w", err)
	}

	return &cfg, nil
}

// Lookup returns the permission granted to pubKey, if it is trusted.
func (c *Config) Lookup(pubKey ssh.PublicKey) (Permission, bool) {
	for _, key := range c.Keys {
		if string(key.PublicKey.Marshal()) == string(pubKey.Marshal()) {
			return key.Permission, true
		}
	}
	return "", false
}

// CanPublish reports whether pubKey may publish or register packages.
func (c *Config) CanPublish(pubKey ssh.PublicKey) bool {
	perm, ok := c.Lookup(pubKey)
	return ok && perm == PermissionPublish
}

// CanInstall reports whether pubKey may install private packages. When no
// key in the Config is install-only, every key (and an absent one) may
// install, since the registry has nothing install-gated.
func (c *Config) CanInstall(pubKey ssh.PublicKey) bool {
	if !c.RequirePermissionForInstall {
		return true
	}
	perm, ok := c.Lookup(pubKey)
	return ok && (perm == PermissionInstall || perm == PermissionPublish)
}
