package main

import (
	"context"
	"fmt"
	"os"

	"github.com/a-h/pkgrun/cmd/globals"
	"github.com/a-h/pkgrun/registryclient"
)

// RegisterCmd registers the current package (or claims a new version of an
// existing one) with a registry, authenticating with an identity key when
// given one, per spec.md §6.
type RegisterCmd struct {
	Registry string `name:"registry" help:"Named registry section to register against" default:"default"`
	Identity string `name:"identity" help:"Path to a PEM-encoded RSA/ECDSA private key authenticating the request"`
}

func (cmd *RegisterCmd) Run(g *globals.Globals) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("pm: determining working directory: %w", err)
	}
	m, err := readLocalManifestFile(wd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(g)
	if err != nil {
		return fmt.Errorf("pm: loading config: %w", err)
	}
	log := newLogger(g)
	client, err := registryClientFor(cfg, log, cmd.Registry)
	if err != nil {
		return err
	}

	if cmd.Identity != "" {
		signer, pub, err := loadIdentity(cmd.Identity)
		if err != nil {
			return err
		}
		token, err := registryclient.CreatePublisherToken(signer, pub)
		if err != nil {
			return fmt.Errorf("pm: creating publisher token: %w", err)
		}
		client.SetAuthToken(token)
		cfg.SetToken(cmd.Registry, token)
		if path := cmd.configPath(g); path != "" {
			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("pm: caching auth token: %w", err)
			}
		}
	}

	if err := client.Register(context.Background(), m); err != nil {
		return err
	}
	fmt.Printf("registered %s@%s\n", m.Name, m.Version)
	return nil
}

func (cmd *RegisterCmd) configPath(g *globals.Globals) string {
	if g.ConfigFile != "" {
		return g.ConfigFile
	}
	return ""
}
