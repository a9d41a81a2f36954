package main

import (
	"context"
	"fmt"
	"os"

	"github.com/a-h/pkgrun/cmd/globals"
	"github.com/a-h/pkgrun/distpkg"
	"github.com/a-h/pkgrun/hooks"
	"github.com/a-h/pkgrun/pkgregistry"
	"github.com/a-h/pkgrun/registryclient"
	"github.com/a-h/pkgrun/runtimehost"
)

// PublishCmd packs, authenticates, and uploads the current package, running
// pre-publish/post-publish hooks around it, per spec.md §4.9: "publish =
// dist + upload + pre-publish/post-publish hook invocation".
type PublishCmd struct {
	Registry string `name:"registry" help:"Named registry section to publish to" default:"default"`
	Identity string `name:"identity" help:"Path to a PEM-encoded RSA/ECDSA private key authenticating the request"`
	Pymain   bool   `name:"pymain" help:"Run lifecycle hook scripts with host __main__ detection enabled"`
}

func (cmd *PublishCmd) Run(g *globals.Globals) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("pm: determining working directory: %w", err)
	}
	m, err := readLocalManifestFile(wd)
	if err != nil {
		return err
	}
	if err := m.ValidateForPublish(); err != nil {
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
	}

	rtCtx := runtimehost.Bootstrap(cmd.Pymain)
	if err := rtCtx.Enter(nil); err != nil {
		return fmt.Errorf("pm: entering hook runtime context: %w", err)
	}
	defer rtCtx.Leave()
	runner := hooks.New(&runtimehost.Adapter{Ctx: rtCtx}, log, wd)

	pkgView := pkgregistry.FromManifest(wd, m)
	if err := distpkg.Publish(context.Background(), wd, pkgView, m, client, runner); err != nil {
		return err
	}
	fmt.Printf("published %s@%s\n", m.Name, m.Version)
	return nil
}
