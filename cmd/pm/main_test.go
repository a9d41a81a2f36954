package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/a-h/pkgrun/cmd/globals"
)

func TestSaveSectionPriority(t *testing.T) {
	cases := []struct {
		name string
		cmd  InstallCmd
		want string
	}{
		{"none", InstallCmd{}, ""},
		{"save", InstallCmd{Save: true}, "dependencies"},
		{"save-dev", InstallCmd{SaveDev: true}, "dev-dependencies"},
		{"save-ext", InstallCmd{SaveExt: true}, "extensions"},
		{"dev wins over save", InstallCmd{Save: true, SaveDev: true}, "dev-dependencies"},
	}
	for _, c := range cases {
		if got := c.cmd.saveSection(); got != c.want {
			t.Errorf("%s: saveSection() = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestInferNameVersion(t *testing.T) {
	name, version, err := inferNameVersion("dist/left-pad-1.2.3.tar.gz")
	if err != nil {
		t.Fatalf("inferNameVersion error: %v", err)
	}
	if name != "left-pad" || version != "1.2.3" {
		t.Errorf("got name=%q version=%q", name, version)
	}
}

func TestInferNameVersionRejectsUnparseable(t *testing.T) {
	if _, _, err := inferNameVersion("noextension"); err == nil {
		t.Error("expected an error for an archive name without a version separator")
	}
}

func TestRegistryNeededTrueForBarePackageName(t *testing.T) {
	if !registryNeeded([]string{"left-pad@1.0.0"}) {
		t.Error("registryNeeded() = false, want true for a registry target")
	}
}

func TestRegistryNeededFalseForLocalAndNativeTargets(t *testing.T) {
	if registryNeeded([]string{"./local", "py/requests==2.0.0"}) {
		t.Error("registryNeeded() = true, want false for local/native targets")
	}
}

func writeRSAIdentity(t *testing.T, dir string) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating RSA key: %v", err)
	}
	der := x509.MarshalPKCS1PrivateKey(key)
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: der}
	path := filepath.Join(dir, "identity.pem")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatalf("writing identity file: %v", err)
	}
	return path
}

func TestLoadIdentityParsesRSAKey(t *testing.T) {
	dir := t.TempDir()
	path := writeRSAIdentity(t, dir)

	signer, pub, err := loadIdentity(path)
	if err != nil {
		t.Fatalf("loadIdentity error: %v", err)
	}
	if signer == nil || pub == nil {
		t.Fatal("loadIdentity returned a nil signer or public key")
	}
}

func TestInitWritesManifest(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	cmd := &InitCmd{Name: "left-pad", Version: "1.0.0", License: "MIT", Main: "index"}
	if err := cmd.Run(&globals.Globals{}); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		t.Fatalf("reading package.json: %v", err)
	}
	if len(data) == 0 {
		t.Error("package.json is empty")
	}
}

func TestDistPacksArchive(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	manifestJSON := `{"name":"left-pad","version":"1.0.0","license":"MIT"}`
	if err := os.WriteFile("package.json", []byte(manifestJSON), 0o644); err != nil {
		t.Fatalf("writing package.json: %v", err)
	}
	if err := os.WriteFile("index.js", []byte("module.exports = {};"), 0o644); err != nil {
		t.Fatalf("writing index.js: %v", err)
	}

	cmd := &DistCmd{}
	if err := cmd.Run(&globals.Globals{}); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "dist", "left-pad-1.0.0.tar.gz")); err != nil {
		t.Errorf("expected dist archive to exist: %v", err)
	}
}

func TestBinAndDirsPrintPaths(t *testing.T) {
	dir := t.TempDir()
	binCmd := &BinCmd{CurrentDir: dir}
	if err := binCmd.Run(&globals.Globals{}); err != nil {
		t.Fatalf("BinCmd.Run error: %v", err)
	}
	dirsCmd := &DirsCmd{CurrentDir: dir}
	if err := dirsCmd.Run(&globals.Globals{}); err != nil {
		t.Fatalf("DirsCmd.Run error: %v", err)
	}
}
