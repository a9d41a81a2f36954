package registryclient

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/ssh"

	"github.com/a-h/pkgrun/install/trust"
	"github.com/a-h/pkgrun/manifest"
)

func discardLog() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestFetchReturnsArchiveBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/packages/left-pad/1.0.0/dist" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("X-Package-Version", "1.0.0")
		w.Write([]byte("archive-bytes"))
	}))
	defer srv.Close()

	c := New(discardLog(), srv.URL)
	rc, err := c.Fetch(context.Background(), "left-pad", "1.0.0")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll error: %v", err)
	}
	if string(data) != "archive-bytes" {
		t.Errorf("got %q, want %q", data, "archive-bytes")
	}
}

func TestFetchReportsVersionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Package-Version", "2.0.0")
		w.Write([]byte("archive-bytes"))
	}))
	defer srv.Close()

	c := New(discardLog(), srv.URL)
	_, err := c.Fetch(context.Background(), "left-pad", "1.0.0")
	if _, ok := err.(*VersionMismatchError); !ok {
		t.Fatalf("expected VersionMismatchError, got %v (%T)", err, err)
	}
}

func TestFetchReportsRegistryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("not found"))
	}))
	defer srv.Close()

	c := New(discardLog(), srv.URL)
	_, err := c.Fetch(context.Background(), "missing", "1.0.0")
	if _, ok := err.(*RegistryError); !ok {
		t.Fatalf("expected RegistryError, got %v (%T)", err, err)
	}
}

func TestUploadSendsAuthorizationHeader(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	archive := filepath.Join(t.TempDir(), "pkg-1.0.0.tar.gz")
	if err := os.WriteFile(archive, []byte("tarball-contents"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(discardLog(), srv.URL)
	c.SetAuthToken("test-token")

	if err := c.Upload(context.Background(), "pkg", "1.0.0", archive); err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization header = %q, want %q", gotAuth, "Bearer test-token")
	}
	if string(gotBody) != "tarball-contents" {
		t.Errorf("body = %q, want %q", gotBody, "tarball-contents")
	}
}

func TestRegisterSendsManifestJSON(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		parsed, err := manifest.Parse(body)
		if err != nil {
			t.Errorf("failed to parse uploaded manifest: %v", err)
		}
		if parsed.Name != "pkg" {
			t.Errorf("manifest name = %q, want %q", parsed.Name, "pkg")
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(discardLog(), srv.URL)
	m := manifest.Manifest{Name: "pkg", Version: "1.0.0", License: "MIT"}
	if err := c.Register(context.Background(), m); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if gotPath != "/packages/pkg" {
		t.Errorf("path = %q, want %q", gotPath, "/packages/pkg")
	}
}

func TestVersionsDecodesJSONArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/packages/left-pad/versions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`["1.0.0","1.1.0","2.0.0"]`))
	}))
	defer srv.Close()

	c := New(discardLog(), srv.URL)
	versions, err := c.Versions(context.Background(), "left-pad")
	if err != nil {
		t.Fatalf("Versions error: %v", err)
	}
	want := []string{"1.0.0", "1.1.0", "2.0.0"}
	if len(versions) != len(want) {
		t.Fatalf("got %v, want %v", versions, want)
	}
	for i := range want {
		if versions[i] != want[i] {
			t.Errorf("versions[%d] = %q, want %q", i, versions[i], want[i])
		}
	}
}

func TestManifestParsesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/packages/left-pad/1.0.0/manifest" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"name":"left-pad","version":"1.0.0","license":"MIT"}`))
	}))
	defer srv.Close()

	c := New(discardLog(), srv.URL)
	m, err := c.Manifest(context.Background(), "left-pad", "1.0.0")
	if err != nil {
		t.Fatalf("Manifest error: %v", err)
	}
	if m.Name != "left-pad" || m.Version != "1.0.0" {
		t.Errorf("got %+v", m)
	}
}

func TestCreatePublisherTokenRejectsUnsupportedKeyType(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("failed to convert public key: %v", err)
	}

	// ed25519 isn't a supported JWT signing method in this scheme (only
	// RSA/ECDSA, per the teacher's CreateJWT switch). ed25519.PrivateKey
	// implements crypto.Signer directly, so it can be passed as-is.
	if _, err := CreatePublisherToken(priv, sshPub); err == nil {
		t.Error("expected an error for an unsupported private key type")
	}
}

func TestVerifyPublisherTokenRejectsMalformedToken(t *testing.T) {
	cfg := &trust.Config{}
	if _, err := VerifyPublisherToken("not-a-jwt", cfg); err == nil {
		t.Error("expected an error verifying a malformed token")
	}
}

func TestCreateAndVerifyPublisherTokenRoundTrip(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	sshSigner, err := ssh.NewSignerFromKey(rsaKey)
	if err != nil {
		t.Fatalf("failed to build ssh signer: %v", err)
	}
	sshPub := sshSigner.PublicKey()

	token, err := CreatePublisherToken(rsaKey, sshPub)
	if err != nil {
		t.Fatalf("CreatePublisherToken error: %v", err)
	}

	cfg := &trust.Config{Keys: []trust.AuthorizedKey{
		{Permission: trust.PermissionPublish, PublicKey: sshPub, Comment: "ci"},
	}}

	fingerprint, err := VerifyPublisherToken(token, cfg)
	if err != nil {
		t.Fatalf("VerifyPublisherToken error: %v", err)
	}
	if want := ssh.FingerprintSHA256(sshPub); fingerprint != want {
		t.Errorf("fingerprint = %q, want %q", fingerprint, want)
	}
}

func TestVerifyPublisherTokenRejectsUntrustedKey(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	sshSigner, err := ssh.NewSignerFromKey(rsaKey)
	if err != nil {
		t.Fatalf("failed to build ssh signer: %v", err)
	}

	token, err := CreatePublisherToken(rsaKey, sshSigner.PublicKey())
	if err != nil {
		t.Fatalf("CreatePublisherToken error: %v", err)
	}

	cfg := &trust.Config{}
	if _, err := VerifyPublisherToken(token, cfg); err == nil {
		t.Error("expected an error verifying a token signed by an untrusted key")
	}
}
