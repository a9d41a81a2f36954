// Package registryclient talks to a package registry's HTTP API: fetching
// a dist archive for installation, and uploading/registering one for
// publish. Grounded in the teacher's npm/push (and python/push, nix/push)
// packages, which do the equivalent PUT-based upload over plain
// *http.Client with a bearer token.
package registryclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/a-h/pkgrun/manifest"
)

// VersionMismatchError reports that the registry served a different
// version than was requested, e.g. under a "latest" redirect that moved
// between the request and the response.
type VersionMismatchError struct {
	Package   string
	Requested string
	Got       string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("registryclient: requested %s@%s but registry served %s", e.Package, e.Requested, e.Got)
}

// RegistryError reports a non-2xx HTTP response from the registry.
type RegistryError struct {
	StatusCode int
	Body       string
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("registryclient: registry responded %d: %s", e.StatusCode, e.Body)
}

// Client is an HTTP client for a single package registry.
type Client struct {
	log     *slog.Logger
	http    *http.Client
	baseURL string
	token   string
}

// New creates a registry client for baseURL (e.g. "https://registry.example.com").
func New(log *slog.Logger, baseURL string) *Client {
	return &Client{
		log:     log,
		http:    &http.Client{Timeout: 60 * time.Second},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// SetAuthToken sets the bearer token sent with subsequent requests: a
// token from the registry's config section, or one minted from a local SSH
// key by CreatePublisherToken.
func (c *Client) SetAuthToken(token string) {
	c.token = token
}

// Fetch downloads the dist archive for name@version. The caller is
// responsible for validating its signature (see the sign package) before
// extracting it.
func (c *Client) Fetch(ctx context.Context, name, version string) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/packages/%s/%s/dist", c.baseURL, name, version)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("registryclient: building request: %w", err)
	}
	c.setAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registryclient: fetching %s@%s: %w", name, version, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, &RegistryError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if got := resp.Header.Get("X-Package-Version"); got != "" && got != version {
		resp.Body.Close()
		return nil, &VersionMismatchError{Package: name, Requested: version, Got: got}
	}

	return resp.Body, nil
}

// Versions returns every version the registry has advertised for name, the
// client-side counterpart of the teacher's db.GetPackage version listing.
func (c *Client) Versions(ctx context.Context, name string) ([]string, error) {
	url := fmt.Sprintf("%s/packages/%s/versions", c.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("registryclient: building request: %w", err)
	}
	c.setAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registryclient: listing versions for %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &RegistryError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var versions []string
	if err := json.NewDecoder(resp.Body).Decode(&versions); err != nil {
		return nil, fmt.Errorf("registryclient: decoding version list for %s: %w", name, err)
	}
	return versions, nil
}

// Manifest fetches the manifest for name@version, used while expanding a
// dependency graph transitively.
func (c *Client) Manifest(ctx context.Context, name, version string) (manifest.Manifest, error) {
	url := fmt.Sprintf("%s/packages/%s/%s/manifest", c.baseURL, name, version)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return manifest.Manifest{}, fmt.Errorf("registryclient: building request: %w", err)
	}
	c.setAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return manifest.Manifest{}, fmt.Errorf("registryclient: fetching manifest for %s@%s: %w", name, version, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return manifest.Manifest{}, &RegistryError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return manifest.Manifest{}, fmt.Errorf("registryclient: reading manifest for %s@%s: %w", name, version, err)
	}
	return manifest.Parse(data)
}

// Upload pushes a dist archive for name@version, implementing
// distpkg.Uploader for the publish workflow.
func (c *Client) Upload(ctx context.Context, name, version, archivePath string) error {
	c.log.Info("uploading package", slog.String("package", name), slog.String("version", version))

	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("registryclient: opening archive: %w", err)
	}
	defer f.Close()

	url := fmt.Sprintf("%s/packages/%s/%s/dist", c.baseURL, name, version)
	return c.putData(ctx, url, f, "application/octet-stream")
}

// Register creates a new package entry (or a new version of an existing
// one) from m, the "register" CLI command's operation.
func (c *Client) Register(ctx context.Context, m manifest.Manifest) error {
	data, err := m.Serialize()
	if err != nil {
		return fmt.Errorf("registryclient: serializing manifest: %w", err)
	}

	url := fmt.Sprintf("%s/packages/%s", c.baseURL, m.Name)
	return c.putData(ctx, url, bytes.NewReader(data), "application/json")
}

func (c *Client) putData(ctx context.Context, url string, data io.Reader, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, data)
	if err != nil {
		return fmt.Errorf("registryclient: building request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	c.setAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("registryclient: performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &RegistryError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
