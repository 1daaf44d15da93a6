package crates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/matzehuels/stackdoc/pkg/buildinfo"
	"github.com/matzehuels/stackdoc/pkg/cache"
	"github.com/matzehuels/stackdoc/pkg/integrations"
)

const (
	defaultBaseURL     = "https://crates.io/api/v1"
	defaultDownloadURL = "https://static.crates.io/crates"
)

// CrateInfo holds summary metadata for a crate from crates.io.
//
// Version is the highest stable version, falling back to max_version when
// the crate has no stable release.
type CrateInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	License     string `json:"license,omitempty"`
	Repository  string `json:"repository,omitempty"`
	Downloads   int    `json:"downloads"`
}

// VersionInfo describes one published version of a crate.
type VersionInfo struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Checksum string `json:"checksum"` // hex SHA-256 of the .crate archive
	Yanked   bool   `json:"yanked"`
	Size     int64  `json:"size"`
	License  string `json:"license,omitempty"`
}

// Client provides access to the crates.io registry API and static download
// host.
//
// All methods are safe for concurrent use by multiple goroutines.
//
// Note: crates.io requires a User-Agent header; this client sets one automatically.
type Client struct {
	*integrations.Client
	baseURL     string
	downloadURL string
}

// NewClient creates a crates.io client. API responses are cached in backend
// for cacheTTL; archive downloads are never cached here.
func NewClient(backend cache.Cache, cacheTTL time.Duration) *Client {
	headers := map[string]string{
		"User-Agent": UserAgent(),
	}
	return &Client{
		Client:      integrations.NewClient(backend, "crates:", cacheTTL, headers),
		baseURL:     defaultBaseURL,
		downloadURL: defaultDownloadURL,
	}
}

// UserAgent identifies stackdoc to crates.io as its crawler policy asks.
func UserAgent() string {
	return buildinfo.UserAgent() + " (https://github.com/matzehuels/stackdoc)"
}

// FetchCrate retrieves summary metadata for a crate, used to resolve the
// latest version when none is given.
//
// Returns [integrations.ErrNotFound] if the crate doesn't exist.
func (c *Client) FetchCrate(ctx context.Context, crate string, refresh bool) (*CrateInfo, error) {
	var info CrateInfo
	err := c.Cached(ctx, crate, refresh, &info, func() error {
		var data crateResponse
		url := fmt.Sprintf("%s/crates/%s", c.baseURL, integrations.PathEscape(crate))
		if err := c.Get(ctx, url, &data); err != nil {
			return notFound(err, crate)
		}

		version := data.Crate.MaxStableVersion
		if version == "" {
			version = data.Crate.MaxVersion
		}
		info = CrateInfo{
			Name:        data.Crate.Name,
			Version:     version,
			Description: data.Crate.Description,
			License:     data.Crate.License,
			Repository:  data.Crate.Repository,
			Downloads:   data.Crate.Downloads,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// FetchVersion retrieves metadata for one version, including the archive
// checksum.
//
// Returns [integrations.ErrNotFound] if the crate or version doesn't exist.
func (c *Client) FetchVersion(ctx context.Context, crate, version string, refresh bool) (*VersionInfo, error) {
	var info VersionInfo
	err := c.Cached(ctx, crate+"@"+version, refresh, &info, func() error {
		var data versionResponse
		url := fmt.Sprintf("%s/crates/%s/%s", c.baseURL, integrations.PathEscape(crate), integrations.PathEscape(version))
		if err := c.Get(ctx, url, &data); err != nil {
			return notFound(err, crate+"@"+version)
		}
		info = VersionInfo{
			Name:     data.Version.Crate,
			Version:  data.Version.Num,
			Checksum: data.Version.Checksum,
			Yanked:   data.Version.Yanked,
			Size:     data.Version.CrateSize,
			License:  data.Version.License,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// DownloadURL returns the static URL of a crate archive.
func (c *Client) DownloadURL(crate, version string) string {
	name := integrations.PathEscape(crate)
	return fmt.Sprintf("%s/%s/%s-%s.crate", c.downloadURL, name, name, integrations.PathEscape(version))
}

// Download streams the .crate archive for crate@version into w.
func (c *Client) Download(ctx context.Context, crate, version string, w io.Writer) (int64, error) {
	n, err := c.Client.Download(ctx, c.DownloadURL(crate, version), w)
	if err != nil {
		return n, notFound(err, crate+"@"+version)
	}
	return n, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, integrations.ErrNotFound) {
		return fmt.Errorf("%w: crate %s", err, what)
	}
	return err
}

type crateResponse struct {
	Crate struct {
		Name             string `json:"name"`
		MaxVersion       string `json:"max_version"`
		MaxStableVersion string `json:"max_stable_version"`
		Description      string `json:"description"`
		License          string `json:"license"`
		Repository       string `json:"repository"`
		Downloads        int    `json:"downloads"`
	} `json:"crate"`
}

type versionResponse struct {
	Version struct {
		Crate     string `json:"crate"`
		Num       string `json:"num"`
		Checksum  string `json:"checksum"`
		Yanked    bool   `json:"yanked"`
		CrateSize int64  `json:"crate_size"`
		License   string `json:"license"`
	} `json:"version"`
}
