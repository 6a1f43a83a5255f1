package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"sonora/types"

	"go.uber.org/zap"
	"golang.org/x/mod/semver"
)

// ErrUpdaterNotConfigured is returned by Check when no manifest endpoint is set
var ErrUpdaterNotConfigured = errors.New("updater endpoint not configured")

// UpdateChecker reports whether a newer release is published
type UpdateChecker interface {
	Check(ctx context.Context) (*types.UpdateInfo, error)
}

// updateManifest is the static JSON document published next to each release
type updateManifest struct {
	Version   string                      `json:"version"`
	Notes     string                      `json:"notes"`
	PubDate   string                      `json:"pub_date"`
	Platforms map[string]platformArtifact `json:"platforms"`
}

type platformArtifact struct {
	Signature string `json:"signature"`
	URL       string `json:"url"`
}

// Updater checks a release manifest against the running version
type Updater struct {
	endpoint       string
	currentVersion string
	platform       string
	client         *http.Client
	logger         *zap.Logger
}

// NewUpdater creates an updater for the given manifest endpoint
func NewUpdater(endpoint, currentVersion string, timeout time.Duration, logger *zap.Logger) *Updater {
	return &Updater{
		endpoint:       endpoint,
		currentVersion: currentVersion,
		platform:       PlatformKey(runtime.GOOS, runtime.GOARCH),
		client:         &http.Client{Timeout: timeout},
		logger:         logger,
	}
}

// PlatformKey maps GOOS/GOARCH to the manifest's platform key, e.g. "windows-x86_64"
func PlatformKey(goos, goarch string) string {
	arch := goarch
	switch goarch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	case "386":
		arch = "i686"
	case "arm":
		arch = "armv7"
	}
	return goos + "-" + arch
}

// Check fetches the manifest and compares its version with the running one
func (u *Updater) Check(ctx context.Context) (*types.UpdateInfo, error) {
	if u.endpoint == "" {
		return nil, ErrUpdaterNotConfigured
	}

	u.logger.Info("checking for updates", zap.String("current", u.currentVersion))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check for updates: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to check for updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return u.upToDate(), nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to check for updates: %w", &StatusError{StatusCode: resp.StatusCode, Status: resp.Status})
	}

	var manifest updateManifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("failed to decode update manifest: %w", err)
	}

	latest, current := canonicalVersion(manifest.Version), canonicalVersion(u.currentVersion)
	if !semver.IsValid(latest) {
		return nil, fmt.Errorf("update manifest has invalid version %q", manifest.Version)
	}
	if !semver.IsValid(current) || semver.Compare(latest, current) <= 0 {
		u.logger.Info("no update available", zap.String("current", u.currentVersion))
		return u.upToDate(), nil
	}

	info := &types.UpdateInfo{
		UpdateAvailable: true,
		CurrentVersion:  u.currentVersion,
		NewVersion:      strings.TrimPrefix(manifest.Version, "v"),
		Body:            manifest.Notes,
	}
	if artifact, ok := manifest.Platforms[u.platform]; ok {
		info.DownloadURL = artifact.URL
	}

	u.logger.Info("update available",
		zap.String("current", u.currentVersion),
		zap.String("new", info.NewVersion))
	return info, nil
}

func (u *Updater) upToDate() *types.UpdateInfo {
	return &types.UpdateInfo{
		UpdateAvailable: false,
		CurrentVersion:  u.currentVersion,
	}
}

// canonicalVersion turns "1.2.0" into the "v1.2.0" form semver expects
func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
