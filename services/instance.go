package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"sonora/types"
)

// ErrNoPrimary means nothing answering as this app listens on the address
var ErrNoPrimary = errors.New("no running instance")

// FilesFromArgs extracts file paths from a process argv.
// argv[0] and flags are skipped; file:// URLs become paths.
func FilesFromArgs(argv []string) []string {
	if len(argv) < 2 {
		return nil
	}

	var files []string
	for _, arg := range argv[1:] {
		if arg == "" || strings.HasPrefix(arg, "-") {
			continue
		}

		if u, err := url.Parse(arg); err == nil && u.Scheme == "file" {
			if p := fileURLPath(u); p != "" {
				files = append(files, p)
				continue
			}
		}
		files = append(files, arg)
	}
	return files
}

func fileURLPath(u *url.URL) string {
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	if p == "" {
		return ""
	}
	// file:///C:/Music/a.mp3 on Windows
	if len(p) > 2 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p)
}

// InstanceClient talks to an already running instance on the loopback address
type InstanceClient struct {
	baseURL string
	service string
	client  *http.Client
}

// NewInstanceClient creates a client for http://addr
func NewInstanceClient(addr, service string) *InstanceClient {
	return &InstanceClient{
		baseURL: "http://" + addr,
		service: service,
		client:  &http.Client{Timeout: 3 * time.Second},
	}
}

// Probe reports whether the process on the address is this application
func (c *InstanceClient) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	var health struct {
		Service string `json:"service"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return false
	}
	return resp.StatusCode == http.StatusOK && health.Service == c.service
}

// Forward hands this process's argv and working directory to the running instance
func (c *InstanceClient) Forward(ctx context.Context, payload types.InstancePayload) error {
	if !c.Probe(ctx) {
		return ErrNoPrimary
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/instance/activate", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach running instance: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("running instance rejected activation: %w", &StatusError{StatusCode: resp.StatusCode, Status: resp.Status})
	}
	return nil
}
