// Package github publishes report JSON to the static host backing the
// lookup side: a GitHub repo served through GitHub Pages.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/eflav/aio-index/internal/utils"
	"github.com/eflav/aio-index/pkg/report"
	"github.com/eflav/aio-index/pkg/slug"
)

const indexPath = "index.json"

// Config identifies the hosting repo and how to authenticate against it.
type Config struct {
	Token      string
	Repo       string // owner/name
	Username   string // GitHub Pages account, for public URLs
	APIBase    string // override for tests
	HTTPClient *http.Client
}

// Client talks to the GitHub contents API for one hosting repo.
type Client struct {
	token    string
	repo     string
	username string
	apiBase  string
	client   *http.Client
}

// NewClient validates the config and returns a publisher.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("publishing requires a GitHub token (set github.token in config or GITHUB_TOKEN)")
	}
	if strings.TrimSpace(cfg.Repo) == "" || !strings.Contains(cfg.Repo, "/") {
		return nil, errors.New("publishing requires a GitHub repo in owner/name form (set github.repo in config)")
	}

	apiBase := cfg.APIBase
	if apiBase == "" {
		apiBase = "https://api.github.com/repos/" + cfg.Repo + "/contents"
	}

	username := cfg.Username
	if username == "" {
		username = strings.SplitN(cfg.Repo, "/", 2)[0]
	}

	client := cfg.HTTPClient
	if client == nil {
		rc := retryablehttp.NewClient()
		rc.RetryMax = 2
		rc.Logger = nil
		client = rc.StandardClient()
	}

	return &Client{
		token:    cfg.Token,
		repo:     cfg.Repo,
		username: username,
		apiBase:  apiBase,
		client:   client,
	}, nil
}

// PublishReport uploads the report under data/<slug>.json and refreshes the
// index. Returns the public GitHub Pages URL of the report.
func (c *Client) PublishReport(ctx context.Context, rep report.Report) (string, error) {
	filename := slug.ReportPath(rep.Source)

	utils.Log.Debug("Uploading report ", filename)
	if err := c.UploadJSON(ctx, "data/"+filename, rep); err != nil {
		return "", err
	}

	if err := c.UpdateIndex(ctx, rep.Source, filename, rep.Data.AIOScore); err != nil {
		return "", err
	}

	return c.PublicURL("data/" + filename), nil
}

// PublicURL maps a repo path to its GitHub Pages address.
func (c *Client) PublicURL(path string) string {
	repoName := c.repo[strings.Index(c.repo, "/")+1:]
	return fmt.Sprintf("https://%s.github.io/%s/%s", c.username, repoName, path)
}

// UploadJSON creates or updates a JSON file in the hosting repo.
func (c *Client) UploadJSON(ctx context.Context, path string, v any) error {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	sha, err := c.existingSHA(ctx, path)
	if err != nil {
		return err
	}

	payload := map[string]string{
		"message": "Update " + path,
		"content": base64.StdEncoding.EncodeToString(content),
	}
	if sha != "" {
		payload["sha"] = sha
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.apiBase+"/"+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GitHub upload failed: %d - %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// UpdateIndex adds or replaces the index record for a source URL. A missing
// or unreadable index is treated as empty rather than fatal.
func (c *Client) UpdateIndex(ctx context.Context, source, filename string, score float64) error {
	var entries []report.IndexEntry
	if err := c.downloadJSON(ctx, indexPath, &entries); err != nil {
		utils.Log.Warn("Could not read existing index: ", err)
		entries = nil
	}

	entries = report.UpsertIndex(entries, report.IndexEntry{
		Source:      source,
		JSON:        "data/" + filename,
		AIOScore:    score,
		LastUpdated: nowUTC(),
	})

	return c.UploadJSON(ctx, indexPath, entries)
}

// existingSHA returns the blob sha when the file already exists, so uploads
// become updates instead of conflicts.
func (c *Client) existingSHA(ctx context.Context, path string) (string, error) {
	body, status, err := c.get(ctx, path)
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		return "", nil
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("GitHub lookup of %s failed with HTTP %d", path, status)
	}
	return gjson.GetBytes(body, "sha").Str, nil
}

// downloadJSON fetches a repo file through the contents API and decodes its
// base64 payload into v.
func (c *Client) downloadJSON(ctx context.Context, path string, v any) error {
	body, status, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("GitHub read of %s failed with HTTP %d", path, status)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(gjson.GetBytes(body, "content").Str, "\n", ""))
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/"+path, nil)
	if err != nil {
		return nil, 0, err
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
}
