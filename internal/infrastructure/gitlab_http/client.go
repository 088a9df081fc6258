package gitlab_http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/davarch/pipelines-dashboard/internal/domain"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

const DefaultPerPage = 50

type Client struct {
	hc      *http.Client
	perPage int
}

func New(timeout time.Duration, perPage int) *Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
	}

	if perPage <= 0 {
		perPage = DefaultPerPage
	}

	return &Client{
		hc:      &http.Client{Transport: tr, Timeout: timeout},
		perPage: perPage,
	}
}

// api builds a client for one base URL and token. Settings can change between
// calls so nothing is cached here; the transport is shared.
func (c *Client) api(baseURL, token string) (*gitlab.Client, error) {
	base := trimSlash(strings.TrimSpace(baseURL))
	if base == "" {
		return nil, errors.New("gitlab base url is empty")
	}

	gl, err := gitlab.NewClient(token,
		gitlab.WithBaseURL(base),
		gitlab.WithHTTPClient(c.hc),
		gitlab.WithoutRetries(),
	)
	if err != nil {
		return nil, fmt.Errorf("gitlab client: %w", err)
	}
	return gl, nil
}

// FetchRepository resolves a numeric id or a "namespace/name" path.
func (c *Client) FetchRepository(ctx context.Context, baseURL, token, id string) (domain.Repository, error) {
	gl, err := c.api(baseURL, token)
	if err != nil {
		return domain.Repository{}, err
	}

	p, _, err := gl.Projects.GetProject(id, nil, gitlab.WithContext(ctx))
	if err != nil {
		return domain.Repository{}, fmt.Errorf("get project %s: %w", id, err)
	}
	if p == nil {
		return domain.Repository{}, fmt.Errorf("get project %s: empty response", id)
	}

	return domain.Repository{
		ID:                int64(p.ID),
		Name:              p.Name,
		PathWithNamespace: p.PathWithNamespace,
		WebURL:            p.WebURL,
	}, nil
}

// FetchPipelines lists one page of pipelines, most recently updated first.
// The list endpoint carries no duration so Duration stays nil.
func (c *Client) FetchPipelines(ctx context.Context, baseURL, token string, repoID int64, perPage int) ([]domain.Pipeline, error) {
	gl, err := c.api(baseURL, token)
	if err != nil {
		return nil, err
	}

	if perPage <= 0 {
		perPage = c.perPage
	}

	opts := &gitlab.ListProjectPipelinesOptions{
		ListOptions: gitlab.ListOptions{PerPage: perPage},
		OrderBy:     gitlab.Ptr("updated_at"),
		Sort:        gitlab.Ptr("desc"),
	}

	list, _, err := gl.Pipelines.ListProjectPipelines(int(repoID), opts, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list pipelines for %d: %w", repoID, err)
	}

	out := make([]domain.Pipeline, 0, len(list))
	for _, p := range list {
		if p == nil {
			continue
		}
		out = append(out, domain.Pipeline{
			ID:        int64(p.ID),
			Status:    domain.ParseStatus(p.Status),
			Ref:       p.Ref,
			SHA:       p.SHA,
			WebURL:    p.WebURL,
			CreatedAt: deref(p.CreatedAt),
			UpdatedAt: deref(p.UpdatedAt),
		})
	}

	return out, nil
}

// TestConnection is true only when the version endpoint answers with a
// non-empty version.
func (c *Client) TestConnection(ctx context.Context, baseURL, token string) (bool, error) {
	gl, err := c.api(baseURL, token)
	if err != nil {
		return false, err
	}

	v, _, err := gl.Version.GetVersion(gitlab.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("get version: %w", err)
	}

	return v != nil && v.Version != "", nil
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
