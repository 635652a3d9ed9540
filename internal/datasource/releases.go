package datasource

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/kubeagle/kubeagle/internal/kubecli"
	"github.com/kubeagle/kubeagle/internal/model"
)

// helm's list output renders timestamps in Go's verbose zone format.
var helmTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999 -0700",
	time.RFC3339Nano,
	time.RFC3339,
}

type helmListEntry struct {
	Name       string `json:"name"`
	Namespace  string `json:"namespace"`
	Revision   string `json:"revision"`
	Updated    string `json:"updated"`
	Status     string `json:"status"`
	Chart      string `json:"chart"`
	AppVersion string `json:"app_version"`
}

// FetchHelmReleases returns installed releases cluster-wide.
func (c *Client) FetchHelmReleases(ctx context.Context) ([]*model.HelmRelease, error) {
	args := []string{"list", "--all-namespaces", "-o", "json", "--max", "0"}
	return c.fetchReleaseList(ctx, args)
}

// FetchHelmReleasesForNamespace returns one namespace's releases.
func (c *Client) FetchHelmReleasesForNamespace(ctx context.Context, namespace string) ([]*model.HelmRelease, error) {
	args := []string{"list", "-n", namespace, "-o", "json", "--max", "0"}
	return c.fetchReleaseList(ctx, args)
}

func (c *Client) fetchReleaseList(ctx context.Context, args []string) ([]*model.HelmRelease, error) {
	out, err := c.Helm(ctx, args, TTLReleases)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}

	var entries []helmListEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		return nil, &kubecli.ParseError{Source: "helm release list", Err: err}
	}

	releases := make([]*model.HelmRelease, 0, len(entries))
	for _, e := range entries {
		releases = append(releases, &model.HelmRelease{
			Name:       e.Name,
			Namespace:  e.Namespace,
			Revision:   e.Revision,
			Status:     e.Status,
			Chart:      e.Chart,
			AppVersion: e.AppVersion,
			Updated:    parseHelmTime(e.Updated),
		})
	}
	return releases, nil
}

func parseHelmTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range helmTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// StreamHelmReleases fetches releases namespace-by-namespace.
func (c *Client) StreamHelmReleases(ctx context.Context, onPartial PartialFunc[*model.HelmRelease]) ([]*model.HelmRelease, error) {
	namespaces := c.ListNamespaces(ctx)
	return StreamNamespaces(ctx, namespaces,
		c.FetchHelmReleasesForNamespace,
		c.FetchHelmReleases,
		onPartial,
		c.logger,
	)
}

// FetchHelmValues returns one release's live values as YAML text.
func (c *Client) FetchHelmValues(ctx context.Context, namespace, release string) (string, error) {
	args := []string{"get", "values", release, "-n", namespace, "-o", "yaml"}
	return c.Helm(ctx, args, TTLReleases)
}
