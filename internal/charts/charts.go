// Package charts exposes installed chart releases together with their
// rendered values, for the layers that attribute releases to owning
// teams and evaluate configuration rules.
package charts

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
	"sigs.k8s.io/yaml"

	"github.com/kubeagle/kubeagle/internal/datasource"
	"github.com/kubeagle/kubeagle/internal/model"
)

// TeamResolver attributes a chart release to an owning team. A nil
// resolver is tolerated: attribution then degrades to "".
type TeamResolver interface {
	ResolveTeam(chartName string, values map[string]interface{}) string
}

// Chart is one installed release with parsed values and attribution.
type Chart struct {
	Release *model.HelmRelease
	Values  map[string]interface{}
	Team    string
}

// Service lists charts through the release tool and joins values and
// team attribution onto them.
type Service struct {
	client   *datasource.Client
	resolver TeamResolver
	logger   *zap.Logger
}

// NewService wires a chart service. resolver may be nil.
func NewService(client *datasource.Client, resolver TeamResolver, logger *zap.Logger) *Service {
	return &Service{client: client, resolver: resolver, logger: logger}
}

// ParseValues decodes a rendered values document. Empty input yields an
// empty map rather than an error.
func ParseValues(doc string) (map[string]interface{}, error) {
	values := make(map[string]interface{})
	if strings.TrimSpace(doc) == "" {
		return values, nil
	}
	if err := yaml.Unmarshal([]byte(doc), &values); err != nil {
		return nil, err
	}
	return values, nil
}

// chartName strips the version suffix from a chart reference like
// "ingress-nginx-4.10.0".
func chartName(ref string) string {
	parts := strings.Split(ref, "-")
	for i := len(parts) - 1; i > 0; i-- {
		if len(parts[i]) > 0 && parts[i][0] >= '0' && parts[i][0] <= '9' {
			return strings.Join(parts[:i], "-")
		}
	}
	return ref
}

// List returns all installed charts sorted by namespace/name. Values
// fetch or parse failures degrade that chart to empty values; the
// listing itself only fails when the release tool does.
func (s *Service) List(ctx context.Context) ([]*Chart, error) {
	releases, err := s.client.FetchHelmReleases(ctx)
	if err != nil {
		return nil, err
	}

	charts := make([]*Chart, 0, len(releases))
	for _, rel := range releases {
		chart := &Chart{Release: rel, Values: map[string]interface{}{}}
		doc, err := s.client.FetchHelmValues(ctx, rel.Namespace, rel.Name)
		if err != nil {
			s.logger.Warn("values unavailable for release",
				zap.String("release", rel.Name),
				zap.String("namespace", rel.Namespace),
				zap.Error(err))
		} else if values, err := ParseValues(doc); err != nil {
			s.logger.Warn("values unparseable for release",
				zap.String("release", rel.Name),
				zap.Error(err))
		} else {
			chart.Values = values
		}

		if s.resolver != nil {
			chart.Team = s.resolver.ResolveTeam(chartName(rel.Chart), chart.Values)
		}
		charts = append(charts, chart)
	}

	sort.Slice(charts, func(i, j int) bool {
		a, b := charts[i].Release, charts[j].Release
		if a.Namespace != b.Namespace {
			return a.Namespace < b.Namespace
		}
		return a.Name < b.Name
	})
	return charts, nil
}
