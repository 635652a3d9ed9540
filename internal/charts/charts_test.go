package charts

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kubeagle/kubeagle/internal/cache"
	"github.com/kubeagle/kubeagle/internal/datasource"
	"github.com/kubeagle/kubeagle/internal/limiter"
)

type fakeRunner struct {
	mu      sync.Mutex
	respond func(args []string) (string, error)
}

func (f *fakeRunner) Run(ctx context.Context, args []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.respond(args)
}

func (f *fakeRunner) Tool() string { return "fake" }

const releasesJSON = `[
  {"name": "ingress", "namespace": "kube-system", "revision": "3", "status": "deployed",
   "chart": "ingress-nginx-4.10.0", "app_version": "1.10.0",
   "updated": "2026-02-10 09:30:00.000000000 +0000 UTC"},
  {"name": "api", "namespace": "default", "revision": "7", "status": "deployed",
   "chart": "api-1.2.3", "app_version": "2.0.0",
   "updated": "2026-02-12 11:00:00.000000000 +0000 UTC"}
]`

const valuesYAML = `replicaCount: 2
owner:
  team: platform
`

type staticResolver struct{}

func (staticResolver) ResolveTeam(chartName string, values map[string]interface{}) string {
	if owner, ok := values["owner"].(map[string]interface{}); ok {
		if team, ok := owner["team"].(string); ok {
			return team
		}
	}
	return "unowned/" + chartName
}

func newTestService(t *testing.T, helm *fakeRunner, resolver TeamResolver) *Service {
	t.Helper()
	logger := zap.NewNop()
	shared := cache.NewShared(cache.DefaultCapacity, nil, logger)
	commands := cache.NewCommandCache(shared, logger)
	gate := limiter.New(3, time.Second, logger)
	kubectl := &fakeRunner{respond: func([]string) (string, error) { return `{"items": []}`, nil }}
	client := datasource.NewClient("test-ctx", kubectl, helm, commands, gate, logger)
	return NewService(client, resolver, logger)
}

func TestListJoinsValuesAndTeam(t *testing.T) {
	helm := &fakeRunner{respond: func(args []string) (string, error) {
		if strings.Contains(strings.Join(args, " "), "get values") {
			return valuesYAML, nil
		}
		return releasesJSON, nil
	}}
	s := newTestService(t, helm, staticResolver{})

	charts, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, charts, 2)

	// Sorted by namespace then name.
	assert.Equal(t, "api", charts[0].Release.Name)
	assert.Equal(t, "ingress", charts[1].Release.Name)

	assert.Equal(t, "platform", charts[0].Team)
	assert.Equal(t, float64(2), charts[0].Values["replicaCount"])
}

func TestListToleratesNilResolverAndBadValues(t *testing.T) {
	helm := &fakeRunner{respond: func(args []string) (string, error) {
		if strings.Contains(strings.Join(args, " "), "get values") {
			return "::: not yaml :::", nil
		}
		return releasesJSON, nil
	}}
	s := newTestService(t, helm, nil)

	charts, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, charts, 2)
	assert.Empty(t, charts[0].Team)
	assert.Empty(t, charts[0].Values)
}

func TestParseValuesEmpty(t *testing.T) {
	values, err := ParseValues("   \n")
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestChartNameStripsVersion(t *testing.T) {
	assert.Equal(t, "ingress-nginx", chartName("ingress-nginx-4.10.0"))
	assert.Equal(t, "api", chartName("api-1.2.3"))
	assert.Equal(t, "plainchart", chartName("plainchart"))
}
