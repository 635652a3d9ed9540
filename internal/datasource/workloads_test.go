package datasource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mixedWorkloadsJSON = `{
  "kind": "List",
  "items": [
    {
      "kind": "Deployment",
      "metadata": {"name": "web", "namespace": "shop",
        "labels": {"app.kubernetes.io/instance": "shop-web"}},
      "spec": {"replicas": 3},
      "status": {"readyReplicas": 3}
    },
    {
      "kind": "StatefulSet",
      "metadata": {"name": "db", "namespace": "shop",
        "labels": {"release": "shop-db"}},
      "spec": {"replicas": 1},
      "status": {"readyReplicas": 0}
    },
    {
      "kind": "DaemonSet",
      "metadata": {"name": "agent", "namespace": "shop"},
      "status": {"desiredNumberScheduled": 5, "numberReady": 4}
    },
    {
      "kind": "Job",
      "metadata": {"name": "migrate", "namespace": "shop"},
      "spec": {"completions": 1},
      "status": {"succeeded": 1}
    },
    {
      "kind": "CronJob",
      "metadata": {"name": "backup", "namespace": "shop"},
      "spec": {"suspend": true},
      "status": {}
    }
  ]
}`

func TestFetchWorkloadsMixedKinds(t *testing.T) {
	kubectl := &fakeRunner{respond: func(args []string) (string, error) {
		return mixedWorkloadsJSON, nil
	}}
	c := newTestClient(t, kubectl, &fakeRunner{})

	rows, err := c.FetchWorkloads(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 5)

	byName := map[string]int{}
	for i, row := range rows {
		byName[row.Name] = i
	}

	web := rows[byName["web"]]
	assert.Equal(t, "Deployment", web.Kind)
	assert.Equal(t, int32(3), web.DesiredReplicas)
	assert.Equal(t, "Healthy", web.Status)
	assert.Equal(t, "shop-web", web.HelmRelease)
	assert.False(t, web.SingleReplica)

	db := rows[byName["db"]]
	assert.Equal(t, "Unavailable", db.Status)
	assert.True(t, db.SingleReplica)
	assert.Equal(t, "shop-db", db.HelmRelease)

	agent := rows[byName["agent"]]
	assert.Equal(t, "Degraded", agent.Status)
	assert.Empty(t, agent.HelmRelease)

	assert.Equal(t, "Complete", rows[byName["migrate"]].Status)
	assert.Equal(t, "Suspended", rows[byName["backup"]].Status)
}

func TestReleaseFromLabelsPrecedence(t *testing.T) {
	assert.Equal(t, "a", releaseFromLabels(map[string]string{
		"app.kubernetes.io/instance": "a",
		"helm.sh/release-name":       "b",
		"release":                    "c",
	}))
	assert.Equal(t, "b", releaseFromLabels(map[string]string{
		"helm.sh/release-name": "b",
		"release":              "c",
	}))
	assert.Equal(t, "", releaseFromLabels(nil))
}

func TestReplicaStatus(t *testing.T) {
	assert.Equal(t, "ScaledDown", replicaStatus(0, 0))
	assert.Equal(t, "Healthy", replicaStatus(2, 2))
	assert.Equal(t, "Degraded", replicaStatus(3, 1))
	assert.Equal(t, "Unavailable", replicaStatus(3, 0))
}
