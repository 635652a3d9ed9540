package datasource

import (
	"context"
	"encoding/json"

	policyv1 "k8s.io/api/policy/v1"

	"github.com/kubeagle/kubeagle/internal/kubecli"
	"github.com/kubeagle/kubeagle/internal/model"
)

// FetchPDBs returns all pod disruption budgets cluster-wide.
func (c *Client) FetchPDBs(ctx context.Context) ([]*model.PDBInfo, error) {
	args := []string{"get", "pdb", "-A", "-o", "json", "--request-timeout=" + kubecli.ClusterRequestTimeout}
	return c.fetchPDBList(ctx, args)
}

// FetchPDBsForNamespace returns one namespace's pod disruption budgets.
func (c *Client) FetchPDBsForNamespace(ctx context.Context, namespace string) ([]*model.PDBInfo, error) {
	args := []string{"get", "pdb", "-n", namespace, "-o", "json", "--request-timeout=" + kubecli.ClusterRequestTimeout}
	return c.fetchPDBList(ctx, args)
}

func (c *Client) fetchPDBList(ctx context.Context, args []string) ([]*model.PDBInfo, error) {
	out, err := c.Kubectl(ctx, args, TTLPDBs)
	if err != nil {
		return nil, err
	}

	var list policyv1.PodDisruptionBudgetList
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		return nil, &kubecli.ParseError{Source: "pdb list", Err: err}
	}

	pdbs := make([]*model.PDBInfo, 0, len(list.Items))
	for i := range list.Items {
		pdbs = append(pdbs, convertPDB(&list.Items[i]))
	}
	return pdbs, nil
}

func convertPDB(pdb *policyv1.PodDisruptionBudget) *model.PDBInfo {
	info := &model.PDBInfo{
		Namespace:          pdb.Namespace,
		Name:               pdb.Name,
		DisruptionsAllowed: pdb.Status.DisruptionsAllowed,
		CurrentHealthy:     pdb.Status.CurrentHealthy,
		DesiredHealthy:     pdb.Status.DesiredHealthy,
		ExpectedPods:       pdb.Status.ExpectedPods,
	}
	if pdb.Spec.MinAvailable != nil {
		info.MinAvailable = pdb.Spec.MinAvailable.String()
	}
	if pdb.Spec.MaxUnavailable != nil {
		info.MaxUnavailable = pdb.Spec.MaxUnavailable.String()
	}
	if pdb.Spec.Selector != nil {
		info.Selector = pdb.Spec.Selector.MatchLabels
	}
	return info
}

// StreamPDBs fetches pod disruption budgets namespace-by-namespace.
func (c *Client) StreamPDBs(ctx context.Context, onPartial PartialFunc[*model.PDBInfo]) ([]*model.PDBInfo, error) {
	namespaces := c.ListNamespaces(ctx)
	return StreamNamespaces(ctx, namespaces,
		c.FetchPDBsForNamespace,
		c.FetchPDBs,
		onPartial,
		c.logger,
	)
}
