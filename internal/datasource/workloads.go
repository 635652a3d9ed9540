package datasource

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"

	"github.com/kubeagle/kubeagle/internal/kubecli"
	"github.com/kubeagle/kubeagle/internal/model"
)

const workloadKinds = "deployments,statefulsets,daemonsets,jobs,cronjobs"

// Helm release association labels, checked in order.
var releaseLabels = []string{
	"app.kubernetes.io/instance",
	"helm.sh/release-name",
	"release",
}

// FetchWorkloads returns the workload inventory cluster-wide.
func (c *Client) FetchWorkloads(ctx context.Context) ([]*model.WorkloadRow, error) {
	args := []string{"get", workloadKinds, "-A", "-o", "json", "--request-timeout=" + kubecli.ClusterRequestTimeout}
	return c.fetchWorkloadList(ctx, args)
}

// FetchWorkloadsForNamespace returns one namespace's workload inventory.
func (c *Client) FetchWorkloadsForNamespace(ctx context.Context, namespace string) ([]*model.WorkloadRow, error) {
	args := []string{"get", workloadKinds, "-n", namespace, "-o", "json", "--request-timeout=" + kubecli.ClusterRequestTimeout}
	return c.fetchWorkloadList(ctx, args)
}

func (c *Client) fetchWorkloadList(ctx context.Context, args []string) ([]*model.WorkloadRow, error) {
	out, err := c.Kubectl(ctx, args, TTLWorkloads)
	if err != nil {
		return nil, err
	}

	// Mixed-kind gets come back as a generic List; probe each item's
	// kind before decoding it into its typed form.
	var list struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		return nil, &kubecli.ParseError{Source: "workload list", Err: err}
	}

	rows := make([]*model.WorkloadRow, 0, len(list.Items))
	for _, raw := range list.Items {
		var probe struct {
			Kind string `json:"kind"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			continue
		}
		row, err := decodeWorkload(probe.Kind, raw)
		if err != nil {
			c.logger.Warn("Skipping undecodable workload item",
				zap.String("kind", probe.Kind),
				zap.Error(err),
			)
			continue
		}
		if row != nil {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func decodeWorkload(kind string, raw json.RawMessage) (*model.WorkloadRow, error) {
	switch kind {
	case "Deployment":
		var obj appsv1.Deployment
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, err
		}
		return convertDeployment(&obj), nil
	case "StatefulSet":
		var obj appsv1.StatefulSet
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, err
		}
		return convertStatefulSet(&obj), nil
	case "DaemonSet":
		var obj appsv1.DaemonSet
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, err
		}
		return convertDaemonSet(&obj), nil
	case "Job":
		var obj batchv1.Job
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, err
		}
		return convertJob(&obj), nil
	case "CronJob":
		var obj batchv1.CronJob
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, err
		}
		return convertCronJob(&obj), nil
	default:
		return nil, fmt.Errorf("unexpected workload kind %q", kind)
	}
}

func convertDeployment(obj *appsv1.Deployment) *model.WorkloadRow {
	desired := int32(1)
	if obj.Spec.Replicas != nil {
		desired = *obj.Spec.Replicas
	}
	row := &model.WorkloadRow{
		Namespace:       obj.Namespace,
		Kind:            "Deployment",
		Name:            obj.Name,
		DesiredReplicas: desired,
		ReadyReplicas:   obj.Status.ReadyReplicas,
		SingleReplica:   desired == 1,
		HelmRelease:     releaseFromLabels(obj.Labels),
	}
	row.Status = replicaStatus(desired, row.ReadyReplicas)
	return row
}

func convertStatefulSet(obj *appsv1.StatefulSet) *model.WorkloadRow {
	desired := int32(1)
	if obj.Spec.Replicas != nil {
		desired = *obj.Spec.Replicas
	}
	row := &model.WorkloadRow{
		Namespace:       obj.Namespace,
		Kind:            "StatefulSet",
		Name:            obj.Name,
		DesiredReplicas: desired,
		ReadyReplicas:   obj.Status.ReadyReplicas,
		SingleReplica:   desired == 1,
		HelmRelease:     releaseFromLabels(obj.Labels),
	}
	row.Status = replicaStatus(desired, row.ReadyReplicas)
	return row
}

func convertDaemonSet(obj *appsv1.DaemonSet) *model.WorkloadRow {
	row := &model.WorkloadRow{
		Namespace:       obj.Namespace,
		Kind:            "DaemonSet",
		Name:            obj.Name,
		DesiredReplicas: obj.Status.DesiredNumberScheduled,
		ReadyReplicas:   obj.Status.NumberReady,
		HelmRelease:     releaseFromLabels(obj.Labels),
	}
	row.Status = replicaStatus(row.DesiredReplicas, row.ReadyReplicas)
	return row
}

func convertJob(obj *batchv1.Job) *model.WorkloadRow {
	desired := int32(1)
	if obj.Spec.Completions != nil {
		desired = *obj.Spec.Completions
	}
	row := &model.WorkloadRow{
		Namespace:       obj.Namespace,
		Kind:            "Job",
		Name:            obj.Name,
		DesiredReplicas: desired,
		ReadyReplicas:   obj.Status.Succeeded,
		HelmRelease:     releaseFromLabels(obj.Labels),
	}
	switch {
	case obj.Status.Failed > 0:
		row.Status = "Failed"
	case obj.Status.Succeeded >= desired:
		row.Status = "Complete"
	default:
		row.Status = "Active"
	}
	return row
}

func convertCronJob(obj *batchv1.CronJob) *model.WorkloadRow {
	row := &model.WorkloadRow{
		Namespace:       obj.Namespace,
		Kind:            "CronJob",
		Name:            obj.Name,
		DesiredReplicas: int32(len(obj.Status.Active)),
		ReadyReplicas:   int32(len(obj.Status.Active)),
		HelmRelease:     releaseFromLabels(obj.Labels),
	}
	if obj.Spec.Suspend != nil && *obj.Spec.Suspend {
		row.Status = "Suspended"
	} else if len(obj.Status.Active) > 0 {
		row.Status = "Active"
	} else {
		row.Status = "Scheduled"
	}
	return row
}

func replicaStatus(desired, ready int32) string {
	switch {
	case desired == 0:
		return "ScaledDown"
	case ready >= desired:
		return "Healthy"
	case ready > 0:
		return "Degraded"
	default:
		return "Unavailable"
	}
}

func releaseFromLabels(labels map[string]string) string {
	for _, key := range releaseLabels {
		if v, ok := labels[key]; ok && v != "" {
			return v
		}
	}
	return ""
}

// StreamWorkloads fetches the workload inventory namespace-by-namespace.
func (c *Client) StreamWorkloads(ctx context.Context, onPartial PartialFunc[*model.WorkloadRow]) ([]*model.WorkloadRow, error) {
	namespaces := c.ListNamespaces(ctx)
	return StreamNamespaces(ctx, namespaces,
		c.FetchWorkloadsForNamespace,
		c.FetchWorkloads,
		onPartial,
		c.logger,
	)
}
