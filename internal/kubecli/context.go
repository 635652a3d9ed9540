package kubecli

import (
	"fmt"

	"k8s.io/client-go/tools/clientcmd"
)

// CurrentContext resolves the active context name from the standard
// kubeconfig loading chain (KUBECONFIG, ~/.kube/config). An empty string
// with nil error means no context is selected; runners then omit the
// context flag and let the tools use their own defaults.
func CurrentContext() (string, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	cfg, err := rules.Load()
	if err != nil {
		return "", fmt.Errorf("loading kubeconfig: %w", err)
	}
	return cfg.CurrentContext, nil
}
