// Package kubecli executes the external cluster-inventory and
// package-release tools as subprocesses, with shape-derived timeout
// budgets and a typed error taxonomy.
package kubecli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Runner executes one external tool with an argument vector and returns
// its standard output.
type Runner interface {
	Run(ctx context.Context, args []string) (string, error)
	Tool() string
}

// pipeWaitDelay bounds how long a finished or killed tool may keep us
// waiting on its output pipes. kubectl forks exec-credential auth
// plugins that inherit the pipes and can outlive the tool itself;
// without this bound a hung plugin holds the budget and a limiter slot
// indefinitely.
const pipeWaitDelay = 2 * time.Second

// Kubectl runs the cluster-inventory tool. A non-empty kube context is
// injected as a --context flag on every invocation.
type Kubectl struct {
	kubeContext string
	binary      string
	budgetFor   func(args []string) time.Duration
	logger      *zap.Logger
}

// NewKubectl returns a kubectl runner bound to the given context.
func NewKubectl(kubeContext string, logger *zap.Logger) *Kubectl {
	return &Kubectl{
		kubeContext: kubeContext,
		binary:      "kubectl",
		budgetFor:   TimeoutForArgs,
		logger:      logger,
	}
}

func (k *Kubectl) Tool() string { return "kubectl" }

// Run executes kubectl with a budget chosen from the command shape.
// A timed-out full events query fails over to the warning-only chunked
// query instead of surfacing the timeout.
func (k *Kubectl) Run(ctx context.Context, args []string) (string, error) {
	out, err := k.runOnce(ctx, args, k.budgetFor(args))
	if err == nil {
		return out, nil
	}

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) || !IsFullEventsQuery(args) {
		return "", err
	}

	k.logger.Warn("full events fetch timed out, falling back to warning-only query",
		zap.String("context", k.kubeContext),
	)
	warningArgs := WarningEventsArgs(args)
	return k.runOnce(ctx, warningArgs, k.budgetFor(warningArgs))
}

func (k *Kubectl) runOnce(ctx context.Context, args []string, budget time.Duration) (string, error) {
	argv := make([]string, 0, len(args)+2)
	if k.kubeContext != "" {
		argv = append(argv, "--context", k.kubeContext)
	}
	argv = append(argv, args...)
	return runProcess(ctx, k.binary, "kubectl", argv, args, budget, k.logger)
}

// Helm runs the package-release tool. A non-empty kube context is
// injected as a --kube-context flag.
type Helm struct {
	kubeContext string
	binary      string
	logger      *zap.Logger
}

// NewHelm returns a helm runner bound to the given context.
func NewHelm(kubeContext string, logger *zap.Logger) *Helm {
	return &Helm{
		kubeContext: kubeContext,
		binary:      "helm",
		logger:      logger,
	}
}

func (h *Helm) Tool() string { return "helm" }

// Run executes helm under the fixed helm budget.
func (h *Helm) Run(ctx context.Context, args []string) (string, error) {
	argv := make([]string, 0, len(args)+2)
	if h.kubeContext != "" {
		argv = append(argv, "--kube-context", h.kubeContext)
	}
	argv = append(argv, args...)
	return runProcess(ctx, h.binary, "helm", argv, args, HelmCommandTimeout, h.logger)
}

func runProcess(ctx context.Context, binary, tool string, argv, args []string, budget time.Duration, logger *zap.Logger) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	cmd := exec.CommandContext(runCtx, binary, argv...)
	cmd.WaitDelay = pipeWaitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	logger.Debug("external process finished",
		zap.String("tool", tool),
		zap.Strings("args", args),
		zap.Duration("elapsed", elapsed),
		zap.Bool("ok", err == nil),
	)

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return "", &TimeoutError{Tool: tool, Args: args, Budget: budget}
		}
		if errors.Is(err, exec.ErrWaitDelay) {
			// The tool exited cleanly but an orphaned child process still
			// holds the output pipes. The capture is complete.
			return stdout.String(), nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ExternalProcessError{
				Tool:     tool,
				Args:     args,
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return "", fmt.Errorf("starting %s: %w", tool, err)
	}
	return stdout.String(), nil
}
