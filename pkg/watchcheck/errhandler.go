package watchcheck

import (
	"context"
	"fmt"
	"strings"
)

// ErrorHandler rewrites the results of a check that failed catastrophically,
// before a single result was produced. Handlers run in declaration order,
// each consuming the previous output, so their effects compose
// multiplicatively.
type ErrorHandler interface {
	HandleError(ctx context.Context, c *Check, targetEnv *Environment, results []*ExecutionResult) ([]*ExecutionResult, error)
	String() string
}

type expandByHostname struct {
	hosts []string
}

// ExpandByHostname duplicates every failure result once per host. A check
// that normally fans one service out per host keeps alerting on all of them
// even when it dies before producing a single result.
func ExpandByHostname(hosts ...string) ErrorHandler {
	return &expandByHostname{hosts: hosts}
}

func (h *expandByHostname) HandleError(_ context.Context, _ *Check, _ *Environment, results []*ExecutionResult) ([]*ExecutionResult, error) {
	expanded := make([]*ExecutionResult, 0, len(results)*len(h.hosts))
	for _, res := range results {
		for _, host := range h.hosts {
			clone := *res
			clone.PiggybackHost = host
			expanded = append(expanded, &clone)
		}
	}

	return expanded, nil
}

func (h *expandByHostname) String() string {
	return fmt.Sprintf("ExpandByHostname(%s)", strings.Join(h.hosts, ", "))
}

type expandByNameSuffix struct {
	suffixes []string
}

// ExpandByNameSuffix duplicates every failure result once per suffix,
// appending the suffix to the service name.
func ExpandByNameSuffix(suffixes ...string) ErrorHandler {
	return &expandByNameSuffix{suffixes: suffixes}
}

func (h *expandByNameSuffix) HandleError(_ context.Context, _ *Check, _ *Environment, results []*ExecutionResult) ([]*ExecutionResult, error) {
	expanded := make([]*ExecutionResult, 0, len(results)*len(h.suffixes))
	for _, res := range results {
		for _, suffix := range h.suffixes {
			clone := *res
			clone.ServiceName = res.ServiceName + suffix
			expanded = append(expanded, &clone)
		}
	}

	return expanded, nil
}

func (h *expandByNameSuffix) String() string {
	return fmt.Sprintf("ExpandByNameSuffix(%s)", strings.Join(h.suffixes, ", "))
}
