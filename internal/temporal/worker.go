package temporal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/efebarandurmaz/varnet/internal/observability"
)

// StartWorker creates and starts a Temporal worker.
func StartWorker(c client.Client, taskQueue string) (worker.Worker, error) {
	w := worker.New(c, taskQueue, worker.Options{})

	w.RegisterWorkflow(ScanWorkflow)
	w.RegisterActivity(CensusActivity)
	w.RegisterActivity(ScanActivity)
	w.RegisterActivity(PublishActivity)

	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("starting worker: %w", err)
	}
	return w, nil
}

// SubmitScan starts a ScanWorkflow and returns its run handle.
func SubmitScan(ctx context.Context, c client.Client, taskQueue string, input ScanInput) (client.WorkflowRun, error) {
	id := "varnet-scan-" + uuid.NewString()
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: taskQueue,
	}, ScanWorkflow, input)
	if err != nil {
		return nil, fmt.Errorf("start workflow: %w", err)
	}
	observability.Audit().LogWorkflowStart(ctx, id, input.DocumentPath, input.Types)
	return run, nil
}

// AwaitScan waits for run to finish and records the outcome.
func AwaitScan(ctx context.Context, run client.WorkflowRun) (*ScanOutput, error) {
	start := time.Now()
	var out ScanOutput
	err := run.Get(ctx, &out)
	observability.Audit().LogWorkflowEnd(ctx, run.GetID(), err == nil, time.Since(start), out.Variables)
	if err != nil {
		return nil, fmt.Errorf("workflow %s: %w", run.GetID(), err)
	}
	return &out, nil
}
