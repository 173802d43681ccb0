package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/efebarandurmaz/varnet/internal/publish"
)

const maxAttempts = 3

// ScanInput holds the workflow parameters.
type ScanInput struct {
	// DocumentPath is the JSON or YAML snapshot read by the worker.
	DocumentPath string
	// Types selects the variable types to scan. Empty means COLOR.
	Types []string
	// Publish exports the report to the worker's configured sinks.
	Publish bool
}

// ScanOutput holds the workflow result.
type ScanOutput struct {
	TypeCounts map[string]int
	ReportJSON string
	Variables  int
	Bindings   int
	AliasEdges int
	Published  []publish.Result
	Errors     []string
}

// ScanWorkflow runs a census, a scan and an optional publish of the report.
// Provider failures are not retried: the snapshot will not change between
// attempts.
func ScanWorkflow(ctx workflow.Context, input ScanInput) (*ScanOutput, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2,
			MaximumAttempts:        maxAttempts,
			NonRetryableErrorTypes: []string{ErrTypeDocument},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	logger := workflow.GetLogger(ctx)

	// Step 1: census over every variable
	var census CensusResult
	if err := workflow.ExecuteActivity(ctx, CensusActivity, input).Get(ctx, &census); err != nil {
		return nil, fmt.Errorf("census: %w", err)
	}

	// Step 2: scan the selected types
	var scanned ActivityResult
	if err := workflow.ExecuteActivity(ctx, ScanActivity, input).Get(ctx, &scanned); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	logger.Info("Scan finished", "variables", scanned.Variables, "alias_edges", scanned.AliasEdges)

	output := &ScanOutput{
		TypeCounts: census.TypeCounts,
		ReportJSON: scanned.ReportJSON,
		Variables:  scanned.Variables,
		Bindings:   scanned.Bindings,
		AliasEdges: scanned.AliasEdges,
	}

	// Step 3: export, failures are reported without failing the scan
	if input.Publish {
		var published PublishResult
		if err := workflow.ExecuteActivity(ctx, PublishActivity, scanned.ReportJSON).Get(ctx, &published); err != nil {
			output.Errors = append(output.Errors, fmt.Sprintf("publish: %v", err))
		} else {
			output.Published = published.Results
			output.Errors = append(output.Errors, published.Errors...)
		}
	}

	return output, nil
}
