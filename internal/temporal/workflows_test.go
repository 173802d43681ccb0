package temporal

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/efebarandurmaz/varnet/internal/publish"
)

func newTestEnv(t *testing.T) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivity(CensusActivity)
	env.RegisterActivity(ScanActivity)
	env.RegisterActivity(PublishActivity)
	return env
}

func TestScanWorkflow(t *testing.T) {
	env := newTestEnv(t)
	env.ExecuteWorkflow(ScanWorkflow, ScanInput{DocumentPath: fixturePath, Types: []string{"COLOR", "FLOAT"}})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out ScanOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	assert.Equal(t, 3, out.Variables)
	assert.Equal(t, 2, out.AliasEdges)
	assert.Equal(t, 2, out.TypeCounts["COLOR"])
	assert.NotEmpty(t, out.ReportJSON)
	assert.Empty(t, out.Published)
	assert.Empty(t, out.Errors)
}

func TestScanWorkflow_Publish(t *testing.T) {
	sink := &recordingSink{name: "memory"}
	SetDependencies(&Dependencies{Publisher: publish.NewPublisher(nil, sink)})
	t.Cleanup(func() { SetDependencies(nil) })

	env := newTestEnv(t)
	env.ExecuteWorkflow(ScanWorkflow, ScanInput{DocumentPath: fixturePath, Publish: true})

	require.NoError(t, env.GetWorkflowError())
	var out ScanOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Len(t, out.Published, 1)
	assert.Equal(t, "memory", out.Published[0].Sink)
	assert.Equal(t, 2, out.Published[0].Written)
	assert.Len(t, sink.reports, 1)
}

func TestScanWorkflow_PublishFailureKeepsScan(t *testing.T) {
	sink := &recordingSink{name: "down", err: errors.New("refused")}
	SetDependencies(&Dependencies{Publisher: publish.NewPublisher(nil, sink)})
	t.Cleanup(func() { SetDependencies(nil) })

	env := newTestEnv(t)
	env.ExecuteWorkflow(ScanWorkflow, ScanInput{DocumentPath: fixturePath, Publish: true})

	require.NoError(t, env.GetWorkflowError())
	var out ScanOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	assert.Equal(t, 2, out.Variables)
	assert.Equal(t, []string{"down: refused"}, out.Errors)
}

func TestScanWorkflow_MissingDocument(t *testing.T) {
	env := newTestEnv(t)
	env.ExecuteWorkflow(ScanWorkflow, ScanInput{DocumentPath: filepath.Join(t.TempDir(), "none.json")})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "census")
}
