package gitops_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/rulesweep/rulesweep/pkg/engine"
	"github.com/rulesweep/rulesweep/pkg/gitops"
	"github.com/rulesweep/rulesweep/pkg/rule"
	"github.com/rulesweep/rulesweep/pkg/scanner"
)

type stubPuller struct {
	outcomes map[string]gitops.PullOutcome
	failing  map[string]error
	pulled   []string
}

func (s *stubPuller) Pull(_ context.Context, dir string) (gitops.PullOutcome, error) {
	s.pulled = append(s.pulled, dir)
	if err, ok := s.failing[dir]; ok {
		return gitops.PullOutcome{}, err
	}
	if out, ok := s.outcomes[dir]; ok {
		return out, nil
	}
	return gitops.PullOutcome{Pulled: true}, nil
}

// stubExecutor records one call per project and hands back canned results
// keyed by project name.
type stubExecutor struct {
	calls   [][]scanner.Project
	results map[string]*engine.Result
	failing map[string]error
	nextID  int64
}

func (s *stubExecutor) Execute(_ context.Context, _ []rule.Rule, projects []scanner.Project) (*engine.Result, error) {
	s.calls = append(s.calls, projects)
	name := projects[0].Name
	if err, ok := s.failing[name]; ok {
		return nil, err
	}
	if res, ok := s.results[name]; ok {
		return res, nil
	}
	s.nextID++
	return &engine.Result{ExecutionID: s.nextID}, nil
}

func projects(names ...string) []scanner.Project {
	out := make([]scanner.Project, 0, len(names))
	for i, n := range names {
		out = append(out, scanner.Project{ID: int64(i + 1), Name: n, RootPath: "/srv/" + n, IsActive: true})
	}
	return out
}

func TestAutoMerge_OneExecutionPerProject(t *testing.T) {
	puller := &stubPuller{}
	executor := &stubExecutor{results: map[string]*engine.Result{
		"api": {ExecutionID: 7, FilesModified: 2, Replacements: 5},
		"web": {ExecutionID: 8, FilesModified: 1, Replacements: 3},
	}}
	o := gitops.NewOrchestrator(puller, executor)

	res, err := o.AutoMerge(context.Background(), nil, projects("api", "web"))
	require.NoError(t, err)

	assert.Equal(t, []string{"/srv/api", "/srv/web"}, puller.pulled)
	require.Len(t, executor.calls, 2)
	assert.Equal(t, "api", executor.calls[0][0].Name)
	assert.Equal(t, "web", executor.calls[1][0].Name)

	// Each project carries its own execution and replacement count.
	require.Len(t, res.Pulls, 2)
	require.NotNil(t, res.Pulls[0].Execution)
	assert.Equal(t, 5, res.Pulls[0].Execution.Replacements)
	require.NotNil(t, res.Pulls[1].Execution)
	assert.Equal(t, 3, res.Pulls[1].Execution.Replacements)

	assert.Equal(t, 3, res.TotalFilesModified)
	assert.Equal(t, 8, res.TotalReplacements)
}

func TestAutoMerge_FailedPullExcludesProject(t *testing.T) {
	puller := &stubPuller{failing: map[string]error{
		"/srv/api": errors.New("git pull: non-fast-forward"),
	}}
	executor := &stubExecutor{}
	o := gitops.NewOrchestrator(puller, executor)

	res, err := o.AutoMerge(context.Background(), nil, projects("api", "web"))
	require.NoError(t, err)

	require.Len(t, executor.calls, 1)
	assert.Equal(t, "web", executor.calls[0][0].Name)

	require.Len(t, res.Pulls, 2)
	assert.Error(t, res.Pulls[0].Err)
	assert.Nil(t, res.Pulls[0].Execution)
	assert.NoError(t, res.Pulls[1].Err)
	assert.NotNil(t, res.Pulls[1].Execution)
}

func TestAutoMerge_ExecutionFailureDoesNotHaltOthers(t *testing.T) {
	puller := &stubPuller{}
	executor := &stubExecutor{
		failing: map[string]error{"api": errors.New("database locked")},
		results: map[string]*engine.Result{"web": {ExecutionID: 9, FilesModified: 1, Replacements: 2}},
	}
	o := gitops.NewOrchestrator(puller, executor)

	res, err := o.AutoMerge(context.Background(), nil, projects("api", "web"))
	require.NoError(t, err)

	require.Len(t, executor.calls, 2, "the second project still runs after the first fails")
	require.Len(t, res.Pulls, 2)
	assert.Error(t, res.Pulls[0].ExecErr)
	assert.Nil(t, res.Pulls[0].Execution)
	assert.NoError(t, res.Pulls[1].ExecErr)

	// Totals only count the projects that actually executed.
	assert.Equal(t, 1, res.TotalFilesModified)
	assert.Equal(t, 2, res.TotalReplacements)
}

func TestAutoMerge_NonRepoIsSkippedNotFailed(t *testing.T) {
	puller := &stubPuller{outcomes: map[string]gitops.PullOutcome{
		"/srv/api": {Skipped: true},
	}}
	executor := &stubExecutor{}
	o := gitops.NewOrchestrator(puller, executor)

	res, err := o.AutoMerge(context.Background(), nil, projects("api"))
	require.NoError(t, err)

	// A non-repo project still participates in the re-apply.
	require.Len(t, executor.calls, 1)
	assert.True(t, res.Pulls[0].Outcome.Skipped)
}

func TestAutoMerge_AllPullsFailed(t *testing.T) {
	puller := &stubPuller{failing: map[string]error{
		"/srv/api": errors.New("pull failed"),
	}}
	executor := &stubExecutor{}
	o := gitops.NewOrchestrator(puller, executor)

	_, err := o.AutoMerge(context.Background(), nil, projects("api"))
	require.Error(t, err)
	assert.Empty(t, executor.calls)
}

func TestGitPuller_SkipsNonRepository(t *testing.T) {
	g := &gitops.GitPuller{}
	outcome, err := g.Pull(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.True(t, outcome.Skipped)
	assert.False(t, outcome.Pulled)
}
