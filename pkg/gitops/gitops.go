// Package gitops wraps the local git CLI for the pull-then-reapply workflow.
package gitops

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/rulesweep/rulesweep/pkg/engine"
	"github.com/rulesweep/rulesweep/pkg/rule"
	"github.com/rulesweep/rulesweep/pkg/scanner"
)

// DefaultTimeout bounds a single git command.
const DefaultTimeout = 2 * time.Minute

// 📌 PullOutcome reports one project's pull.
type PullOutcome struct {
	Pulled  bool   // a fast-forward pull ran successfully
	Skipped bool   // the directory is not a git repository
	Output  string // trailing git output, trimmed
}

// 📊 RepoStatus is a snapshot of a repository's state.
type RepoStatus struct {
	Branch string
	Dirty  bool
	Ahead  int
	Behind int
}

// Puller pulls one directory. Satisfied by *GitPuller; stubbed in tests.
type Puller interface {
	Pull(ctx context.Context, dir string) (PullOutcome, error)
}

// 🔧 GitPuller runs the real git binary.
type GitPuller struct {
	GitPath string        // defaults to "git"
	Timeout time.Duration // per command, defaults to DefaultTimeout
}

func (g *GitPuller) git(ctx context.Context, dir string, args ...string) (string, error) {
	bin := g.GitPath
	if bin == "" {
		bin = "git"
	}
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, append([]string{"-C", dir}, args...)...)
	out, err := cmd.CombinedOutput()
	text := strings.TrimSpace(string(out))
	if err != nil {
		if ctx.Err() != nil {
			return text, errors.Errorf("git %s timed out after %s", args[0], timeout)
		}
		return text, errors.Errorf("git %s: %s: %w", args[0], text, err)
	}
	return text, nil
}

// IsRepo reports whether dir is inside a git working tree.
func (g *GitPuller) IsRepo(ctx context.Context, dir string) bool {
	_, err := g.git(ctx, dir, "rev-parse", "--show-toplevel")
	return err == nil
}

// Pull fast-forwards dir from its upstream. A directory that is not a
// repository is skipped, not failed: registered projects are allowed to live
// outside version control.
func (g *GitPuller) Pull(ctx context.Context, dir string) (PullOutcome, error) {
	if !g.IsRepo(ctx, dir) {
		return PullOutcome{Skipped: true}, nil
	}

	out, err := g.git(ctx, dir, "pull", "--ff-only")
	if err != nil {
		return PullOutcome{Output: out}, err
	}
	return PullOutcome{Pulled: true, Output: out}, nil
}

// Status collects branch, dirtiness, and ahead/behind counts for dir.
func (g *GitPuller) Status(ctx context.Context, dir string) (*RepoStatus, error) {
	branch, err := g.git(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil, err
	}

	porcelain, err := g.git(ctx, dir, "status", "--porcelain")
	if err != nil {
		return nil, err
	}

	status := &RepoStatus{Branch: branch, Dirty: porcelain != ""}

	// No upstream is not an error; ahead/behind just stay zero.
	counts, err := g.git(ctx, dir, "rev-list", "--left-right", "--count", "@{upstream}...HEAD")
	if err == nil {
		if fields := strings.Fields(counts); len(fields) == 2 {
			status.Behind, _ = strconv.Atoi(fields[0])
			status.Ahead, _ = strconv.Atoi(fields[1])
		}
	}

	return status, nil
}

// Executor applies rules across projects. Satisfied by *engine.Engine.
type Executor interface {
	Execute(ctx context.Context, rules []rule.Rule, projects []scanner.Project) (*engine.Result, error)
}

// 📌 ProjectPull is one project's outcome across both phases: the pull and
// the project's own re-apply execution.
type ProjectPull struct {
	Project   scanner.Project
	Outcome   PullOutcome
	Err       error          // pull failure; the project is excluded from the re-apply
	Execution *engine.Result // nil when the pull failed or the execution errored
	ExecErr   error
}

// 📋 AutoMergeResult itemizes every project's pull and execution, with
// running totals across the projects that re-applied successfully.
type AutoMergeResult struct {
	Pulls              []ProjectPull
	TotalFilesModified int
	TotalReplacements  int
}

// 🔀 Orchestrator runs the auto-merge workflow: pull every active project,
// then re-apply the active rules to each one so upstream changes pick up the
// same replacements.
type Orchestrator struct {
	puller   Puller
	executor Executor
}

func NewOrchestrator(p Puller, e Executor) *Orchestrator {
	return &Orchestrator{puller: p, executor: e}
}

// AutoMerge pulls each project in sequence, then runs one execution per
// project whose pull did not fail. Each project gets its own execution
// record with its own replacement count; one project's failure, at either
// phase, never aborts the others.
func (o *Orchestrator) AutoMerge(ctx context.Context, rules []rule.Rule, projects []scanner.Project) (*AutoMergeResult, error) {
	log := zerolog.Ctx(ctx)
	res := &AutoMergeResult{}

	pulled := 0
	for _, p := range projects {
		if err := ctx.Err(); err != nil {
			return nil, errors.Errorf("auto-merge interrupted: %w", err)
		}

		pp := ProjectPull{Project: p}
		pp.Outcome, pp.Err = o.puller.Pull(ctx, p.RootPath)
		if pp.Err != nil {
			log.Warn().Err(pp.Err).Str("project", p.Name).Msg("⚠️ pull failed, excluding from re-apply")
			res.Pulls = append(res.Pulls, pp)
			continue
		}
		if pp.Outcome.Skipped {
			log.Debug().Str("project", p.Name).Msg("not a git repository, skipping pull")
		}
		pulled++

		pp.Execution, pp.ExecErr = o.executor.Execute(ctx, rules, []scanner.Project{p})
		if pp.ExecErr != nil {
			log.Warn().Err(pp.ExecErr).Str("project", p.Name).Msg("⚠️ re-apply failed")
		} else {
			res.TotalFilesModified += pp.Execution.FilesModified
			res.TotalReplacements += pp.Execution.Replacements
		}
		res.Pulls = append(res.Pulls, pp)
	}

	if pulled == 0 {
		return res, errors.New("no projects available after pulling")
	}

	log.Info().
		Int("projects_pulled", pulled).
		Int("files_modified", res.TotalFilesModified).
		Int("replacements", res.TotalReplacements).
		Msg("🔀 auto-merge finished")
	return res, nil
}
