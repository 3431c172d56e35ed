// Package opts carries the shared dependencies handed to every command.
package opts

import (
	"context"
	"strings"

	"github.com/rulesweep/rulesweep/pkg/config"
	"github.com/rulesweep/rulesweep/pkg/console"
	"github.com/rulesweep/rulesweep/pkg/engine"
	"github.com/rulesweep/rulesweep/pkg/gitops"
	"github.com/rulesweep/rulesweep/pkg/rule"
	"github.com/rulesweep/rulesweep/pkg/scanner"
	"github.com/rulesweep/rulesweep/pkg/store"
	"github.com/rulesweep/rulesweep/pkg/walker"
)

// 🧰 RootOpts is filled in by the root command before any subcommand runs.
type RootOpts struct {
	Config  *config.Config
	Store   *store.Store
	Console *console.Console
}

// Scanner builds a scanner configured from the loaded scan policy.
func (o *RootOpts) Scanner() *scanner.Scanner {
	w := walker.New(walker.Options{
		IncludeExtensions: extSet(o.Config.Scan.IncludeExtensions),
		ExcludeExtensions: extSet(o.Config.Scan.ExcludeExtensions),
		ExcludeFolders:    folderSet(o.Config.Scan.ExcludeFolders),
		IgnorePatterns:    o.Config.Scan.IgnorePatterns,
	})
	return scanner.New(w, o.Config.Workers)
}

func extSet(exts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		out[rule.NormalizeExt(e)] = struct{}{}
	}
	return out
}

func folderSet(folders []string) map[string]struct{} {
	out := make(map[string]struct{}, len(folders))
	for _, f := range folders {
		out[strings.ToLower(f)] = struct{}{}
	}
	return out
}

// Engine builds the execution engine on top of Scanner and the store.
func (o *RootOpts) Engine() *engine.Engine {
	return engine.New(o.Scanner(), o.Store, o.Config.BackupDir())
}

// Puller builds the git puller with the configured timeout.
func (o *RootOpts) Puller() *gitops.GitPuller {
	return &gitops.GitPuller{Timeout: o.Config.GitTimeout()}
}

// ScanProjects loads the scanner's view of the projects: the requested ids,
// or every active project when ids is empty.
func (o *RootOpts) ScanProjects(ctx context.Context, ids []int64) ([]scanner.Project, error) {
	projects, err := o.Store.ProjectsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]scanner.Project, 0, len(projects))
	for _, p := range projects {
		out = append(out, scanner.Project{
			ID:       p.ID,
			Name:     p.Name,
			RootPath: p.RootPath,
			IsActive: p.IsActive,
		})
	}
	return out, nil
}
