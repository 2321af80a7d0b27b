// Package recurse drives the top-level workspace: checkout each
// solution, evaluate its DEPS, plan and fetch its surviving dependency
// set against its own directory and entries cache, and queue any
// recursedeps the DEPS file names as synthetic no-checkout solutions —
// iterating until the solution queue stabilizes. A solution is fetched
// before its recursedeps are processed, so a recursedeps path that is
// itself one of that solution's own deps is already on disk by the
// time its DEPS file is read.
//
// Grounded on original_source/src/gclient/cloner.rs's top-level driver
// loop and src/bin/gclient.rs's Sync subcommand flow, which calls
// clone_dependencies with base_path set to the solution's own
// directory, per solution.
package recurse

import (
	"context"
	"os"
	"path/filepath"

	gerrors "github.com/tapcart/gclient/pkg/errors"
	"github.com/tapcart/gclient/pkg/gclient/condition"
	"github.com/tapcart/gclient/pkg/gclient/depsfile"
	"github.com/tapcart/gclient/pkg/gclient/entries"
	"github.com/tapcart/gclient/pkg/gclient/fetch"
	"github.com/tapcart/gclient/pkg/gclient/gnargs"
	"github.com/tapcart/gclient/pkg/gclient/planner"
	"github.com/tapcart/gclient/pkg/gclient/registry"
	"github.com/tapcart/gclient/pkg/gclient/types"
)

// Driver processes a Workspace to completion: checkout, evaluate, plan,
// fetch, and recurse.
type Driver struct {
	BasePath      string
	Fetch         *fetch.Engine
	FilterOpts    condition.FilterOptions
	GitExecutable string

	// Log, when set, receives one line per solution processed and per
	// recursedeps entry discovered; nil disables this reporting.
	Log func(format string, args ...any)
}

// NewDriver builds a Driver rooted at basePath using eng for fetches.
func NewDriver(basePath string, eng *fetch.Engine) *Driver {
	gitExe := "git"
	if eng != nil {
		gitExe = eng.Opts.GitExecutable
	}
	return &Driver{BasePath: basePath, Fetch: eng, GitExecutable: gitExe}
}

// Run processes ws to a fixed point: every solution and every
// recursedeps entry it transitively names. Each solution's own
// dependency set is planned and fetched against that solution's own
// directory and entries cache (original_source/src/bin/gclient.rs calls
// clone_dependencies with base_path = solution_dir, per solution) before
// its recursedeps are enqueued, so a recursedeps path that is itself
// one of the solution's own deps is on disk by the time its DEPS file
// is read (spec §4.9, scenario #6).
func (d *Driver) Run(ctx context.Context, ws *types.Workspace) error {
	registryBase := registry.DefaultBaseURL
	if d.Fetch != nil && d.Fetch.Registry != nil {
		registryBase = d.Fetch.Registry.BaseURL
	}

	queue := append([]types.Solution(nil), ws.Solutions...)
	seen := make(map[string]bool, len(queue))

	for i := 0; i < len(queue); i++ {
		sol := queue[i]
		if seen[sol.Name] {
			continue
		}
		seen[sol.Name] = true

		recursedInto, err := d.processSolution(ctx, ws, sol, registryBase)
		if err != nil {
			return err
		}
		queue = append(queue, recursedInto...)
	}

	return nil
}

// processSolution checks out sol (unless NoCheckout), parses and
// evaluates its DEPS, plans and fetches its surviving deps into its own
// directory, writes its gn-args file, and returns any recursedeps
// entries it names as queued synthetic solutions.
func (d *Driver) processSolution(ctx context.Context, ws *types.Workspace, sol types.Solution, registryBase string) ([]types.Solution, error) {
	solDir, err := gerrors.ResolveWithinBase(d.BasePath, sol.Name)
	if err != nil {
		return nil, err
	}

	if !sol.NoCheckout {
		d.logf("cloning %s -> %s", sol.URL, sol.Name)
		if err := d.clone(ctx, sol.URL, solDir); err != nil {
			return nil, err
		}
	}

	depsPath := filepath.Join(solDir, sol.DepsFileName())
	text, err := os.ReadFile(depsPath)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.CodeIO, err, "reading DEPS file %q", depsPath)
	}

	spec, err := depsfile.Parse(string(text), sol.CustomVars)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.CodeEval, err, "evaluating DEPS for solution %q", sol.Name)
	}

	scope := condition.BuildScope(spec, sol, ws)
	filtered, err := condition.Evaluate(spec.Deps, scope, d.FilterOpts)
	if err != nil {
		return nil, err
	}

	if err := gnargs.Write(solDir, spec, scope); err != nil {
		return nil, err
	}

	if err := d.fetchSolution(ctx, sol, solDir, filtered, registryBase); err != nil {
		return nil, err
	}

	return d.synthesizeRecursedeps(sol, spec), nil
}

// fetchSolution plans and fetches one solution's surviving deps,
// scoped to solDir: the entries cache lives at solDir/.gclient_entries
// and target paths resolve relative to solDir, so two solutions never
// collide over the same dependency path.
func (d *Driver) fetchSolution(ctx context.Context, sol types.Solution, solDir string, deps map[string]types.DependencyDef, registryBase string) error {
	cachePath := entries.Path(solDir)
	prevCache, err := entries.Read(cachePath)
	if err != nil {
		return err
	}

	plan, err := planner.Plan(solDir, deps, prevCache, registryBase)
	if err != nil {
		return err
	}
	d.logf("%s: plan: %d to fetch, %d removed", sol.Name, len(plan.Entries), len(plan.Deleted))

	solEngine := &fetch.Engine{
		BasePath: solDir,
		Registry: d.Fetch.Registry,
		HTTP:     d.Fetch.HTTP,
		Opts:     d.Fetch.Opts,
	}
	return solEngine.Run(ctx, plan, cachePath)
}

// synthesizeRecursedeps turns a DEPS file's recursedeps list into
// queued no-checkout solutions, per spec §4.9's path-prefixing rule.
func (d *Driver) synthesizeRecursedeps(sol types.Solution, spec *types.DepsSpec) []types.Solution {
	out := make([]types.Solution, 0, len(spec.Recursedeps))
	for _, depPath := range spec.Recursedeps {
		name := depPath
		if spec.UseRelativePaths {
			name = filepath.ToSlash(filepath.Join(sol.Name, depPath))
		}
		d.logf("recursedeps: %s -> %s", sol.Name, name)
		out = append(out, types.Solution{
			Name:            name,
			NoCheckout:      true,
			FromRecursedeps: true,
			DepsFile:        sol.DepsFile,
			CustomVars:      sol.CustomVars,
		})
	}
	return out
}

func (d *Driver) clone(ctx context.Context, url, dir string) error {
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return gerrors.Wrap(gerrors.CodeIO, err, "creating solution parent directory %q", parent)
	}
	return fetch.RunSubprocess(ctx, parent, d.GitExecutable, "clone", url, dir)
}

func (d *Driver) logf(format string, args ...any) {
	if d.Log != nil {
		d.Log(format, args...)
	}
}
