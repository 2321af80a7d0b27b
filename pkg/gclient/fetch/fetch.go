// Package fetch dispatches a planner.WorkPlan's update-set entries to Git
// and the CIPD-like registry under a bounded-parallelism, nesting-aware
// scheduler: an entry never starts before its RequiredSeq parent has
// finished, and at most Options.Jobs entries run concurrently.
//
// Grounded on pkg/deps/resolver.go's crawler (bounded worker pool over
// a shared context, first-error-wins completion) generalized from
// "visited dedup" to "parent-gated wave dispatch" per
// original_source/src/gclient/cloner.rs's scheduling description, and
// implemented with golang.org/x/sync/errgroup + semaphore rather than
// the teacher's hand-rolled channel/WaitGroup plumbing, per spec §4.7's
// explicit acceptance of a work-stealing equivalent: each entry is its
// own goroutine that waits on its parent's completion channel, so the
// only "wave" bookkeeping needed is per-entry, not a global loop.
package fetch

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	gerrors "github.com/tapcart/gclient/pkg/errors"
	"github.com/tapcart/gclient/pkg/gclient/entries"
	"github.com/tapcart/gclient/pkg/gclient/planner"
	"github.com/tapcart/gclient/pkg/gclient/registry"
	"github.com/tapcart/gclient/pkg/gclient/types"
	"github.com/tapcart/gclient/pkg/observability"
)

// ScratchDirName is the workspace-relative scratch directory CIPD
// archives are downloaded into before extraction (spec §6).
const ScratchDirName = ".tpot_cipd"

// Options configures one Engine.
type Options struct {
	// Jobs bounds overall fetch concurrency. Zero means runtime.NumCPU().
	Jobs int
	// GitJobs is passed to `git fetch --jobs`. Zero means 1.
	GitJobs int
	// NoHistory adds `--depth=1` to `git fetch`.
	NoHistory bool
	// GitExecutable overrides the `git` binary name, mainly for tests.
	GitExecutable string
}

// Engine runs a Plan's update set to completion.
type Engine struct {
	BasePath string
	Registry *registry.Client
	HTTP     *http.Client
	Opts     Options
}

// NewEngine builds an Engine rooted at basePath.
func NewEngine(basePath string, reg *registry.Client, opts Options) *Engine {
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.NumCPU()
	}
	if opts.GitJobs <= 0 {
		opts.GitJobs = 1
	}
	if opts.GitExecutable == "" {
		opts.GitExecutable = "git"
	}
	return &Engine{
		BasePath: basePath,
		Registry: reg,
		HTTP:     &http.Client{},
		Opts:     opts,
	}
}

// Run fetches every entry in plan.Entries, respecting nesting order and
// the configured job cap, then persists plan.NewCache to path only if
// every entry succeeded (spec §4.7, §5: the cache is never rewritten
// after a fatal error).
func (e *Engine) Run(ctx context.Context, plan *planner.WorkPlan, cachePath string) error {
	if len(plan.Entries) == 0 {
		return entries.Write(cachePath, plan.NewCache)
	}

	done := make(map[int]chan struct{}, len(plan.Entries))
	for _, entry := range plan.Entries {
		done[entry.Seq] = make(chan struct{})
	}

	sem := semaphore.NewWeighted(int64(e.Opts.Jobs))
	g, gctx := errgroup.WithContext(ctx)

	for _, entry := range plan.Entries {
		entry := entry
		g.Go(func() error {
			if entry.HasRequired {
				select {
				case <-done[entry.RequiredSeq]:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			if err := e.fetchOne(gctx, entry); err != nil {
				return gerrors.Wrap(gerrors.CodeSubprocess, err, "fetching %q", entry.Path).WithOp(fmt.Sprintf("fetching %s", entry.Path))
			}
			close(done[entry.Seq])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	return entries.Write(cachePath, plan.NewCache)
}

func (e *Engine) fetchOne(ctx context.Context, entry planner.Entry) error {
	target, err := gerrors.ResolveWithinBase(e.BasePath, entry.Path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return gerrors.Wrap(gerrors.CodeIO, err, "creating target directory %q", target)
	}

	if entry.Def.IsCIPD() {
		return e.fetchCIPD(ctx, target, entry.Def.Packages)
	}
	return e.fetchGit(ctx, target, entry.Def.URL)
}

// --- Git ---

func (e *Engine) fetchGit(ctx context.Context, target, rawURL string) (err error) {
	cleanURL, ref := splitGitRef(rawURL)

	start := time.Now()
	observability.Fetch().OnGitStart(ctx, target, cleanURL)
	defer func() {
		observability.Fetch().OnGitComplete(ctx, target, cleanURL, time.Since(start), err)
	}()

	if err = e.runGit(ctx, target, "init", "--initial-branch=master"); err != nil {
		return err
	}

	fetchArgs := []string{"fetch", cleanURL}
	if ref != "" {
		fetchArgs = append(fetchArgs, ref)
	}
	if e.Opts.NoHistory {
		fetchArgs = append(fetchArgs, "--depth=1")
	}
	fetchArgs = append(fetchArgs, fmt.Sprintf("--jobs=%d", e.Opts.GitJobs))
	if err = e.runGit(ctx, target, fetchArgs...); err != nil {
		return err
	}

	err = e.runGit(ctx, target, "merge", "FETCH_HEAD")
	return err
}

func (e *Engine) runGit(ctx context.Context, dir string, args ...string) error {
	return RunSubprocess(ctx, dir, e.Opts.GitExecutable, args...)
}

// splitGitRef extracts an optional "@ref" suffix from the path portion
// of a dependency URL, ignoring any fragment and ignoring an "@" that
// belongs to scp-like user@host auth (one that appears before the
// URL's last path separator).
func splitGitRef(rawURL string) (clean string, ref string) {
	noFragment := rawURL
	if idx := strings.IndexByte(rawURL, '#'); idx >= 0 {
		noFragment = rawURL[:idx]
	}
	lastSlash := strings.LastIndexByte(noFragment, '/')
	at := strings.LastIndexByte(noFragment, '@')
	if at > lastSlash {
		return noFragment[:at], noFragment[at+1:]
	}
	return noFragment, ""
}

// --- CIPD ---

func (e *Engine) fetchCIPD(ctx context.Context, target string, packages []types.CIPDPackage) error {
	scratch := filepath.Join(e.BasePath, ScratchDirName)
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return gerrors.Wrap(gerrors.CodeIO, err, "creating scratch directory %q", scratch)
	}

	for _, pkg := range packages {
		if err := e.fetchOneCIPD(ctx, target, scratch, pkg); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) fetchOneCIPD(ctx context.Context, target, scratch string, pkg types.CIPDPackage) (err error) {
	start := time.Now()
	observability.Fetch().OnCIPDStart(ctx, target, pkg.Package, pkg.Version)
	defer func() {
		observability.Fetch().OnCIPDComplete(ctx, target, pkg.Package, pkg.Version, time.Since(start), err)
	}()

	instance, err := e.Registry.ResolveVersion(ctx, pkg.Package, pkg.Version)
	if err != nil {
		return err
	}
	archiveURL, err := e.Registry.GetInstanceURL(ctx, pkg.Package, instance.Digest)
	if err != nil {
		return err
	}

	// Downloaded under a uuid-staged name so two concurrent fetches
	// of the same instance never race on the same path, then
	// renamed to the digest-keyed name once complete.
	stagingPath := filepath.Join(scratch, uuid.NewString()+".part")
	archivePath := filepath.Join(scratch, instance.Digest.HexDigest+".zip")
	if err = e.download(ctx, archiveURL, stagingPath); err != nil {
		return err
	}
	if err = os.Rename(stagingPath, archivePath); err != nil {
		return gerrors.Wrap(gerrors.CodeIO, err, "staging archive %q", archivePath)
	}

	if err = unzip(archivePath, target); err != nil {
		return err
	}

	// The archive's manifest directory carries restrictive
	// permissions that block re-extracting a later package into
	// the same target; its absence is not an error.
	_ = os.RemoveAll(filepath.Join(target, ".cipdpkg"))
	return nil
}

func (e *Engine) download(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return gerrors.Wrap(gerrors.CodeNetwork, err, "building download request for %q", rawURL)
	}
	resp, err := e.HTTP.Do(req)
	if err != nil {
		return gerrors.Wrap(gerrors.CodeNetwork, err, "downloading %q", rawURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return gerrors.New(gerrors.CodeNetwork, "downloading %q: http %d", rawURL, resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return gerrors.Wrap(gerrors.CodeIO, err, "creating archive file %q", dest)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return gerrors.Wrap(gerrors.CodeIO, err, "writing archive file %q", dest)
	}
	return nil
}

func unzip(archivePath, target string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return gerrors.Wrap(gerrors.CodeArchive, err, "opening archive %q", archivePath)
	}
	defer r.Close()

	for _, f := range r.File {
		destPath, err := gerrors.ResolveWithinBase(target, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, 0o755); err != nil {
				return gerrors.Wrap(gerrors.CodeIO, err, "creating %q", destPath)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return gerrors.Wrap(gerrors.CodeIO, err, "creating %q", filepath.Dir(destPath))
		}
		if err := extractFile(f, destPath); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, destPath string) error {
	rc, err := f.Open()
	if err != nil {
		return gerrors.Wrap(gerrors.CodeArchive, err, "reading archive entry %q", f.Name)
	}
	defer rc.Close()

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode().Perm()|0o200)
	if err != nil {
		return gerrors.Wrap(gerrors.CodeIO, err, "creating extracted file %q", destPath)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return gerrors.Wrap(gerrors.CodeArchive, err, "extracting %q", f.Name)
	}
	return nil
}

// --- subprocess plumbing shared with the recursion driver's Git clone ---

// RunSubprocess runs name with args in dir, capturing stderr into the
// returned error on failure. Shared with the recursion driver's
// `git clone` invocation.
func RunSubprocess(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var errBuf bytes.Buffer
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		return gerrors.Wrap(gerrors.CodeSubprocess, err, "%s %s (in %s): %s", name, strings.Join(args, " "), dir, errBuf.String())
	}
	return nil
}
