// Package output owns the export directory: per-run staging areas,
// collision-free document writes, archive hardening and cleanup.
//
// Layout under the export directory:
//
//	temp-<unix>-<token>/           staging for one run
//	temp-<unix>-<token>/images/    relocated images of that run
//	posts-<unix>.zip               content archives
//	images-<unix>.zip              image archives
package output

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gaurav-prasanna/postpipe/core"
	"github.com/gaurav-prasanna/postpipe/core/sanitize"
	"github.com/google/uuid"
)

const stagingPrefix = "temp-"

// Writer writes run output below an export directory.
type Writer struct {
	Dir     string
	staging core.Staging
	names   *sanitize.Sanitizer
	now     func() time.Time
}

// New creates a Writer rooted at dir, creating it when missing.
// A nil staging uses the local filesystem.
func New(dir string, staging core.Staging) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("export directory is required")
	}
	if staging == nil {
		staging = FS{}
	}
	if err := staging.MkdirAll(dir); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}
	return &Writer{Dir: dir, staging: staging, names: sanitize.New(), now: time.Now}, nil
}

// Staging returns the file area the writer operates on.
func (w *Writer) Staging() core.Staging {
	return w.staging
}

// NewRun creates a fresh staging directory for one export request.
func (w *Writer) NewRun(includeImages bool) (*core.ExportRun, error) {
	id := uuid.NewString()
	token := strings.SplitN(id, "-", 2)[0]
	dir := filepath.Join(w.Dir, stagingPrefix+strconv.FormatInt(w.now().Unix(), 10)+"-"+token)

	if err := w.staging.MkdirAll(dir); err != nil {
		return nil, core.Fail(core.ErrStagingCreateFailed, dir, err)
	}

	run := &core.ExportRun{ID: id, StagingDir: dir, IncludeImages: includeImages}
	if includeImages {
		if err := w.staging.MkdirAll(run.ImageDir()); err != nil {
			_ = w.staging.RemoveAll(dir)
			return nil, core.Fail(core.ErrStagingCreateFailed, run.ImageDir(), err)
		}
	}
	return run, nil
}

// Teardown deletes the run's staging directory.
func (w *Writer) Teardown(run *core.ExportRun) error {
	if run == nil || run.StagingDir == "" {
		return nil
	}
	return w.staging.RemoveAll(run.StagingDir)
}

// UniqueName returns name, or name with "-n" inserted before its extension
// for the first n >= start that does not exist in dir. Existence is probed
// on every call so concurrent writers to dir are observed.
func UniqueName(staging core.Staging, names *sanitize.Sanitizer, dir, name string, start int) string {
	candidate := name
	for n := start; staging.Exists(filepath.Join(dir, candidate)); n++ {
		candidate = names.Suffixed(name, n)
	}
	return candidate
}

// WriteDocument persists doc in the run's staging directory. When the
// filename is taken, "-2", "-3", ... is appended before the extension.
// The returned document carries the final filename.
func (w *Writer) WriteDocument(run *core.ExportRun, doc core.ConvertedDocument) (core.ConvertedDocument, error) {
	doc.Filename = UniqueName(w.staging, w.names, run.StagingDir, doc.Filename, 2)
	path := filepath.Join(run.StagingDir, doc.Filename)

	if err := w.staging.WriteFile(path, doc.Content()); err != nil {
		return doc, core.Fail(core.ErrDocumentSaveFailed, doc.Filename, err)
	}
	return doc, nil
}

// ArchivePath returns an unused archive path "<kind>-<unix>.zip" in the
// export directory.
func (w *Writer) ArchivePath(kind string, at time.Time) string {
	name := fmt.Sprintf("%s-%d.zip", kind, at.Unix())
	return filepath.Join(w.Dir, UniqueName(w.staging, w.names, w.Dir, name, 2))
}

// Harden makes a finished archive downloadable: 0644 on the file and 0755
// on its directory.
func (w *Writer) Harden(path string) error {
	if !w.staging.Exists(path) {
		return core.Fail(core.ErrPermissionSetFailed, path, nil)
	}
	if err := w.staging.Chmod(path, 0o644); err != nil {
		return core.Fail(core.ErrPermissionSetFailed, path, err)
	}
	if err := w.staging.Chmod(filepath.Dir(path), 0o755); err != nil {
		return core.Fail(core.ErrPermissionSetFailed, filepath.Dir(path), err)
	}
	return nil
}

// CleanResult reports what Clean removed.
type CleanResult struct {
	Archives    int
	StagingDirs int
}

// Clean removes every archive and every staging directory left in the
// export directory.
func (w *Writer) Clean() (CleanResult, error) {
	var res CleanResult

	archives, err := w.staging.Glob(filepath.Join(w.Dir, "*.zip"))
	if err != nil {
		return res, fmt.Errorf("listing archives: %w", err)
	}
	for _, path := range archives {
		if w.staging.IsDir(path) {
			continue
		}
		if err := w.staging.Remove(path); err == nil {
			res.Archives++
		}
	}

	dirs, err := w.staging.Glob(filepath.Join(w.Dir, stagingPrefix+"*"))
	if err != nil {
		return res, fmt.Errorf("listing staging directories: %w", err)
	}
	for _, dir := range dirs {
		if !w.staging.IsDir(dir) {
			continue
		}
		if err := w.staging.RemoveAll(dir); err == nil {
			res.StagingDirs++
		}
	}
	return res, nil
}
