// Package relocate copies or downloads the images of one post into the
// run's image staging directory and records where each source URL went.
//
// A Relocator is bound to one ImageMapping. Relocating a URL that is
// already mapped returns the recorded filename without touching the
// network or the filesystem.
package relocate

import (
	"context"
	"net/url"
	"path"
	"path/filepath"

	"github.com/gaurav-prasanna/postpipe/core"
	"github.com/gaurav-prasanna/postpipe/core/output"
	"github.com/gaurav-prasanna/postpipe/core/sanitize"
)

// Relocator moves image payloads into an image staging directory.
type Relocator struct {
	dir     string
	mapping core.ImageMapping
	fetcher core.Fetcher
	staging core.Staging
	names   *sanitize.Sanitizer
	logger  core.Logger
	written int
}

// New creates a Relocator writing into dir and recording into mapping.
func New(dir string, mapping core.ImageMapping, fetcher core.Fetcher, staging core.Staging, logger core.Logger) *Relocator {
	if mapping == nil {
		mapping = core.ImageMapping{}
	}
	return &Relocator{
		dir:     dir,
		mapping: mapping,
		fetcher: fetcher,
		staging: staging,
		names:   sanitize.New(),
		logger:  core.LoggerOrNop(logger),
	}
}

// Mapping returns the URL to filename table built so far.
func (r *Relocator) Mapping() core.ImageMapping {
	return r.mapping
}

// Written returns the number of files this Relocator created.
func (r *Relocator) Written() int {
	return r.written
}

// Relocate stores the payload of d and returns its local filename.
// On failure neither a file nor a mapping entry is left behind.
func (r *Relocator) Relocate(ctx context.Context, d core.ImageDescriptor) (string, error) {
	if name, ok := r.mapping[d.SourceURL]; ok {
		return name, nil
	}

	var (
		name string
		err  error
	)
	if d.LocalSourcePath != "" {
		name, err = r.copyLocal(d)
	} else {
		name, err = r.download(ctx, d)
	}
	if err != nil {
		return "", err
	}

	r.mapping[d.SourceURL] = name
	r.written++
	r.logger.Debug("image relocated", "url", d.SourceURL, "file", name, "attachment", d.HasID(), "local", d.LocalSourcePath != "")
	return name, nil
}

func (r *Relocator) copyLocal(d core.ImageDescriptor) (string, error) {
	name := r.uniqueName(r.names.CleanFile(filepath.Base(d.LocalSourcePath)))
	if err := r.staging.CopyFile(d.LocalSourcePath, filepath.Join(r.dir, name)); err != nil {
		return "", core.Fail(core.ErrImageCopyFailed, d.SourceURL, err)
	}
	return name, nil
}

func (r *Relocator) download(ctx context.Context, d core.ImageDescriptor) (string, error) {
	res, err := r.fetcher.Fetch(ctx, d.SourceURL)
	if err != nil {
		return "", core.Fail(core.ErrImageDownloadFailed, d.SourceURL, err)
	}
	if res == nil || len(res.Body) == 0 {
		return "", core.Fail(core.ErrImageEmptyContent, d.SourceURL, nil)
	}

	base := urlBase(d.SourceURL)
	if path.Ext(base) == "" {
		base += sniffExt(res.Body, res.ContentType)
	}

	name := r.uniqueName(r.names.CleanFile(base))
	if err := r.staging.WriteFile(filepath.Join(r.dir, name), res.Body); err != nil {
		return "", core.Fail(core.ErrImageSaveFailed, d.SourceURL, err)
	}
	return name, nil
}

func (r *Relocator) uniqueName(name string) string {
	return output.UniqueName(r.staging, r.names, r.dir, name, 1)
}

// urlBase returns the still-escaped last path segment of raw, ignoring any
// query or fragment.
func urlBase(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.EscapedPath() == "" {
		return path.Base(raw)
	}
	return path.Base(u.EscapedPath())
}
