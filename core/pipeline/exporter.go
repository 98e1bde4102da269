// Package pipeline runs one export request end to end:
// select posts → normalize → extract → relocate → rewrite → render → write → package.
//
// Posts are processed strictly one after another. The first failure aborts
// the run; the staging directory is removed whatever the outcome.
package pipeline

import (
	"context"
	"fmt"

	"github.com/gaurav-prasanna/postpipe/core"
	"github.com/gaurav-prasanna/postpipe/core/archive"
	"github.com/gaurav-prasanna/postpipe/core/extract"
	"github.com/gaurav-prasanna/postpipe/core/output"
	"github.com/gaurav-prasanna/postpipe/core/relocate"
	"github.com/gaurav-prasanna/postpipe/core/rewrite"
)

// Request selects what one export run covers.
type Request struct {
	Filter        core.PostFilter
	IncludeImages bool
}

// Exporter wires the pipeline stages to their collaborators.
type Exporter struct {
	content    core.ContentStore
	media      core.MediaStore
	fetcher    core.Fetcher
	normalizer core.Normalizer
	renderer   core.Renderer
	writer     *output.Writer
	packager   *archive.Packager
	logger     core.Logger
}

// Stages groups the collaborators of an Exporter.
type Stages struct {
	Content    core.ContentStore
	Media      core.MediaStore
	Fetcher    core.Fetcher
	Normalizer core.Normalizer
	Renderer   core.Renderer
	Writer     *output.Writer
}

// New creates an Exporter. Every stage is required.
func New(s Stages, logger core.Logger) (*Exporter, error) {
	switch {
	case s.Content == nil:
		return nil, fmt.Errorf("content store is required")
	case s.Media == nil:
		return nil, fmt.Errorf("media store is required")
	case s.Fetcher == nil:
		return nil, fmt.Errorf("fetcher is required")
	case s.Normalizer == nil:
		return nil, fmt.Errorf("normalizer is required")
	case s.Renderer == nil:
		return nil, fmt.Errorf("renderer is required")
	case s.Writer == nil:
		return nil, fmt.Errorf("output writer is required")
	}

	logger = core.LoggerOrNop(logger)
	return &Exporter{
		content:    s.Content,
		media:      s.Media,
		fetcher:    s.Fetcher,
		normalizer: s.Normalizer,
		renderer:   s.Renderer,
		writer:     s.Writer,
		packager:   archive.New(s.Writer, logger),
		logger:     logger,
	}, nil
}

// Export runs one export request and reports what it produced.
func (e *Exporter) Export(ctx context.Context, req Request) (core.Result, error) {
	posts, err := e.content.Posts(ctx, req.Filter)
	if err != nil {
		return core.Result{}, fmt.Errorf("selecting posts: %w", err)
	}
	if len(posts) == 0 {
		return core.Result{}, core.Fail(core.ErrNoMatchingContent, "", nil)
	}

	run, err := e.writer.NewRun(req.IncludeImages)
	if err != nil {
		return core.Result{}, err
	}
	defer func() {
		if err := e.writer.Teardown(run); err != nil {
			e.logger.Warn("staging cleanup failed", "dir", run.StagingDir, "error", err)
		}
	}()

	e.logger.Info("export started", "run", run.ID, "posts", len(posts), "include_images", req.IncludeImages)

	for i, post := range posts {
		if err := ctx.Err(); err != nil {
			return core.Result{}, err
		}
		doc, err := e.exportPost(ctx, run, post)
		if err != nil {
			e.logger.Error("post export failed", "post", post.ID, "slug", post.Slug, "code", core.Code(err), "error", err)
			return core.Result{}, err
		}
		run.Documents = append(run.Documents, doc)
		e.logger.Debug("post exported", "index", i+1, "of", len(posts), "file", doc.Filename)
	}

	archives, err := e.packager.Package(run)
	if err != nil {
		return core.Result{}, err
	}

	res := core.Result{
		PostCount:      len(run.Documents),
		ImageCount:     run.ImageCount,
		ContentArchive: archives.Content,
		ImageArchive:   archives.Images,
	}
	e.logger.Info("export finished", "run", run.ID, "posts", res.PostCount, "images", res.ImageCount)
	return res, nil
}

// exportPost turns one post into a persisted document.
func (e *Exporter) exportPost(ctx context.Context, run *core.ExportRun, post core.Post) (core.ConvertedDocument, error) {
	body, err := e.normalizer.Normalize(post.Content)
	if err != nil {
		return core.ConvertedDocument{}, fmt.Errorf("normalizing %q: %w", post.Title, err)
	}

	if run.IncludeImages {
		mapping, err := e.relocateImages(ctx, run, post)
		if err != nil {
			return core.ConvertedDocument{}, err
		}
		body = rewrite.New(mapping).Rewrite(body)

		for _, ref := range rewrite.RemoteImageRefs(body) {
			e.logger.Warn("image reference left remote", "post", post.ID, "url", ref)
		}
	}

	doc, err := e.renderer.Render(body, post)
	if err != nil {
		return core.ConvertedDocument{}, fmt.Errorf("rendering %q: %w", post.Title, err)
	}
	return e.writer.WriteDocument(run, doc)
}

// relocateImages copies every image of post into the run and returns the
// post's own mapping.
func (e *Exporter) relocateImages(ctx context.Context, run *core.ExportRun, post core.Post) (core.ImageMapping, error) {
	images, err := extract.New(e.media, e.logger).Extract(ctx, post.Content)
	if err != nil {
		return nil, fmt.Errorf("extracting images of %q: %w", post.Title, err)
	}

	r := relocate.New(run.ImageDir(), core.ImageMapping{}, e.fetcher, e.writer.Staging(), e.logger)
	for _, img := range images {
		if _, err := r.Relocate(ctx, img); err != nil {
			return nil, err
		}
	}
	run.ImageCount += r.Written()
	return r.Mapping(), nil
}
