// Package extract finds every image embedded in a post body and resolves
// each one to an ImageDescriptor. It runs two passes over the HTML:
//  1. <img> elements carrying a "wp-image-<id>" class, resolved by id
//     through the MediaStore (unresolvable ids are skipped in this pass)
//  2. every <img src>, whose URL was not captured by pass 1, resolved by
//     reverse URL lookup, or kept as a bare URL-only descriptor
//
// Results keep first-appearance order and are deduplicated by source URL.
package extract

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gaurav-prasanna/postpipe/core"
)

// attachmentClass matches the block editor's attachment marker class.
var attachmentClass = regexp.MustCompile(`(?:^|\s)wp-image-(\d+)(?:\s|$)`)

// ImageExtractor discovers images in post HTML.
type ImageExtractor struct {
	media  core.MediaStore
	logger core.Logger
}

// New creates an ImageExtractor backed by the given MediaStore.
func New(media core.MediaStore, logger core.Logger) *ImageExtractor {
	return &ImageExtractor{media: media, logger: core.LoggerOrNop(logger)}
}

// Extract returns the images referenced by html.
func (e *ImageExtractor) Extract(ctx context.Context, html string) ([]core.ImageDescriptor, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	q := newQueue()
	if err := e.byAttachmentID(ctx, doc, q); err != nil {
		return nil, err
	}
	if err := e.bySource(ctx, doc, q); err != nil {
		return nil, err
	}
	return q.All(), nil
}

// byAttachmentID resolves images tagged with an attachment id.
func (e *ImageExtractor) byAttachmentID(ctx context.Context, doc *goquery.Document, q *queue) error {
	var ids []int64
	seen := make(map[int64]bool)
	doc.Find("img[class]").Each(func(_ int, s *goquery.Selection) {
		class, _ := s.Attr("class")
		m := attachmentClass.FindStringSubmatch(class)
		if m == nil {
			return
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	})

	for _, id := range ids {
		att, err := e.media.Attachment(ctx, id)
		if errors.Is(err, core.ErrNotFound) {
			e.logger.Debug("attachment not resolvable", "id", id)
			continue
		}
		if err != nil {
			return fmt.Errorf("resolving attachment %d: %w", id, err)
		}
		q.Add(core.ImageDescriptor{
			ID:              att.ID,
			SourceURL:       att.URL,
			LocalSourcePath: att.FilePath,
			AltText:         att.Alt,
		})
	}
	return nil
}

// bySource captures every remaining <img src>.
func (e *ImageExtractor) bySource(ctx context.Context, doc *goquery.Document, q *queue) error {
	var sources []string
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		src = strings.TrimSpace(src)
		if src == "" || strings.HasPrefix(strings.ToLower(src), "data:") {
			return
		}
		sources = append(sources, src)
	})

	for _, src := range sources {
		if q.Has(src) {
			continue
		}
		d, err := e.resolveURL(ctx, src)
		if err != nil {
			return err
		}
		q.Add(d)
	}
	return nil
}

// resolveURL attaches platform metadata to src when the platform knows it.
func (e *ImageExtractor) resolveURL(ctx context.Context, src string) (core.ImageDescriptor, error) {
	bare := core.ImageDescriptor{SourceURL: src}

	id, err := e.media.AttachmentIDByURL(ctx, src)
	if errors.Is(err, core.ErrNotFound) {
		return bare, nil
	}
	if err != nil {
		return bare, fmt.Errorf("looking up attachment for %s: %w", src, err)
	}

	att, err := e.media.Attachment(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return bare, nil
	}
	if err != nil {
		return bare, fmt.Errorf("resolving attachment %d: %w", id, err)
	}

	return core.ImageDescriptor{
		ID:              id,
		SourceURL:       src,
		LocalSourcePath: att.FilePath,
		AltText:         att.Alt,
	}, nil
}
