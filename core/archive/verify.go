package archive

import (
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/gaurav-prasanna/postpipe/core"
	"github.com/gaurav-prasanna/postpipe/core/render"
	"github.com/gaurav-prasanna/postpipe/core/rewrite"
	"github.com/klauspost/compress/zip"
)

// DocumentReport describes one document found in a content archive.
type DocumentReport struct {
	Name    string
	Header  render.FrontMatter
	Images  []string // every image destination, in order
	Missing []string // local references with no matching image entry
	Remote  []string // references that still point at a remote host
}

// Report is the outcome of Verify.
type Report struct {
	Documents  []DocumentReport
	ImageFiles int
}

// Missing returns the number of dangling local image references.
func (r Report) Missing() int {
	n := 0
	for _, d := range r.Documents {
		n += len(d.Missing)
	}
	return n
}

// Verify opens a content archive and, when imagePath is set, its image
// archive, and checks that every local image reference resolves.
func Verify(contentPath, imagePath string) (Report, error) {
	var report Report

	images := map[string]bool{}
	if imagePath != "" {
		names, err := entryNames(imagePath)
		if err != nil {
			return report, err
		}
		for _, name := range names {
			if !strings.HasSuffix(name, "/") {
				images[name] = true
			}
		}
		report.ImageFiles = len(images)
	}

	zr, err := zip.OpenReader(contentPath)
	if err != nil {
		return report, fmt.Errorf("opening %s: %w", contentPath, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if path.Ext(f.Name) != ".md" {
			continue
		}
		doc, err := inspect(f, images)
		if err != nil {
			return report, err
		}
		report.Documents = append(report.Documents, doc)
	}
	return report, nil
}

func inspect(f *zip.File, images map[string]bool) (DocumentReport, error) {
	doc := DocumentReport{Name: f.Name}

	rc, err := f.Open()
	if err != nil {
		return doc, fmt.Errorf("reading %s: %w", f.Name, err)
	}
	defer rc.Close()

	header, body, err := render.Parse(rc)
	if err != nil {
		return doc, fmt.Errorf("%s: %w", f.Name, err)
	}
	doc.Header = header

	doc.Images = rewrite.ImageRefs(string(body))
	doc.Remote = rewrite.RemoteImageRefs(string(body))
	for _, ref := range doc.Images {
		if !strings.HasPrefix(ref, core.ImagesDirName+"/") {
			continue
		}
		name, err := url.PathUnescape(ref)
		if err != nil || !images[name] {
			doc.Missing = append(doc.Missing, ref)
		}
	}
	return doc, nil
}

func entryNames(archivePath string) ([]string, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", archivePath, err)
	}
	defer zr.Close()

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names, nil
}

// ReadEntry returns the contents of one entry of an archive.
func ReadEntry(archivePath, name string) ([]byte, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", archivePath, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s: %w", name, core.ErrNotFound)
}
