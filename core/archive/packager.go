// Package archive packs a finished export run into zip containers and reads
// them back for verification.
//
// Archive layout:
//
//	posts-<unix>.zip    every document of the run at the container root
//	images-<unix>.zip   every relocated image under images/
//
// The image container exists only when the run relocated at least one image.
package archive

import (
	"io"
	"path"
	"path/filepath"
	"time"

	"github.com/gaurav-prasanna/postpipe/core"
	"github.com/gaurav-prasanna/postpipe/core/output"
	"github.com/klauspost/compress/zip"
)

// Archive kinds, used as name prefixes.
const (
	KindPosts  = "posts"
	KindImages = "images"
)

// Archives holds the locations produced for one run.
type Archives struct {
	Content string
	Images  string // empty when no image archive was produced
}

// Packager builds the archives of a run next to its staging directory.
type Packager struct {
	writer *output.Writer
	now    func() time.Time
	logger core.Logger
}

// New creates a Packager placing archives in w's export directory.
func New(w *output.Writer, logger core.Logger) *Packager {
	return &Packager{writer: w, now: time.Now, logger: core.LoggerOrNop(logger)}
}

// Package writes the content archive and, when images were relocated, the
// image archive, then hardens both. On failure nothing is left behind.
func (p *Packager) Package(run *core.ExportRun) (Archives, error) {
	var out Archives
	at := p.now()

	entries := make([]entry, 0, len(run.Documents))
	for _, doc := range run.Documents {
		entries = append(entries, entry{
			name: doc.Filename,
			src:  filepath.Join(run.StagingDir, doc.Filename),
		})
	}

	content, err := p.write(KindPosts, at, entries)
	if err != nil {
		return out, err
	}
	out.Content = content

	if run.IncludeImages && run.ImageCount > 0 {
		images, err := p.imageEntries(run)
		if err == nil {
			out.Images, err = p.write(KindImages, at, images)
		}
		if err != nil {
			p.discard(out)
			return Archives{}, err
		}
	}

	for _, archive := range []string{out.Content, out.Images} {
		if archive == "" {
			continue
		}
		if err := p.writer.Harden(archive); err != nil {
			p.discard(out)
			return Archives{}, err
		}
	}
	return out, nil
}

type entry struct {
	name string
	src  string
}

func (p *Packager) imageEntries(run *core.ExportRun) ([]entry, error) {
	names, err := p.writer.Staging().ReadDir(run.ImageDir())
	if err != nil {
		return nil, core.Fail(core.ErrArchiveCreateFailed, run.ImageDir(), err)
	}
	entries := make([]entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, entry{
			name: path.Join(core.ImagesDirName, name),
			src:  filepath.Join(run.ImageDir(), name),
		})
	}
	return entries, nil
}

// write creates one archive of kind holding entries and returns its path.
func (p *Packager) write(kind string, at time.Time, entries []entry) (string, error) {
	staging := p.writer.Staging()
	dst := p.writer.ArchivePath(kind, at)

	f, err := staging.Create(dst)
	if err != nil {
		return "", core.Fail(core.ErrArchiveCreateFailed, dst, err)
	}

	zw := zip.NewWriter(f)
	for _, e := range entries {
		if err = addFile(staging, zw, e, at); err != nil {
			break
		}
	}
	if cerr := zw.Close(); err == nil {
		err = cerr
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = staging.Remove(dst)
		return "", core.Fail(core.ErrArchiveCreateFailed, dst, err)
	}

	p.logger.Debug("archive written", "kind", kind, "path", dst, "entries", len(entries))
	return dst, nil
}

func addFile(staging core.Staging, zw *zip.Writer, e entry, at time.Time) error {
	src, err := staging.Open(e.src)
	if err != nil {
		return err
	}
	defer src.Close()

	header := &zip.FileHeader{Name: e.name, Method: zip.Deflate, Modified: at}
	header.SetMode(0o644)
	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

func (p *Packager) discard(a Archives) {
	for _, archive := range []string{a.Content, a.Images} {
		if archive != "" {
			_ = p.writer.Staging().Remove(archive)
		}
	}
}
