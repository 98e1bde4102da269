// Package core defines the pipeline types and collaborator interfaces for PostPipe.
// Each stage of the pipeline is a clean, testable interface, and every
// external dependency (content, media, network, filesystem) is injected.
package core

import (
	"context"
	"io"
	"io/fs"
	"path/filepath"
	"time"
)

// Post is a published blog post as returned by a ContentStore.
type Post struct {
	ID         int64
	Title      string
	Slug       string
	Date       time.Time
	Content    string // raw HTML body, possibly with block-editor markup
	Categories []string
	Tags       []string
}

// PostFilter selects posts. Zero values mean "no constraint".
type PostFilter struct {
	CategoryIDs []int64
	After       time.Time // inclusive, compared against the start of the day
	Before      time.Time // inclusive, compared against the end of the day
}

// Category is a post category with the number of posts assigned to it.
type Category struct {
	ID    int64
	Name  string
	Count int
}

// Attachment is a media item known to the host platform.
type Attachment struct {
	ID       int64
	FilePath string // absolute path of the original upload on local storage
	URL      string // canonical public URL
	Alt      string
}

// ImageDescriptor is one image discovered in a post body.
// ID is zero and LocalSourcePath empty when the platform does not know the image.
type ImageDescriptor struct {
	ID              int64
	SourceURL       string
	LocalSourcePath string
	AltText         string
}

// HasID reports whether the descriptor was resolved to a platform attachment.
func (d ImageDescriptor) HasID() bool {
	return d.ID > 0
}

// ImageMapping maps a source URL to the filename of its relocated copy.
// One mapping belongs to exactly one post conversion.
type ImageMapping map[string]string

// ConvertedDocument is a finished Markdown document.
type ConvertedDocument struct {
	Filename       string
	Body           string
	MetadataHeader string
}

// Content returns the bytes persisted for the document.
func (d ConvertedDocument) Content() []byte {
	return []byte(d.MetadataHeader + "\n\n" + d.Body)
}

// ExportRun is the state of one export request.
type ExportRun struct {
	ID            string
	StagingDir    string
	IncludeImages bool
	Documents     []ConvertedDocument
	ImageCount    int
}

// ImageDir returns the image staging subdirectory of the run.
func (r *ExportRun) ImageDir() string {
	return filepath.Join(r.StagingDir, ImagesDirName)
}

// ImagesDirName is the image subdirectory inside staging and the prefix of
// image entries inside the image archive. Rewritten references use it too.
const ImagesDirName = "images"

// Result is what a successful export reports.
type Result struct {
	PostCount      int
	ImageCount     int
	ContentArchive string
	ImageArchive   string // empty when no image was relocated
}

// FetchResult holds the payload and response metadata from a fetch.
type FetchResult struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// ContentStore returns posts matching a filter, newest first.
type ContentStore interface {
	Posts(ctx context.Context, filter PostFilter) ([]Post, error)
	Categories(ctx context.Context) ([]Category, error)
}

// MediaStore resolves attachments. Both lookups return ErrNotFound when
// the platform does not know the item.
type MediaStore interface {
	Attachment(ctx context.Context, id int64) (Attachment, error)
	AttachmentIDByURL(ctx context.Context, url string) (int64, error)
}

// Fetcher retrieves a remote payload. Transport failures are returned as
// errors; a successful fetch may carry an empty body.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// Normalizer converts raw post HTML into Markdown.
type Normalizer interface {
	Normalize(html string) (string, error)
}

// Renderer converts a Markdown body (and its post) into the persisted document.
type Renderer interface {
	Render(markdown string, post Post) (ConvertedDocument, error)
	// Extension returns the file extension for this renderer (e.g. ".md").
	Extension() string
}

// Staging is the durable file area used for run staging and archive placement.
type Staging interface {
	MkdirAll(dir string) error
	Exists(path string) bool
	WriteFile(path string, data []byte) error
	CopyFile(src, dst string) error
	// ReadDir lists the regular files of dir, sorted by name.
	ReadDir(dir string) ([]string, error)
	// Glob returns the paths matching pattern, files and directories alike.
	Glob(pattern string) ([]string, error)
	IsDir(path string) bool
	Open(path string) (io.ReadCloser, error)
	Create(path string) (io.WriteCloser, error)
	Remove(path string) error
	RemoveAll(dir string) error
	Chmod(path string, mode fs.FileMode) error
}
