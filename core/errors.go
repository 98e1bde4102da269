package core

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// Failure kinds surfaced by the pipeline. Match them with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrNoMatchingContent   = errors.New("no posts found matching the criteria")
	ErrStagingCreateFailed = errors.New("failed to create staging directory")
	ErrImageDownloadFailed = errors.New("failed to download image")
	ErrImageEmptyContent   = errors.New("empty image content")
	ErrImageSaveFailed     = errors.New("failed to save image")
	ErrImageCopyFailed     = errors.New("failed to copy image")
	ErrDocumentSaveFailed  = errors.New("failed to save post")
	ErrArchiveCreateFailed = errors.New("failed to create archive")
	ErrPermissionSetFailed = errors.New("failed to set file permissions")
)

// Text codes attached to pipeline failures.
const (
	CodeNoMatchingContent   = "NO_MATCHING_CONTENT"
	CodeStagingCreateFailed = "STAGING_CREATE_FAILED"
	CodeImageDownloadFailed = "IMAGE_DOWNLOAD_FAILED"
	CodeImageEmptyContent   = "IMAGE_EMPTY_CONTENT"
	CodeImageSaveFailed     = "IMAGE_SAVE_FAILED"
	CodeImageCopyFailed     = "IMAGE_COPY_FAILED"
	CodeDocumentSaveFailed  = "DOCUMENT_SAVE_FAILED"
	CodeArchiveCreateFailed = "ARCHIVE_CREATE_FAILED"
	CodePermissionSetFailed = "PERMISSION_SET_FAILED"
	CodeExportFailed        = "EXPORT_FAILED"
)

type failureKind struct {
	category goerrors.Category
	code     string
}

var failureKinds = map[error]failureKind{
	ErrNoMatchingContent:   {goerrors.CategoryNotFound, CodeNoMatchingContent},
	ErrStagingCreateFailed: {goerrors.CategoryInternal, CodeStagingCreateFailed},
	ErrImageDownloadFailed: {goerrors.CategoryExternal, CodeImageDownloadFailed},
	ErrImageEmptyContent:   {goerrors.CategoryExternal, CodeImageEmptyContent},
	ErrImageSaveFailed:     {goerrors.CategoryInternal, CodeImageSaveFailed},
	ErrImageCopyFailed:     {goerrors.CategoryInternal, CodeImageCopyFailed},
	ErrDocumentSaveFailed:  {goerrors.CategoryInternal, CodeDocumentSaveFailed},
	ErrArchiveCreateFailed: {goerrors.CategoryInternal, CodeArchiveCreateFailed},
	ErrPermissionSetFailed: {goerrors.CategoryInternal, CodePermissionSetFailed},
}

// Fail builds a categorized pipeline failure for one of the sentinel kinds.
// The subject (an URL, a post title, a path) is appended to the message and
// cause, when present, is recorded as metadata.
func Fail(kind error, subject string, cause error) error {
	k, ok := failureKinds[kind]
	if !ok {
		k = failureKind{goerrors.CategoryInternal, CodeExportFailed}
	}

	msg := kind.Error()
	if subject != "" {
		msg = fmt.Sprintf("%s: %s", msg, subject)
	}

	err := goerrors.Wrap(kind, k.category, msg).WithTextCode(k.code)
	if cause != nil {
		err = err.WithMetadata(map[string]any{"cause": cause.Error()})
	}
	return err
}

// Code returns the text code of a pipeline failure, or CodeExportFailed for
// anything the pipeline did not classify.
func Code(err error) string {
	for kind, k := range failureKinds {
		if errors.Is(err, kind) {
			return k.code
		}
	}
	return CodeExportFailed
}

// UserMessage renders err for an operator. Classified failures keep their
// message; anything else is reported without internal detail.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if Code(err) == CodeExportFailed {
		return "export failed"
	}
	var ge *goerrors.Error
	if errors.As(err, &ge) {
		return ge.Message
	}
	return err.Error()
}
