package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/gaurav-prasanna/postpipe/core"
)

type stubMedia struct {
	byID  map[int64]core.Attachment
	byURL map[string]int64
	err   error
}

func (m *stubMedia) Attachment(_ context.Context, id int64) (core.Attachment, error) {
	if m.err != nil {
		return core.Attachment{}, m.err
	}
	att, ok := m.byID[id]
	if !ok {
		return core.Attachment{}, core.ErrNotFound
	}
	return att, nil
}

func (m *stubMedia) AttachmentIDByURL(_ context.Context, url string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	id, ok := m.byURL[url]
	if !ok {
		return 0, core.ErrNotFound
	}
	return id, nil
}

func newStubMedia() *stubMedia {
	return &stubMedia{
		byID: map[int64]core.Attachment{
			7: {ID: 7, FilePath: "/uploads/2024/01/cat.jpg", URL: "https://blog.test/wp-content/uploads/2024/01/cat.jpg", Alt: "a cat"},
			9: {ID: 9, FilePath: "/uploads/2024/01/dog.png", URL: "https://blog.test/wp-content/uploads/2024/01/dog.png", Alt: "a dog"},
		},
		byURL: map[string]int64{
			"https://blog.test/wp-content/uploads/2024/01/dog.png": 9,
		},
	}
}

func TestExtractAttachmentAndBareImages(t *testing.T) {
	html := `
<!-- wp:image {"id":7} -->
<figure class="wp-block-image"><img src="https://blog.test/wp-content/uploads/2024/01/cat.jpg" class="wp-image-7" alt=""/></figure>
<!-- /wp:image -->
<p>text <img src="https://cdn.other.test/remote.gif"></p>
<img src="https://blog.test/wp-content/uploads/2024/01/dog.png">
<img class="size-large wp-image-404" src="https://blog.test/missing.jpg">`

	got, err := New(newStubMedia(), nil).Extract(context.Background(), html)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	want := []core.ImageDescriptor{
		{ID: 7, SourceURL: "https://blog.test/wp-content/uploads/2024/01/cat.jpg", LocalSourcePath: "/uploads/2024/01/cat.jpg", AltText: "a cat"},
		{SourceURL: "https://cdn.other.test/remote.gif"},
		{ID: 9, SourceURL: "https://blog.test/wp-content/uploads/2024/01/dog.png", LocalSourcePath: "/uploads/2024/01/dog.png", AltText: "a dog"},
		{SourceURL: "https://blog.test/missing.jpg"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d descriptors, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("descriptor %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestExtractDeduplicatesByURL(t *testing.T) {
	html := `<img src="https://x.test/a.jpg"><p><img src="https://x.test/a.jpg" class="other"></p><img src="https://x.test/b.jpg">`

	got, err := New(newStubMedia(), nil).Extract(context.Background(), html)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d descriptors, want 2: %+v", len(got), got)
	}
	if got[0].SourceURL != "https://x.test/a.jpg" || got[1].SourceURL != "https://x.test/b.jpg" {
		t.Errorf("unexpected order: %+v", got)
	}
	for _, d := range got {
		if d.HasID() || d.LocalSourcePath != "" || d.AltText != "" {
			t.Errorf("bare descriptor carries metadata: %+v", d)
		}
	}
}

func TestExtractSkipsEmptyAndInlineSources(t *testing.T) {
	html := `<img src=""><img src="   "><img src="data:image/png;base64,AAAA"><img alt="no src">`

	got, err := New(newStubMedia(), nil).Extract(context.Background(), html)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no descriptors, got %+v", got)
	}
}

func TestExtractPropagatesStoreFailure(t *testing.T) {
	media := newStubMedia()
	media.err = errors.New("database is locked")

	_, err := New(media, nil).Extract(context.Background(), `<img src="https://x.test/a.jpg">`)
	if err == nil {
		t.Fatal("expected store failure to propagate")
	}
}

func TestExtractDecodesAttributeEntities(t *testing.T) {
	html := `<img src="https://x.test/img.php?a=1&amp;b=2">`

	got, err := New(newStubMedia(), nil).Extract(context.Background(), html)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(got) != 1 || got[0].SourceURL != "https://x.test/img.php?a=1&b=2" {
		t.Fatalf("unexpected descriptors: %+v", got)
	}
}
