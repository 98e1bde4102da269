package wpdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/gaurav-prasanna/postpipe/core"
)

func setupTestStore(t *testing.T, prefix string) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "wp.db"), Options{
		TablePrefix: prefix,
		UploadsDir:  "/srv/uploads",
		UploadsURL:  "https://blog.test/wp-content/uploads/",
	})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func exec(t *testing.T, s *Store, query string, args ...any) {
	t.Helper()
	if _, err := s.DB().Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

// seed creates three categories, one tag, four posts and two attachments.
func seed(t *testing.T, s *Store) {
	t.Helper()
	exec(t, s, `INSERT INTO wp_terms (term_id, name, slug) VALUES (1, 'News', 'news'), (2, 'Go', 'go'), (3, 'Archive', 'archive'), (4, 'intro', 'intro')`)
	exec(t, s, `INSERT INTO wp_term_taxonomy (term_taxonomy_id, term_id, taxonomy, count) VALUES (11, 1, 'category', 2), (12, 2, 'category', 1), (13, 3, 'category', 0), (14, 4, 'post_tag', 1)`)

	exec(t, s, `INSERT INTO wp_posts (ID, post_date, post_content, post_title, post_status, post_name, post_type) VALUES
		(10, '2024-01-01 00:00:00', '<p>first</p>', 'First', 'publish', 'first', 'post'),
		(20, '2024-01-15 12:00:00', '<p>second</p>', 'Second', 'publish', 'second', 'post'),
		(30, '2024-01-31 23:59:59', '<p>third</p>', 'Third', 'publish', 'third', 'post'),
		(40, '2024-01-20 08:00:00', '<p>draft</p>', 'Draft', 'draft', 'draft', 'post'),
		(50, '2024-01-10 08:00:00', '', 'Page', 'publish', 'page', 'page')`)
	exec(t, s, `INSERT INTO wp_term_relationships (object_id, term_taxonomy_id) VALUES (10, 11), (20, 11), (20, 12), (20, 14), (30, 12), (40, 11)`)

	exec(t, s, `INSERT INTO wp_posts (ID, post_title, post_status, post_name, post_type, guid) VALUES
		(100, 'cat', 'inherit', 'cat', 'attachment', 'https://blog.test/?attachment_id=100'),
		(101, 'orphan', 'inherit', 'orphan', 'attachment', 'https://blog.test/?attachment_id=101')`)
	exec(t, s, `INSERT INTO wp_postmeta (post_id, meta_key, meta_value) VALUES
		(100, '_wp_attached_file', '2024/01/cat.jpg'),
		(100, '_wp_attachment_image_alt', 'A cat')`)
}

func day(s string) time.Time {
	d, _ := time.ParseInLocation("2006-01-02", s, time.UTC)
	return d
}

func ids(posts []core.Post) []int64 {
	out := make([]int64, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPostsFilters(t *testing.T) {
	s := setupTestStore(t, "")
	seed(t, s)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter core.PostFilter
		want   []int64
	}{
		{"all published newest first", core.PostFilter{}, []int64{30, 20, 10}},
		{"any of categories", core.PostFilter{CategoryIDs: []int64{1}}, []int64{20, 10}},
		{"two categories", core.PostFilter{CategoryIDs: []int64{1, 2}}, []int64{30, 20, 10}},
		{"empty category", core.PostFilter{CategoryIDs: []int64{3}}, []int64{}},
		{"inclusive range", core.PostFilter{After: day("2024-01-01"), Before: day("2024-01-31")}, []int64{30, 20, 10}},
		{"time of day ignored", core.PostFilter{After: day("2024-01-15").Add(18 * time.Hour), Before: day("2024-01-15")}, []int64{20}},
		{"start bound only", core.PostFilter{After: day("2024-01-02")}, []int64{30, 20}},
		{"end bound only", core.PostFilter{Before: day("2024-01-15")}, []int64{20, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts, err := s.Posts(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Posts failed: %v", err)
			}
			if got := ids(posts); !equalIDs(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPostsCarryTermsAndDate(t *testing.T) {
	s := setupTestStore(t, "")
	seed(t, s)

	posts, err := s.Posts(context.Background(), core.PostFilter{CategoryIDs: []int64{2}})
	if err != nil {
		t.Fatalf("Posts failed: %v", err)
	}
	var second core.Post
	for _, p := range posts {
		if p.ID == 20 {
			second = p
		}
	}
	if second.Title != "Second" || second.Slug != "second" || second.Content != "<p>second</p>" {
		t.Errorf("post = %+v", second)
	}
	if !second.Date.Equal(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", second.Date)
	}
	if len(second.Categories) != 2 || second.Categories[0] != "Go" || second.Categories[1] != "News" {
		t.Errorf("categories = %v", second.Categories)
	}
	if len(second.Tags) != 1 || second.Tags[0] != "intro" {
		t.Errorf("tags = %v", second.Tags)
	}
}

func TestCategories(t *testing.T) {
	s := setupTestStore(t, "")
	seed(t, s)

	cats, err := s.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories failed: %v", err)
	}
	want := []core.Category{{ID: 3, Name: "Archive", Count: 0}, {ID: 2, Name: "Go", Count: 1}, {ID: 1, Name: "News", Count: 2}}
	if len(cats) != len(want) {
		t.Fatalf("categories = %+v", cats)
	}
	for i := range want {
		if cats[i] != want[i] {
			t.Errorf("category %d = %+v, want %+v", i, cats[i], want[i])
		}
	}
}

func TestAttachment(t *testing.T) {
	s := setupTestStore(t, "")
	seed(t, s)
	ctx := context.Background()

	a, err := s.Attachment(ctx, 100)
	if err != nil {
		t.Fatalf("Attachment failed: %v", err)
	}
	if a.URL != "https://blog.test/wp-content/uploads/2024/01/cat.jpg" {
		t.Errorf("URL = %q", a.URL)
	}
	if a.FilePath != filepath.Join("/srv/uploads", "2024", "01", "cat.jpg") {
		t.Errorf("FilePath = %q", a.FilePath)
	}
	if a.Alt != "A cat" {
		t.Errorf("Alt = %q", a.Alt)
	}

	for _, id := range []int64{101, 10, 999} {
		if _, err := s.Attachment(ctx, id); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("Attachment(%d) err = %v, want ErrNotFound", id, err)
		}
	}
}

func TestAttachmentIDByURL(t *testing.T) {
	s := setupTestStore(t, "")
	seed(t, s)
	ctx := context.Background()

	tests := []struct {
		url  string
		want int64
		ok   bool
	}{
		{"https://blog.test/wp-content/uploads/2024/01/cat.jpg", 100, true},
		{"http://blog.test/wp-content/uploads/2024/01/cat.jpg?ver=2", 100, true},
		{"https://blog.test/wp-content/uploads/2024/01/dog.jpg", 0, false},
		{"https://elsewhere.test/wp-content/uploads/2024/01/cat.jpg", 0, false},
		{"https://blog.test/other/2024/01/cat.jpg", 0, false},
		{"not a url %zz", 0, false},
	}
	for _, tt := range tests {
		id, err := s.AttachmentIDByURL(ctx, tt.url)
		if tt.ok {
			if err != nil || id != tt.want {
				t.Errorf("AttachmentIDByURL(%q) = %d, %v, want %d", tt.url, id, err, tt.want)
			}
			continue
		}
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("AttachmentIDByURL(%q) err = %v, want ErrNotFound", tt.url, err)
		}
	}
}

func TestTablePrefix(t *testing.T) {
	s := setupTestStore(t, "blog_")
	exec(t, s, `INSERT INTO blog_posts (ID, post_date, post_title, post_name) VALUES (1, '2023-05-06 07:08:09', 'Prefixed', 'prefixed')`)

	posts, err := s.Posts(context.Background(), core.PostFilter{})
	if err != nil {
		t.Fatalf("Posts failed: %v", err)
	}
	if len(posts) != 1 || posts[0].Title != "Prefixed" {
		t.Errorf("posts = %+v", posts)
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	for _, v := range []any{"2024-02-03 04:05:06", []byte("2024-02-03 04:05:06"), want} {
		got, err := parseDate(v)
		if err != nil || !got.Equal(want) {
			t.Errorf("parseDate(%v) = %v, %v", v, got, err)
		}
	}
	if _, err := parseDate(42); err == nil {
		t.Error("expected error for integer date")
	}
}
