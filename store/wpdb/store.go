// Package wpdb reads posts, categories and media attachments from a
// WordPress-schema SQLite database. It implements core.ContentStore and
// core.MediaStore.
//
// Tables used (shown with the default "wp_" prefix):
//
//	wp_posts               posts and attachments
//	wp_postmeta            _wp_attached_file, _wp_attachment_image_alt
//	wp_terms               term names
//	wp_term_taxonomy       category / post_tag taxonomy and post counts
//	wp_term_relationships  post ↔ term links
package wpdb

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gaurav-prasanna/postpipe/core"
	_ "modernc.org/sqlite"
)

// DefaultTablePrefix is the WordPress default table prefix.
const DefaultTablePrefix = "wp_"

// DateLayout is how WordPress stores post_date.
const DateLayout = "2006-01-02 15:04:05"

// Options configure a Store.
type Options struct {
	// TablePrefix is prepended to every table name. Empty means "wp_".
	TablePrefix string
	// UploadsDir is the local root of the uploads tree. When empty,
	// attachments carry no local path and are fetched by URL.
	UploadsDir string
	// UploadsURL is the public base URL of the uploads tree.
	UploadsURL string
}

// Store is a WordPress database opened through modernc.org/sqlite.
type Store struct {
	db   *sql.DB
	opts Options
	t    tables
}

type tables struct {
	posts, postmeta, terms, taxonomy, relationships string
}

// Open opens (or creates) the database at path and ensures the tables the
// store reads from exist.
func Open(path string, opts Options) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	if opts.TablePrefix == "" {
		opts.TablePrefix = DefaultTablePrefix
	}
	opts.UploadsURL = strings.TrimRight(opts.UploadsURL, "/")

	s := &Store{db: db, opts: opts, t: tables{
		posts:         opts.TablePrefix + "posts",
		postmeta:      opts.TablePrefix + "postmeta",
		terms:         opts.TablePrefix + "terms",
		taxonomy:      opts.TablePrefix + "term_taxonomy",
		relationships: opts.TablePrefix + "term_relationships",
	}}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the connection, for seeding and maintenance.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
    ID INTEGER PRIMARY KEY AUTOINCREMENT,
    post_date TEXT NOT NULL DEFAULT '0000-00-00 00:00:00',
    post_content TEXT NOT NULL DEFAULT '',
    post_title TEXT NOT NULL DEFAULT '',
    post_status TEXT NOT NULL DEFAULT 'publish',
    post_name TEXT NOT NULL DEFAULT '',
    post_type TEXT NOT NULL DEFAULT 'post',
    post_mime_type TEXT NOT NULL DEFAULT '',
    guid TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS %[2]s (
    meta_id INTEGER PRIMARY KEY AUTOINCREMENT,
    post_id INTEGER NOT NULL DEFAULT 0,
    meta_key TEXT,
    meta_value TEXT
);
CREATE INDEX IF NOT EXISTS %[2]s_post_id ON %[2]s (post_id);
CREATE INDEX IF NOT EXISTS %[2]s_meta_key ON %[2]s (meta_key);
CREATE TABLE IF NOT EXISTS %[3]s (
    term_id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL DEFAULT '',
    slug TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS %[4]s (
    term_taxonomy_id INTEGER PRIMARY KEY AUTOINCREMENT,
    term_id INTEGER NOT NULL DEFAULT 0,
    taxonomy TEXT NOT NULL DEFAULT '',
    count INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS %[5]s (
    object_id INTEGER NOT NULL DEFAULT 0,
    term_taxonomy_id INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (object_id, term_taxonomy_id)
);
`, s.t.posts, s.t.postmeta, s.t.terms, s.t.taxonomy, s.t.relationships))
	return err
}

// Posts returns the published posts matching filter, newest first.
// Categories match any-of. After and Before select whole days: from the
// start of After's day to the last second of Before's day.
func (s *Store) Posts(ctx context.Context, filter core.PostFilter) ([]core.Post, error) {
	query := fmt.Sprintf(`SELECT ID, post_title, post_name, post_date, post_content FROM %s
WHERE post_type = 'post' AND post_status = 'publish'`, s.t.posts)
	var args []any

	if !filter.After.IsZero() {
		query += ` AND post_date >= ?`
		y, m, d := filter.After.Date()
		args = append(args, time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Format(DateLayout))
	}
	if !filter.Before.IsZero() {
		query += ` AND post_date <= ?`
		y, m, d := filter.Before.Date()
		args = append(args, time.Date(y, m, d, 23, 59, 59, 0, time.UTC).Format(DateLayout))
	}
	if len(filter.CategoryIDs) > 0 {
		query += fmt.Sprintf(` AND ID IN (SELECT tr.object_id FROM %s tr
JOIN %s tt ON tt.term_taxonomy_id = tr.term_taxonomy_id
WHERE tt.taxonomy = 'category' AND tt.term_id IN (%s))`,
			s.t.relationships, s.t.taxonomy, placeholders(len(filter.CategoryIDs)))
		for _, id := range filter.CategoryIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY post_date DESC, ID DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying posts: %w", err)
	}

	var posts []core.Post
	for rows.Next() {
		var (
			p    core.Post
			date any
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &date, &p.Content); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning post: %w", err)
		}
		if p.Date, err = parseDate(date); err != nil {
			rows.Close()
			return nil, fmt.Errorf("post %d: %w", p.ID, err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range posts {
		if err := s.loadTerms(ctx, &posts[i]); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

func (s *Store) loadTerms(ctx context.Context, p *core.Post) error {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT t.name, tt.taxonomy FROM %s t
JOIN %s tt ON tt.term_id = t.term_id
JOIN %s tr ON tr.term_taxonomy_id = tt.term_taxonomy_id
WHERE tr.object_id = ? AND tt.taxonomy IN ('category', 'post_tag')
ORDER BY t.name`, s.t.terms, s.t.taxonomy, s.t.relationships), p.ID)
	if err != nil {
		return fmt.Errorf("querying terms of post %d: %w", p.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, taxonomy string
		if err := rows.Scan(&name, &taxonomy); err != nil {
			return err
		}
		if taxonomy == "category" {
			p.Categories = append(p.Categories, name)
		} else {
			p.Tags = append(p.Tags, name)
		}
	}
	return rows.Err()
}

// Categories lists every category ordered by name, empty ones included.
func (s *Store) Categories(ctx context.Context) ([]core.Category, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT t.term_id, t.name, tt.count FROM %s t
JOIN %s tt ON tt.term_id = t.term_id
WHERE tt.taxonomy = 'category'
ORDER BY t.name, t.term_id`, s.t.terms, s.t.taxonomy))
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Count); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// Attachment resolves an attachment id. Attachments without an attached
// file are reported as core.ErrNotFound.
func (s *Store) Attachment(ctx context.Context, id int64) (core.Attachment, error) {
	var guid string
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT guid FROM %s WHERE ID = ? AND post_type = 'attachment'`, s.t.posts), id).Scan(&guid)
	if err == sql.ErrNoRows {
		return core.Attachment{}, fmt.Errorf("attachment %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Attachment{}, fmt.Errorf("querying attachment %d: %w", id, err)
	}

	meta, err := s.meta(ctx, id, "_wp_attached_file", "_wp_attachment_image_alt")
	if err != nil {
		return core.Attachment{}, err
	}
	file := meta["_wp_attached_file"]
	if file == "" {
		return core.Attachment{}, fmt.Errorf("attachment %d has no file: %w", id, core.ErrNotFound)
	}

	a := core.Attachment{ID: id, URL: guid, Alt: meta["_wp_attachment_image_alt"]}
	if s.opts.UploadsURL != "" {
		a.URL = s.opts.UploadsURL + "/" + strings.TrimLeft(file, "/")
	}
	if s.opts.UploadsDir != "" {
		a.FilePath = filepath.Join(s.opts.UploadsDir, filepath.FromSlash(file))
	}
	return a, nil
}

func (s *Store) meta(ctx context.Context, postID int64, keys ...string) (map[string]string, error) {
	args := []any{postID}
	for _, k := range keys {
		args = append(args, k)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT meta_key, meta_value FROM %s WHERE post_id = ? AND meta_key IN (%s) ORDER BY meta_id`,
		s.t.postmeta, placeholders(len(keys))), args...)
	if err != nil {
		return nil, fmt.Errorf("querying meta of %d: %w", postID, err)
	}
	defer rows.Close()

	meta := make(map[string]string, len(keys))
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		if _, seen := meta[key]; !seen {
			meta[key] = value.String
		}
	}
	return meta, rows.Err()
}

// AttachmentIDByURL finds the attachment whose file lives at rawURL. Only
// URLs below the uploads URL can resolve; the scheme is ignored and query
// and fragment are dropped.
func (s *Store) AttachmentIDByURL(ctx context.Context, rawURL string) (int64, error) {
	file, ok := s.relativeUpload(rawURL)
	if !ok {
		return 0, fmt.Errorf("%s: %w", rawURL, core.ErrNotFound)
	}

	var id int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT m.post_id FROM %s m
JOIN %s p ON p.ID = m.post_id
WHERE m.meta_key = '_wp_attached_file' AND m.meta_value = ? AND p.post_type = 'attachment'
ORDER BY m.post_id LIMIT 1`, s.t.postmeta, s.t.posts), file).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%s: %w", rawURL, core.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("resolving %s: %w", rawURL, err)
	}
	return id, nil
}

// relativeUpload returns the path of rawURL below the uploads URL.
func (s *Store) relativeUpload(rawURL string) (string, bool) {
	if s.opts.UploadsURL == "" {
		return "", false
	}
	base, err := url.Parse(s.opts.UploadsURL)
	if err != nil {
		return "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil || !strings.EqualFold(u.Host, base.Host) {
		return "", false
	}

	prefix := strings.TrimRight(base.Path, "/") + "/"
	if !strings.HasPrefix(u.Path, prefix) {
		return "", false
	}
	file := strings.TrimPrefix(u.Path, prefix)
	return file, file != ""
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// parseDate accepts post_date as stored by either a TEXT or a DATETIME column.
func parseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d.UTC(), nil
	case string:
		return time.ParseInLocation(DateLayout, d, time.UTC)
	case []byte:
		return time.ParseInLocation(DateLayout, string(d), time.UTC)
	default:
		return time.Time{}, fmt.Errorf("unsupported post_date value %T", v)
	}
}
