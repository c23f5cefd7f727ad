package fileops

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"

	"github.com/starford/filedeck/internal/models"
)

// PreviewLimit caps the text content returned by Preview.
const PreviewLimit = 1 << 20

// Crumb is one step of the path from the root to a directory.
type Crumb struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Listing is a directory as the browser shows it.
type Listing struct {
	Dir         string            `json:"dir"`
	Breadcrumbs []Crumb           `json:"breadcrumbs"`
	Entries     []models.DirEntry `json:"entries"`
	Stats       models.Stats      `json:"stats"`
}

// Browse lists dir together with the statistics of its subtree.
func (s *Service) Browse(ctx context.Context, actor Actor, dir string) (*Listing, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	d := s.resolver.Resolve(dir)
	rel := s.resolver.Rel(d)
	return &Listing{
		Dir:         rel,
		Breadcrumbs: Breadcrumbs(rel),
		Entries:     s.catalog.List(ctx, d),
		Stats:       s.catalog.Statistics(ctx, d),
	}, nil
}

// Statistics returns the subtree statistics of dir.
func (s *Service) Statistics(ctx context.Context, actor Actor, dir string) (models.Stats, error) {
	if err := authorize(actor); err != nil {
		return models.Stats{}, err
	}
	return s.catalog.Statistics(ctx, s.resolver.Resolve(dir)), nil
}

// Breadcrumbs splits a relative path into its ancestors, root first. The root
// crumb has an empty name and path.
func Breadcrumbs(rel string) []Crumb {
	out := []Crumb{{}}
	if rel == "" {
		return out
	}
	acc := ""
	for _, seg := range strings.Split(rel, "/") {
		if acc != "" {
			acc += "/"
		}
		acc += seg
		out = append(out, Crumb{Name: seg, Path: acc})
	}
	return out
}

// Trash lists the trash directory.
func (s *Service) Trash(ctx context.Context, actor Actor) ([]models.TrashEntry, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	return s.trash.List(ctx), nil
}

// File is an open regular file ready to be streamed. The caller closes it.
type File struct {
	*os.File
	Name     string
	Size     int64
	Modified time.Time
	MIME     string
}

// Open opens name inside dir for download or inline viewing.
func (s *Service) Open(_ context.Context, actor Actor, dir, name string) (*File, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	target := s.resolver.Join(s.resolver.Resolve(dir), name)
	info, err := regularFile(target)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target.String())
	if err != nil {
		return nil, fmt.Errorf("fileops: open %s: %w", name, err)
	}
	mt, err := mimetype.DetectReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("fileops: detect type %s: %w", name, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("fileops: rewind %s: %w", name, err)
	}
	return &File{
		File:     f,
		Name:     info.Name(),
		Size:     info.Size(),
		Modified: info.ModTime(),
		MIME:     mt.String(),
	}, nil
}

// Preview describes a file for the preview pane. Content is only filled for
// text files and holds at most PreviewLimit bytes.
type Preview struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Modified  time.Time `json:"modified_at"`
	MIME      string    `json:"mime"`
	IsText    bool      `json:"is_text"`
	Editable  bool      `json:"editable"`
	Charset   string    `json:"charset,omitempty"`
	Content   string    `json:"content,omitempty"`
	Truncated bool      `json:"truncated,omitempty"`
}

// Preview inspects name inside dir.
func (s *Service) Preview(_ context.Context, actor Actor, dir, name string) (*Preview, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	target := s.resolver.Join(s.resolver.Resolve(dir), name)
	info, err := regularFile(target)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target.String())
	if err != nil {
		return nil, fmt.Errorf("fileops: open %s: %w", name, err)
	}
	defer f.Close()

	buf, err := io.ReadAll(io.LimitReader(f, PreviewLimit+1))
	if err != nil {
		return nil, fmt.Errorf("fileops: read %s: %w", name, err)
	}
	base := filepath.Base(target.String())
	mt := mimetype.Detect(buf)
	p := &Preview{
		Path:     s.resolver.Rel(target),
		Name:     base,
		Size:     info.Size(),
		Modified: info.ModTime(),
		MIME:     mt.String(),
		Editable: Editable(base),
	}
	p.IsText = isText(mt) || p.Editable
	if !p.IsText {
		return p, nil
	}
	if len(buf) > PreviewLimit {
		buf = buf[:PreviewLimit]
		p.Truncated = true
	}
	p.Charset = detectCharset(buf)
	p.Content = string(buf)
	return p, nil
}

func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return mt.Is("application/json") || mt.Is("application/xml") || mt.Is("application/javascript")
}

func detectCharset(data []byte) string {
	if len(data) == 0 {
		return "utf-8"
	}
	res, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || res == nil {
		return "utf-8"
	}
	return strings.ToLower(res.Charset)
}
