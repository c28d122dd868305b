package library

import (
	"path/filepath"
	"strings"
)

// Layout computes the deterministic on-disk placement of media files. Paths
// derive from the item id and quality label only, so the streaming server can
// recompute them without an extra lookup.
type Layout struct {
	MediaDir string
}

// NewLayout builds a layout rooted at the given media directory.
func NewLayout(mediaDir string) Layout {
	return Layout{MediaDir: mediaDir}
}

// ItemDir returns the directory that holds all files for one item.
func (l Layout) ItemDir(id string) string {
	return filepath.Join(l.MediaDir, id)
}

// SourcePath returns where the original upload for an item is stored. The
// extension is preserved from the uploaded filename.
func (l Layout) SourcePath(id, ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(l.ItemDir(id), "source"+ext)
}

// VariantPath returns where the encoded rendition for a quality label lives.
func (l Layout) VariantPath(id string, quality Quality) string {
	return filepath.Join(l.ItemDir(id), string(quality)+".mp4")
}
