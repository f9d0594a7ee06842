package invoke

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"multiagent-mcp/internal/domain"
)

// MaxImageBytes caps a single decoded image.
const MaxImageBytes = 20 << 20

var imageExtensions = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/bmp":       ".bmp",
	"application/pdf": ".pdf",
}

type image struct {
	data []byte
	ext  string
}

// decodeImages accepts raw base64 or data: URLs.
func decodeImages(raw []string) ([]image, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]image, 0, len(raw))
	for i, s := range raw {
		img, err := decodeImage(s)
		if err != nil {
			return nil, domain.NewSubSystemError("image", "invoke.decodeImages", domain.ErrInvalidInput,
				fmt.Sprintf("images[%d]: %v", i, err))
		}
		out = append(out, img)
	}
	return out, nil
}

func decodeImage(s string) (image, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return image{}, fmt.Errorf("empty payload")
	}

	var declared string
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return image{}, fmt.Errorf("data URL must be base64 encoded")
		}
		declared = strings.TrimSuffix(meta, ";base64")
		s = payload
	}

	if base64.StdEncoding.DecodedLen(len(s)) > MaxImageBytes {
		return image{}, fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	if err != nil {
		return image{}, fmt.Errorf("invalid base64: %w", err)
	}
	if len(data) == 0 {
		return image{}, fmt.Errorf("empty image")
	}

	mime := declared
	if _, ok := imageExtensions[mime]; !ok {
		mime, _, _ = strings.Cut(http.DetectContentType(data), ";")
	}
	ext, ok := imageExtensions[mime]
	if !ok {
		ext = ".bin"
	}
	return image{data: data, ext: ext}, nil
}

// writeImages stores images in a fresh temp directory and returns their
// paths plus a cleanup func removing the directory.
func writeImages(images []image) ([]string, func(), error) {
	if len(images) == 0 {
		return nil, func() {}, nil
	}
	dir, err := os.MkdirTemp("", "multiagent-images-*")
	if err != nil {
		return nil, func() {}, fmt.Errorf("create image dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	paths := make([]string, 0, len(images))
	for i, img := range images {
		p := filepath.Join(dir, fmt.Sprintf("image-%d%s", i+1, img.ext))
		if err := os.WriteFile(p, img.data, 0o600); err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("write image: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, cleanup, nil
}

// withImagePaths appends an attachment listing to the context block.
func withImagePaths(extra string, paths []string) string {
	if len(paths) == 0 {
		return extra
	}
	var b strings.Builder
	b.WriteString(extra)
	if extra != "" {
		b.WriteString("\n\n")
	}
	b.WriteString("Attached images:")
	for _, p := range paths {
		b.WriteString("\n- ")
		b.WriteString(p)
	}
	return b.String()
}
