// Package archive packages the workspace file set into a single ZIP blob
// for download.
package archive

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/klauspost/compress/zip"

	"github.com/halvorsen/skald/internal/models"
)

// DownloadName is the fixed file name assigned to the produced archive.
const DownloadName = "workspace.zip"

// Build packages the name → content map into a ZIP. Markdown entries are
// deflated; images and other binaries are stored as-is since re-compressing
// them buys nothing. Entries are written in name order so identical inputs
// produce identical archives.
func Build(files map[string][]byte) ([]byte, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		method := zip.Store
		if models.KindForName(name) == models.KindMarkdown {
			method = zip.Deflate
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
		if err != nil {
			zw.Close()
			return nil, fmt.Errorf("archive: create entry %s: %w", name, err)
		}
		if _, err := w.Write(files[name]); err != nil {
			zw.Close()
			return nil, fmt.Errorf("archive: write entry %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("archive: finalize: %w", err)
	}
	return buf.Bytes(), nil
}

// Unpack reads an archive produced by Build back into a name → content map.
func Unpack(data []byte) (map[string][]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("archive: open: %w", err)
	}
	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("archive: open entry %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("archive: read entry %s: %w", f.Name, err)
		}
		out[f.Name] = content
	}
	return out, nil
}
