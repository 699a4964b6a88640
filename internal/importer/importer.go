// Package importer classifies externally selected files for the workspace:
// markdown becomes an editable document, images are queued for the
// conversion confirmation flow, everything else is stored as an opaque
// binary. Every incoming file deterministically ends up in the file set —
// declining or failing a conversion passes the original through.
package importer

import (
	"fmt"
	"path"
	"strings"

	"github.com/halvorsen/skald/internal/convert"
	"github.com/halvorsen/skald/internal/models"
)

// Incoming is one externally selected file.
type Incoming struct {
	Name string
	Data []byte
}

// Result partitions an import batch. Documents and Ready can be added to
// the store immediately; Pending images await the conversion confirmation.
type Result struct {
	Documents []models.WorkspaceFile
	Ready     []models.WorkspaceFile
	Pending   []Incoming
}

// CleanName validates that name is a plain file name: no path separators,
// no traversal, non-empty.
func CleanName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("importer: file name is required")
	}
	cleaned := path.Clean(name)
	if cleaned != path.Base(cleaned) || strings.Contains(cleaned, "..") ||
		strings.ContainsAny(cleaned, `/\`) {
		return "", fmt.Errorf("importer: invalid file name: %s", name)
	}
	return cleaned, nil
}

// Classify sorts an import batch by file kind. Images already in the
// target format skip the conversion queue.
func Classify(batch []Incoming) (Result, error) {
	var res Result
	for _, in := range batch {
		name, err := CleanName(in.Name)
		if err != nil {
			return Result{}, err
		}
		switch models.KindForName(name) {
		case models.KindMarkdown:
			res.Documents = append(res.Documents, models.WorkspaceFile{
				Name:    name,
				Kind:    models.KindMarkdown,
				Content: in.Data,
			})
		case models.KindImage:
			if convert.IsTargetFormat(name) {
				res.Ready = append(res.Ready, models.WorkspaceFile{
					Name:    name,
					Kind:    models.KindImage,
					Content: in.Data,
				})
			} else {
				res.Pending = append(res.Pending, Incoming{Name: name, Data: in.Data})
			}
		case models.KindOther:
			res.Ready = append(res.Ready, models.WorkspaceFile{
				Name:    name,
				Kind:    models.KindOther,
				Content: in.Data,
			})
		}
	}
	return res, nil
}

// Resolve settles the conversion queue. With accept true each image is
// re-encoded to the target format; a failed conversion falls back to the
// original bytes. With accept false the originals pass through unchanged.
// Either way every pending file yields exactly one workspace file.
func Resolve(pending []Incoming, accept bool) []models.WorkspaceFile {
	out := make([]models.WorkspaceFile, 0, len(pending))
	for _, in := range pending {
		name, content := in.Name, in.Data
		if accept {
			if converted, _, err := convert.Convert(in.Data, len(in.Data)); err == nil {
				name = convert.TargetName(in.Name)
				content = converted
			}
		}
		out = append(out, models.WorkspaceFile{
			Name:    name,
			Kind:    models.KindImage,
			Content: content,
		})
	}
	return out
}
