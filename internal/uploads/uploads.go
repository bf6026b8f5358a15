package uploads

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/naeap/journal/internal/domain"
)

// File is one uploaded file as received from a form.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

// Uploader ships a form attachment somewhere and describes where it went.
type Uploader interface {
	Upload(ctx context.Context, folder string, f File) (domain.Attachment, error)
}

// MetadataOnly records attachment metadata without keeping the bytes. It is
// used when no object storage is configured.
type MetadataOnly struct{}

func (MetadataOnly) Upload(_ context.Context, _ string, f File) (domain.Attachment, error) {
	if f.Name == "" {
		return domain.Attachment{}, fmt.Errorf("upload: missing file name")
	}
	if f.Body != nil {
		if _, err := io.Copy(io.Discard, f.Body); err != nil {
			return domain.Attachment{}, fmt.Errorf("upload %s: %w", f.Name, err)
		}
	}
	return attachment(f, ""), nil
}

// Key builds the object key of a file: folder/<uuid>/<clean name>.
func Key(folder, name string) string {
	return path.Join(strings.Trim(folder, "/"), uuid.NewString(), CleanName(name))
}

// CleanName keeps the base name of an uploaded file and replaces characters
// that are awkward in object keys.
func CleanName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." || name == ".." || name == "/" {
		return "file"
	}
	return name
}

func attachment(f File, location string) domain.Attachment {
	return domain.Attachment{
		Name:        f.Name,
		Size:        f.Size,
		ContentType: f.ContentType,
		Location:    location,
	}
}
