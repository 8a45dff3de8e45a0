package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/and161185/carenotes/internal/model"
)

const sniffLen = 3072

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Now is the clock used to build upload names.
var Now = time.Now

// Filename builds the stored name for an upload: "<unix millis>-<original>".
func Filename(original string, at time.Time) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	base = unsafeName.ReplaceAllString(base, "_")
	for strings.Contains(base, "..") {
		base = strings.ReplaceAll(base, "..", ".")
	}
	base = strings.Trim(base, "._")
	if base == "" {
		base = "file"
	}
	return fmt.Sprintf("%d-%s", at.UnixMilli(), base)
}

// Save stores r under a generated name and returns the attachment that
// describes it. declaredType wins unless it is empty or generic, in which case
// the content is sniffed.
func Save(ctx context.Context, s Store, original, declaredType string, r io.Reader) (model.Attachment, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return model.Attachment{}, err
	}
	head = head[:n]

	ct := strings.TrimSpace(declaredType)
	if ct == "" || ct == "application/octet-stream" {
		ct = mimetype.Detect(head).String()
	}

	name := Filename(original, Now())
	if err := s.Put(ctx, name, io.MultiReader(bytes.NewReader(head), r), ct); err != nil {
		return model.Attachment{}, err
	}
	return model.Attachment{Filename: name, Mimetype: ct}, nil
}
