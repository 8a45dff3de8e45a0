package service

import (
	"github.com/and161185/carenotes/internal/model"
	"github.com/gofrs/uuid/v5"
)

// fileDiff is the outcome of matching incoming attachments against stored files.
type fileDiff struct {
	keep   []uuid.UUID        // existing files to retain, in stored order
	create []model.Attachment // attachments with no stored counterpart, in incoming order
	remove []model.File       // existing files not referenced by the update
}

// diffFiles matches incoming attachments to existing files. An attachment that
// carries the ID of an existing file keeps exactly that file; otherwise the first
// unmatched existing file with the same filename is kept. Each existing file is
// matched at most once.
func diffFiles(existing []model.File, incoming []model.Attachment) fileDiff {
	matched := make([]bool, len(existing))
	byID := make(map[uuid.UUID]int, len(existing))
	for i, f := range existing {
		byID[f.ID] = i
	}

	var d fileDiff
	for _, a := range incoming {
		if i, ok := byID[a.ID]; ok && a.ID != uuid.Nil && !matched[i] {
			matched[i] = true
			continue
		}
		if a.Filename == "" {
			// bare reference to a file that is not attached here
			continue
		}
		found := false
		for i, f := range existing {
			if !matched[i] && f.Filename == a.Filename {
				matched[i] = true
				found = true
				break
			}
		}
		if !found {
			d.create = append(d.create, model.Attachment{Filename: a.Filename, Mimetype: a.Mimetype})
		}
	}
	for i, f := range existing {
		if matched[i] {
			d.keep = append(d.keep, f.ID)
		} else {
			d.remove = append(d.remove, f)
		}
	}
	return d
}

func fileIDs(fs []model.File) []uuid.UUID {
	out := make([]uuid.UUID, len(fs))
	for i, f := range fs {
		out[i] = f.ID
	}
	return out
}
