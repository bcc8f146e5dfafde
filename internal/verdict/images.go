package verdict

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/JustJay7/gosomi-court/internal/database"
	"github.com/JustJay7/gosomi-court/internal/judge"
)

const (
	SkipNotFound    = "not_found"
	SkipTooSmall    = "too_small"
	SkipUnsupported = "unsupported_type"
	SkipUnreadable  = "unreadable"
	SkipOverLimit   = "over_limit"
)

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

// imageCollector loads image evidence from the upload directory.
type imageCollector struct {
	root string
}

// collect picks at most three images per party from items and screens each
// one. Rejected images are reported, never fatal.
func (ic imageCollector) collect(items []*database.Evidence) ([]judge.Image, []SkippedImage) {
	var images []judge.Image
	skipped := []SkippedImage{}
	taken := map[database.PartyRole]int{}

	for _, ev := range items {
		if ev.Type != database.EvidenceImage {
			continue
		}
		if taken[ev.SubmittedBy] >= maxImagesPerParty {
			skipped = append(skipped, SkippedImage{EvidenceID: ev.ID, Party: ev.SubmittedBy, Reason: SkipOverLimit})
			continue
		}
		taken[ev.SubmittedBy]++

		img, reason := ic.load(ev.Content)
		if reason != "" {
			skipped = append(skipped, SkippedImage{EvidenceID: ev.ID, Party: ev.SubmittedBy, Reason: reason})
			continue
		}
		images = append(images, img)
	}
	return images, skipped
}

func (ic imageCollector) load(ref string) (judge.Image, string) {
	// evidence content is a path relative to the upload root
	path := filepath.Join(ic.root, filepath.Clean("/"+ref))

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return judge.Image{}, SkipNotFound
		}
		return judge.Image{}, SkipUnreadable
	}
	if info.IsDir() {
		return judge.Image{}, SkipNotFound
	}
	if info.Size() < minImageSizeBytes {
		return judge.Image{}, SkipTooSmall
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return judge.Image{}, SkipUnreadable
	}
	mtype := mimetype.Detect(data)
	if !allowedImageTypes[mtype.String()] {
		return judge.Image{}, SkipUnsupported
	}
	return judge.Image{MimeType: mtype.String(), Data: data}, ""
}
