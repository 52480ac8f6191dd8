package reports

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/careops/hms/internal/platform/storage"
)

// DeckSlide is one assembled slide: text plus the local path of its
// fetched image, if any.
type DeckSlide struct {
	Heading   string
	Body      string
	ImagePath string
}

// DeckWriter serializes an assembled deck. The default writer emits a
// zip archive; a PPTX-producing writer satisfies the same interface.
type DeckWriter interface {
	Write(w io.Writer, slides []DeckSlide) error
}

// AssembleDeck walks the slide records in position order, fetches each
// referenced image from storage into a temp file, and hands the result
// to the writer. Temp files are removed on every exit path.
func AssembleDeck(ctx context.Context, store storage.DocStore, slides []*Slide, w io.Writer, writer DeckWriter) error {
	ordered := append([]*Slide(nil), slides...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	var tempFiles []string
	defer func() {
		for _, path := range tempFiles {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				log.Warn().Err(err).Str("path", path).Msg("temp slide image not removed")
			}
		}
	}()

	deck := make([]DeckSlide, 0, len(ordered))
	for _, s := range ordered {
		ds := DeckSlide{Heading: s.Heading, Body: s.Body}
		if s.ImageKey != nil && *s.ImageKey != "" {
			path, err := fetchImage(ctx, store, *s.ImageKey)
			if err != nil {
				return fmt.Errorf("slide %d image: %w", s.Position, err)
			}
			tempFiles = append(tempFiles, path)
			ds.ImagePath = path
		}
		deck = append(deck, ds)
	}
	return writer.Write(w, deck)
}

func fetchImage(ctx context.Context, store storage.DocStore, key string) (string, error) {
	rc, err := store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "slide-image-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// ZipDeckWriter packages each slide as a text entry plus its image.
type ZipDeckWriter struct{}

func (ZipDeckWriter) Write(w io.Writer, slides []DeckSlide) error {
	zw := zip.NewWriter(w)
	for i, s := range slides {
		entry, err := zw.Create(fmt.Sprintf("slide-%03d.txt", i+1))
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(entry, "%s\n\n%s\n", s.Heading, s.Body); err != nil {
			return err
		}
		if s.ImagePath != "" {
			img, err := os.Open(s.ImagePath)
			if err != nil {
				return err
			}
			entry, err := zw.Create(fmt.Sprintf("slide-%03d-image", i+1))
			if err != nil {
				img.Close()
				return err
			}
			if _, err := io.Copy(entry, img); err != nil {
				img.Close()
				return err
			}
			img.Close()
		}
	}
	return zw.Close()
}
