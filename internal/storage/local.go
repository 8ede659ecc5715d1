package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/farejai/fareja/internal/fetch"
	"github.com/farejai/fareja/internal/imaging"
)

// PublicPrefix is where the server mounts the local image directory.
const PublicPrefix = "/images/products"

// LocalStore downloads the image, shrinks it with the preview profile and
// writes {dir}/{shortID}.jpg. Needs a writable filesystem.
type LocalStore struct {
	dir    string
	client *fetch.Client
	opts   imaging.Options
	log    zerolog.Logger
}

func NewLocalStore(dir string, client *fetch.Client, log zerolog.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &LocalStore{dir: dir, client: client, opts: imaging.PreviewProfile, log: log}, nil
}

func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Save(ctx context.Context, imageURL, shortID string) (string, error) {
	if IsLocal(imageURL) {
		return imageURL, nil
	}

	resp, err := s.client.Get(ctx, imageURL, fetch.Request{Accept: fetch.AcceptImage})
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}

	res, err := imaging.Optimize(resp.Body, s.opts)
	if err != nil {
		return "", fmt.Errorf("optimize image: %w", err)
	}
	if !res.WithinBudget {
		s.log.Warn().Str("shortId", shortID).Int("bytes", len(res.Data)).Msg("image still over preview budget at smallest size")
	}

	name := shortID + ".jpg"
	if err := writeFileAtomic(filepath.Join(s.dir, name), res.Data); err != nil {
		return "", err
	}

	s.log.Info().Str("shortId", shortID).Int("bytes", len(res.Data)).
		Int("quality", res.Quality).Int("attempts", len(res.Attempts)).Msg("image stored locally")
	return PublicPrefix + "/" + name, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close image: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod image: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename image: %w", err)
	}
	return nil
}
