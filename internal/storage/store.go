// Package storage turns a scraped image URL into the reference that gets
// persisted with a promotion.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/farejai/fareja/internal/config"
	"github.com/farejai/fareja/internal/fetch"
)

// Store persists the image behind imageURL under shortID and returns the
// reference pages should use.
type Store interface {
	Save(ctx context.Context, imageURL, shortID string) (string, error)
}

// NopStore keeps the scraped URL as is.
type NopStore struct{}

func (NopStore) Save(_ context.Context, imageURL, _ string) (string, error) {
	return imageURL, nil
}

// IsLocal reports whether ref points into the locally served image dir.
func IsLocal(ref string) bool {
	return strings.HasPrefix(ref, "/images/")
}

// FromConfig builds the store selected by FAREJA_IMAGE_STORAGE.
func FromConfig(cfg *config.Config, client *fetch.Client, log zerolog.Logger) (Store, error) {
	switch cfg.ImageStorage {
	case config.StorageLocal, "":
		return NewLocalStore(cfg.ImageDir, client, log)
	case config.StorageCDN:
		return NewCDNStore(cfg.CloudinaryName, cfg.CloudinaryKey, cfg.CloudinarySecret, cfg.CloudinaryFolder, log)
	case config.StorageNone:
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("unknown image storage %q", cfg.ImageStorage)
	}
}
