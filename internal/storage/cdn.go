package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

const (
	// Applied at upload time so the stored original is already preview sized.
	uploadTransformation = "c_fill,w_1200,h_630,g_center,q_auto:good,f_jpg"
	// Delivery-time padding for WhatsApp, which crops anything not 1.91:1.
	whatsAppTransformation = "c_pad,w_1200,h_630,b_white,g_center,q_auto:good,f_jpg"
)

// A path segment like "c_fill,w_300" or "q_auto"; versions ("v1712") don't match.
var transformationRe = regexp.MustCompile(`^[a-z]{1,3}_[^/]+$`)

type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// CDNStore hands the remote URL to Cloudinary, which fetches and transforms
// it. Used where the local filesystem is read-only.
type CDNStore struct {
	api    uploadAPI
	folder string
	log    zerolog.Logger
}

func NewCDNStore(cloudName, apiKey, apiSecret, folder string, log zerolog.Logger) (*CDNStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary client: %w", err)
	}
	return &CDNStore{api: &cld.Upload, folder: folder, log: log}, nil
}

func (s *CDNStore) Save(ctx context.Context, imageURL, shortID string) (string, error) {
	if IsCloudinary(imageURL) {
		return imageURL, nil
	}

	res, err := s.api.Upload(ctx, imageURL, uploader.UploadParams{
		PublicID:       "produtos/" + shortID,
		Folder:         s.folder,
		Overwrite:      api.Bool(true),
		Transformation: uploadTransformation,
		Tags:           api.CldAPIArray{"produto", "whatsapp"},
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	if res.SecureURL == "" {
		return "", errors.New("cloudinary upload: empty secure url")
	}

	s.log.Info().Str("shortId", shortID).Str("publicId", res.PublicID).Msg("image uploaded to cdn")
	return res.SecureURL, nil
}

func IsCloudinary(u string) bool {
	return strings.Contains(u, "res.cloudinary.com/") && strings.Contains(u, "/upload/")
}

// WhatsAppURL inserts the padding transformation into a Cloudinary delivery
// URL. Other URLs, and Cloudinary URLs that already carry a transformation,
// are returned unchanged.
func WhatsAppURL(u string) string {
	if !IsCloudinary(u) {
		return u
	}
	idx := strings.Index(u, "/upload/")
	head, tail := u[:idx+len("/upload/")], u[idx+len("/upload/"):]

	first, _, _ := strings.Cut(tail, "/")
	if transformationRe.MatchString(first) {
		return u
	}
	return head + whatsAppTransformation + "/" + tail
}
