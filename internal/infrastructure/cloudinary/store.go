package cloudinaryinfra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/go-bff-auth/internal/config"
	"github.com/go-bff-auth/internal/domain"
)

// UploadAPI is the subset of the Cloudinary upload API the store uses.
type UploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// AvatarStore keeps profile pictures on Cloudinary.
type AvatarStore struct {
	api    UploadAPI
	folder string
}

// NewUploadAPI builds the Cloudinary upload client from credentials.
func NewUploadAPI(cfg config.Cloudinary) (UploadAPI, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary client: %w", err)
	}
	cld.Config.URL.Secure = true
	return &cld.Upload, nil
}

func NewAvatarStore(api UploadAPI, folder string) *AvatarStore {
	return &AvatarStore{api: api, folder: folder}
}

// Upload sends the local file and returns the public id and secure URL.
// The local file is removed whether or not the upload succeeds.
func (s *AvatarStore) Upload(ctx context.Context, localPath, _ string) (domain.Avatar, error) {
	defer func() {
		if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
			slog.Warn("could not remove local upload", "path", localPath, "err", err)
		}
	}()

	res, err := s.api.Upload(ctx, localPath, uploader.UploadParams{
		Folder:       s.folder,
		ResourceType: "auto",
	})
	if err != nil {
		return domain.Avatar{}, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return domain.Avatar{}, fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	if res.PublicID == "" {
		return domain.Avatar{}, errors.New("cloudinary upload: empty public id")
	}
	return domain.Avatar{ID: res.PublicID, URL: res.SecureURL}, nil
}

// Delete destroys the image with the given public id.
func (s *AvatarStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	res, err := s.api.Destroy(ctx, uploader.DestroyParams{PublicID: id, ResourceType: "image"})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy: %s", res.Error.Message)
	}
	return nil
}
