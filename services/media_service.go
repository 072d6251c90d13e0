package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

var ErrMediaNotConfigured = errors.New("media storage is not configured")

// UploadSignature lets a client upload straight to Cloudinary.
type UploadSignature struct {
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
	APIKey    string `json:"api_key"`
	CloudName string `json:"cloud_name"`
	Folder    string `json:"folder"`
}

// Cloudinary signs direct uploads and removes uploaded assets.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
	now    func() time.Time
}

func NewCloudinary(cloudinaryURL, folder string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return &Cloudinary{cld: cld, folder: folder, now: time.Now}, nil
}

// Sign returns a signature for uploading into the kind subfolder.
func (m *Cloudinary) Sign(kind string) (UploadSignature, error) {
	folder := path.Join(m.folder, kind)
	paramsToSign, err := api.StructToParams(uploader.UploadParams{
		Folder: folder,
	})
	if err != nil {
		return UploadSignature{}, fmt.Errorf("prepare signature params: %w", err)
	}

	timestamp := m.now().Unix()
	paramsToSign.Set("timestamp", strconv.FormatInt(timestamp, 10))

	signature, err := api.SignParameters(paramsToSign, m.cld.Config.Cloud.APISecret)
	if err != nil {
		return UploadSignature{}, fmt.Errorf("sign upload params: %w", err)
	}

	return UploadSignature{
		Signature: signature,
		Timestamp: timestamp,
		APIKey:    m.cld.Config.Cloud.APIKey,
		CloudName: m.cld.Config.Cloud.CloudName,
		Folder:    folder,
	}, nil
}

func (m *Cloudinary) Destroy(ctx context.Context, publicID string) error {
	if _, err := m.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID}); err != nil {
		return fmt.Errorf("destroy %s: %w", publicID, err)
	}
	return nil
}

// NoMedia is used when no media storage is configured.
type NoMedia struct{}

func (NoMedia) Sign(string) (UploadSignature, error) {
	return UploadSignature{}, ErrMediaNotConfigured
}

func (NoMedia) Destroy(context.Context, string) error { return nil }
