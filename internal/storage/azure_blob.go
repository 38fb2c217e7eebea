package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"go.uber.org/zap"
)

const containerSetupTimeout = 30 * time.Second

// AzureBlobStorage archives quote payloads to an Azure Blob container.
// Archived payloads are written once and read rarely, so blobs go to the
// cool tier.
type AzureBlobStorage struct {
	client    *azblob.Client
	container string
	logger    *zap.Logger
}

// NewAzureBlobStorage creates the client and makes sure the container exists
func NewAzureBlobStorage(connectionString, container string, logger *zap.Logger) (*AzureBlobStorage, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), containerSetupTimeout)
	defer cancel()
	if _, err := client.CreateContainer(ctx, container, nil); err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil, fmt.Errorf("failed to create container %s: %w", container, err)
	}

	logger.Info("Quote archive on Azure Blob Storage", zap.String("container", container))
	return &AzureBlobStorage{client: client, container: container, logger: logger}, nil
}

// Put uploads data as the blob named key
func (s *AzureBlobStorage) Put(ctx context.Context, key string, contentType string, data io.Reader) (int64, error) {
	tier := blob.AccessTierCool
	source := "quote-api"
	reader := &countingReader{r: data}

	_, err := s.client.UploadStream(ctx, s.container, key, reader, &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
		AccessTier:  &tier,
		Metadata:    map[string]*string{"source": &source},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	s.logger.Debug("Quote archived",
		zap.String("blob_name", key),
		zap.Int64("size", reader.count))
	return reader.count, nil
}

// Get streams the blob named key
func (s *AzureBlobStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	return resp.Body, nil
}

// Delete removes the blob named key; a missing blob is not an error
func (s *AzureBlobStorage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteBlob(ctx, s.container, key, nil)
	switch {
	case err == nil:
		s.logger.Info("Archived quote deleted", zap.String("blob_name", key))
		return nil
	case bloberror.HasCode(err, bloberror.BlobNotFound):
		return nil
	default:
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
}

type countingReader struct {
	r     io.Reader
	count int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.count += int64(n)
	return n, err
}

var _ Storage = (*AzureBlobStorage)(nil)
