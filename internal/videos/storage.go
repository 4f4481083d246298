package videos

import (
	"context"
	"io"

	"github.com/vidshare/backend/internal/apperror"
)

// AssetStorage stores uploaded media and removes it again.
type AssetStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Delete(ctx context.Context, location string) error
}

// ErrAssetStorageUnavailable indicates no object store is configured.
var ErrAssetStorageUnavailable = apperror.New(apperror.KindInternal, "asset storage is not configured")
