package out

import (
	"context"

	"crux/internal/modules/routes/domain"
)

// Store persists routes. List and FindByID return metadata only; the blob is
// fetched separately so listings stay cheap.
type Store interface {
	Save(ctx context.Context, route domain.Route) error
	FindByID(ctx context.Context, id string) (domain.Route, error)
	List(ctx context.Context) ([]domain.Route, error)
	Update(ctx context.Context, route domain.Route) error
	Delete(ctx context.Context, id string) (bool, error)
	ImageByID(ctx context.Context, id string) ([]byte, string, error)
}

// AttachmentProbe inspects an uploaded blob and reports what it is.
type AttachmentProbe interface {
	Describe(data []byte, mime string) (domain.AttachmentInfo, error)
}

// Viewer hands a blob to the desktop for display.
type Viewer interface {
	OpenBlob(ctx context.Context, data []byte, mime string) error
}
