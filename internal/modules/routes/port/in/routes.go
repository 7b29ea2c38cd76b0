package in

import (
	"context"

	"crux/internal/modules/routes/dto"
)

type Usecase interface {
	Save(ctx context.Context, input dto.SaveInput) (dto.RouteOutput, error)
	List(ctx context.Context, input dto.ListInput) ([]dto.RouteOutput, error)
	Get(ctx context.Context, id string) (dto.RouteOutput, error)
	Update(ctx context.Context, input dto.UpdateInput) (dto.RouteOutput, error)
	Delete(ctx context.Context, id string) (bool, error)
	Attachment(ctx context.Context, id string) (dto.AttachmentOutput, error)
	View(ctx context.Context, id string) error
}
