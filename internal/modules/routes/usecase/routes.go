package usecase

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"crux/internal/modules/routes/domain"
	"crux/internal/modules/routes/dto"
	routesin "crux/internal/modules/routes/port/in"
	routesout "crux/internal/modules/routes/port/out"
	"crux/internal/modules/routes/service"
	"crux/internal/platform/activity"
)

type Interactor struct {
	svc      *service.RouteService
	viewer   routesout.Viewer
	recorder activity.Recorder
}

func NewInteractor(svc *service.RouteService, viewer routesout.Viewer, recorder activity.Recorder) routesin.Usecase {
	return &Interactor{svc: svc, viewer: viewer, recorder: recorder}
}

func (i *Interactor) Save(ctx context.Context, input dto.SaveInput) (dto.RouteOutput, error) {
	route, err := i.svc.Save(ctx, input.Name, input.Color, input.Gym, input.Notes, input.Image, input.MIME)
	if err != nil {
		return dto.RouteOutput{}, err
	}
	i.record(ctx, activity.RouteSaved, fmt.Sprintf("saved route %s", route.Label()))
	return toRouteOutput(route), nil
}

func (i *Interactor) List(ctx context.Context, input dto.ListInput) ([]dto.RouteOutput, error) {
	routes, err := i.svc.List(ctx, input.Color, input.Gym)
	if err != nil {
		return nil, err
	}
	out := make([]dto.RouteOutput, 0, len(routes))
	for _, route := range routes {
		out = append(out, toRouteOutput(route))
	}
	return out, nil
}

func (i *Interactor) Get(ctx context.Context, id string) (dto.RouteOutput, error) {
	route, err := i.svc.Get(ctx, id)
	if err != nil {
		return dto.RouteOutput{}, err
	}
	return toRouteOutput(route), nil
}

func (i *Interactor) Update(ctx context.Context, input dto.UpdateInput) (dto.RouteOutput, error) {
	patch := domain.Patch{
		Name:  input.Name,
		Gym:   input.Gym,
		Notes: input.Notes,
		Image: input.Image,
	}
	if input.Color != nil {
		color := domain.Color(*input.Color)
		patch.Color = &color
	}
	route, err := i.svc.Update(ctx, input.RouteID, patch, input.MIME)
	if err != nil {
		return dto.RouteOutput{}, err
	}
	i.record(ctx, activity.RouteUpdated, fmt.Sprintf("updated route %s", route.Label()))
	return toRouteOutput(route), nil
}

func (i *Interactor) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := i.svc.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		i.record(ctx, activity.RouteDeleted, fmt.Sprintf("deleted route %s", id))
	}
	return deleted, nil
}

func (i *Interactor) Attachment(ctx context.Context, id string) (dto.AttachmentOutput, error) {
	data, blobMIME, err := i.svc.Image(ctx, id)
	if err != nil {
		return dto.AttachmentOutput{}, err
	}
	return dto.AttachmentOutput{Data: data, MIME: blobMIME, Filename: attachmentFilename(id, blobMIME)}, nil
}

func (i *Interactor) View(ctx context.Context, id string) error {
	if i.viewer == nil {
		return fmt.Errorf("no viewer available")
	}
	data, blobMIME, err := i.svc.Image(ctx, id)
	if err != nil {
		return err
	}
	return i.viewer.OpenBlob(ctx, data, blobMIME)
}

func (i *Interactor) record(ctx context.Context, eventType activity.Type, message string) {
	if i.recorder == nil {
		return
	}
	_ = i.recorder.Append(ctx, activity.Event{Type: eventType, Message: message})
}

func toRouteOutput(route domain.Route) dto.RouteOutput {
	return dto.RouteOutput{
		ID:         route.ID,
		Name:       route.Name,
		Color:      string(route.Color),
		Gym:        route.Gym,
		Notes:      route.Notes,
		Attachment: route.Attachment.Describe(),
		CreatedAt:  route.CreatedAt,
	}
}

func attachmentFilename(id, blobMIME string) string {
	ext := ".bin"
	if exts, err := mime.ExtensionsByType(blobMIME); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	base := id
	if at := strings.IndexByte(base, '-'); at > 0 {
		base = base[:at]
	}
	return "route-" + base + ext
}
