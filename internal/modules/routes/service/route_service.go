package service

import (
	"context"
	"strings"

	"crux/internal/modules/routes/domain"
	routesout "crux/internal/modules/routes/port/out"
	"crux/internal/platform/clock"
	apperrors "crux/internal/platform/errors"
	"crux/internal/platform/id"
)

type RouteService struct {
	clock clock.Clock
	idGen id.Generator
	store routesout.Store
	probe routesout.AttachmentProbe
}

func NewRouteService(clock clock.Clock, idGen id.Generator, store routesout.Store, probe routesout.AttachmentProbe) *RouteService {
	return &RouteService{clock: clock, idGen: idGen, store: store, probe: probe}
}

func (s *RouteService) Save(ctx context.Context, name, colorValue, gym, notes string, image []byte, mime string) (domain.Route, error) {
	color := domain.Color(strings.ToLower(strings.TrimSpace(colorValue)))
	if err := color.Validate(); err != nil {
		return domain.Route{}, apperrors.Validation("Unsupported route color %q", colorValue)
	}
	if len(image) == 0 {
		return domain.Route{}, apperrors.Validation("A route image is required")
	}
	route := domain.Route{
		ID:         s.idGen.New(),
		Name:       strings.TrimSpace(name),
		Color:      color,
		Gym:        strings.TrimSpace(gym),
		Notes:      notes,
		Image:      image,
		Attachment: s.describe(image, mime),
		CreatedAt:  s.clock.Now(),
	}
	if err := route.Validate(); err != nil {
		return domain.Route{}, err
	}
	if err := s.store.Save(ctx, route); err != nil {
		return domain.Route{}, err
	}
	return route, nil
}

func (s *RouteService) List(ctx context.Context, colorFilter, gymFilter string) ([]domain.Route, error) {
	routes, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	colorFilter = strings.ToLower(strings.TrimSpace(colorFilter))
	gymFilter = strings.TrimSpace(gymFilter)
	if colorFilter == "" && gymFilter == "" {
		return routes, nil
	}
	filtered := make([]domain.Route, 0, len(routes))
	for _, route := range routes {
		if colorFilter != "" && string(route.Color) != colorFilter {
			continue
		}
		if gymFilter != "" && !strings.EqualFold(route.Gym, gymFilter) {
			continue
		}
		filtered = append(filtered, route)
	}
	return filtered, nil
}

func (s *RouteService) Get(ctx context.Context, id string) (domain.Route, error) {
	return s.store.FindByID(ctx, id)
}

func (s *RouteService) Update(ctx context.Context, id string, patch domain.Patch, mime string) (domain.Route, error) {
	if patch.Color != nil {
		normalized := domain.Color(strings.ToLower(strings.TrimSpace(string(*patch.Color))))
		if err := normalized.Validate(); err != nil {
			return domain.Route{}, apperrors.Validation("Unsupported route color %q", string(*patch.Color))
		}
		patch.Color = &normalized
	}
	route, err := s.store.FindByID(ctx, id)
	if err != nil {
		return domain.Route{}, err
	}
	patch.Apply(&route)
	if patch.Image != nil {
		route.Attachment = s.describe(patch.Image, mime)
	}
	if err := s.store.Update(ctx, route); err != nil {
		return domain.Route{}, err
	}
	return route, nil
}

func (s *RouteService) Delete(ctx context.Context, id string) (bool, error) {
	return s.store.Delete(ctx, id)
}

func (s *RouteService) Image(ctx context.Context, id string) ([]byte, string, error) {
	return s.store.ImageByID(ctx, id)
}

// describe never fails a save: formats the probe cannot read are stored with
// bare size and mime.
func (s *RouteService) describe(image []byte, mime string) domain.AttachmentInfo {
	if s.probe != nil {
		if info, err := s.probe.Describe(image, mime); err == nil {
			return info
		}
	}
	return domain.AttachmentInfo{MIME: mime, Size: len(image)}
}
