package in

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"crux/internal/modules/routes/dto"
	routesin "crux/internal/modules/routes/port/in"
)

type CLIHandler struct {
	usecase routesin.Usecase
}

func NewCLIHandler(usecase routesin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Save(ctx context.Context, name, color, gym, notes, imagePath string) (dto.RouteOutput, error) {
	image, mimeType, err := readAttachment(imagePath)
	if err != nil {
		return dto.RouteOutput{}, err
	}
	return h.usecase.Save(ctx, dto.SaveInput{Name: name, Color: color, Gym: gym, Notes: notes, Image: image, MIME: mimeType})
}

func (h CLIHandler) List(ctx context.Context, color, gym string) ([]dto.RouteOutput, error) {
	return h.usecase.List(ctx, dto.ListInput{Color: color, Gym: gym})
}

func (h CLIHandler) Show(ctx context.Context, id string) (dto.RouteOutput, error) {
	return h.usecase.Get(ctx, id)
}

func (h CLIHandler) Update(ctx context.Context, id string, name, color, gym, notes *string, imagePath string) (dto.RouteOutput, error) {
	input := dto.UpdateInput{RouteID: id, Name: name, Color: color, Gym: gym, Notes: notes}
	if imagePath != "" {
		image, mimeType, err := readAttachment(imagePath)
		if err != nil {
			return dto.RouteOutput{}, err
		}
		input.Image = image
		input.MIME = mimeType
	}
	return h.usecase.Update(ctx, input)
}

func (h CLIHandler) Delete(ctx context.Context, id string) (bool, error) {
	return h.usecase.Delete(ctx, id)
}

func (h CLIHandler) View(ctx context.Context, id string) error {
	return h.usecase.View(ctx, id)
}

// Export writes the stored attachment to destPath, or to the attachment's
// own filename in the working directory when destPath is empty.
func (h CLIHandler) Export(ctx context.Context, id, destPath string) (string, error) {
	attachment, err := h.usecase.Attachment(ctx, id)
	if err != nil {
		return "", err
	}
	if destPath == "" {
		destPath = attachment.Filename
	}
	if err := os.WriteFile(destPath, attachment.Data, 0o644); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	return destPath, nil
}

func readAttachment(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read image file: %w", err)
	}
	return data, http.DetectContentType(data), nil
}
