package out

import (
	"context"
	"fmt"
	"mime"
	"os"
	"os/exec"
	"runtime"

	routesout "crux/internal/modules/routes/port/out"
)

// OSExternalViewer writes the blob to a temp file and hands it to the
// desktop's opener. The temp file is left for the OS to clean up; the viewer
// process outlives us.
type OSExternalViewer struct{}

func NewOSExternalViewer() routesout.Viewer {
	return &OSExternalViewer{}
}

func (v *OSExternalViewer) OpenBlob(_ context.Context, data []byte, blobMIME string) error {
	ext := ".bin"
	if exts, err := mime.ExtensionsByType(blobMIME); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	file, err := os.CreateTemp("", "crux-route-*"+ext)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", file.Name())
	case "linux":
		cmd = exec.Command("xdg-open", file.Name())
	default:
		return fmt.Errorf("external open is not supported on %s", runtime.GOOS)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open external viewer: %w", err)
	}
	return nil
}
