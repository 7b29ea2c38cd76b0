package out

import (
	"bytes"
	"fmt"
	"image"
	"net/http"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"crux/internal/modules/routes/domain"
	routesout "crux/internal/modules/routes/port/out"
	"rsc.io/pdf"
)

// StdAttachmentProbe reads enough of a blob to say what it is: pixel
// dimensions for photos, page count for topo PDFs.
type StdAttachmentProbe struct{}

func NewStdAttachmentProbe() routesout.AttachmentProbe {
	return &StdAttachmentProbe{}
}

func (p *StdAttachmentProbe) Describe(data []byte, mime string) (info domain.AttachmentInfo, err error) {
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	info = domain.AttachmentInfo{MIME: mime, Size: len(data)}

	if strings.Contains(mime, "pdf") {
		// rsc.io/pdf panics on malformed files.
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("probe pdf: %v", r)
			}
		}()
		doc, pdfErr := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
		if pdfErr != nil {
			return info, fmt.Errorf("probe pdf: %w", pdfErr)
		}
		info.Pages = doc.NumPage()
		return info, nil
	}

	config, _, decodeErr := image.DecodeConfig(bytes.NewReader(data))
	if decodeErr != nil {
		return info, fmt.Errorf("probe image: %w", decodeErr)
	}
	info.Width = config.Width
	info.Height = config.Height
	return info, nil
}
