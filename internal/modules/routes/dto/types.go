package dto

import "time"

type SaveInput struct {
	Name  string
	Color string
	Gym   string
	Notes string
	Image []byte
	MIME  string
}

type UpdateInput struct {
	RouteID string
	Name    *string
	Color   *string
	Gym     *string
	Notes   *string
	Image   []byte
	MIME    string
}

type ListInput struct {
	// Color and Gym narrow the listing; empty means no filter.
	Color string
	Gym   string
}

type RouteOutput struct {
	ID         string
	Name       string
	Color      string
	Gym        string
	Notes      string
	Attachment string
	CreatedAt  time.Time
}

type AttachmentOutput struct {
	Data     []byte
	MIME     string
	Filename string
}
