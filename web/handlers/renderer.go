package handlers

import (
	"context"
	"html/template"
	"net/http"

	ds "github.com/starfederation/datastar-go/datastar"

	"scrollchart/engine"
	"scrollchart/events"
)

// Charts is what the web layer needs from the engine.
type Charts interface {
	Frames() *events.Hub[*engine.Frame]
	Snapshot(ctx context.Context) ([]*engine.Frame, error)
	ClearChart(ctx context.Context, key string) error
	ToggleScroll(ctx context.Context, key string) (bool, error)
}

type Renderer interface {
	Templates() *template.Template
	Handlers() map[string]http.HandlerFunc
	Data(ctx context.Context, clientID string) (map[string]any, error)
	OnFrame(sse *ds.ServerSentEventGenerator, frame *engine.Frame, clientID string) error
}
