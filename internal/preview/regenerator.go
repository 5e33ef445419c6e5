package preview

import (
	"time"

	"sitebuilder-backend/internal/debounce"
	"sitebuilder-backend/internal/project"
)

const DefaultRegenerateDelay = 300 * time.Millisecond

// Regenerator re-renders a project's preview once edits have paused. The file
// map is read when the timer fires so only the latest state is rendered.
type Regenerator struct {
	renderer Renderer
	deb      *debounce.Debouncer[string]
	onRender func(projectID, doc string)
}

func NewRegenerator(renderer Renderer, delay time.Duration, onRender func(projectID, doc string)) *Regenerator {
	if delay <= 0 {
		delay = DefaultRegenerateDelay
	}
	return &Regenerator{
		renderer: renderer,
		deb:      debounce.New[string](delay),
		onRender: onRender,
	}
}

func (g *Regenerator) Schedule(projectID string, snapshot func() *project.Files) {
	g.deb.Trigger(projectID, func() {
		doc := g.renderer.Render(snapshot())
		if g.onRender != nil {
			g.onRender(projectID, doc)
		}
	})
}

func (g *Regenerator) Cancel(projectID string) bool {
	return g.deb.Cancel(projectID)
}

func (g *Regenerator) CancelAll() int {
	return len(g.deb.CancelAll())
}
