// Package preview turns a project's files into one standalone HTML document.
package preview

import (
	"strings"

	"sitebuilder-backend/internal/project"
	"sitebuilder-backend/pkg/logger"
)

const DefaultFrameworkURL = "https://cdn.tailwindcss.com"

// entryCandidates are tried in order; the first one present is the entry point.
var entryCandidates = []string{
	"index.html",
	"public/index.html",
	"src/index.html",
	"src/App.tsx",
	"src/App.jsx",
	"app/page.tsx",
	"app/page.jsx",
	"src/main.tsx",
	"src/main.jsx",
	"App.tsx",
	"App.jsx",
	"page.tsx",
}

// Renderer produces a preview document for a file map.
type Renderer interface {
	Render(files *project.Files) string
}

type Options struct {
	// FrameworkURL is the styling framework script added to every document.
	// Empty disables it.
	FrameworkURL string
}

// Reconstructor renders previews. It holds no mutable state and is safe for
// concurrent use.
type Reconstructor struct {
	frameworkURL string
}

func NewReconstructor(opts Options) *Reconstructor {
	return &Reconstructor{frameworkURL: opts.FrameworkURL}
}

// Render is deterministic for a given file map and never panics; anything
// unexpected degrades to the summary document.
func (r *Reconstructor) Render(files *project.Files) (doc string) {
	if files.Len() == 0 {
		return placeholderDocument
	}

	css := concatKind(files, project.KindCSS)
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("preview render panicked: %v", rec)
			doc = r.summaryDocument(files, css)
		}
	}()

	entry, ok := findEntry(files)
	if !ok {
		return r.summaryDocument(files, css)
	}

	kind := project.Classify(entry.Path, entry.Type)
	switch {
	case kind.IsMarkup():
		return r.renderMarkup(entry.Content, css)
	case kind.IsComponent():
		fragment, ok := ExtractMarkupFragment(entry.Content)
		if !ok {
			return r.summaryDocument(files, css)
		}
		body := `<div id="root">` + "\n" + fragment + "\n</div>"
		return r.shell("Live Preview", body, css, concatKind(files, project.KindJS))
	default:
		return r.summaryDocument(files, css)
	}
}

func (r *Reconstructor) renderMarkup(doc, css string) string {
	doc = injectHead(doc, r.headExtras(doc, css))
	return injectBootstrap(doc)
}

// findEntry applies the fixed candidate list, then falls back to the first
// markup file and then the first component file in iteration order.
func findEntry(files *project.Files) (project.ProjectFile, bool) {
	for _, candidate := range entryCandidates {
		if f, ok := files.Get(candidate); ok {
			return f, true
		}
	}

	var markup, component *project.ProjectFile
	files.Each(func(f project.ProjectFile) {
		kind := project.Classify(f.Path, f.Type)
		if markup == nil && kind.IsMarkup() {
			file := f
			markup = &file
		}
		if component == nil && kind.IsComponent() {
			file := f
			component = &file
		}
	})
	if markup != nil {
		return *markup, true
	}
	if component != nil {
		return *component, true
	}
	return project.ProjectFile{}, false
}

func concatKind(files *project.Files, kind project.Kind) string {
	var parts []string
	files.Each(func(f project.ProjectFile) {
		if project.Classify(f.Path, f.Type) == kind {
			parts = append(parts, f.Content)
		}
	})
	return strings.Join(parts, "\n")
}
