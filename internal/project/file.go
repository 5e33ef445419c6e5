package project

import (
	"path"
	"strings"
)

// ProjectFile is one file of a generated site. Content is always the full text.
type ProjectFile struct {
	Path    string `json:"path,omitempty"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

// Kind is the classification the preview and the file tree act on.
type Kind string

const (
	KindHTML     Kind = "html"
	KindCSS      Kind = "css"
	KindJS       Kind = "js"
	KindJSX      Kind = "jsx"
	KindTSX      Kind = "tsx"
	KindTS       Kind = "ts"
	KindJSON     Kind = "json"
	KindMarkdown Kind = "markdown"
	KindSVG      Kind = "svg"
	KindOther    Kind = "other"
)

// IsComponent reports whether files of this kind hold component source.
func (k Kind) IsComponent() bool {
	return k == KindJSX || k == KindTSX
}

// IsMarkup reports whether files of this kind are complete documents.
func (k Kind) IsMarkup() bool {
	return k == KindHTML
}

var extensionKinds = map[string]Kind{
	".html": KindHTML,
	".htm":  KindHTML,
	".css":  KindCSS,
	".scss": KindCSS,
	".js":   KindJS,
	".mjs":  KindJS,
	".cjs":  KindJS,
	".jsx":  KindJSX,
	".tsx":  KindTSX,
	".ts":   KindTS,
	".json": KindJSON,
	".md":   KindMarkdown,
	".svg":  KindSVG,
}

var declaredKinds = map[string]Kind{
	"html":       KindHTML,
	"htm":        KindHTML,
	"css":        KindCSS,
	"scss":       KindCSS,
	"js":         KindJS,
	"javascript": KindJS,
	"jsx":        KindJSX,
	"tsx":        KindTSX,
	"ts":         KindTS,
	"typescript": KindTS,
	"json":       KindJSON,
	"md":         KindMarkdown,
	"markdown":   KindMarkdown,
	"svg":        KindSVG,
}

// Classify decides a file's kind. The path extension wins; the declared type
// token is only consulted when the extension is unknown or missing.
func Classify(filePath, declaredType string) Kind {
	ext := strings.ToLower(path.Ext(filePath))
	if k, ok := extensionKinds[ext]; ok {
		return k
	}
	if k, ok := declaredKinds[strings.ToLower(strings.TrimSpace(declaredType))]; ok {
		return k
	}
	return KindOther
}

// TypeForPath infers the advisory type token for a file created without one.
func TypeForPath(filePath string) string {
	k := Classify(filePath, "")
	if k == KindOther {
		return "text"
	}
	return string(k)
}

// CleanPath normalises a project-relative path. It returns "" for paths that
// are empty or escape the project root.
func CleanPath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return ""
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return ""
	}
	return cleaned
}
