package generation

import (
	"strings"
)

const (
	DefaultFramework = "HTML/CSS/JS"
	DefaultStyling   = "Tailwind CSS"

	FallbackFramework = "HTML/CSS/JS"
	FallbackStyling   = "CSS3"
)

type Request struct {
	Description string   `json:"description" binding:"required"`
	ProjectType string   `json:"projectType,omitempty"`
	Framework   string   `json:"framework,omitempty"`
	Styling     string   `json:"styling,omitempty"`
	Features    []string `json:"features,omitempty"`
}

type keywordRule struct {
	keywords []string
	value    string
}

var projectTypeRules = []keywordRule{
	{[]string{"portfolio", "personal website"}, "portfolio"},
	{[]string{"todo", "task"}, "todo-app"},
	{[]string{"dashboard", "admin"}, "dashboard"},
	{[]string{"ecommerce", "e-commerce", "shop"}, "ecommerce"},
	{[]string{"blog"}, "blog"},
	{[]string{"landing", "saas"}, "landing-page"},
}

var featureRules = []keywordRule{
	{[]string{"dark mode", "theme"}, "Dark mode toggle"},
	{[]string{"responsive"}, "Responsive design"},
	{[]string{"animation", "motion"}, "Animations"},
	{[]string{"form", "contact"}, "Contact form"},
	{[]string{"chart", "graph"}, "Data visualization"},
	{[]string{"auth", "login"}, "Authentication"},
	{[]string{"search"}, "Search functionality"},
	{[]string{"filter"}, "Filtering"},
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// DetectProjectType maps free text onto a coarse project category.
func DetectProjectType(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range projectTypeRules {
		if containsAny(lower, rule.keywords) {
			return rule.value
		}
	}
	return "web-application"
}

// ExtractFeatures lists the features a description asks for.
func ExtractFeatures(text string) []string {
	lower := strings.ToLower(text)
	var features []string
	for _, rule := range featureRules {
		if containsAny(lower, rule.keywords) {
			features = append(features, rule.value)
		}
	}
	if len(features) == 0 {
		return []string{"Modern UI", "Responsive design"}
	}
	return features
}

// RequestFromText builds a request from a chat message.
func RequestFromText(text string) Request {
	return Request{Description: strings.TrimSpace(text)}.WithDefaults()
}

// WithDefaults fills every hint the caller left empty.
func (r Request) WithDefaults() Request {
	r.Description = strings.TrimSpace(r.Description)
	if r.ProjectType == "" {
		r.ProjectType = DetectProjectType(r.Description)
	}
	if r.Framework == "" {
		r.Framework = DefaultFramework
	}
	if r.Styling == "" {
		r.Styling = DefaultStyling
	}
	if len(r.Features) == 0 {
		r.Features = ExtractFeatures(r.Description)
	}
	return r
}

// ForFallback returns the request used against the fallback backend.
func (r Request) ForFallback() Request {
	r.Framework = FallbackFramework
	r.Styling = FallbackStyling
	return r
}
