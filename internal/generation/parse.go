package generation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"sitebuilder-backend/internal/project"
	"sitebuilder-backend/pkg/logger"
)

// Project is a validated generation result.
type Project struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Files       *project.Files `json:"files"`
}

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json|JSON)?[ \\t]*\\r?\\n?(.*?)```")

// ExtractJSON finds the JSON payload in a model reply: a fenced code block
// first, then the first balanced {...} span. A candidate is only accepted when
// it is valid JSON; a fence can end early when file contents carry their own
// fences.
func ExtractJSON(reply string) (string, error) {
	for _, m := range fencedBlockRe.FindAllStringSubmatch(reply, -1) {
		body := strings.TrimSpace(m[1])
		if strings.HasPrefix(body, "{") && json.Valid([]byte(body)) {
			return body, nil
		}
	}
	span, ok := firstObjectSpan(reply)
	if !ok {
		return "", fmt.Errorf("%w: no JSON object in reply", ErrMalformedResponse)
	}
	if !json.Valid([]byte(span)) {
		return "", fmt.Errorf("%w: reply does not contain valid JSON", ErrMalformedResponse)
	}
	return span, nil
}

// firstObjectSpan returns the first balanced brace span, ignoring braces
// inside JSON strings.
func firstObjectSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func isJSONString(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '"'
}

type rawProject struct {
	Name        json.RawMessage `json:"name"`
	Description json.RawMessage `json:"description"`
	Files       json.RawMessage `json:"files"`
}

type rawFile struct {
	Content json.RawMessage `json:"content"`
	Type    json.RawMessage `json:"type"`
}

// ParseProject extracts, decodes and normalises a model reply. Entries whose
// content is not a string are dropped. Missing types are inferred from the
// path.
func ParseProject(reply string) (*Project, error) {
	payload, err := ExtractJSON(reply)
	if err != nil {
		return nil, err
	}

	var raw rawProject
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var name string
	if err := json.Unmarshal(raw.Name, &name); err != nil || strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: missing project name", ErrMalformedResponse)
	}

	var description string
	if len(raw.Description) > 0 {
		_ = json.Unmarshal(raw.Description, &description)
	}

	trimmed := strings.TrimSpace(string(raw.Files))
	if !strings.HasPrefix(trimmed, "{") {
		return nil, fmt.Errorf("%w: files must be an object", ErrMalformedResponse)
	}

	files := project.NewFiles()
	err = project.DecodeObject(raw.Files, func(key string, value json.RawMessage) error {
		path := project.CleanPath(key)
		if path == "" {
			logger.Warnf("dropping generated file with unusable path %q", key)
			return nil
		}
		var rf rawFile
		if err := json.Unmarshal(value, &rf); err != nil {
			logger.Warnf("dropping generated file %q: entry is not an object", key)
			return nil
		}
		var content string
		if !isJSONString(rf.Content) || json.Unmarshal(rf.Content, &content) != nil {
			logger.Warnf("dropping generated file %q: content is not a string", key)
			return nil
		}
		var typ string
		if len(rf.Type) > 0 {
			_ = json.Unmarshal(rf.Type, &typ)
		}
		if strings.TrimSpace(typ) == "" {
			typ = project.TypeForPath(path)
		}
		files.Put(project.ProjectFile{Path: path, Content: content, Type: typ})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if files.Len() == 0 {
		return nil, ErrEmptyProject
	}

	return &Project{
		Name:        strings.TrimSpace(name),
		Description: description,
		Files:       files,
	}, nil
}
