package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Files is an ordered path -> ProjectFile mapping. Iteration follows insertion
// order, which for decoded JSON is the key order of the object.
type Files struct {
	order  []string
	byPath map[string]ProjectFile
}

func NewFiles(files ...ProjectFile) *Files {
	f := &Files{}
	for _, file := range files {
		f.Put(file)
	}
	return f
}

func (f *Files) Len() int {
	if f == nil {
		return 0
	}
	return len(f.order)
}

func (f *Files) Get(p string) (ProjectFile, bool) {
	if f == nil {
		return ProjectFile{}, false
	}
	file, ok := f.byPath[p]
	return file, ok
}

// Put inserts or replaces a file. A replaced file keeps its position.
func (f *Files) Put(file ProjectFile) {
	if f.byPath == nil {
		f.byPath = make(map[string]ProjectFile)
	}
	if _, exists := f.byPath[file.Path]; !exists {
		f.order = append(f.order, file.Path)
	}
	f.byPath[file.Path] = file
}

func (f *Files) Delete(p string) bool {
	if f == nil {
		return false
	}
	if _, ok := f.byPath[p]; !ok {
		return false
	}
	delete(f.byPath, p)
	for i, existing := range f.order {
		if existing == p {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return true
}

// Paths returns paths in iteration order.
func (f *Files) Paths() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// SortedPaths returns paths sorted for display.
func (f *Files) SortedPaths() []string {
	out := f.Paths()
	sort.Strings(out)
	return out
}

// Each visits files in iteration order.
func (f *Files) Each(fn func(ProjectFile)) {
	if f == nil {
		return
	}
	for _, p := range f.order {
		fn(f.byPath[p])
	}
}

func (f *Files) Clone() *Files {
	out := &Files{}
	f.Each(out.Put)
	return out
}

type wireFile struct {
	Content string `json:"content"`
	Type    string `json:"type"`
}

func (f *Files) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	i := 0
	var err error
	f.Each(func(file ProjectFile) {
		if err != nil {
			return
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		i++
		var key, val []byte
		if key, err = json.Marshal(file.Path); err != nil {
			return
		}
		if val, err = json.Marshal(wireFile{Content: file.Content, Type: file.Type}); err != nil {
			return
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (f *Files) UnmarshalJSON(data []byte) error {
	decoded := &Files{}
	err := DecodeObject(data, func(key string, raw json.RawMessage) error {
		var w wireFile
		if err := json.Unmarshal(raw, &w); err != nil {
			return fmt.Errorf("file %q: %w", key, err)
		}
		if w.Type == "" {
			w.Type = TypeForPath(key)
		}
		decoded.Put(ProjectFile{Path: key, Content: w.Content, Type: w.Type})
		return nil
	})
	if err != nil {
		return err
	}
	*f = *decoded
	return nil
}

// DecodeObject walks a JSON object and calls fn for each member in document
// order. A JSON null is treated as an empty object.
func DecodeObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
