package project

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyExtensionWins(t *testing.T) {
	cases := []struct {
		path     string
		declared string
		want     Kind
	}{
		{"index.html", "css", KindHTML},
		{"src/App.tsx", "js", KindTSX},
		{"src/App.jsx", "", KindJSX},
		{"style.CSS", "", KindCSS},
		{"Makefile", "javascript", KindJS},
		{"README", "md", KindMarkdown},
		{"data.bin", "", KindOther},
		{"noext", "weird", KindOther},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.path, tc.declared), tc.path)
	}
	assert.True(t, KindTSX.IsComponent())
	assert.False(t, KindJS.IsComponent())
	assert.True(t, KindHTML.IsMarkup())
}

func TestCleanPath(t *testing.T) {
	assert.Equal(t, "src/App.tsx", CleanPath("/src/./App.tsx"))
	assert.Equal(t, "a/b.css", CleanPath(`a\b.css`))
	assert.Equal(t, "", CleanPath("../etc/passwd"))
	assert.Equal(t, "", CleanPath("a/../../b"))
	assert.Equal(t, "", CleanPath("   "))
}

func TestFilesPreserveInsertionOrder(t *testing.T) {
	f := NewFiles(
		ProjectFile{Path: "b.css", Content: "b"},
		ProjectFile{Path: "a.css", Content: "a"},
	)
	f.Put(ProjectFile{Path: "b.css", Content: "b2"})

	assert.Equal(t, []string{"b.css", "a.css"}, f.Paths())
	assert.Equal(t, []string{"a.css", "b.css"}, f.SortedPaths())
	got, ok := f.Get("b.css")
	require.True(t, ok)
	assert.Equal(t, "b2", got.Content)

	assert.True(t, f.Delete("b.css"))
	assert.False(t, f.Delete("b.css"))
	assert.Equal(t, []string{"a.css"}, f.Paths())
}

func TestFilesJSONRoundTripKeepsOrder(t *testing.T) {
	payload := `{"z.html":{"content":"<p>z</p>","type":"html"},"a.css":{"content":"p{}","type":"css"},"m.js":{"content":"1"}}`

	var f Files
	require.NoError(t, json.Unmarshal([]byte(payload), &f))
	assert.Equal(t, []string{"z.html", "a.css", "m.js"}, f.Paths())

	js, _ := f.Get("m.js")
	assert.Equal(t, "js", js.Type, "missing type is inferred")

	out, err := json.Marshal(&f)
	require.NoError(t, err)

	var again Files
	require.NoError(t, json.Unmarshal(out, &again))
	assert.Equal(t, f.Paths(), again.Paths())
	f.Each(func(pf ProjectFile) {
		other, ok := again.Get(pf.Path)
		require.True(t, ok)
		assert.Equal(t, pf, other)
	})
}

func TestFilesUnmarshalRejectsNonObject(t *testing.T) {
	var f Files
	require.Error(t, json.Unmarshal([]byte(`["a"]`), &f))
	require.NoError(t, json.Unmarshal([]byte(`null`), &f))
	assert.Equal(t, 0, f.Len())
}

func TestFileStoreSetKeepsDeclaredType(t *testing.T) {
	s := NewFileStore()
	s.ReplaceAll(NewFiles(ProjectFile{Path: "main", Content: "x", Type: "js"}))

	updated, err := s.Set("main", "y")
	require.NoError(t, err)
	assert.Equal(t, "js", updated.Type)

	created, err := s.Set("pages/about.html", "<p/>")
	require.NoError(t, err)
	assert.Equal(t, "html", created.Type)

	_, err = s.Set("../escape.js", "")
	require.ErrorIs(t, err, ErrInvalidPath)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"main", "pages/about.html"}, s.SortedPaths())
}

func TestFileStoreSnapshotIsIsolated(t *testing.T) {
	s := NewFileStore()
	_, err := s.Set("index.html", "one")
	require.NoError(t, err)

	snap := s.Snapshot()
	_, err = s.Set("index.html", "two")
	require.NoError(t, err)

	got, _ := snap.Get("index.html")
	assert.Equal(t, "one", got.Content)
}

func TestNewIDFormat(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	id := newIDAt(now)
	parts := strings.Split(id, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "project", parts[0])
	assert.Equal(t, "1700000000123", parts[1])
	assert.Len(t, parts[2], 9)
	assert.True(t, ValidID(id))
	assert.NotEqual(t, NewID(), NewID())
}

func TestValidID(t *testing.T) {
	assert.False(t, ValidID(""))
	assert.False(t, ValidID(".."))
	assert.False(t, ValidID("a/b"))
	assert.True(t, ValidID("my-project_1"))
}

func TestBuildTree(t *testing.T) {
	tree := BuildTree([]string{"src/components/Nav.jsx", "index.html", "src/App.jsx"})
	require.Len(t, tree, 2)

	assert.Equal(t, "index.html", tree[0].Name)
	assert.Equal(t, "file", tree[0].Type)
	assert.Equal(t, "html", tree[0].Extension)

	src := tree[1]
	assert.Equal(t, "folder", src.Type)
	require.Len(t, src.Children, 2)
	assert.Equal(t, "src/App.jsx", src.Children[0].FullPath)
	assert.Equal(t, "components", src.Children[1].Name)
	assert.Equal(t, "src/components/Nav.jsx", src.Children[1].Children[0].FullPath)
}
