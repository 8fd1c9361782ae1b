package xmldoc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/ccsetup/pkg/cerr"
)

func TestOpen_MissingFileCreatesRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.xml")

	doc, err := Open(path, "cruisecontrol")
	require.NoError(t, err)
	require.NotNil(t, doc.Root())
	assert.Equal(t, "cruisecontrol", doc.Root().Tag)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "Open must not create the file")
}

func TestOpen_EmptyFileCreatesRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.xml")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))

	doc, err := Open(path, "project")
	require.NoError(t, err)
	assert.Equal(t, "project", doc.Root().Tag)
}

func TestOpen_Malformed(t *testing.T) {
	tests := map[string]string{
		"bad tag":   "<cruisecontrol><<project/></cruisecontrol>",
		"not xml":   "this is not xml",
		"no root":   "<?xml version=\"1.0\"?><!-- only a comment -->",
		"bad attrs": "<cruisecontrol name=a/>",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.xml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			_, err := Open(path, "cruisecontrol")
			require.Error(t, err)
			assert.True(t, cerr.IsCode(err, cerr.MalformedDocument), "got %v", err)
		})
	}
}

func TestStore_PrettyPrintsAndPreserves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.xml")
	original := `<cruisecontrol><!-- managed by hand --><property name="x" value="1"/><project name="other" custom="keep"><log dir="logs"/></project></cruisecontrol>`
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	doc, err := Open(path, "cruisecontrol")
	require.NoError(t, err)
	doc.Root().CreateElement("project").CreateAttr("name", "demo")
	require.NoError(t, doc.Store())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`), out)
	assert.Contains(t, out, "\n  <project name=\"other\" custom=\"keep\">\n    <log dir=\"logs\"/>\n  </project>")
	assert.Contains(t, out, "<!-- managed by hand -->")
	assert.Contains(t, out, "\n  <project name=\"demo\"/>")

	reloaded, err := Open(path, "cruisecontrol")
	require.NoError(t, err)
	assert.Len(t, reloaded.Root().SelectElements("project"), 2)
	assert.Len(t, reloaded.Root().SelectElements("property"), 1)
}

func TestDiff(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.xml")

	doc, err := Open(path, "project")
	require.NoError(t, err)
	require.NoError(t, doc.Store())

	diff, err := doc.Diff()
	require.NoError(t, err)
	assert.Empty(t, diff, "stored document has no pending changes")

	doc.Root().CreateElement("target").CreateAttr("name", "checkout")
	diff, err = doc.Diff()
	require.NoError(t, err)
	assert.Contains(t, diff, "--- "+path)
	assert.Contains(t, diff, "+  <target name=\"checkout\"/>")
	assert.Contains(t, diff, "-<project/>")
}

func TestSerialize_KeepsExistingDeclaration(t *testing.T) {
	doc, err := Parse([]byte(`<?xml version="1.0" encoding="UTF-8"?><a><b/></a>`))
	require.NoError(t, err)

	data, err := Serialize(doc)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "<?xml"))
}

func TestOpen_DecodesDeclaredEncoding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.xml")
	latin1 := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<cruisecontrol>\n  <project name=\"caf\xe9\"/>\n</cruisecontrol>\n"
	require.NoError(t, os.WriteFile(path, []byte(latin1), 0o644))

	doc, err := Open(path, "cruisecontrol")
	require.NoError(t, err)
	assert.Equal(t, "café", doc.Root().SelectElement("project").SelectAttrValue("name", ""))

	require.NoError(t, doc.Store())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, utf8.Valid(data))
	assert.Contains(t, string(data), `encoding="UTF-8"`)
	assert.NotContains(t, string(data), "ISO-8859-1")
	assert.Contains(t, string(data), `<project name="café"/>`)
}

func TestSerialize_RewritesDeclaredEncoding(t *testing.T) {
	doc, err := Parse([]byte(`<?xml version="1.0" encoding='iso-8859-1' standalone="yes"?><cruisecontrol/>`))
	require.NoError(t, err)
	doc.Root().CreateElement("project").CreateAttr("name", "café")

	data, err := Serialize(doc)
	require.NoError(t, err)
	assert.True(t, utf8.Valid(data))
	assert.True(t, strings.HasPrefix(string(data), `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`), string(data))
	assert.Contains(t, string(data), `<project name="café"/>`)
}

func TestReplaceChild(t *testing.T) {
	doc, err := Parse([]byte(`<project><first/><bootstrapper type="cvs"/><middle/><bootstrapper type="git"/></project>`))
	require.NoError(t, err)
	root := doc.Root()

	elem := ReplaceChild(root, "bootstrapper")
	elem.CreateAttr("type", "svn")

	children := root.ChildElements()
	require.Len(t, children, 3)
	assert.Equal(t, "first", children[0].Tag)
	assert.Equal(t, "bootstrapper", children[1].Tag)
	assert.Equal(t, "svn", children[1].SelectAttrValue("type", ""))
	assert.Equal(t, "middle", children[2].Tag)

	appended := ReplaceChild(root, "trigger")
	assert.Same(t, appended, root.ChildElements()[3])
}

func TestFindOrCreateChild(t *testing.T) {
	root := etree.NewElement("cruisecontrol")

	a, created := FindOrCreateChild(root, "project", "name", "a")
	assert.True(t, created)
	again, created := FindOrCreateChild(root, "project", "name", "a")
	assert.False(t, created)
	assert.Same(t, a, again)

	b, _ := FindOrCreateChild(root, "project", "name", "b")
	assert.NotSame(t, a, b)
	assert.Len(t, root.SelectElements("project"), 2)
}

func TestClearChildren(t *testing.T) {
	doc, err := Parse([]byte(`<target name="checkout" depends="init"><exec/>text<!-- c --></target>`))
	require.NoError(t, err)

	ClearChildren(doc.Root())
	assert.Empty(t, doc.Root().Child)
	assert.Equal(t, "init", doc.Root().SelectAttrValue("depends", ""))
}
