package logmerge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/ccsetup/internal/xmldoc"
	"github.com/kazz187/ccsetup/pkg/cerr"
	"github.com/kazz187/ccsetup/pkg/storage"
)

func writeFragment(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNew_InvalidDirectory(t *testing.T) {
	dir := t.TempDir()

	_, err := New(filepath.Join(dir, "missing"))
	assert.True(t, cerr.IsCode(err, cerr.InvalidDirectory))

	file := writeFragment(t, dir, "a.xml", "<a/>")
	_, err = New(file)
	assert.True(t, cerr.IsCode(err, cerr.InvalidDirectory))
}

func TestMergeFiles_TwoFragments(t *testing.T) {
	logDir := t.TempDir()
	writeFragment(t, logDir, "b.xml", `<?xml version="1.0"?><coverage generated="2"><project name="b"><file name="b.php"/></project></coverage>`)
	writeFragment(t, logDir, "a.xml", `<testsuites><testsuite name="a" tests="3" failures="0"><testcase name="x"/></testsuite></testsuites>`)
	writeFragment(t, logDir, "notes.txt", "not a fragment")
	output := filepath.Join(t.TempDir(), "merged.xml")

	m, err := New(logDir)
	require.NoError(t, err)
	merged, err := m.MergeFiles(output)
	require.NoError(t, err)

	root := merged.Root()
	assert.Equal(t, RootTag, root.Tag)
	children := root.ChildElements()
	require.Len(t, children, 2)

	assert.Equal(t, "testsuites", children[0].Tag)
	suite := children[0].SelectElement("testsuite")
	require.NotNil(t, suite)
	assert.Equal(t, "3", suite.SelectAttrValue("tests", ""))
	assert.NotNil(t, suite.SelectElement("testcase"))

	assert.Equal(t, "coverage", children[1].Tag)
	assert.Equal(t, "2", children[1].SelectAttrValue("generated", ""))
	assert.NotNil(t, children[1].FindElement("./project/file[@name='b.php']"))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	written, err := xmldoc.Parse(data)
	require.NoError(t, err)
	assert.Len(t, written.Root().ChildElements(), 2)
	assert.Contains(t, string(data), `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, string(data), "\n  <testsuites>")
}

func TestMergeFiles_DirectoryNameWithPatternCharacters(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "build[42]")
	require.NoError(t, os.Mkdir(logDir, 0o755))
	writeFragment(t, logDir, "b.xml", `<coverage/>`)
	writeFragment(t, logDir, "a.xml", `<testsuites/>`)

	m, err := New(logDir)
	require.NoError(t, err)
	merged, err := m.MergeFiles(filepath.Join(t.TempDir(), "merged.xml"))
	require.NoError(t, err)

	children := merged.Root().ChildElements()
	require.Len(t, children, 2)
	assert.Equal(t, "testsuites", children[0].Tag)
	assert.Equal(t, "coverage", children[1].Tag)
}

func TestMergeFiles_SourcesUntouched(t *testing.T) {
	logDir := t.TempDir()
	const content = `<testsuites><testsuite name="a"/></testsuites>`
	path := writeFragment(t, logDir, "a.xml", content)

	m, err := New(logDir)
	require.NoError(t, err)
	_, err = m.MergeFiles(filepath.Join(t.TempDir(), "merged.xml"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestMergeFiles_NoFragments(t *testing.T) {
	logDir := t.TempDir()
	writeFragment(t, logDir, "readme.md", "nothing here")
	require.NoError(t, os.Mkdir(filepath.Join(logDir, "dir.xml"), 0o755))
	output := filepath.Join(t.TempDir(), "merged.xml")

	m, err := New(logDir)
	require.NoError(t, err)
	merged, err := m.MergeFiles(output)
	require.NoError(t, err)
	assert.Empty(t, merged.Root().ChildElements())

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	written, err := xmldoc.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, RootTag, written.Root().Tag)
}

func TestMergeFiles_CorruptFragment(t *testing.T) {
	logDir := t.TempDir()
	writeFragment(t, logDir, "a.xml", `<testsuites/>`)
	corrupt := writeFragment(t, logDir, "b.xml", `<testsuites><<testsuite/></testsuites>`)
	output := filepath.Join(t.TempDir(), "merged.xml")

	m, err := New(logDir)
	require.NoError(t, err)
	_, err = m.MergeFiles(output)
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.CorruptLogFragment))

	var fragErr *FragmentError
	require.True(t, errors.As(err, &fragErr))
	assert.Equal(t, corrupt, fragErr.File)
	assert.Contains(t, err.Error(), "b.xml")

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "no output may be written")
}

func TestMergeFiles_CorruptKeepsPreviousOutput(t *testing.T) {
	logDir := t.TempDir()
	output := filepath.Join(t.TempDir(), "merged.xml")
	require.NoError(t, os.WriteFile(output, []byte("<phpundercontrol/>"), 0o644))
	writeFragment(t, logDir, "a.xml", "")

	m, err := New(logDir)
	require.NoError(t, err)
	_, err = m.MergeFiles(output)
	assert.True(t, cerr.IsCode(err, cerr.CorruptLogFragment))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "<phpundercontrol/>", string(data))
}

func TestMergeFiles_ExcludesOutputInLogDir(t *testing.T) {
	logDir := t.TempDir()
	writeFragment(t, logDir, "a.xml", `<testsuites/>`)
	output := filepath.Join(logDir, "merged.xml")

	m, err := New(logDir)
	require.NoError(t, err)
	_, err = m.MergeFiles(output)
	require.NoError(t, err)

	merged, err := m.MergeFiles(output)
	require.NoError(t, err)
	require.Len(t, merged.Root().ChildElements(), 1)
	assert.Equal(t, "testsuites", merged.Root().ChildElements()[0].Tag)
}

func TestPublish_LocalStorage(t *testing.T) {
	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	doc := xmldoc.NewTree(RootTag)
	doc.Root().CreateElement("testsuites")

	ctx := context.Background()
	published, err := Publish(ctx, st, "reports/demo.xml", doc)
	require.NoError(t, err)
	assert.True(t, published)

	data, err := st.Read(ctx, "reports/demo.xml")
	require.NoError(t, err)
	stored, err := xmldoc.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "testsuites", stored.Root().ChildElements()[0].Tag)

	published, err = Publish(ctx, st, "reports/demo.xml", doc)
	require.NoError(t, err)
	assert.False(t, published, "unchanged report is not uploaded again")

	doc.Root().CreateElement("coverage")
	published, err = Publish(ctx, st, "reports/demo.xml", doc)
	require.NoError(t, err)
	assert.True(t, published)

	_, err = Publish(ctx, st, "", doc)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
}

type failingStorage struct {
	storage.Storage
	existsErr error
	readErr   error
	writes    int
}

func (s *failingStorage) Exists(context.Context, string) (bool, error) {
	return s.existsErr == nil, s.existsErr
}

func (s *failingStorage) Read(context.Context, string) ([]byte, error) {
	return nil, s.readErr
}

func (s *failingStorage) Write(context.Context, string, []byte) error {
	s.writes++
	return nil
}

func TestPublish_StorageErrors(t *testing.T) {
	ctx := context.Background()
	doc := xmldoc.NewTree(RootTag)

	st := &failingStorage{existsErr: errors.New("access denied")}
	_, err := Publish(ctx, st, "demo.xml", doc)
	assert.True(t, cerr.IsCode(err, cerr.Internal))
	assert.Zero(t, st.writes)

	st = &failingStorage{readErr: errors.New("connection reset")}
	_, err = Publish(ctx, st, "demo.xml", doc)
	assert.True(t, cerr.IsCode(err, cerr.Internal))
	assert.Zero(t, st.writes)

	st = &failingStorage{readErr: storage.ErrNotFound}
	published, err := Publish(ctx, st, "demo.xml", doc)
	require.NoError(t, err)
	assert.True(t, published)
	assert.Equal(t, 1, st.writes)
}

func TestWatch_RemergesAfterFragmentChange(t *testing.T) {
	logDir := t.TempDir()
	writeFragment(t, logDir, "a.xml", `<testsuites/>`)
	output := filepath.Join(logDir, "merged.xml")

	m, err := New(logDir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	counts := make(chan int, 16)
	done := make(chan error, 1)
	go func() {
		done <- m.Watch(ctx, output, func(_ context.Context, doc *etree.Document, err error) {
			if err == nil {
				counts <- len(doc.Root().ChildElements())
			}
		}, WithDebounce(20*time.Millisecond))
	}()

	select {
	case n := <-counts:
		assert.Equal(t, 1, n)
	case <-time.After(5 * time.Second):
		t.Fatal("initial merge did not run")
	}

	writeFragment(t, logDir, "b.xml", `<coverage/>`)
	deadline := time.After(5 * time.Second)
	for {
		select {
		case n := <-counts:
			if n == 2 {
				cancel()
				require.NoError(t, <-done)
				return
			}
		case <-deadline:
			t.Fatal("fragment change did not trigger a merge")
		}
	}
}
