// Package logmerge combines the per-build XML result fragments of a log
// directory into one aggregate report document.
package logmerge

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/beevik/etree"

	"github.com/kazz187/ccsetup/internal/xmldoc"
	"github.com/kazz187/ccsetup/pkg/cerr"
	"github.com/kazz187/ccsetup/pkg/storage"
)

const (
	// RootTag is the synthetic root of the aggregate document.
	RootTag = "phpundercontrol"
	// Pattern selects fragment files inside the log directory.
	Pattern = "*.xml"
)

// FragmentError names the fragment that could not be parsed.
type FragmentError struct {
	File string
	Err  error
}

func (e *FragmentError) Error() string {
	return fmt.Sprintf("corrupt log fragment %s: %v", e.File, e.Err)
}

func (e *FragmentError) Unwrap() error {
	return e.Err
}

// Merger merges the fragments of one log directory.
type Merger struct {
	logDir string
}

// New fails with cerr.InvalidDirectory unless logDir is an existing
// directory.
func New(logDir string) (*Merger, error) {
	info, err := os.Stat(logDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, cerr.NewError(cerr.InvalidDirectory, fmt.Sprintf("invalid log directory %q", logDir), err)
		}
		return nil, cerr.NewError(cerr.InvalidDirectory, fmt.Sprintf("cannot stat log directory %q", logDir), err)
	}
	if !info.IsDir() {
		return nil, cerr.NewError(cerr.InvalidDirectory, fmt.Sprintf("invalid log directory %q: not a directory", logDir), nil)
	}
	return &Merger{logDir: logDir}, nil
}

// Fragments lists the fragment files in file name order. excluded (usually
// the merge output) is left out when it lives in the log directory.
func (m *Merger) Fragments(excluded string) ([]string, error) {
	entries, err := os.ReadDir(m.logDir)
	if err != nil {
		return nil, cerr.NewError(cerr.InvalidDirectory, fmt.Sprintf("cannot read log directory %q", m.logDir), err)
	}

	skip := ""
	if excluded != "" {
		if abs, err := filepath.Abs(excluded); err == nil {
			skip = abs
		}
	}
	var files []string
	for _, entry := range entries {
		if ok, _ := filepath.Match(Pattern, entry.Name()); !ok {
			continue
		}
		path := filepath.Join(m.logDir, entry.Name())
		if skip != "" {
			if abs, err := filepath.Abs(path); err == nil && abs == skip {
				continue
			}
		}
		// Stat follows symlinks; a link to a fragment is a fragment.
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, path)
	}
	slices.Sort(files)
	return files, nil
}

// Merge parses every fragment and returns the aggregate without writing it.
func (m *Merger) Merge(excluded string) (*etree.Document, error) {
	files, err := m.Fragments(excluded)
	if err != nil {
		return nil, err
	}
	merged := xmldoc.NewTree(RootTag)
	root := merged.Root()
	for _, file := range files {
		fragment, err := readFragment(file)
		if err != nil {
			return nil, cerr.NewError(cerr.CorruptLogFragment,
				fmt.Sprintf("cannot merge %s", filepath.Base(file)), &FragmentError{File: file, Err: err})
		}
		root.AddChild(fragment.Root().Copy())
	}
	return merged, nil
}

// MergeFiles merges every fragment under one <phpundercontrol> root and
// writes the result to outputPath. Nothing is written when a fragment is
// corrupt. The returned document is the one written.
func (m *Merger) MergeFiles(outputPath string) (*etree.Document, error) {
	merged, err := m.Merge(outputPath)
	if err != nil {
		return nil, err
	}
	data, err := xmldoc.Serialize(merged)
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "failed to serialize aggregate log", err)
	}
	if err := storage.WriteFileAtomic(outputPath, data); err != nil {
		return nil, cerr.NewError(cerr.Internal, fmt.Sprintf("failed to write %s", outputPath), err)
	}
	return merged, nil
}

func readFragment(file string) (*etree.Document, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return xmldoc.Parse(data)
}
