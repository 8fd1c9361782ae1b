// Package xmldoc loads, edits and stores the XML documents owned by the CI
// server. Documents are edited in place: nodes this package does not touch
// (other projects, comments, unknown attributes) survive a load/store cycle.
package xmldoc

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"

	"github.com/beevik/etree"
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/net/html/charset"

	"github.com/kazz187/ccsetup/pkg/cerr"
	"github.com/kazz187/ccsetup/pkg/storage"
)

const (
	// Indent is the number of spaces per nesting level in stored documents.
	Indent = 2

	declaration = `version="1.0" encoding="UTF-8"`
)

var encodingAttr = regexp.MustCompile(`encoding\s*=\s*("[^"]*"|'[^']*')`)

// Document is an XML document bound to the file it was read from.
type Document struct {
	path     string
	doc      *etree.Document
	original []byte
}

// Open parses the document at path. A missing or empty file yields a new
// document holding only an empty rootTag element; the file is not created
// until Store is called.
func Open(path, rootTag string) (*Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Document{path: path, doc: NewTree(rootTag)}, nil
	}
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, fmt.Sprintf("failed to read %s", path), err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &Document{path: path, doc: NewTree(rootTag), original: data}, nil
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, cerr.NewError(cerr.MalformedDocument, fmt.Sprintf("cannot parse %s", path), err)
	}
	return &Document{path: path, doc: doc, original: data}, nil
}

// NewTree returns a document with an XML declaration and an empty root.
func NewTree(rootTag string) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", declaration)
	doc.CreateElement(rootTag)
	return doc
}

// Parse reads a single-rooted XML document, decoding it from the encoding
// its declaration names.
func Parse(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.PreserveCData = true
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, errors.New("document has no root element")
	}
	return doc, nil
}

// Path returns the file the document is stored to.
func (d *Document) Path() string {
	return d.path
}

// Root returns the document element.
func (d *Document) Root() *etree.Element {
	return d.doc.Root()
}

// Bytes serializes the document the way Store writes it.
func (d *Document) Bytes() ([]byte, error) {
	return Serialize(d.doc)
}

// Store overwrites the file with the pretty-printed document.
func (d *Document) Store() error {
	data, err := d.Bytes()
	if err != nil {
		return cerr.NewError(cerr.Internal, fmt.Sprintf("failed to serialize %s", d.path), err)
	}
	if err := storage.WriteFileAtomic(d.path, data); err != nil {
		return cerr.NewError(cerr.Internal, fmt.Sprintf("failed to store %s", d.path), err)
	}
	d.original = data
	return nil
}

// Diff returns a unified diff from the content read at Open (or written by
// the last Store) to the content Store would write now. It is empty when
// nothing changed.
func (d *Document) Diff() (string, error) {
	updated, err := d.Bytes()
	if err != nil {
		return "", err
	}
	if bytes.Equal(d.original, updated) {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(d.original)),
		B:        difflib.SplitLines(string(updated)),
		FromFile: d.path,
		ToFile:   d.path + " (updated)",
		Context:  3,
	})
}

// Serialize indents doc, makes sure it starts with an XML declaration and
// returns its bytes. Output is always UTF-8 and the declaration says so.
func Serialize(doc *etree.Document) ([]byte, error) {
	ensureDeclaration(doc)
	doc.Indent(Indent)
	return doc.WriteToBytes()
}

func ensureDeclaration(doc *etree.Document) {
	for _, tok := range doc.Child {
		if pi, ok := tok.(*etree.ProcInst); ok && pi.Target == "xml" {
			if encodingAttr.MatchString(pi.Inst) {
				pi.Inst = encodingAttr.ReplaceAllString(pi.Inst, `encoding="UTF-8"`)
			}
			return
		}
	}
	pi := doc.CreateProcInst("xml", declaration)
	doc.RemoveChildAt(pi.Index())
	doc.InsertChildAt(0, pi)
}
