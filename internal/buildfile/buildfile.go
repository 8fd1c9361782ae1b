// Package buildfile edits the per-project build-script document
// (build.xml) the CI server runs on every build.
package buildfile

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/kazz187/ccsetup/internal/xmldoc"
	"github.com/kazz187/ccsetup/pkg/cerr"
)

const (
	RootTag   = "project"
	targetTag = "target"
	execTag   = "exec"
	argTag    = "arg"
)

// Document is a typed view over build.xml.
type Document struct {
	*xmldoc.Document
}

// Open loads build.xml at path, or starts an empty
// <project default="build" basedir="."/> when the file does not exist yet.
func Open(path string) (*Document, error) {
	doc, err := xmldoc.Open(path, RootTag)
	if err != nil {
		return nil, err
	}
	root := doc.Root()
	if len(root.Attr) == 0 && len(root.ChildElements()) == 0 {
		root.CreateAttr("default", "build")
		root.CreateAttr("basedir", ".")
	}
	return &Document{Document: doc}, nil
}

// CreateBuildTarget returns the target named name with all of its previous
// tasks removed. A missing target is appended to the root. Attributes of an
// existing target (depends, description) are kept.
func (d *Document) CreateBuildTarget(name string) *Target {
	elem, created := xmldoc.FindOrCreateChild(d.Root(), targetTag, "name", name)
	if !created {
		xmldoc.ClearChildren(elem)
	}
	return &Target{elem: elem}
}

// Target returns the target named name, or nil.
func (d *Document) Target(name string) *Target {
	elem := xmldoc.FindChild(d.Root(), targetTag, "name", name)
	if elem == nil {
		return nil
	}
	return &Target{elem: elem}
}

// Targets returns the names of all targets in document order.
func (d *Document) Targets() []string {
	var names []string
	for _, t := range d.Root().SelectElements(targetTag) {
		names = append(names, t.SelectAttrValue("name", ""))
	}
	return names
}

// Target is one <target> element. Its single <exec> task is created on the
// first setter call.
type Target struct {
	elem *etree.Element
}

func (t *Target) Name() string {
	return t.elem.SelectAttrValue("name", "")
}

// Element exposes the backing node.
func (t *Target) Element() *etree.Element {
	return t.elem
}

func (t *Target) exec() *etree.Element {
	if e := t.elem.SelectElement(execTag); e != nil {
		return e
	}
	return t.elem.CreateElement(execTag)
}

func (t *Target) SetExecutable(executable string) error {
	if executable == "" {
		return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("executable of target %q must not be empty", t.Name()), nil)
	}
	t.exec().CreateAttr("executable", executable)
	return nil
}

// SetDir sets the directory the task runs in.
func (t *Target) SetDir(dir string) {
	t.exec().CreateAttr("dir", dir)
}

func (t *Target) SetFailOnError(fail bool) {
	t.exec().CreateAttr("failonerror", strconv.FormatBool(fail))
}

// SetArgLine replaces the task's arguments with one <arg line="..."/>.
// An empty line removes the arguments.
func (t *Target) SetArgLine(line string) {
	exec := t.exec()
	for _, arg := range exec.SelectElements(argTag) {
		exec.RemoveChild(arg)
	}
	if line == "" {
		return
	}
	exec.CreateElement(argTag).CreateAttr("line", line)
}

// Executable returns the executable of the target's task.
func (t *Target) Executable() string {
	return t.attr("executable")
}

// ArgLine returns the line of the task's first <arg>.
func (t *Target) ArgLine() string {
	exec := t.elem.SelectElement(execTag)
	if exec == nil {
		return ""
	}
	arg := exec.SelectElement(argTag)
	if arg == nil {
		return ""
	}
	return arg.SelectAttrValue("line", "")
}

// FailOnError reports the task's failure policy; a missing or unparsable
// attribute reads as false, which is what the runner assumes.
func (t *Target) FailOnError() bool {
	fail, _ := strconv.ParseBool(t.attr("failonerror"))
	return fail
}

func (t *Target) Dir() string {
	return t.attr("dir")
}

func (t *Target) attr(key string) string {
	exec := t.elem.SelectElement(execTag)
	if exec == nil {
		return ""
	}
	return exec.SelectAttrValue(key, "")
}
