// Package ccconfig edits the CI server's project-definition document
// (config.xml).
package ccconfig

import (
	"github.com/beevik/etree"

	"github.com/kazz187/ccsetup/internal/xmldoc"
	"github.com/kazz187/ccsetup/pkg/cerr"
)

const (
	RootTag         = "cruisecontrol"
	projectTag      = "project"
	bootstrapperTag = "bootstrapper"
	triggerTag      = "trigger"

	nameAttr             = "name"
	typeAttr             = "type"
	localWorkingCopyAttr = "localWorkingCopy"
)

// Document is a typed view over config.xml.
type Document struct {
	*xmldoc.Document
}

// Open loads config.xml at path, or starts an empty <cruisecontrol/> when the
// file does not exist yet.
func Open(path string) (*Document, error) {
	doc, err := xmldoc.Open(path, RootTag)
	if err != nil {
		return nil, err
	}
	return &Document{Document: doc}, nil
}

// Project returns the project named name, appending a new empty one as the
// last child of the root when the document has none.
func (d *Document) Project(name string) *Project {
	elem, _ := xmldoc.FindOrCreateChild(d.Root(), projectTag, nameAttr, name)
	return &Project{elem: elem}
}

// Projects returns the names of all projects in document order.
func (d *Document) Projects() []string {
	var names []string
	for _, p := range d.Root().SelectElements(projectTag) {
		names = append(names, p.SelectAttrValue(nameAttr, ""))
	}
	return names
}

// HasProject reports whether a project named name exists. It never inserts.
func (d *Document) HasProject(name string) bool {
	return xmldoc.FindChild(d.Root(), projectTag, nameAttr, name) != nil
}

// Project is one <project> element.
type Project struct {
	elem *etree.Element
}

func (p *Project) Name() string {
	return p.elem.SelectAttrValue(nameAttr, "")
}

// Element exposes the backing node.
func (p *Project) Element() *etree.Element {
	return p.elem
}

// CreateBootStrapper replaces any bootstrapper of the project with a new,
// empty one.
func (p *Project) CreateBootStrapper() *BootStrapper {
	return &BootStrapper{workingCopyNode{xmldoc.ReplaceChild(p.elem, bootstrapperTag)}}
}

// CreateBuildTrigger replaces any trigger of the project with a new, empty
// one.
func (p *Project) CreateBuildTrigger() *BuildTrigger {
	return &BuildTrigger{workingCopyNode{xmldoc.ReplaceChild(p.elem, triggerTag)}}
}

// AttachWorkingCopy points both the bootstrapper and the trigger at the same
// working copy and backend. The two are always written together.
func (p *Project) AttachWorkingCopy(backend, workingCopy string) error {
	if backend == "" || workingCopy == "" {
		return cerr.NewError(cerr.InvalidArgument, "backend and working copy are required", nil)
	}
	strapper := p.CreateBootStrapper()
	if err := strapper.SetLocalWorkingCopy(workingCopy); err != nil {
		return err
	}
	if err := strapper.SetType(backend); err != nil {
		return err
	}
	trigger := p.CreateBuildTrigger()
	if err := trigger.SetLocalWorkingCopy(workingCopy); err != nil {
		return err
	}
	return trigger.SetType(backend)
}
