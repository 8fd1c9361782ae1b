package ccconfig

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/kazz187/ccsetup/pkg/cerr"
)

type workingCopyNode struct {
	elem *etree.Element
}

func (n workingCopyNode) set(attr, value string) error {
	if value == "" {
		return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("%s of <%s> must not be empty", attr, n.elem.Tag), nil)
	}
	n.elem.CreateAttr(attr, value)
	return nil
}

// SetLocalWorkingCopy sets the path of the working copy the node watches.
func (n workingCopyNode) SetLocalWorkingCopy(path string) error {
	return n.set(localWorkingCopyAttr, path)
}

// SetType sets the backend the node uses.
func (n workingCopyNode) SetType(backend string) error {
	return n.set(typeAttr, backend)
}

// Element exposes the backing node.
func (n workingCopyNode) Element() *etree.Element {
	return n.elem
}

// BootStrapper prepares the working copy before each build.
type BootStrapper struct {
	workingCopyNode
}

// BuildTrigger starts a build when the working copy changes.
type BuildTrigger struct {
	workingCopyNode
}
