package xmldoc

import "github.com/beevik/etree"

// FindChild returns the first child element of parent named tag whose attr
// attribute equals value.
func FindChild(parent *etree.Element, tag, attr, value string) *etree.Element {
	for _, child := range parent.SelectElements(tag) {
		if child.SelectAttrValue(attr, "") == value {
			return child
		}
	}
	return nil
}

// FindOrCreateChild returns the child located by FindChild, appending a new
// one as the last child of parent when there is none. created reports
// whether the element is new.
func FindOrCreateChild(parent *etree.Element, tag, attr, value string) (elem *etree.Element, created bool) {
	if elem := FindChild(parent, tag, attr, value); elem != nil {
		return elem, false
	}
	elem = parent.CreateElement(tag)
	elem.CreateAttr(attr, value)
	return elem, true
}

// ReplaceChild removes every child element named tag and puts one empty
// element in place of the first removed (or at the end when there was none).
func ReplaceChild(parent *etree.Element, tag string) *etree.Element {
	existing := parent.SelectElements(tag)
	if len(existing) == 0 {
		return parent.CreateElement(tag)
	}
	index := existing[0].Index()
	for _, child := range existing {
		parent.RemoveChild(child)
	}
	elem := etree.NewElement(tag)
	parent.InsertChildAt(index, elem)
	return elem
}

// ClearChildren removes every child token (elements, text, comments) of e.
// Attributes are kept.
func ClearChildren(e *etree.Element) {
	for len(e.Child) > 0 {
		e.RemoveChildAt(len(e.Child) - 1)
	}
}
