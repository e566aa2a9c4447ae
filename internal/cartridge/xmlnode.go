package cartridge

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// Namespace candidate lists, in lookup priority order. Producing systems
// have shipped the same element names under several packaging namespace
// generations, so every structural lookup tries these in sequence and then
// falls back to elements carrying no namespace at all.
var (
	packagingNamespaces = []string{
		"http://www.imsglobal.org/xsd/imsccv1p3/imscp_v1p1",
		"http://www.imsglobal.org/xsd/imsccv1p2/imscp_v1p1",
		"http://www.imsglobal.org/xsd/imscp_v1p1",
	}

	qtiNamespaces = []string{
		"http://www.imsglobal.org/xsd/ims_qtiasiv1p2",
	}

	canvasNamespaces = []string{
		"http://canvas.instructure.com/xsd/cccv1p0",
	}

	rubricNamespaces = []string{
		"http://canvas.instructure.com/xsd/rubric",
		"http://canvas.instructure.com/xsd/cccv1p0",
	}

	weblinkNamespaces = []string{
		"http://www.imsglobal.org/xsd/imsccv1p3/imswl_v1p3",
		"http://www.imsglobal.org/xsd/imsccv1p2/imswl_v1p2",
		"http://www.imsglobal.org/xsd/imsccv1p1/imswl_v1p1",
	}
)

// xmlNode is a generic XML element retaining its resolved namespace,
// attributes, character data, and children in document order. encoding/xml
// never resolves external entities, so feeding it untrusted documents cannot
// trigger entity expansion or fetches.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []xmlNode  `xml:",any"`
	Text     string     `xml:",chardata"`
}

func parseXMLDocument(data []byte) (*xmlNode, error) {
	var root xmlNode
	decoder := xml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&root); err != nil {
		return nil, err
	}
	return &root, nil
}

// attr returns the value of the attribute with the given local name,
// ignoring any attribute namespace.
func (n *xmlNode) attr(local string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func matchesAny(name xml.Name, namespaces []string, local string) bool {
	if name.Local != local {
		return false
	}
	if name.Space == "" {
		return true
	}
	for _, ns := range namespaces {
		if name.Space == ns {
			return true
		}
	}
	return false
}

// child returns the first direct child matching local under one of the
// candidate namespaces, trying each namespace in priority order before
// falling back to children without a namespace.
func (n *xmlNode) child(namespaces []string, local string) *xmlNode {
	for _, ns := range namespaces {
		for i := range n.Children {
			c := &n.Children[i]
			if c.XMLName.Space == ns && c.XMLName.Local == local {
				return c
			}
		}
	}
	for i := range n.Children {
		c := &n.Children[i]
		if c.XMLName.Space == "" && c.XMLName.Local == local {
			return c
		}
	}
	return nil
}

// children returns every direct child whose name matches local under any
// candidate namespace or no namespace, in document order.
func (n *xmlNode) children(namespaces []string, local string) []*xmlNode {
	var out []*xmlNode
	for i := range n.Children {
		c := &n.Children[i]
		if matchesAny(c.XMLName, namespaces, local) {
			out = append(out, c)
		}
	}
	return out
}

// descendant returns the first descendant matching local in depth-first
// document order, applying the same namespace tolerance as child.
func (n *xmlNode) descendant(namespaces []string, local string) *xmlNode {
	for i := range n.Children {
		c := &n.Children[i]
		if matchesAny(c.XMLName, namespaces, local) {
			return c
		}
		if found := c.descendant(namespaces, local); found != nil {
			return found
		}
	}
	return nil
}

// descendants returns every matching descendant in depth-first document
// order.
func (n *xmlNode) descendants(namespaces []string, local string) []*xmlNode {
	var out []*xmlNode
	for i := range n.Children {
		c := &n.Children[i]
		if matchesAny(c.XMLName, namespaces, local) {
			out = append(out, c)
		}
		out = append(out, c.descendants(namespaces, local)...)
	}
	return out
}

// text returns the node's trimmed character data, or def when the node is
// nil or empty.
func text(n *xmlNode, def string) string {
	if n == nil {
		return def
	}
	if trimmed := strings.TrimSpace(n.Text); trimmed != "" {
		return trimmed
	}
	return def
}
