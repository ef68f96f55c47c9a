package pagexml

import (
	"bytes"
	"io"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/horae/core/errors"
)

// Document is a parsed XML document.
type Document struct {
	root *xmlquery.Node
}

// Node is an element of a Document.
type Node struct {
	node *xmlquery.Node
}

// Parse parses XML data. xmlquery decodes with encoding/xml, which never
// fetches external entities.
func Parse(r io.Reader) (*Document, error) {
	root, err := xmlquery.Parse(r)
	if err != nil {
		return nil, &errors.ParseError{Format: "XML", Message: err.Error(), Err: err}
	}
	return &Document{root: root}, nil
}

// ParseBytes parses an in-memory XML document.
func ParseBytes(data []byte) (*Document, error) {
	return Parse(bytes.NewReader(data))
}

// Root returns the root element of the document.
func (d *Document) Root() *Node {
	if d == nil || d.root == nil {
		return nil
	}
	for child := d.root.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return &Node{node: child}
		}
	}
	return nil
}

func compile(expr string) (*xpath.Expr, error) {
	e, err := xpath.Compile(expr)
	if err != nil {
		return nil, errors.NewValidation("xpath", err.Error())
	}
	return e, nil
}

// XPath evaluates expr from the document root.
func (d *Document) XPath(expr string) ([]*Node, error) {
	return (&Node{node: d.root}).XPath(expr)
}

// XPathFirst returns the first node matching expr, or nil.
func (d *Document) XPathFirst(expr string) (*Node, error) {
	return (&Node{node: d.root}).XPathFirst(expr)
}

// XPath evaluates expr relative to n.
func (n *Node) XPath(expr string) ([]*Node, error) {
	e, err := compile(expr)
	if err != nil {
		return nil, err
	}
	if n == nil || n.node == nil {
		return nil, nil
	}
	found := xmlquery.QuerySelectorAll(n.node, e)
	out := make([]*Node, len(found))
	for i, f := range found {
		out[i] = &Node{node: f}
	}
	return out, nil
}

// XPathFirst returns the first node matching expr relative to n, or nil.
func (n *Node) XPathFirst(expr string) (*Node, error) {
	e, err := compile(expr)
	if err != nil {
		return nil, err
	}
	if n == nil || n.node == nil {
		return nil, nil
	}
	f := xmlquery.QuerySelector(n.node, e)
	if f == nil {
		return nil, nil
	}
	return &Node{node: f}, nil
}

// Name returns the local element name.
func (n *Node) Name() string {
	if n == nil || n.node == nil {
		return ""
	}
	return n.node.Data
}

// Text returns the text content of the node and its descendants.
func (n *Node) Text() string {
	if n == nil || n.node == nil {
		return ""
	}
	return n.node.InnerText()
}

// Attr returns the value of an attribute, or "".
func (n *Node) Attr(name string) string {
	if n == nil || n.node == nil {
		return ""
	}
	return n.node.SelectAttr(name)
}
