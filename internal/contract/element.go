// Package contract holds the structured-element conventions shared by every
// serializable value in the deployment ledger: tag checks, typed attribute
// access, ordered child traversal, and the error kinds decoders return.
package contract

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
)

// Encoder is implemented by every value that has a fixed element form.
type Encoder interface {
	ToXML() *etree.Element
}

// Decoder turns an element back into a value of type T.
type Decoder[T any] func(el *etree.Element) (T, error)

// Attribute encodings for booleans.
const (
	Yes = "Yes"
	No  = "No"
)

// CheckTag verifies that el carries the expected tag.
func CheckTag(el *etree.Element, expected string) error {
	if el == nil {
		return &MissingElementError{Name: expected}
	}
	if el.Tag != expected {
		return &WrongElementTypeError{Expected: expected, Actual: el.Tag}
	}
	return nil
}

// Attr returns a required attribute value. An empty value is accepted; only
// absence is an error.
func Attr(el *etree.Element, name string) (string, error) {
	a := el.SelectAttr(name)
	if a == nil {
		return "", &MissingElementError{Name: name}
	}
	return a.Value, nil
}

// OptionalAttr returns the attribute value or def when absent.
func OptionalAttr(el *etree.Element, name, def string) string {
	return el.SelectAttrValue(name, def)
}

// IntAttr parses a required integer attribute.
func IntAttr(el *etree.Element, name string) (int, error) {
	v, err := Attr(el, name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &InvalidAttributeError{Name: name, Value: v}
	}
	return n, nil
}

// BoolAttr parses a required "true"/"false" attribute.
func BoolAttr(el *etree.Element, name string) (bool, error) {
	v, err := Attr(el, name)
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &InvalidAttributeError{Name: name, Value: v}
	}
	return b, nil
}

// YesNoAttr parses a required "Yes"/"No" attribute.
func YesNoAttr(el *etree.Element, name string) (bool, error) {
	v, err := Attr(el, name)
	if err != nil {
		return false, err
	}
	switch v {
	case Yes:
		return true, nil
	case No:
		return false, nil
	}
	return false, &InvalidAttributeError{Name: name, Value: v}
}

// SetBool writes a "true"/"false" attribute.
func SetBool(el *etree.Element, name string, b bool) {
	el.CreateAttr(name, strconv.FormatBool(b))
}

// SetInt writes an integer attribute.
func SetInt(el *etree.Element, name string, n int) {
	el.CreateAttr(name, strconv.Itoa(n))
}

// SetYesNo writes a "Yes"/"No" attribute.
func SetYesNo(el *etree.Element, name string, b bool) {
	if b {
		el.CreateAttr(name, Yes)
		return
	}
	el.CreateAttr(name, No)
}

// TextElement builds <tag>text</tag>.
func TextElement(tag, text string) *etree.Element {
	el := etree.NewElement(tag)
	el.SetText(text)
	return el
}

// Children walks the child elements of a parent in document order so that
// decoders can consume them in their fixed sequence.
type Children struct {
	parent string
	elems  []*etree.Element
	pos    int
}

// ChildrenOf returns a cursor over el's child elements.
func ChildrenOf(el *etree.Element) *Children {
	return &Children{parent: el.Tag, elems: el.ChildElements()}
}

// Next consumes the next child, which must carry tag.
func (c *Children) Next(tag string) (*etree.Element, error) {
	if c.pos >= len(c.elems) || c.elems[c.pos].Tag != tag {
		return nil, &MissingElementError{Name: tag}
	}
	el := c.elems[c.pos]
	c.pos++
	return el, nil
}

// Optional consumes the next child only if it carries tag.
func (c *Children) Optional(tag string) *etree.Element {
	if c.pos >= len(c.elems) || c.elems[c.pos].Tag != tag {
		return nil
	}
	el := c.elems[c.pos]
	c.pos++
	return el
}

// While consumes consecutive children carrying tag.
func (c *Children) While(tag string) []*etree.Element {
	var out []*etree.Element
	for c.pos < len(c.elems) && c.elems[c.pos].Tag == tag {
		out = append(out, c.elems[c.pos])
		c.pos++
	}
	return out
}

// End reports an unexpected child when any remain unconsumed, so that a
// misspelled optional child is not silently dropped.
func (c *Children) End() error {
	if c.pos < len(c.elems) {
		return &WrongElementTypeError{Expected: "end of <" + c.parent + ">", Actual: c.elems[c.pos].Tag}
	}
	return nil
}

// Rest consumes all remaining children.
func (c *Children) Rest() []*etree.Element {
	out := c.elems[c.pos:]
	c.pos = len(c.elems)
	return out
}

// DecodeAll decodes every element with dec, stopping at the first error.
func DecodeAll[T any](elems []*etree.Element, dec Decoder[T]) ([]T, error) {
	out := make([]T, 0, len(elems))
	for _, el := range elems {
		v, err := dec(el)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// NewDocument returns an empty document whose writer escapes carriage
// returns, and tabs and newlines inside attributes, so that they survive a
// parse.
func NewDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.WriteSettings.CanonicalText = true
	doc.WriteSettings.CanonicalAttrVal = true
	return doc
}

// Marshal renders e as a standalone XML document.
func Marshal(e Encoder) ([]byte, error) {
	doc := NewDocument()
	doc.SetRoot(e.ToXML())
	b, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("writing element: %w", err)
	}
	return b, nil
}

// MarshalIndent renders e with two-space indentation. Whitespace-only text
// content is not preserved, so use Marshal for anything that will be decoded.
func MarshalIndent(e Encoder) (string, error) {
	doc := NewDocument()
	doc.SetRoot(e.ToXML())
	doc.Indent(2)
	s, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("writing element: %w", err)
	}
	return s, nil
}

// Parse reads an XML document and returns its root element.
func Parse(data []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, &MissingElementError{Name: "root element"}
	}
	return root, nil
}

// Unmarshal parses data and decodes its root element with dec.
func Unmarshal[T any](data []byte, dec Decoder[T]) (T, error) {
	root, err := Parse(data)
	if err != nil {
		var zero T
		return zero, err
	}
	return dec(root)
}

// SameXML reports whether two opaque elements serialize identically.
func SameXML(a, b *etree.Element) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return canonical(a) == canonical(b)
}

func canonical(el *etree.Element) string {
	doc := NewDocument()
	doc.SetRoot(el.Copy())
	s, _ := doc.WriteToString()
	return s
}
