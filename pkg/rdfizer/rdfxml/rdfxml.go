// Package rdfxml implements a tolerant RDF/XML RDFizer covering the
// common "striped" syntax: rdf:RDF containing node elements (typically
// rdf:Description, optionally typed) whose child elements are
// properties, each either a literal (character data) or a resource
// reference (rdf:resource attribute). Collections, reification, and
// rdf:parseType="Collection"/"Literal" are not implemented; encountering
// them yields ParseError rather than a silently wrong graph.
package rdfxml

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/ripplecache/ripplecache/pkg/rdfizer"
	"github.com/ripplecache/ripplecache/pkg/statement"
)

const (
	rdfNS  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	typeNS = rdfNS + "type"
)

// RDFizer parses the RDF/XML subset described in the package doc.
type RDFizer struct{}

// New returns an RDF/XML RDFizer.
func New() *RDFizer { return &RDFizer{} }

// Rdfize decodes inputStream as RDF/XML and emits statements through
// handler.
func (p *RDFizer) Rdfize(ctx context.Context, inputStream io.Reader, handler statement.Handler, baseIri string) rdfizer.Status {
	dec := xml.NewDecoder(inputStream)

	sawAny := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}

		if err != nil {
			return rdfizer.ParseError
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if isRootElement(start) {
			continue
		}

		emitted, err := parseNodeElement(ctx, dec, start, baseIri, handler)
		if err != nil {
			return rdfizer.ParseError
		}

		if emitted {
			sawAny = true
		}
	}

	if !sawAny {
		return rdfizer.Failure
	}

	return rdfizer.Success
}

func isRootElement(start xml.StartElement) bool {
	return start.Name.Space == rdfNS && start.Name.Local == "RDF"
}

func attr(start xml.StartElement, space, local string) (string, bool) {
	for _, a := range start.Attr {
		if a.Name.Local == local && (space == "" || a.Name.Space == space) {
			return a.Value, true
		}
	}

	return "", false
}

// parseNodeElement handles one top-level node (a subject) and its
// property-element children, emitting one statement per property.
func parseNodeElement(
	ctx context.Context, dec *xml.Decoder, start xml.StartElement, baseIri string, handler statement.Handler,
) (bool, error) {
	subject := nodeSubject(start, baseIri)

	emitted := false

	if start.Name.Space != rdfNS || start.Name.Local != "Description" {
		if err := handler.Handle(ctx, statement.Statement{
			Subject: subject, Predicate: statement.IRI(typeNS), Object: statement.IRI(elementIRI(start)),
		}); err != nil {
			return false, err
		}

		emitted = true
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return false, fmt.Errorf("rdfxml: reading node element: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			ok, err := parsePropertyElement(ctx, dec, t, subject, baseIri, handler)
			if err != nil {
				return false, err
			}

			emitted = emitted || ok
		case xml.EndElement:
			return emitted, nil
		}
	}
}

func nodeSubject(start xml.StartElement, baseIri string) statement.Term {
	if about, ok := attr(start, rdfNS, "about"); ok {
		return statement.IRI(resolve(about, baseIri))
	}

	if nodeID, ok := attr(start, rdfNS, "nodeID"); ok {
		return statement.BlankNode(nodeID)
	}

	return statement.BlankNode(uuid.NewString())
}

func elementIRI(el xml.StartElement) string {
	if el.Name.Space == "" {
		return el.Name.Local
	}

	return el.Name.Space + el.Name.Local
}

// parsePropertyElement handles one property element: either a resource
// reference (rdf:resource attribute, object unread further) or a
// literal built from character data, recursing for a nested node
// element (the object is itself a node, rdf:about/blank).
func parsePropertyElement(
	ctx context.Context, dec *xml.Decoder, start xml.StartElement, subject statement.Term, baseIri string, handler statement.Handler,
) (bool, error) {
	predicate := statement.IRI(elementIRI(start))

	if resource, ok := attr(start, rdfNS, "resource"); ok {
		if err := skipToEnd(dec); err != nil {
			return false, err
		}

		return true, handler.Handle(ctx, statement.Statement{
			Subject: subject, Predicate: predicate, Object: statement.IRI(resolve(resource, baseIri)),
		})
	}

	if parseType, ok := attr(start, rdfNS, "parseType"); ok && parseType != "Resource" {
		return false, fmt.Errorf("rdfxml: unsupported rdf:parseType=%q", parseType)
	}

	var (
		text       strings.Builder
		childStart *xml.StartElement
	)

	for {
		tok, err := dec.Token()
		if err != nil {
			return false, fmt.Errorf("rdfxml: reading property element: %w", err)
		}

		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			cp := t
			childStart = &cp

			if _, err := parseNodeElement(ctx, dec, t, baseIri, handler); err != nil {
				return false, err
			}
		case xml.EndElement:
			if childStart != nil {
				return true, handler.Handle(ctx, statement.Statement{
					Subject: subject, Predicate: predicate, Object: nodeSubject(*childStart, baseIri),
				})
			}

			datatype, _ := attr(start, rdfNS, "datatype")
			lang, _ := attr(start, "http://www.w3.org/XML/1998/namespace", "lang")

			object := literalFrom(strings.TrimSpace(text.String()), lang, datatype)

			return true, handler.Handle(ctx, statement.Statement{Subject: subject, Predicate: predicate, Object: object})
		}
	}
}

func literalFrom(value, lang, datatype string) statement.Term {
	switch {
	case lang != "":
		return statement.LangLiteral(value, lang)
	case datatype != "":
		return statement.TypedLiteral(value, datatype)
	default:
		return statement.PlainLiteral(value)
	}
}

func skipToEnd(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}

		if _, ok := tok.(xml.EndElement); ok {
			return nil
		}
	}
}

func resolve(raw, baseIri string) string {
	if strings.HasPrefix(raw, "#") {
		if idx := strings.IndexByte(baseIri, '#'); idx >= 0 {
			return baseIri[:idx] + raw
		}

		return baseIri + raw
	}

	if strings.Contains(raw, "://") {
		return raw
	}

	return raw
}
