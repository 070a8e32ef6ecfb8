// Package turtle implements a tolerant, approximate Turtle RDFizer. It
// handles the subset of Turtle actually seen in the wild for small
// documents: @prefix/@base directives, IRIs, prefixed names, blank
// nodes, literals (plain/lang/typed), and predicate-object/object lists
// via ";" and ",". It does not implement collections, blank-node
// property lists ("[...]"), or numeric/boolean literal shorthand; any of
// those abort the statement with ParseError rather than silently
// dropping data.
package turtle

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ripplecache/ripplecache/pkg/rdfizer"
	"github.com/ripplecache/ripplecache/pkg/statement"
)

// RDFizer parses the approximated Turtle subset described in the
// package doc.
type RDFizer struct{}

// New returns a Turtle RDFizer.
func New() *RDFizer { return &RDFizer{} }

// Rdfize reads the entire document (statements may span lines via ";"
// and ",") and emits the resulting statements through handler.
func (p *RDFizer) Rdfize(ctx context.Context, inputStream io.Reader, handler statement.Handler, baseIri string) rdfizer.Status {
	doc, err := io.ReadAll(io.LimitReader(inputStream, 64*1024*1024))
	if err != nil {
		return rdfizer.ParseError
	}

	state := &parserState{prefixes: make(map[string]string), base: baseIri}

	sawAny := false

	for _, stmt := range splitStatements(string(doc)) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		if handled, err := state.handleDirective(stmt); handled {
			if err != nil {
				return rdfizer.ParseError
			}

			continue
		}

		triples, err := state.parseTriples(stmt)
		if err != nil {
			return rdfizer.ParseError
		}

		for _, t := range triples {
			if err := handler.Handle(ctx, t); err != nil {
				return rdfizer.Failure
			}

			sawAny = true
		}
	}

	if !sawAny {
		return rdfizer.Failure
	}

	return rdfizer.Success
}

// splitStatements splits doc on top-level "." terminators, ignoring
// dots inside <...> and "...". It strips "#" comments outside literals.
func splitStatements(doc string) []string {
	var (
		statements []string
		buf        strings.Builder
		inIRI      bool
		inLiteral  bool
	)

	runes := []rune(doc)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case r == '#' && !inIRI && !inLiteral:
			for i < len(runes) && runes[i] != '\n' {
				i++
			}

			continue
		case r == '<' && !inLiteral:
			inIRI = true
		case r == '>' && inIRI:
			inIRI = false
		case r == '"' && !inIRI:
			inLiteral = !inLiteral
		case r == '.' && !inIRI && !inLiteral:
			statements = append(statements, buf.String())
			buf.Reset()

			continue
		}

		buf.WriteRune(r)
	}

	if strings.TrimSpace(buf.String()) != "" {
		statements = append(statements, buf.String())
	}

	return statements
}

type parserState struct {
	prefixes map[string]string
	base     string
}

// handleDirective recognises @prefix/@base (and their SPARQL-style
// PREFIX/BASE spellings); handled reports whether stmt was a directive.
func (s *parserState) handleDirective(stmt string) (handled bool, err error) {
	lower := strings.ToLower(stmt)

	switch {
	case strings.HasPrefix(lower, "@prefix") || strings.HasPrefix(strings.TrimSpace(lower), "prefix"):
		fields := strings.Fields(stmt)
		if len(fields) < 3 {
			return true, fmt.Errorf("turtle: malformed prefix directive %q", stmt)
		}

		name := strings.TrimSuffix(fields[1], ":")
		iri := strings.Trim(fields[2], "<>")
		s.prefixes[name] = iri

		return true, nil
	case strings.HasPrefix(lower, "@base") || strings.HasPrefix(strings.TrimSpace(lower), "base"):
		fields := strings.Fields(stmt)
		if len(fields) < 2 {
			return true, fmt.Errorf("turtle: malformed base directive %q", stmt)
		}

		s.base = strings.Trim(fields[1], "<>")

		return true, nil
	default:
		return false, nil
	}
}

// parseTriples expands one subject-scoped statement (with possible ";"
// predicate-object lists and "," object lists) into individual triples.
func (s *parserState) parseTriples(stmt string) ([]statement.Statement, error) {
	tok := &tokenizer{input: stmt, state: s}

	subject, err := tok.nextTerm()
	if err != nil {
		return nil, fmt.Errorf("turtle: subject: %w", err)
	}

	var triples []statement.Statement

	for {
		predicate, err := tok.nextTerm()
		if err != nil {
			return nil, fmt.Errorf("turtle: predicate: %w", err)
		}

		for {
			object, err := tok.nextTerm()
			if err != nil {
				return nil, fmt.Errorf("turtle: object: %w", err)
			}

			triples = append(triples, statement.Statement{Subject: subject, Predicate: predicate, Object: object})

			if tok.consumeDelim(',') {
				continue
			}

			break
		}

		if tok.consumeDelim(';') {
			continue
		}

		break
	}

	tok.skipSpace()

	if tok.pos != len(tok.input) {
		return nil, fmt.Errorf("turtle: unsupported construct in %q", stmt)
	}

	return triples, nil
}

type tokenizer struct {
	input string
	pos   int
	state *parserState
}

func (t *tokenizer) skipSpace() {
	for t.pos < len(t.input) && (t.input[t.pos] == ' ' || t.input[t.pos] == '\n' || t.input[t.pos] == '\t' || t.input[t.pos] == '\r') {
		t.pos++
	}
}

func (t *tokenizer) consumeDelim(d byte) bool {
	t.skipSpace()

	if t.pos < len(t.input) && t.input[t.pos] == d {
		t.pos++

		return true
	}

	return false
}

func (t *tokenizer) nextTerm() (statement.Term, error) {
	t.skipSpace()

	if t.pos >= len(t.input) {
		return statement.Term{}, fmt.Errorf("turtle: unexpected end of statement")
	}

	switch {
	case t.input[t.pos] == '<':
		return t.readIRI()
	case strings.HasPrefix(t.input[t.pos:], "_:"):
		return t.readBlankNode()
	case t.input[t.pos] == '"':
		return t.readLiteral()
	case t.input[t.pos] == 'a' && isTermBoundary(t.input, t.pos+1):
		t.pos++

		return statement.IRI("http://www.w3.org/1999/02/22-rdf-syntax-ns#type"), nil
	default:
		return t.readPrefixedName()
	}
}

func isTermBoundary(input string, pos int) bool {
	return pos >= len(input) || input[pos] == ' ' || input[pos] == '\t' || input[pos] == '\n'
}

func (t *tokenizer) readIRI() (statement.Term, error) {
	end := strings.IndexByte(t.input[t.pos:], '>')
	if end < 0 {
		return statement.Term{}, fmt.Errorf("turtle: unterminated IRI")
	}

	raw := t.input[t.pos+1 : t.pos+end]
	t.pos += end + 1

	if raw == "" {
		raw = t.state.base
	}

	return statement.IRI(raw), nil
}

func (t *tokenizer) readBlankNode() (statement.Term, error) {
	start := t.pos
	t.pos += 2

	for t.pos < len(t.input) && !isTermBoundary(t.input, t.pos) && t.input[t.pos] != ';' && t.input[t.pos] != ',' && t.input[t.pos] != '.' {
		t.pos++
	}

	return statement.BlankNode(t.input[start+2 : t.pos]), nil
}

func (t *tokenizer) readLiteral() (statement.Term, error) {
	t.pos++

	start := t.pos
	for t.pos < len(t.input) {
		if t.input[t.pos] == '\\' {
			t.pos += 2

			continue
		}

		if t.input[t.pos] == '"' {
			break
		}

		t.pos++
	}

	if t.pos >= len(t.input) {
		return statement.Term{}, fmt.Errorf("turtle: unterminated literal")
	}

	value := t.input[start:t.pos]
	t.pos++

	if t.pos < len(t.input) && t.input[t.pos] == '@' {
		start := t.pos + 1
		t.pos++

		for t.pos < len(t.input) && !isTermBoundary(t.input, t.pos) && t.input[t.pos] != ';' && t.input[t.pos] != ',' && t.input[t.pos] != '.' {
			t.pos++
		}

		return statement.LangLiteral(value, t.input[start:t.pos]), nil
	}

	if strings.HasPrefix(t.input[t.pos:], "^^") {
		t.pos += 2

		datatype, err := t.nextTerm()
		if err != nil {
			return statement.Term{}, fmt.Errorf("turtle: datatype: %w", err)
		}

		return statement.TypedLiteral(value, datatype.Value), nil
	}

	return statement.PlainLiteral(value), nil
}

func (t *tokenizer) readPrefixedName() (statement.Term, error) {
	start := t.pos

	for t.pos < len(t.input) && !isTermBoundary(t.input, t.pos) && t.input[t.pos] != ';' && t.input[t.pos] != ',' && t.input[t.pos] != '.' {
		t.pos++
	}

	token := t.input[start:t.pos]

	prefix, local, ok := strings.Cut(token, ":")
	if !ok {
		return statement.Term{}, fmt.Errorf("turtle: unrecognised term %q", token)
	}

	ns, ok := t.state.prefixes[prefix]
	if !ok {
		return statement.Term{}, fmt.Errorf("turtle: unknown prefix %q", prefix)
	}

	return statement.IRI(ns + local), nil
}
