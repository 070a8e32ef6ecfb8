// Package ntriples implements a tolerant N-Triples RDFizer: one
// statement per line, the simplest concrete serialisation the registry
// supports.
package ntriples

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ripplecache/ripplecache/pkg/rdfizer"
	"github.com/ripplecache/ripplecache/pkg/statement"
)

// RDFizer parses N-Triples.
type RDFizer struct{}

// New returns an N-Triples RDFizer.
func New() *RDFizer { return &RDFizer{} }

// Rdfize reads inputStream line by line, parsing each non-blank,
// non-comment line as one statement and emitting it through handler.
func (p *RDFizer) Rdfize(ctx context.Context, inputStream io.Reader, handler statement.Handler, baseIri string) rdfizer.Status {
	scanner := bufio.NewScanner(inputStream)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	sawAny := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		stmt, err := parseLine(line, baseIri)
		if err != nil {
			return rdfizer.ParseError
		}

		if err := handler.Handle(ctx, stmt); err != nil {
			return rdfizer.Failure
		}

		sawAny = true
	}

	if err := scanner.Err(); err != nil {
		return rdfizer.ParseError
	}

	if !sawAny {
		return rdfizer.Failure
	}

	return rdfizer.Success
}

func parseLine(line, baseIri string) (statement.Statement, error) {
	line = strings.TrimSuffix(strings.TrimSpace(line), ".")
	line = strings.TrimSpace(line)

	tok := &tokenizer{input: line}

	subject, err := tok.nextTerm(baseIri)
	if err != nil {
		return statement.Statement{}, fmt.Errorf("ntriples: subject: %w", err)
	}

	predicate, err := tok.nextTerm(baseIri)
	if err != nil {
		return statement.Statement{}, fmt.Errorf("ntriples: predicate: %w", err)
	}

	object, err := tok.nextTerm(baseIri)
	if err != nil {
		return statement.Statement{}, fmt.Errorf("ntriples: object: %w", err)
	}

	return statement.Statement{Subject: subject, Predicate: predicate, Object: object}, nil
}

// tokenizer walks a single N-Triples statement line term by term.
type tokenizer struct {
	input string
	pos   int
}

func (t *tokenizer) skipSpace() {
	for t.pos < len(t.input) && t.input[t.pos] == ' ' {
		t.pos++
	}
}

var errUnexpectedEOF = fmt.Errorf("ntriples: unexpected end of line")

func (t *tokenizer) nextTerm(baseIri string) (statement.Term, error) {
	t.skipSpace()

	if t.pos >= len(t.input) {
		return statement.Term{}, errUnexpectedEOF
	}

	switch t.input[t.pos] {
	case '<':
		return t.readIRI(baseIri)
	case '_':
		return t.readBlankNode()
	case '"':
		return t.readLiteral()
	default:
		return statement.Term{}, fmt.Errorf("ntriples: unexpected character %q at %d", t.input[t.pos], t.pos)
	}
}

func (t *tokenizer) readIRI(baseIri string) (statement.Term, error) {
	end := strings.IndexByte(t.input[t.pos:], '>')
	if end < 0 {
		return statement.Term{}, fmt.Errorf("ntriples: unterminated IRI")
	}

	raw := t.input[t.pos+1 : t.pos+end]
	t.pos += end + 1

	return statement.IRI(resolve(raw, baseIri)), nil
}

func (t *tokenizer) readBlankNode() (statement.Term, error) {
	start := t.pos
	for t.pos < len(t.input) && t.input[t.pos] != ' ' {
		t.pos++
	}

	label := strings.TrimPrefix(t.input[start:t.pos], "_:")

	return statement.BlankNode(label), nil
}

func (t *tokenizer) readLiteral() (statement.Term, error) {
	t.pos++ // opening quote

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
		return statement.Term{}, fmt.Errorf("ntriples: unterminated literal")
	}

	value := unescape(t.input[start:t.pos])
	t.pos++ // closing quote

	if t.pos < len(t.input) && t.input[t.pos] == '@' {
		start := t.pos + 1
		t.pos++

		for t.pos < len(t.input) && t.input[t.pos] != ' ' {
			t.pos++
		}

		return statement.LangLiteral(value, t.input[start:t.pos]), nil
	}

	if strings.HasPrefix(t.input[t.pos:], "^^<") {
		t.pos += 3
		end := strings.IndexByte(t.input[t.pos:], '>')

		if end < 0 {
			return statement.Term{}, fmt.Errorf("ntriples: unterminated datatype IRI")
		}

		datatype := t.input[t.pos : t.pos+end]
		t.pos += end + 1

		return statement.TypedLiteral(value, datatype), nil
	}

	return statement.PlainLiteral(value), nil
}

func unescape(s string) string {
	replacer := strings.NewReplacer(`\"`, `"`, `\\`, `\`, `\n`, "\n", `\r`, "\r", `\t`, "\t")

	return replacer.Replace(s)
}

// resolve returns raw unchanged unless it's empty, in which case it
// resolves to baseIri (an empty relative IRI, "<>", denotes the
// document's own base).
func resolve(raw, baseIri string) string {
	if raw == "" {
		return baseIri
	}

	return raw
}
