// Package exif implements a minimal EXIF RDFizer for JPEG and TIFF
// images: it locates the TIFF-format metadata block (the JPEG APP1
// segment, or the whole stream for a bare TIFF), walks IFD0's tag
// entries, and emits one statement per tag it recognises. Only a
// handful of common tags are decoded (DESIGN.md documents the full
// list); an unrecognised tag is skipped rather than aborting the parse,
// since EXIF blocks commonly carry vendor-private tags no generic
// reader can interpret.
package exif

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ripplecache/ripplecache/pkg/rdfizer"
	"github.com/ripplecache/ripplecache/pkg/statement"
)

// Namespace prefixes every predicate this RDFizer emits.
const Namespace = "http://ns.ripplecache.dev/exif#"

// tagName maps the well-known IFD0 tag IDs this RDFizer decodes to a
// predicate local name.
var tagName = map[uint16]string{
	0x010F: "make",
	0x0110: "model",
	0x0112: "orientation",
	0x0132: "dateTime",
	0x010E: "imageDescription",
	0x0131: "software",
}

// RDFizer decodes EXIF metadata from JPEG/TIFF images.
type RDFizer struct{}

// New returns an EXIF RDFizer.
func New() *RDFizer { return &RDFizer{} }

// Rdfize locates and decodes the TIFF metadata block in inputStream,
// emitting one statement per recognised tag with subject baseIri.
func (p *RDFizer) Rdfize(ctx context.Context, inputStream io.Reader, handler statement.Handler, baseIri string) rdfizer.Status {
	data, err := io.ReadAll(io.LimitReader(inputStream, 32*1024*1024))
	if err != nil {
		return rdfizer.ParseError
	}

	tiff, err := locateTIFFBlock(data)
	if err != nil {
		return rdfizer.ParseError
	}

	order, ifd0Offset, err := parseTIFFHeader(tiff)
	if err != nil {
		return rdfizer.ParseError
	}

	entries, err := readIFD(tiff, order, ifd0Offset)
	if err != nil {
		return rdfizer.ParseError
	}

	sawAny := false

	for _, e := range entries {
		name, ok := tagName[e.tag]
		if !ok {
			continue
		}

		value, ok := e.stringValue(tiff, order)
		if !ok {
			continue
		}

		if err := handler.Handle(ctx, statement.Statement{
			Subject:   statement.IRI(baseIri),
			Predicate: statement.IRI(Namespace + name),
			Object:    statement.PlainLiteral(value),
		}); err != nil {
			return rdfizer.Failure
		}

		sawAny = true
	}

	if !sawAny {
		return rdfizer.Failure
	}

	return rdfizer.Success
}

// locateTIFFBlock returns the TIFF-formatted metadata block: for a
// bare-TIFF input, that's the whole buffer; for a JPEG, it's the
// payload of the first Exif APP1 segment.
func locateTIFFBlock(data []byte) ([]byte, error) {
	if len(data) >= 4 && (string(data[:2]) == "II" || string(data[:2]) == "MM") {
		return data, nil
	}

	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil, fmt.Errorf("exif: not a JPEG or TIFF stream")
	}

	pos := 2

	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return nil, fmt.Errorf("exif: malformed JPEG marker at %d", pos)
		}

		marker := data[pos+1]
		if marker == 0xD9 || marker == 0xDA {
			break
		}

		length := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if length < 2 || pos+2+length > len(data) {
			return nil, fmt.Errorf("exif: malformed segment length at %d", pos)
		}

		segment := data[pos+4 : pos+2+length]

		if marker == 0xE1 && len(segment) >= 6 && string(segment[:6]) == "Exif\x00\x00" {
			return segment[6:], nil
		}

		pos += 2 + length
	}

	return nil, fmt.Errorf("exif: no Exif APP1 segment found")
}

func parseTIFFHeader(tiff []byte) (binary.ByteOrder, uint32, error) {
	if len(tiff) < 8 {
		return nil, 0, fmt.Errorf("exif: TIFF header truncated")
	}

	var order binary.ByteOrder

	switch string(tiff[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, 0, fmt.Errorf("exif: unrecognised byte-order marker")
	}

	if order.Uint16(tiff[2:4]) != 42 {
		return nil, 0, fmt.Errorf("exif: bad TIFF magic number")
	}

	return order, order.Uint32(tiff[4:8]), nil
}

type ifdEntry struct {
	tag      uint16
	typ      uint16
	count    uint32
	valueOff [4]byte
}

func readIFD(tiff []byte, order binary.ByteOrder, offset uint32) ([]ifdEntry, error) {
	if int(offset)+2 > len(tiff) {
		return nil, fmt.Errorf("exif: IFD offset out of range")
	}

	count := int(order.Uint16(tiff[offset : offset+2]))
	entries := make([]ifdEntry, 0, count)

	for i := 0; i < count; i++ {
		start := int(offset) + 2 + i*12
		if start+12 > len(tiff) {
			return nil, fmt.Errorf("exif: IFD entry out of range")
		}

		e := ifdEntry{
			tag:   order.Uint16(tiff[start : start+2]),
			typ:   order.Uint16(tiff[start+2 : start+4]),
			count: order.Uint32(tiff[start+4 : start+8]),
		}
		copy(e.valueOff[:], tiff[start+8:start+12])
		entries = append(entries, e)
	}

	return entries, nil
}

// stringValue renders a tag's value as a display string, for the
// handful of types this RDFizer understands (ASCII and SHORT); any
// other type is reported as unrecognised rather than guessed at.
func (e ifdEntry) stringValue(tiff []byte, order binary.ByteOrder) (string, bool) {
	const (
		typeASCII = 2
		typeShort = 3
	)

	switch e.typ {
	case typeASCII:
		offset := order.Uint32(e.valueOff[:])
		if int(offset)+int(e.count) > len(tiff) {
			return "", false
		}

		raw := tiff[offset : offset+e.count]
		for i, b := range raw {
			if b == 0 {
				raw = raw[:i]

				break
			}
		}

		return string(raw), true
	case typeShort:
		return fmt.Sprintf("%d", order.Uint16(e.valueOff[:2])), true
	default:
		return "", false
	}
}
