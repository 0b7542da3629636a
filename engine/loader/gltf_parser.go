package loader

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// glbContents is the result of demultiplexing a GLB container.
type glbContents struct {
	document *Document

	// binary is the BIN chunk payload. hasBinary distinguishes an empty BIN
	// chunk from a missing one.
	binary    []byte
	hasBinary bool

	chunks int
}

// parseDocument unmarshals glTF JSON into a Document.
//
// Parameters:
//   - data: UTF-8 encoded JSON
//
// Returns:
//   - *Document: the parsed document
//   - error: ErrFormat wrapping the JSON error
func parseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing glTF JSON: %w", ErrFormat, err)
	}
	return &doc, nil
}

// decodeText returns the text container as UTF-8. Input that is not valid
// UTF-8 is decoded as Windows-1252, the legacy default text encoding; bytes
// that encoding leaves undefined fail the decode rather than surviving as
// replacement characters.
//
// Parameters:
//   - data: raw file contents
//
// Returns:
//   - []byte: UTF-8 text without a byte order mark
//   - error: ErrFormat if neither decoding applies
func decodeText(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: document is neither UTF-8 nor Windows-1252: %w", ErrFormat, err)
	}
	if bytes.ContainsRune(decoded, utf8.RuneError) {
		return nil, fmt.Errorf("%w: document is neither UTF-8 nor Windows-1252", ErrFormat)
	}
	return decoded, nil
}

// parseGLB splits a GLB container into its JSON document and BIN payload.
// Chunks are identified by their type tag, never by position. The bytes
// consumed (header plus every chunk header and payload) must equal the
// length declared in the header.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
//
// Parameters:
//   - data: the complete GLB file
//
// Returns:
//   - *glbContents: the parsed document and BIN chunk
//   - error: ErrFormat, ErrUnsupportedVersion or ErrTruncatedContainer
func parseGLB(data []byte) (*glbContents, error) {
	if len(data) < glbHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the GLB header", ErrTruncatedContainer, len(data))
	}

	r := bytes.NewReader(data)

	var header glbHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: reading GLB header: %w", ErrTruncatedContainer, err)
	}
	if header.Magic != glbMagic {
		return nil, fmt.Errorf("%w: invalid GLB magic 0x%08X", ErrFormat, header.Magic)
	}
	if header.Version != glbVersion {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedVersion, header.Version)
	}

	var (
		contents  glbContents
		jsonChunk []byte
		seenJSON  bool
	)
	consumed := uint64(glbHeaderSize)

	for r.Len() > 0 {
		var chunk glbChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			return nil, fmt.Errorf("%w: partial chunk header at byte %d", ErrTruncatedContainer, consumed)
		}
		if uint64(r.Len()) < uint64(chunk.ChunkLength) {
			return nil, fmt.Errorf("%w: chunk at byte %d declares %d bytes but only %d remain",
				ErrTruncatedContainer, consumed, chunk.ChunkLength, r.Len())
		}

		payload := make([]byte, chunk.ChunkLength)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("%w: reading chunk at byte %d: %w", ErrTruncatedContainer, consumed, err)
		}
		consumed += glbChunkHeaderSize + uint64(chunk.ChunkLength)
		contents.chunks++

		switch chunk.ChunkType {
		case glbChunkJSON:
			if seenJSON {
				return nil, fmt.Errorf("%w: more than one JSON chunk", ErrFormat)
			}
			seenJSON = true
			jsonChunk = payload
		case glbChunkBIN:
			if contents.hasBinary {
				return nil, fmt.Errorf("%w: more than one BIN chunk", ErrFormat)
			}
			contents.hasBinary = true
			contents.binary = payload
		default:
			return nil, fmt.Errorf("%w: invalid chunk type 0x%08X", ErrFormat, chunk.ChunkType)
		}
	}

	if consumed != uint64(header.Length) {
		return nil, fmt.Errorf("%w: header declares %d bytes but chunks account for %d",
			ErrTruncatedContainer, header.Length, consumed)
	}
	if !seenJSON {
		return nil, fmt.Errorf("%w: GLB file missing JSON chunk", ErrFormat)
	}
	if !utf8.Valid(jsonChunk) {
		return nil, fmt.Errorf("%w: JSON chunk is not valid UTF-8", ErrFormat)
	}

	doc, err := parseDocument(jsonChunk)
	if err != nil {
		return nil, err
	}
	contents.document = doc
	return &contents, nil
}

// fitToLength truncates or zero-pads a BIN chunk to the byte length its buffer declares.
func fitToLength(chunk []byte, byteLength int) []byte {
	if len(chunk) >= byteLength {
		return chunk[:byteLength]
	}
	padded := make([]byte, byteLength)
	copy(padded, chunk)
	return padded
}
