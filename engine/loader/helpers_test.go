package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
)

type testChunk struct {
	typ  uint32
	data []byte
}

// buildGLB assembles a GLB file. A declaredLength of 0 uses the real size.
func buildGLB(t *testing.T, version, declaredLength uint32, chunks ...testChunk) []byte {
	t.Helper()
	var body bytes.Buffer
	for _, c := range chunks {
		binary.Write(&body, binary.LittleEndian, glbChunkHeader{
			ChunkLength: uint32(len(c.data)),
			ChunkType:   c.typ,
		})
		body.Write(c.data)
	}
	total := uint32(glbHeaderSize + body.Len())
	if declaredLength != 0 {
		total = declaredLength
	}
	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, glbHeader{Magic: glbMagic, Version: version, Length: total})
	out.Write(body.Bytes())
	return out.Bytes()
}

func jsonChunk(s string) testChunk {
	return testChunk{typ: glbChunkJSON, data: []byte(s)}
}

func binChunk(b []byte) testChunk {
	return testChunk{typ: glbChunkBIN, data: b}
}

func float32Bytes(values ...float32) []byte {
	b := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v))
	}
	return b
}

func dataURI(b []byte) string {
	return "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(b)
}

// writeFile writes name under a fresh temp dir and returns its path.
func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadText(t *testing.T, doc string, options ...LoaderBuilderOption) Loader {
	t.Helper()
	options = append([]LoaderBuilderOption{WithLogger(quietLogger())}, options...)
	l, err := NewLoaderFromReader(bytes.NewReader([]byte(doc)), ContainerText, t.TempDir(), options...)
	if err != nil {
		t.Fatal(err)
	}
	return l
}
