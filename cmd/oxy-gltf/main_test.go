package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

func writeModel(t *testing.T) string {
	t.Helper()
	b := make([]byte, 12)
	for i, v := range []float32{1, 2, 3} {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v))
	}
	doc := `{
		"asset":{"version":"2.0","generator":"test"},
		"buffers":[{"byteLength":12,"uri":"data:application/octet-stream;base64,` + base64.StdEncoding.EncodeToString(b) + `"}],
		"bufferViews":[{"buffer":0,"byteLength":12}],
		"accessors":[{"name":"weights","bufferView":0,"componentType":5126,"count":3,"type":"SCALAR"}],
		"nodes":[{"name":"root","children":[1]},{"name":"leaf","translation":[0,0,2]}],
		"scenes":[{"nodes":[0]}]
	}`
	path := filepath.Join(t.TempDir(), "model.gltf")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("OXY_GLTF_CONFIG", "")
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("run(%v): %v\nstderr: %s", args, err, stderr.String())
	}
	return stdout.String()
}

func TestRunSummaryAndTree(t *testing.T) {
	out := runCLI(t, "--log-format", "json", "--digest", writeModel(t))
	for _, want := range []string{
		"(gltf)",
		`generator="test"`,
		"accessors=1",
		"scene 0",
		`node 0 "root"`,
		`    node 1 "leaf" world=(0, 0, 2)`,
		"buffer 0: 12 bytes blake3:",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output:\nwant %q\nhave %s", want, out)
		}
	}
}

func TestRunDumpFormats(t *testing.T) {
	path := writeModel(t)

	text := runCLI(t, "--tree=false", "-a", "0", path)
	if !strings.Contains(text, "accessor 0 SCALAR FLOAT count=3") || !strings.Contains(text, "[2] 3") {
		t.Fatalf("text dump:\nhave %s", text)
	}

	out := runCLI(t, "--tree=false", "-a", "0", "-f", "json", path)
	var dumps []accessorDump
	if err := json.Unmarshal([]byte(out[strings.Index(out, "["):]), &dumps); err != nil {
		t.Fatal(err)
	}
	if len(dumps) != 1 || dumps[0].Name != "weights" || dumps[0].Elements[1][0] != 2 {
		t.Fatalf("json dump:\nhave %+v", dumps)
	}

	out = runCLI(t, "--tree=false", "--all-accessors", "-f", "yaml", path)
	dumps = nil
	if err := yaml.Unmarshal([]byte(out[strings.Index(out, "- index"):]), &dumps); err != nil {
		t.Fatal(err)
	}
	if len(dumps) != 1 || dumps[0].Count != 3 {
		t.Fatalf("yaml dump:\nhave %+v", dumps)
	}
}

func TestWriteDumpsCompressedCBOR(t *testing.T) {
	want := []accessorDump{{Index: 2, Type: "VEC2", ComponentType: "FLOAT", Count: 1, Elements: [][]float64{{0.5, 1}}}}

	var buf bytes.Buffer
	if err := writeDumps(&buf, want, "cbor", true); err != nil {
		t.Fatal(err)
	}
	dec, err := zstd.NewReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()
	raw, err := io.ReadAll(dec)
	if err != nil {
		t.Fatal(err)
	}

	var have []accessorDump
	if err := cbor.Unmarshal(raw, &have); err != nil {
		t.Fatal(err)
	}
	if len(have) != 1 || have[0].Index != 2 || have[0].Elements[0][0] != 0.5 {
		t.Fatalf("cbor dump:\nwant %+v\nhave %+v", want, have)
	}
}

func TestRunErrors(t *testing.T) {
	t.Setenv("OXY_GLTF_CONFIG", "")
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), nil, &stdout, &stderr); err == nil {
		t.Fatal("run without args:\nwant error\nhave nil")
	}
	if err := run(context.Background(), []string{"model.obj"}, &stdout, &stderr); err == nil {
		t.Fatal("run(model.obj):\nwant error\nhave nil")
	}
	if err := run(context.Background(), []string{"-f", "xml", "-a", "0", writeModel(t)}, &stdout, &stderr); err == nil {
		t.Fatal("run(-f xml):\nwant error\nhave nil")
	}
	if err := run(context.Background(), []string{"--help"}, &stdout, &stderr); err != nil {
		t.Fatalf("run(--help):\nwant nil\nhave %v", err)
	}
}
