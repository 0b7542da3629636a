package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
)

// accessorDump is the serialized form of one decoded accessor.
type accessorDump struct {
	Index         int         `json:"index" yaml:"index" cbor:"index"`
	Name          string      `json:"name,omitempty" yaml:"name,omitempty" cbor:"name,omitempty"`
	Type          string      `json:"type" yaml:"type" cbor:"type"`
	ComponentType string      `json:"componentType" yaml:"componentType" cbor:"componentType"`
	Normalized    bool        `json:"normalized" yaml:"normalized" cbor:"normalized"`
	Count         int         `json:"count" yaml:"count" cbor:"count"`
	Elements      [][]float64 `json:"elements" yaml:"elements" cbor:"elements"`
}

var cborEncMode cbor.EncMode

func init() {
	var err error
	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("oxy-gltf: CBOR encoder initialization failed: " + err.Error())
	}
}

func newAccessorDump(index int, name string, data *loader.AccessorData) accessorDump {
	dump := accessorDump{
		Index:         index,
		Name:          name,
		Type:          string(data.Type),
		ComponentType: data.ComponentType.String(),
		Normalized:    data.Normalized,
		Count:         data.Count,
		Elements:      make([][]float64, data.Len()),
	}
	for i := range dump.Elements {
		dump.Elements[i] = data.Tuple(i)
	}
	return dump
}

// writeDumps encodes dumps in format, optionally framed with zstd.
func writeDumps(w io.Writer, dumps []accessorDump, format string, compress bool) error {
	if compress {
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("creating zstd writer: %w", err)
		}
		if err := encodeDumps(enc, dumps, format); err != nil {
			enc.Close()
			return err
		}
		return enc.Close()
	}
	return encodeDumps(w, dumps, format)
}

func encodeDumps(w io.Writer, dumps []accessorDump, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(dumps)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(dumps); err != nil {
			return err
		}
		return enc.Close()
	case "cbor":
		return cborEncMode.NewEncoder(w).Encode(dumps)
	case "text", "":
		for _, d := range dumps {
			fmt.Fprintf(w, "accessor %d %s %s count=%d normalized=%t\n",
				d.Index, d.Type, d.ComponentType, d.Count, d.Normalized)
			for i, e := range d.Elements {
				fmt.Fprintf(w, "  [%d] %s\n", i, formatTuple(e))
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text, json, yaml or cbor)", format)
	}
}

func formatTuple(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%g", v)
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func writeSummary(w io.Writer, path string, l loader.Loader) {
	fmt.Fprintf(w, "%s (%s)\n", path, l.Kind())
	if a := l.Asset(); a != nil {
		fmt.Fprintf(w, "  asset: version=%s generator=%q\n", a.Version, a.Generator)
	}
	doc := l.Document()
	fmt.Fprintf(w, "  buffers=%d bufferViews=%d accessors=%d\n",
		len(doc.Buffers), len(doc.BufferViews), len(doc.Accessors))
	fmt.Fprintf(w, "  images=%d materials=%d meshes=%d nodes=%d skins=%d scenes=%d animations=%d\n",
		len(l.Images()), len(l.Materials()), len(l.Meshes()), len(l.Nodes()),
		len(l.Skins()), len(l.Scenes()), len(l.Animations()))
}

// writeTree prints the main scene's hierarchy, or every root node when the
// document has no scenes.
func writeTree(w io.Writer, l loader.Loader) error {
	scene, err := l.MainScene()
	if err != nil {
		return err
	}

	roots := make([]*model.Node, 0)
	if scene != nil {
		fmt.Fprintf(w, "scene %d %q\n", scene.Index, scene.Name)
		roots = scene.Nodes
	} else {
		fmt.Fprintln(w, "no main scene; root nodes:")
		for _, n := range l.Nodes() {
			if n.IsRoot() {
				roots = append(roots, n)
			}
		}
	}
	for _, n := range roots {
		writeNode(w, n, 1)
	}
	return nil
}

func writeNode(w io.Writer, n *model.Node, depth int) {
	var extra []string
	if n.Mesh != nil {
		extra = append(extra, fmt.Sprintf("mesh=%d", n.Mesh.Index))
	}
	if n.Skin != nil {
		extra = append(extra, fmt.Sprintf("skin=%d", n.Skin.Index))
	}
	world := n.WorldMatrix()
	extra = append(extra, fmt.Sprintf("world=(%g, %g, %g)", world[12], world[13], world[14]))

	fmt.Fprintf(w, "%snode %d %q %s\n", strings.Repeat("  ", depth), n.Index, n.Name, strings.Join(extra, " "))
	for _, c := range n.Children {
		writeNode(w, c, depth+1)
	}
}

// writeDigests prints the BLAKE3 digest of every buffer that can be resolved.
func writeDigests(w io.Writer, l loader.Loader) {
	for i := range l.Document().Buffers {
		data, err := l.BufferData(i)
		if err != nil {
			fmt.Fprintf(w, "buffer %d: unavailable: %v\n", i, err)
			continue
		}
		sum := blake3.Sum256(data)
		fmt.Fprintf(w, "buffer %d: %d bytes blake3:%s\n", i, len(data), hex.EncodeToString(sum[:]))
	}
}
