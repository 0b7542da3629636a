// Package model holds the in-memory object graph assembled from a glTF document.
// Values here carry plain data plus non-owning pointers between entities; the
// loader owns every entity for its whole lifetime and wires the pointers once.
package model

import (
	"github.com/Carmen-Shannon/oxy-gltf/common"
)

// --- Transform ---

// Transform represents a decomposed node transform.
type Transform struct {
	// Translation is the position offset.
	Translation [3]float32

	// Rotation is the orientation as a quaternion (x, y, z, w).
	Rotation [4]float32

	// Scale is the scale factor along each axis.
	Scale [3]float32
}

// IdentityTransform returns the glTF default transform: no translation,
// identity rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	}
}

// Matrix composes the transform into a column-major 4x4 matrix.
func (t Transform) Matrix() [16]float32 {
	var m [16]float32
	common.ComposeTRS(m[:], t.Translation, t.Rotation, t.Scale)
	return m
}

// --- Metadata ---

// Asset is the asset metadata block of a document.
type Asset struct {
	Version    string
	MinVersion string
	Generator  string
	Copyright  string
}

// --- Images & Materials ---

// Image is one entry of the document's image list. The pixel payload is never
// decoded here; an image decoder plugged into the loader may fill Decoded.
type Image struct {
	Index      int
	Name       string
	URI        string
	MimeType   string
	BufferView *int

	// Decoded is whatever the configured image decoder produced, or nil.
	Decoded any
}

// Material is the subset of a glTF material the graph exposes, with glTF
// defaults applied.
type Material struct {
	Index int
	Name  string

	BaseColorFactor [4]float32
	MetallicFactor  float32
	RoughnessFactor float32
	EmissiveFactor  [3]float32

	// BaseColorTexture is the texture index of the base color map, or nil.
	BaseColorTexture *int

	AlphaMode   string
	AlphaCutoff float32
	DoubleSided bool
}

// --- Meshes ---

// Primitive is a single draw unit of a mesh. Attribute values are accessor
// indices; callers decode them through the loader.
type Primitive struct {
	Attributes map[string]int
	Indices    *int
	Mode       int
	Targets    []map[string]int

	// Material points at the entry in the loader's material list, or nil.
	Material *Material
}

// Mesh is a set of primitives.
type Mesh struct {
	Index      int
	Name       string
	Primitives []Primitive
	Weights    []float32
}

// --- Scene Graph ---

// Node is an element of the node hierarchy. Parent, Children, Mesh and Skin
// are references into the loader's lists and are never owned by the node.
type Node struct {
	Index int
	Name  string

	// Transform holds TRS values with defaults applied. It is ignored when
	// Matrix is set.
	Transform Transform

	// Matrix is the explicit local matrix, or nil when the node uses TRS.
	Matrix *[16]float32

	Weights []float32

	Mesh *Mesh

	// SkinIndex is the raw skin index from the document. Skin is resolved
	// from it after all skins exist.
	SkinIndex *int
	Skin      *Skin

	Parent   *Node
	Children []*Node
}

// LocalMatrix returns the node's transform relative to its parent.
func (n *Node) LocalMatrix() [16]float32 {
	if n.Matrix != nil {
		return *n.Matrix
	}
	return n.Transform.Matrix()
}

// WorldMatrix returns the node's transform in scene space by walking the
// parent chain. The hierarchy is assumed acyclic; the loader rejects cycles.
func (n *Node) WorldMatrix() [16]float32 {
	var m [16]float32
	common.Identity(m[:])
	for p := n; p != nil; p = p.Parent {
		local := p.LocalMatrix()
		common.Mul4(m[:], local[:], m[:])
	}
	return m
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool {
	return n.Parent == nil
}

// Skin binds vertices to a set of joint nodes.
type Skin struct {
	Index int
	Name  string

	// InverseBindMatrices is the MAT4 accessor index, or nil for identity.
	InverseBindMatrices *int

	Skeleton *Node
	Joints   []*Node
}

// Scene is an ordered list of root nodes.
type Scene struct {
	Index int
	Name  string
	Nodes []*Node
}

// --- Animation ---

// Animation is a named set of channels driven by samplers.
type Animation struct {
	Index    int
	Name     string
	Channels []AnimationChannel
	Samplers []AnimationSampler
}

// AnimationChannel targets one property of one node.
type AnimationChannel struct {
	// Sampler indexes Animation.Samplers.
	Sampler int

	// Target is the animated node, or nil when the channel names none.
	Target *Node

	// Path is one of "translation", "rotation", "scale" or "weights".
	Path string
}

// AnimationSampler pairs keyframe input times with output values. Both are
// accessor indices.
type AnimationSampler struct {
	Input         int
	Output        int
	Interpolation string
}
