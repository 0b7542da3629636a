package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
)

// assemble builds the object graph from the document, one section at a time.
// Each stage only references entities built by an earlier stage; node skins
// are resolved in a final pass once every skin exists.
func (l *loader) assemble() error {
	l.assembleAsset()

	steps := []struct {
		name string
		fn   func() error
	}{
		{"images", l.assembleImages},
		{"materials", l.assembleMaterials},
		{"meshes", l.assembleMeshes},
		{"nodes", l.assembleNodes},
		{"skins", l.assembleSkins},
		{"scenes", l.assembleScenes},
		{"animations", l.assembleAnimations},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("assembling %s: %w", step.name, err)
		}
	}

	l.logger.Debug("graph assembled",
		"nodes", len(l.nodes),
		"meshes", len(l.meshes),
		"skins", len(l.skins),
		"scenes", len(l.scenes),
		"animations", len(l.animations),
	)
	return nil
}

func (l *loader) assembleAsset() {
	if l.doc.Asset == nil {
		return
	}
	l.asset = &model.Asset{
		Version:    l.doc.Asset.Version,
		MinVersion: l.doc.Asset.MinVersion,
		Generator:  l.doc.Asset.Generator,
		Copyright:  l.doc.Asset.Copyright,
	}
}

func (l *loader) assembleImages() error {
	l.images = make([]*model.Image, len(l.doc.Images))
	for i, info := range l.doc.Images {
		if info.BufferView != nil {
			if err := checkIndex("buffer view", *info.BufferView, len(l.doc.BufferViews)); err != nil {
				return fmt.Errorf("image %d: %w", i, err)
			}
		}
		img := &model.Image{
			Index:      i,
			Name:       info.Name,
			URI:        info.URI,
			MimeType:   info.MimeType,
			BufferView: info.BufferView,
		}
		l.images[i] = img

		if l.imageDecoder == nil {
			continue
		}
		if err := l.imageDecoder.DecodeImage(l, img); err != nil {
			return fmt.Errorf("image %d: %w", i, err)
		}
	}
	return nil
}

func (l *loader) assembleMaterials() error {
	l.materials = make([]*model.Material, len(l.doc.Materials))
	for i, info := range l.doc.Materials {
		mat := &model.Material{
			Index:           i,
			Name:            info.Name,
			BaseColorFactor: [4]float32{1, 1, 1, 1},
			MetallicFactor:  1,
			RoughnessFactor: 1,
			AlphaMode:       "OPAQUE",
			AlphaCutoff:     0.5,
			DoubleSided:     info.DoubleSided,
		}
		if info.AlphaMode != "" {
			mat.AlphaMode = info.AlphaMode
		}
		if info.AlphaCutoff != nil {
			mat.AlphaCutoff = *info.AlphaCutoff
		}
		if info.EmissiveFactor != nil {
			mat.EmissiveFactor = *info.EmissiveFactor
		}
		if pbr := info.PbrMetallicRoughness; pbr != nil {
			if pbr.BaseColorFactor != nil {
				mat.BaseColorFactor = *pbr.BaseColorFactor
			}
			if pbr.MetallicFactor != nil {
				mat.MetallicFactor = *pbr.MetallicFactor
			}
			if pbr.RoughnessFactor != nil {
				mat.RoughnessFactor = *pbr.RoughnessFactor
			}
			if pbr.BaseColorTexture != nil {
				tex := pbr.BaseColorTexture.Index
				mat.BaseColorTexture = &tex
			}
		}
		l.materials[i] = mat
	}
	return nil
}

func (l *loader) assembleMeshes() error {
	l.meshes = make([]*model.Mesh, len(l.doc.Meshes))
	for i, info := range l.doc.Meshes {
		mesh := &model.Mesh{
			Index:      i,
			Name:       info.Name,
			Primitives: make([]model.Primitive, len(info.Primitives)),
			Weights:    info.Weights,
		}
		for p, prim := range info.Primitives {
			out := model.Primitive{
				Attributes: prim.Attributes,
				Indices:    prim.Indices,
				Mode:       PrimitiveModeTriangles,
				Targets:    prim.Targets,
			}
			if prim.Mode != nil {
				out.Mode = *prim.Mode
			}
			if prim.Material != nil {
				if err := checkIndex("material", *prim.Material, len(l.materials)); err != nil {
					return fmt.Errorf("mesh %d primitive %d: %w", i, p, err)
				}
				out.Material = l.materials[*prim.Material]
			}
			mesh.Primitives[p] = out
		}
		l.meshes[i] = mesh
	}
	return nil
}

// assembleNodes creates every node first, then wires children and parents
// by index. A node claimed by two parents, or reachable from itself, is
// rejected.
func (l *loader) assembleNodes() error {
	l.nodes = make([]*model.Node, len(l.doc.Nodes))
	for i, info := range l.doc.Nodes {
		node := &model.Node{
			Index:     i,
			Name:      info.Name,
			Transform: model.IdentityTransform(),
			Matrix:    info.Matrix,
			Weights:   info.Weights,
			SkinIndex: info.Skin,
		}
		if info.Translation != nil {
			node.Transform.Translation = *info.Translation
		}
		if info.Rotation != nil {
			node.Transform.Rotation = *info.Rotation
		}
		if info.Scale != nil {
			node.Transform.Scale = *info.Scale
		}
		if info.Mesh != nil {
			if err := checkIndex("mesh", *info.Mesh, len(l.meshes)); err != nil {
				return fmt.Errorf("node %d: %w", i, err)
			}
			node.Mesh = l.meshes[*info.Mesh]
		}
		l.nodes[i] = node
	}

	for i, info := range l.doc.Nodes {
		parent := l.nodes[i]
		parent.Children = make([]*model.Node, 0, len(info.Children))
		for _, c := range info.Children {
			if err := checkIndex("child node", c, len(l.nodes)); err != nil {
				return fmt.Errorf("node %d: %w", i, err)
			}
			child := l.nodes[c]
			if child.Parent != nil {
				return fmt.Errorf("%w: node %d is a child of both node %d and node %d",
					ErrFormat, c, child.Parent.Index, i)
			}
			if c == i {
				return fmt.Errorf("%w: node %d lists itself as a child", ErrFormat, i)
			}
			child.Parent = parent
			parent.Children = append(parent.Children, child)
		}
	}

	return detectCycles(l.nodes)
}

// detectCycles reports a parent chain that loops. With at most one parent per
// node, a cycle is exactly a parent walk that revisits a node.
func detectCycles(nodes []*model.Node) error {
	const (
		unvisited = iota
		walking
		done
	)
	state := make([]int, len(nodes))
	for _, start := range nodes {
		var path []*model.Node
		n := start
		for n != nil && state[n.Index] == unvisited {
			state[n.Index] = walking
			path = append(path, n)
			n = n.Parent
		}
		if n != nil && state[n.Index] == walking {
			return fmt.Errorf("%w: node hierarchy contains a cycle through node %d", ErrFormat, n.Index)
		}
		for _, p := range path {
			state[p.Index] = done
		}
	}
	return nil
}

// assembleSkins builds skins over the node list, then binds each node's
// stored skin index to its skin.
func (l *loader) assembleSkins() error {
	l.skins = make([]*model.Skin, len(l.doc.Skins))
	for i, info := range l.doc.Skins {
		skin := &model.Skin{
			Index:               i,
			Name:                info.Name,
			InverseBindMatrices: info.InverseBindMatrices,
			Joints:              make([]*model.Node, len(info.Joints)),
		}
		if info.InverseBindMatrices != nil {
			if err := checkIndex("accessor", *info.InverseBindMatrices, len(l.doc.Accessors)); err != nil {
				return fmt.Errorf("skin %d: %w", i, err)
			}
		}
		for j, joint := range info.Joints {
			if err := checkIndex("joint node", joint, len(l.nodes)); err != nil {
				return fmt.Errorf("skin %d: %w", i, err)
			}
			skin.Joints[j] = l.nodes[joint]
		}
		if info.Skeleton != nil {
			if err := checkIndex("skeleton node", *info.Skeleton, len(l.nodes)); err != nil {
				return fmt.Errorf("skin %d: %w", i, err)
			}
			skin.Skeleton = l.nodes[*info.Skeleton]
		}
		l.skins[i] = skin
	}

	for _, node := range l.nodes {
		if node.SkinIndex == nil {
			continue
		}
		if err := checkIndex("skin", *node.SkinIndex, len(l.skins)); err != nil {
			return fmt.Errorf("node %d: %w", node.Index, err)
		}
		node.Skin = l.skins[*node.SkinIndex]
	}
	return nil
}

// assembleScenes builds the scene list and resolves the main scene. An
// out-of-range scene index is kept as an error for MainScene in strict mode
// and downgraded to a warning otherwise.
func (l *loader) assembleScenes() error {
	l.scenes = make([]*model.Scene, len(l.doc.Scenes))
	for i, info := range l.doc.Scenes {
		scene := &model.Scene{
			Index: i,
			Name:  info.Name,
			Nodes: make([]*model.Node, len(info.Nodes)),
		}
		for j, n := range info.Nodes {
			if err := checkIndex("root node", n, len(l.nodes)); err != nil {
				return fmt.Errorf("scene %d: %w", i, err)
			}
			scene.Nodes[j] = l.nodes[n]
		}
		l.scenes[i] = scene
	}

	switch {
	case l.doc.Scene == nil:
		if len(l.scenes) > 0 {
			l.mainScene = l.scenes[0]
		}
	case *l.doc.Scene >= 0 && *l.doc.Scene < len(l.scenes):
		l.mainScene = l.scenes[*l.doc.Scene]
	case l.strictScene:
		l.mainSceneErr = fmt.Errorf("%w: scene %d with %d scenes", ErrInvalidSceneIndex, *l.doc.Scene, len(l.scenes))
	default:
		l.logger.Warn("default scene index out of range, no main scene",
			"scene", *l.doc.Scene,
			"scenes", len(l.scenes),
		)
	}
	return nil
}

func (l *loader) assembleAnimations() error {
	l.animations = make([]*model.Animation, len(l.doc.Animations))
	for i, info := range l.doc.Animations {
		anim := &model.Animation{
			Index:    i,
			Name:     info.Name,
			Channels: make([]model.AnimationChannel, len(info.Channels)),
			Samplers: make([]model.AnimationSampler, len(info.Samplers)),
		}
		for s, sampler := range info.Samplers {
			if err := checkIndex("input accessor", sampler.Input, len(l.doc.Accessors)); err != nil {
				return fmt.Errorf("animation %d sampler %d: %w", i, s, err)
			}
			if err := checkIndex("output accessor", sampler.Output, len(l.doc.Accessors)); err != nil {
				return fmt.Errorf("animation %d sampler %d: %w", i, s, err)
			}
			interp := sampler.Interpolation
			if interp == "" {
				interp = "LINEAR"
			}
			anim.Samplers[s] = model.AnimationSampler{
				Input:         sampler.Input,
				Output:        sampler.Output,
				Interpolation: interp,
			}
		}
		for c, ch := range info.Channels {
			if err := checkIndex("sampler", ch.Sampler, len(anim.Samplers)); err != nil {
				return fmt.Errorf("animation %d channel %d: %w", i, c, err)
			}
			out := model.AnimationChannel{
				Sampler: ch.Sampler,
				Path:    ch.Target.Path,
			}
			if ch.Target.Node != nil {
				if err := checkIndex("target node", *ch.Target.Node, len(l.nodes)); err != nil {
					return fmt.Errorf("animation %d channel %d: %w", i, c, err)
				}
				out.Target = l.nodes[*ch.Target.Node]
			}
			anim.Channels[c] = out
		}
		l.animations[i] = anim
	}
	return nil
}

func checkIndex(what string, index, length int) error {
	if index < 0 || index >= length {
		return fmt.Errorf("%s %d of %d: %w", what, index, length, ErrIndexOutOfRange)
	}
	return nil
}
