package loader

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
)

func TestMainScene(t *testing.T) {
	const scenes = `"nodes":[{},{}],"scenes":[{"nodes":[0]},{"nodes":[1]}]`
	tests := []struct {
		name string
		doc  string
		want int
	}{
		{"no scene key", `{` + scenes + `}`, 0},
		{"scene 1", `{"scene":1,` + scenes + `}`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := loadText(t, tt.doc)
			scene, err := l.MainScene()
			if err != nil {
				t.Fatal(err)
			}
			if scene == nil || scene.Index != tt.want {
				t.Fatalf("MainScene():\nwant scene %d\nhave %+v", tt.want, scene)
			}
			if scene.Nodes[0] != l.Nodes()[tt.want] {
				t.Fatalf("MainScene().Nodes[0]:\nwant node %d\nhave node %d", tt.want, scene.Nodes[0].Index)
			}
		})
	}
}

func TestMainSceneNone(t *testing.T) {
	l := loadText(t, `{"asset":{"version":"2.0"}}`)
	scene, err := l.MainScene()
	if err != nil || scene != nil {
		t.Fatalf("MainScene():\nwant nil, nil\nhave %v, %v", scene, err)
	}
	if l.Asset() == nil || l.Asset().Version != "2.0" {
		t.Fatalf("Asset():\nwant version 2.0\nhave %+v", l.Asset())
	}
	if len(l.Nodes()) != 0 || len(l.Scenes()) != 0 || len(l.Meshes()) != 0 || len(l.Animations()) != 0 {
		t.Fatal("absent sections: want empty collections")
	}
}

func TestMainSceneOutOfRange(t *testing.T) {
	const doc = `{"scene":3,"scenes":[{"nodes":[]}]}`

	l := loadText(t, doc)
	if _, err := l.MainScene(); !errors.Is(err, ErrInvalidSceneIndex) {
		t.Fatalf("MainScene() strict:\nwant %v\nhave %v", ErrInvalidSceneIndex, err)
	}

	l = loadText(t, doc, WithStrictScene(false))
	scene, err := l.MainScene()
	if err != nil || scene != nil {
		t.Fatalf("MainScene() permissive:\nwant nil, nil\nhave %v, %v", scene, err)
	}
}

func TestNodeHierarchy(t *testing.T) {
	l := loadText(t, `{"nodes":[{"children":[1]},{}]}`)
	nodes := l.Nodes()
	if len(nodes[0].Children) != 1 || nodes[0].Children[0] != nodes[1] {
		t.Fatalf("node 0 children:\nwant [node 1]\nhave %v", nodes[0].Children)
	}
	if nodes[1].Parent != nodes[0] {
		t.Fatalf("node 1 parent:\nwant node 0\nhave %v", nodes[1].Parent)
	}
	if !nodes[0].IsRoot() || nodes[1].IsRoot() {
		t.Fatal("IsRoot: want node 0 root and node 1 not")
	}
}

func TestNodeHierarchyErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"dangling child", `{"nodes":[{"children":[5]}]}`, ErrIndexOutOfRange},
		{"self child", `{"nodes":[{"children":[0]}]}`, ErrFormat},
		{"two parents", `{"nodes":[{"children":[2]},{"children":[2]},{}]}`, ErrFormat},
		{"cycle", `{"nodes":[{"children":[1]},{"children":[2]},{"children":[0]}]}`, ErrFormat},
		{"dangling mesh", `{"nodes":[{"mesh":0}]}`, ErrIndexOutOfRange},
		{"dangling skin", `{"nodes":[{"skin":0}]}`, ErrIndexOutOfRange},
		{"dangling scene node", `{"scenes":[{"nodes":[0]}]}`, ErrIndexOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoaderFromReader(bytes.NewReader([]byte(tt.doc)), ContainerText, t.TempDir(), WithLogger(quietLogger()))
			if !errors.Is(err, tt.want) {
				t.Fatalf("NewLoaderFromReader:\nwant %v\nhave %v", tt.want, err)
			}
		})
	}
}

func TestSkinBinding(t *testing.T) {
	l := loadText(t, `{
		"nodes":[{"skin":0,"mesh":0},{"children":[2]},{}],
		"meshes":[{"primitives":[{"attributes":{"POSITION":0},"material":0}]}],
		"materials":[{"name":"m","pbrMetallicRoughness":{"metallicFactor":0.25}}],
		"accessors":[{"bufferView":0,"componentType":5126,"count":1,"type":"VEC3"}],
		"skins":[{"joints":[1,2],"skeleton":1}]
	}`)
	nodes, skins := l.Nodes(), l.Skins()
	if nodes[0].Skin != skins[0] {
		t.Fatalf("node 0 skin:\nwant skin 0\nhave %v", nodes[0].Skin)
	}
	if len(skins[0].Joints) != 2 || skins[0].Joints[0] != nodes[1] || skins[0].Joints[1] != nodes[2] {
		t.Fatalf("skin joints:\nwant [node 1, node 2]\nhave %v", skins[0].Joints)
	}
	if skins[0].Skeleton != nodes[1] {
		t.Fatalf("skin skeleton:\nwant node 1\nhave %v", skins[0].Skeleton)
	}

	mesh := nodes[0].Mesh
	if mesh != l.Meshes()[0] {
		t.Fatalf("node 0 mesh:\nwant mesh 0\nhave %v", mesh)
	}
	prim := mesh.Primitives[0]
	if prim.Mode != PrimitiveModeTriangles || prim.Attributes["POSITION"] != 0 {
		t.Fatalf("primitive:\nwant triangles with POSITION 0\nhave %+v", prim)
	}
	mat := prim.Material
	if mat != l.Materials()[0] || mat.MetallicFactor != 0.25 || mat.RoughnessFactor != 1 || mat.AlphaMode != "OPAQUE" {
		t.Fatalf("material:\nwant metallic 0.25 with defaults\nhave %+v", mat)
	}
}

func TestAnimations(t *testing.T) {
	l := loadText(t, `{
		"nodes":[{}],
		"accessors":[
			{"bufferView":0,"componentType":5126,"count":2,"type":"SCALAR"},
			{"bufferView":0,"componentType":5126,"count":2,"type":"VEC3"}
		],
		"animations":[{
			"channels":[{"sampler":0,"target":{"node":0,"path":"translation"}}],
			"samplers":[{"input":0,"output":1}]
		}]
	}`)
	anim := l.Animations()[0]
	if anim.Channels[0].Target != l.Nodes()[0] || anim.Channels[0].Path != "translation" {
		t.Fatalf("channel:\nwant node 0 translation\nhave %+v", anim.Channels[0])
	}
	if anim.Samplers[0].Interpolation != "LINEAR" {
		t.Fatalf("sampler interpolation:\nwant LINEAR\nhave %q", anim.Samplers[0].Interpolation)
	}

	_, err := NewLoaderFromReader(bytes.NewReader([]byte(`{
		"animations":[{"channels":[{"sampler":1,"target":{"path":"rotation"}}],"samplers":[]}]
	}`)), ContainerText, t.TempDir(), WithLogger(quietLogger()))
	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("dangling sampler:\nwant %v\nhave %v", ErrIndexOutOfRange, err)
	}
}

func TestImageDecoder(t *testing.T) {
	pixels := []byte{1, 2, 3, 4}
	doc := `{
		"buffers":[{"byteLength":4,"uri":"` + dataURI(pixels) + `"}],
		"bufferViews":[{"buffer":0,"byteLength":4}],
		"images":[{"name":"a","bufferView":0,"mimeType":"image/png"},{"uri":"b.png"}]
	}`
	var seen []string
	decoder := ImageDecoderFunc(func(l Loader, img *model.Image) error {
		seen = append(seen, img.Name)
		if img.BufferView == nil {
			return nil
		}
		data, err := l.BufferViewData(*img.BufferView)
		if err != nil {
			return err
		}
		img.Decoded = len(data)
		return nil
	})

	l := loadText(t, doc, WithImageDecoder(decoder))
	if len(seen) != 2 {
		t.Fatalf("decoder calls:\nwant 2\nhave %d", len(seen))
	}
	if have := l.Images()[0].Decoded; have != 4 {
		t.Fatalf("image 0 decoded:\nwant 4\nhave %v", have)
	}
	if l.Images()[1].URI != "b.png" {
		t.Fatalf("image 1 uri:\nwant b.png\nhave %q", l.Images()[1].URI)
	}
}

func TestImageDecoderError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewLoaderFromReader(bytes.NewReader([]byte(`{"images":[{"uri":"a.png"}]}`)), ContainerText, t.TempDir(),
		WithLogger(quietLogger()),
		WithImageDecoder(ImageDecoderFunc(func(Loader, *model.Image) error { return boom })),
	)
	if !errors.Is(err, boom) {
		t.Fatalf("NewLoaderFromReader:\nwant %v\nhave %v", boom, err)
	}
}

func TestNodeTransform(t *testing.T) {
	l := loadText(t, `{"nodes":[
		{"translation":[1,2,3],"children":[1]},
		{"matrix":[1,0,0,0, 0,1,0,0, 0,0,1,0, 0,0,5,1]}
	]}`)
	nodes := l.Nodes()
	if nodes[0].Transform.Scale != [3]float32{1, 1, 1} || nodes[0].Transform.Rotation != [4]float32{0, 0, 0, 1} {
		t.Fatalf("defaults:\nwant unit scale and identity rotation\nhave %+v", nodes[0].Transform)
	}
	world := nodes[1].WorldMatrix()
	if world[12] != 1 || world[13] != 2 || world[14] != 8 {
		t.Fatalf("WorldMatrix translation:\nwant [1 2 8]\nhave %v", world[12:15])
	}
}
