package loader

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func intPtr(v int) *int {
	return &v
}

// decodeAccessor computes the layout of acc and decodes it from viewData, the
// way the loader does once the view bytes are resolved.
func decodeAccessor(acc *Accessor, view *BufferView, viewData []byte) (*AccessorData, error) {
	layout, err := layoutFor(acc, view)
	if err != nil {
		return nil, err
	}
	return decodeWithLayout(acc, layout, viewData)
}

func TestComponentCount(t *testing.T) {
	want := map[AccessorType]int{
		AccessorTypeScalar: 1,
		AccessorTypeVec2:   2,
		AccessorTypeVec3:   3,
		AccessorTypeVec4:   4,
		AccessorTypeMat2:   4,
		AccessorTypeMat3:   9,
		AccessorTypeMat4:   16,
	}
	for typ, n := range want {
		have, err := typ.ComponentCount()
		if err != nil {
			t.Fatal(err)
		}
		if have != n {
			t.Fatalf("%s.ComponentCount():\nwant %d\nhave %d", typ, n, have)
		}
	}
	if _, err := AccessorType("VEC5").ComponentCount(); !errors.Is(err, ErrFormat) {
		t.Fatalf("VEC5.ComponentCount():\nwant %v\nhave %v", ErrFormat, err)
	}
}

func TestByteSize(t *testing.T) {
	want := map[ComponentType]int{
		ComponentTypeByte:          1,
		ComponentTypeUnsignedByte:  1,
		ComponentTypeShort:         2,
		ComponentTypeUnsignedShort: 2,
		ComponentTypeUnsignedInt:   4,
		ComponentTypeFloat:         4,
		ComponentType(1):           0,
	}
	for c, n := range want {
		if have := c.ByteSize(); have != n {
			t.Fatalf("%s.ByteSize():\nwant %d\nhave %d", c, n, have)
		}
	}
}

func TestDecodeFloatScalar(t *testing.T) {
	acc := &Accessor{BufferView: intPtr(0), ComponentType: ComponentTypeFloat, Count: 3, Type: AccessorTypeScalar}
	view := &BufferView{ByteLength: 12}
	data, err := decodeAccessor(acc, view, float32Bytes(1, 2, 3))
	if err != nil {
		t.Fatal(err)
	}
	if data.Len() != 3 {
		t.Fatalf("Len():\nwant 3\nhave %d", data.Len())
	}
	for i, want := range []float64{1, 2, 3} {
		if have, ok := data.At(i).(float64); !ok || have != want {
			t.Fatalf("At(%d):\nwant %v\nhave %v", i, want, data.At(i))
		}
	}
}

func TestDecodeNormalizedUnsignedByteVec3(t *testing.T) {
	acc := &Accessor{ComponentType: ComponentTypeUnsignedByte, Normalized: true, Count: 1, Type: AccessorTypeVec3}
	data, err := decodeAccessor(acc, &BufferView{ByteLength: 3}, []byte{255, 0, 128})
	if err != nil {
		t.Fatal(err)
	}
	tuple, ok := data.At(0).([]float64)
	if !ok {
		t.Fatalf("At(0):\nwant []float64\nhave %T", data.At(0))
	}
	want := []float64{1, 0, 128.0 / 255.0}
	if len(tuple) != len(want) {
		t.Fatalf("tuple length:\nwant %d\nhave %d", len(want), len(tuple))
	}
	for i := range want {
		if math.Abs(tuple[i]-want[i]) > 1e-12 {
			t.Fatalf("tuple[%d]:\nwant %v\nhave %v", i, want[i], tuple[i])
		}
	}
}

func TestDecodeNormalizedUnsignedShort(t *testing.T) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint16(b, 65535)
	binary.LittleEndian.PutUint16(b[2:], 0)
	acc := &Accessor{ComponentType: ComponentTypeUnsignedShort, Normalized: true, Count: 1, Type: AccessorTypeVec2}
	data, err := decodeAccessor(acc, &BufferView{ByteLength: 4}, b)
	if err != nil {
		t.Fatal(err)
	}
	if have := data.Tuple(0); have[0] != 1 || have[1] != 0 {
		t.Fatalf("Tuple(0):\nwant [1 0]\nhave %v", have)
	}
}

func TestDecodeStrideAndOffset(t *testing.T) {
	// Two uint32 scalars interleaved with 4 bytes of padding, after a 2 byte offset.
	b := make([]byte, 2+8+4)
	binary.LittleEndian.PutUint32(b[2:], 7)
	binary.LittleEndian.PutUint32(b[10:], 9)
	acc := &Accessor{ByteOffset: 2, ComponentType: ComponentTypeUnsignedInt, Count: 2, Type: AccessorTypeScalar}
	view := &BufferView{ByteLength: len(b), ByteStride: intPtr(8)}
	data, err := decodeAccessor(acc, view, b)
	if err != nil {
		t.Fatal(err)
	}
	if have := data.Uint32s(); len(have) != 2 || have[0] != 7 || have[1] != 9 {
		t.Fatalf("Uint32s():\nwant [7 9]\nhave %v", have)
	}
}

func TestDecodeUnnormalizedIgnoresDivisor(t *testing.T) {
	acc := &Accessor{ComponentType: ComponentTypeUnsignedByte, Count: 2, Type: AccessorTypeScalar}
	data, err := decodeAccessor(acc, &BufferView{ByteLength: 2}, []byte{200, 3})
	if err != nil {
		t.Fatal(err)
	}
	if data.Scalar(0) != 200 || data.Scalar(1) != 3 {
		t.Fatalf("values:\nwant [200 3]\nhave %v", data.Values)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		acc  Accessor
		view BufferView
		data []byte
		want error
	}{
		{
			name: "byte component",
			acc:  Accessor{ComponentType: ComponentTypeByte, Count: 1, Type: AccessorTypeScalar},
			data: []byte{1},
			want: ErrUnsupportedComponentType,
		},
		{
			name: "short component",
			acc:  Accessor{ComponentType: ComponentTypeShort, Count: 1, Type: AccessorTypeScalar},
			data: []byte{1, 0},
			want: ErrUnsupportedComponentType,
		},
		{
			name: "unknown component",
			acc:  Accessor{ComponentType: ComponentType(9999), Count: 1, Type: AccessorTypeScalar},
			data: []byte{1, 0, 0, 0},
			want: ErrUnsupportedComponentType,
		},
		{
			name: "unknown type",
			acc:  Accessor{ComponentType: ComponentTypeFloat, Count: 1, Type: "VEC7"},
			data: make([]byte, 28),
			want: ErrFormat,
		},
		{
			name: "count exceeds view",
			acc:  Accessor{ComponentType: ComponentTypeFloat, Count: 4, Type: AccessorTypeScalar},
			data: float32Bytes(1, 2, 3),
			want: ErrBufferUnderrun,
		},
		{
			name: "offset exceeds view",
			acc:  Accessor{ByteOffset: 1, ComponentType: ComponentTypeFloat, Count: 3, Type: AccessorTypeScalar},
			data: float32Bytes(1, 2, 3),
			want: ErrBufferUnderrun,
		},
		{
			name: "stride exceeds view",
			acc:  Accessor{ComponentType: ComponentTypeFloat, Count: 2, Type: AccessorTypeVec2},
			view: BufferView{ByteStride: intPtr(12)},
			data: float32Bytes(1, 2, 3, 4),
			want: ErrBufferUnderrun,
		},
		{
			name: "count overflows extent",
			acc:  Accessor{ComponentType: ComponentTypeFloat, Count: math.MaxInt/4 + 2, Type: AccessorTypeScalar},
			data: float32Bytes(1, 2, 3),
			want: ErrBufferUnderrun,
		},
		{
			name: "offset overflows extent",
			acc:  Accessor{ByteOffset: math.MaxInt - 2, ComponentType: ComponentTypeFloat, Count: 1, Type: AccessorTypeScalar},
			data: float32Bytes(1, 2, 3),
			want: ErrBufferUnderrun,
		},
		{
			name: "negative count",
			acc:  Accessor{ComponentType: ComponentTypeFloat, Count: -1, Type: AccessorTypeScalar},
			want: ErrFormat,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeAccessor(&tt.acc, &tt.view, tt.data)
			if !errors.Is(err, tt.want) {
				t.Fatalf("decodeAccessor:\nwant %v\nhave %v", tt.want, err)
			}
		})
	}
}

func TestViewWindow(t *testing.T) {
	buffer := []byte{0, 1, 2, 3, 4, 5}
	have, err := viewWindow(&BufferView{ByteOffset: 2, ByteLength: 3}, buffer)
	if err != nil {
		t.Fatal(err)
	}
	if len(have) != 3 || have[0] != 2 || have[2] != 4 {
		t.Fatalf("viewWindow:\nwant [2 3 4]\nhave %v", have)
	}
	if _, err := viewWindow(&BufferView{ByteOffset: 4, ByteLength: 3}, buffer); !errors.Is(err, ErrBufferUnderrun) {
		t.Fatalf("viewWindow past end:\nwant %v\nhave %v", ErrBufferUnderrun, err)
	}

	overflows := []BufferView{
		{ByteOffset: 2, ByteLength: math.MaxInt},
		{ByteOffset: math.MaxInt, ByteLength: 2},
		{ByteOffset: 7, ByteLength: 0},
	}
	for _, view := range overflows {
		if _, err := viewWindow(&view, buffer); !errors.Is(err, ErrBufferUnderrun) {
			t.Fatalf("viewWindow(%+v):\nwant %v\nhave %v", view, ErrBufferUnderrun, err)
		}
	}
}
