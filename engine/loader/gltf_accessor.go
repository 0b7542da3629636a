package loader

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ComponentCount returns the number of components per element.
//
// Returns:
//   - int: 1, 2, 3, 4, 4, 9 or 16 for SCALAR through MAT4
//   - error: ErrFormat for an unknown type
func (t AccessorType) ComponentCount() (int, error) {
	switch t {
	case AccessorTypeScalar:
		return 1, nil
	case AccessorTypeVec2:
		return 2, nil
	case AccessorTypeVec3:
		return 3, nil
	case AccessorTypeVec4:
		return 4, nil
	case AccessorTypeMat2:
		return 4, nil
	case AccessorTypeMat3:
		return 9, nil
	case AccessorTypeMat4:
		return 16, nil
	default:
		return 0, fmt.Errorf("%w: unknown accessor type %q", ErrFormat, string(t))
	}
}

// ByteSize returns the size in bytes of one component, or 0 for an unknown type.
func (c ComponentType) ByteSize() int {
	switch c {
	case ComponentTypeByte, ComponentTypeUnsignedByte:
		return 1
	case ComponentTypeShort, ComponentTypeUnsignedShort:
		return 2
	case ComponentTypeUnsignedInt, ComponentTypeFloat:
		return 4
	default:
		return 0
	}
}

// NormalizationDivisor returns the value a normalized component is divided by.
// Only unsigned byte and unsigned short components are normalized; every other
// type divides by 1.
func (c ComponentType) NormalizationDivisor(normalized bool) float64 {
	if !normalized {
		return 1
	}
	switch c {
	case ComponentTypeUnsignedByte:
		return math.MaxUint8
	case ComponentTypeUnsignedShort:
		return math.MaxUint16
	default:
		return 1
	}
}

func (c ComponentType) String() string {
	switch c {
	case ComponentTypeByte:
		return "BYTE"
	case ComponentTypeUnsignedByte:
		return "UNSIGNED_BYTE"
	case ComponentTypeShort:
		return "SHORT"
	case ComponentTypeUnsignedShort:
		return "UNSIGNED_SHORT"
	case ComponentTypeUnsignedInt:
		return "UNSIGNED_INT"
	case ComponentTypeFloat:
		return "FLOAT"
	default:
		return fmt.Sprintf("ComponentType(%d)", int(c))
	}
}

// componentReader reads one component at the start of b.
type componentReader func(b []byte) float64

// readerFor returns the little-endian reader for a decodable component type.
// BYTE and SHORT are part of the format but are not decoded.
func readerFor(c ComponentType) (componentReader, error) {
	switch c {
	case ComponentTypeFloat:
		return func(b []byte) float64 {
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		}, nil
	case ComponentTypeUnsignedInt:
		return func(b []byte) float64 {
			return float64(binary.LittleEndian.Uint32(b))
		}, nil
	case ComponentTypeUnsignedShort:
		return func(b []byte) float64 {
			return float64(binary.LittleEndian.Uint16(b))
		}, nil
	case ComponentTypeUnsignedByte:
		return func(b []byte) float64 {
			return float64(b[0])
		}, nil
	case ComponentTypeByte, ComponentTypeShort:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedComponentType, c)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedComponentType, int(c))
	}
}

// AccessorData is the decoded content of one accessor. Values holds Count
// elements of ComponentCount components each, in buffer order, already
// divided by the normalization divisor.
//
// AccessorData values are shared through the loader cache and must be
// treated as read-only.
type AccessorData struct {
	Type           AccessorType
	ComponentType  ComponentType
	Normalized     bool
	Count          int
	ComponentCount int
	Values         []float64
}

// Len returns the number of elements.
func (d *AccessorData) Len() int {
	return d.Count
}

// IsScalar reports whether each element is a bare number.
func (d *AccessorData) IsScalar() bool {
	return d.ComponentCount == 1
}

// Scalar returns the first component of element i.
func (d *AccessorData) Scalar(i int) float64 {
	return d.Values[i*d.ComponentCount]
}

// Tuple returns the components of element i in order. The slice aliases the
// cached values.
func (d *AccessorData) Tuple(i int) []float64 {
	start := i * d.ComponentCount
	return d.Values[start : start+d.ComponentCount : start+d.ComponentCount]
}

// At returns element i as a float64 for SCALAR accessors and as a []float64
// tuple for every other type.
func (d *AccessorData) At(i int) any {
	if d.IsScalar() {
		return d.Scalar(i)
	}
	return d.Tuple(i)
}

// Float32s returns a flat float32 copy of all components.
func (d *AccessorData) Float32s() []float32 {
	out := make([]float32, len(d.Values))
	for i, v := range d.Values {
		out[i] = float32(v)
	}
	return out
}

// Uint32s returns a flat uint32 copy of all components, truncating fractions.
// It is meant for index and joint accessors.
func (d *AccessorData) Uint32s() []uint32 {
	out := make([]uint32, len(d.Values))
	for i, v := range d.Values {
		out[i] = uint32(v)
	}
	return out
}

// accessorLayout is the byte geometry of an accessor within its buffer view.
type accessorLayout struct {
	componentCount int
	componentSize  int
	stride         int
	offset         int
	read           componentReader
	divisor        float64
}

// layoutFor computes stride, offset and component format for acc.
func layoutFor(acc *Accessor, view *BufferView) (accessorLayout, error) {
	count, err := acc.Type.ComponentCount()
	if err != nil {
		return accessorLayout{}, err
	}
	read, err := readerFor(acc.ComponentType)
	if err != nil {
		return accessorLayout{}, err
	}

	size := acc.ComponentType.ByteSize()
	layout := accessorLayout{
		componentCount: count,
		componentSize:  size,
		stride:         count * size,
		offset:         acc.ByteOffset,
		read:           read,
		divisor:        acc.ComponentType.NormalizationDivisor(acc.Normalized),
	}
	if view.ByteStride != nil {
		layout.stride = *view.ByteStride
	}

	if acc.ByteOffset < 0 || acc.Count < 0 || layout.stride <= 0 {
		return accessorLayout{}, fmt.Errorf("%w: negative offset, count or stride", ErrFormat)
	}
	return layout, nil
}

// decodeWithLayout walks Count elements of layout.stride bytes starting at
// layout.offset. The whole range is bounds-checked before anything is read,
// without multiplying values taken from the document.
func decodeWithLayout(acc *Accessor, layout accessorLayout, viewData []byte) (*AccessorData, error) {
	if acc.Count > 0 {
		elementSize := layout.componentCount * layout.componentSize
		if layout.offset > len(viewData) || elementSize > len(viewData)-layout.offset ||
			acc.Count-1 > (len(viewData)-layout.offset-elementSize)/layout.stride {
			return nil, fmt.Errorf("%w: accessor (offset %d, stride %d, count %d) does not fit in a %d byte view",
				ErrBufferUnderrun, layout.offset, layout.stride, acc.Count, len(viewData))
		}
	}

	data := &AccessorData{
		Type:           acc.Type,
		ComponentType:  acc.ComponentType,
		Normalized:     acc.Normalized,
		Count:          acc.Count,
		ComponentCount: layout.componentCount,
		Values:         make([]float64, 0, acc.Count*layout.componentCount),
	}

	offset := layout.offset
	for i := 0; i < acc.Count; i++ {
		for j := 0; j < layout.componentCount; j++ {
			x := offset + j*layout.componentSize
			data.Values = append(data.Values, layout.read(viewData[x:x+layout.componentSize])/layout.divisor)
		}
		offset += layout.stride
	}

	return data, nil
}

// viewWindow slices the bytes of view out of its buffer.
func viewWindow(view *BufferView, buffer []byte) ([]byte, error) {
	if view.ByteOffset < 0 || view.ByteLength < 0 {
		return nil, fmt.Errorf("%w: negative buffer view offset or length", ErrFormat)
	}
	if view.ByteOffset > len(buffer) || view.ByteLength > len(buffer)-view.ByteOffset {
		return nil, fmt.Errorf("%w: buffer view (offset %d, length %d) exceeds a %d byte buffer",
			ErrBufferUnderrun, view.ByteOffset, view.ByteLength, len(buffer))
	}
	return buffer[view.ByteOffset : view.ByteOffset+view.ByteLength], nil
}
