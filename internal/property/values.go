package property

type Vector2 struct{ X, Y float64 }

type Vector3 struct{ X, Y, Z float64 }

type Vector4 struct{ X, Y, Z, W float64 }

type Quaternion struct{ X, Y, Z, W float64 }

type Color struct{ R, G, B, A float64 }

type Rect struct{ X, Y, Width, Height float64 }

type Bounds struct {
	Center  Vector3
	Extents Vector3
}

// ObjectRef points at another entity. Path is the stable asset path; InstanceID is
// only meaningful inside the process that produced it. The zero value is null.
type ObjectRef struct {
	Path       string
	InstanceID int64
}

// IsNull reports whether the reference points at nothing.
func (r ObjectRef) IsNull() bool { return r.Path == "" && r.InstanceID == 0 }

// Portable reports whether the reference can be resolved in another session.
func (r ObjectRef) Portable() bool { return r.Path != "" }

// Enum carries a symbolic name when the host knows one. Decoded symbolic values have
// Ordinal -1 and are resolved by name on write.
type Enum struct {
	Name    string
	Ordinal int
}

// ArraySize is the element count of an array-valued property.
type ArraySize int

// LayerMask is a 32-bit layer selection mask.
type LayerMask uint32

func components(v any) ([]float64, bool) {
	switch c := v.(type) {
	case Vector2:
		return []float64{c.X, c.Y}, true
	case Vector3:
		return []float64{c.X, c.Y, c.Z}, true
	case Vector4:
		return []float64{c.X, c.Y, c.Z, c.W}, true
	case Quaternion:
		return []float64{c.X, c.Y, c.Z, c.W}, true
	case Color:
		return []float64{c.R, c.G, c.B, c.A}, true
	case Rect:
		return []float64{c.X, c.Y, c.Width, c.Height}, true
	case Bounds:
		return []float64{c.Center.X, c.Center.Y, c.Center.Z, c.Extents.X, c.Extents.Y, c.Extents.Z}, true
	default:
		return nil, false
	}
}

func fromComponents(tag Tag, f []float64) any {
	switch tag {
	case TagVector2:
		return Vector2{f[0], f[1]}
	case TagVector3:
		return Vector3{f[0], f[1], f[2]}
	case TagVector4:
		return Vector4{f[0], f[1], f[2], f[3]}
	case TagQuaternion:
		return Quaternion{f[0], f[1], f[2], f[3]}
	case TagColor:
		return Color{f[0], f[1], f[2], f[3]}
	case TagRect:
		return Rect{f[0], f[1], f[2], f[3]}
	case TagBounds:
		return Bounds{Center: Vector3{f[0], f[1], f[2]}, Extents: Vector3{f[3], f[4], f[5]}}
	}
	return nil
}
