package property

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	nullRef   = "null"
	refEscape = `\`
)

// escapeRefPath prefixes a path that would otherwise decode as a runtime id or as
// null with a backslash.
func escapeRefPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == nullRef || strings.HasPrefix(path, refEscape) {
		return refEscape + path
	}
	if _, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return refEscape + path
	}
	return path
}

// ErrUnsupported is returned for values that have no canonical encoding. Callers drop
// such properties instead of recording them.
var ErrUnsupported = errors.New("unsupported property type")

// DecodeError reports a value that cannot be decoded for its tag.
type DecodeError struct {
	Tag    Tag
	Input  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s %q: %s", e.Tag, e.Input, e.Reason)
}

// EncodeError reports a raw value whose Go type does not match its tag.
type EncodeError struct {
	Tag   Tag
	Value any
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: unexpected value type %T", e.Tag, e.Value)
}

// Encode renders v as the canonical string for tag.
func Encode(v any, tag Tag) (string, error) {
	switch tag {
	case TagInteger:
		n, ok := asInt64(v)
		if !ok {
			return "", &EncodeError{Tag: tag, Value: v}
		}
		return strconv.FormatInt(n, 10), nil
	case TagBoolean:
		b, ok := v.(bool)
		if !ok {
			return "", &EncodeError{Tag: tag, Value: v}
		}
		return strconv.FormatBool(b), nil
	case TagFloat:
		switch f := v.(type) {
		case float64:
			return formatFloat(f), nil
		case float32:
			return strconv.FormatFloat(float64(f), 'g', -1, 32), nil
		}
		return "", &EncodeError{Tag: tag, Value: v}
	case TagString:
		s, ok := v.(string)
		if !ok {
			return "", &EncodeError{Tag: tag, Value: v}
		}
		return s, nil
	case TagColor, TagVector2, TagVector3, TagVector4, TagQuaternion, TagRect, TagBounds:
		parts, ok := components(v)
		if !ok || len(parts) != tag.Components() {
			return "", &EncodeError{Tag: tag, Value: v}
		}
		out := make([]string, len(parts))
		for i, p := range parts {
			out[i] = formatFloat(p)
		}
		return strings.Join(out, ","), nil
	case TagAssetReference:
		ref, ok := v.(ObjectRef)
		if !ok {
			if v == nil {
				return nullRef, nil
			}
			return "", &EncodeError{Tag: tag, Value: v}
		}
		switch {
		case ref.Path != "":
			return escapeRefPath(ref.Path), nil
		case ref.InstanceID != 0:
			return strconv.FormatInt(ref.InstanceID, 10), nil
		default:
			return nullRef, nil
		}
	case TagEnum:
		e, ok := v.(Enum)
		if !ok {
			return "", &EncodeError{Tag: tag, Value: v}
		}
		if e.Name != "" {
			return e.Name, nil
		}
		return strconv.Itoa(e.Ordinal), nil
	case TagArraySize:
		switch n := v.(type) {
		case ArraySize:
			return strconv.Itoa(int(n)), nil
		case int:
			return strconv.Itoa(n), nil
		}
		return "", &EncodeError{Tag: tag, Value: v}
	case TagLayerMask:
		switch m := v.(type) {
		case LayerMask:
			return strconv.FormatUint(uint64(m), 10), nil
		case uint32:
			return strconv.FormatUint(uint64(m), 10), nil
		}
		return "", &EncodeError{Tag: tag, Value: v}
	default:
		return "", ErrUnsupported
	}
}

// Decode parses a canonical string back into the raw value for tag.
func Decode(s string, tag Tag) (any, error) {
	switch tag {
	case TagInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, &DecodeError{Tag: tag, Input: s, Reason: "not an integer"}
		}
		return n, nil
	case TagBoolean:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return nil, &DecodeError{Tag: tag, Input: s, Reason: "not a boolean"}
		}
		return b, nil
	case TagFloat:
		f, err := parseFloat(s)
		if err != nil {
			return nil, &DecodeError{Tag: tag, Input: s, Reason: "not a number"}
		}
		return f, nil
	case TagString:
		return s, nil
	case TagColor, TagVector2, TagVector3, TagVector4, TagQuaternion, TagRect, TagBounds:
		parts := strings.Split(s, ",")
		if len(parts) != tag.Components() {
			return nil, &DecodeError{Tag: tag, Input: s, Reason: fmt.Sprintf("expected %d components, got %d", tag.Components(), len(parts))}
		}
		vals := make([]float64, len(parts))
		for i, p := range parts {
			f, err := parseFloat(p)
			if err != nil {
				return nil, &DecodeError{Tag: tag, Input: s, Reason: fmt.Sprintf("component %d is not a number", i)}
			}
			vals[i] = f
		}
		return fromComponents(tag, vals), nil
	case TagAssetReference:
		trimmed := strings.TrimSpace(s)
		if trimmed == "" || trimmed == nullRef {
			return ObjectRef{}, nil
		}
		if strings.HasPrefix(s, refEscape) {
			return ObjectRef{Path: s[len(refEscape):]}, nil
		}
		if id, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return ObjectRef{InstanceID: id}, nil
		}
		return ObjectRef{Path: s}, nil
	case TagEnum:
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			return nil, &DecodeError{Tag: tag, Input: s, Reason: "empty enum value"}
		}
		if n, err := strconv.Atoi(trimmed); err == nil {
			return Enum{Ordinal: n}, nil
		}
		return Enum{Name: trimmed, Ordinal: -1}, nil
	case TagArraySize:
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n < 0 {
			return nil, &DecodeError{Tag: tag, Input: s, Reason: "not a non-negative size"}
		}
		return ArraySize(n), nil
	case TagLayerMask:
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return nil, &DecodeError{Tag: tag, Input: s, Reason: "not a 32-bit mask"}
		}
		return LayerMask(n), nil
	default:
		return nil, ErrUnsupported
	}
}

// Convert decodes a recorded entry for a target property of another tag. The canonical
// text is reinterpreted, so compatible layouts (Color and Vector4, Integer and Float)
// transfer while everything else fails with a DecodeError.
func Convert(e Entry, target Tag) (any, error) {
	if !target.Supported() {
		return nil, ErrUnsupported
	}
	if e.Type == TagBoolean && (target == TagInteger || target == TagFloat) {
		b, err := Decode(e.Value, TagBoolean)
		if err != nil {
			return nil, err
		}
		if b.(bool) {
			return Decode("1", target)
		}
		return Decode("0", target)
	}
	return Decode(e.Value, target)
}

// NewEntry encodes v into an Entry.
func NewEntry(key string, tag Tag, v any) (Entry, error) {
	s, err := Encode(v, tag)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Key: key, Type: tag, Value: s}, nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	}
	return 0, false
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		var numErr *strconv.NumError
		// ParseFloat returns ±Inf with ErrRange for overflowing input; keep the value.
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) && math.IsInf(f, 0) {
			return f, nil
		}
		return 0, err
	}
	return f, nil
}
