package types

// Conversion classifies how a value of one type becomes another.
type Conversion uint8

const (
	// ConvNone means no conversion exists.
	ConvNone Conversion = iota
	// ConvIdentity means the types are the same (or one is the error type).
	ConvIdentity
	// ConvWiden is an implicit, lossless numeric widening.
	ConvWiden
	// ConvBox wraps a value as object.
	ConvBox
	// ConvNumeric is an explicit numeric or char conversion (narrowing,
	// signedness change, float to integer).
	ConvNumeric
	// ConvUnbox extracts a value from object, checked at run time.
	ConvUnbox
	// ConvToString formats a scalar through the runtime library.
	ConvToString
	// ConvParse parses a string into a scalar through the runtime library.
	ConvParse
)

var conversionNames = [...]string{
	ConvNone:     "none",
	ConvIdentity: "identity",
	ConvWiden:    "widen",
	ConvBox:      "box",
	ConvNumeric:  "numeric",
	ConvUnbox:    "unbox",
	ConvToString: "tostring",
	ConvParse:    "parse",
}

func (c Conversion) String() string {
	if int(c) < len(conversionNames) {
		return conversionNames[c]
	}
	return "conversion?"
}

// Implicit reports whether the binder may insert c without a cast.
func (c Conversion) Implicit() bool {
	return c == ConvIdentity || c == ConvWiden || c == ConvBox
}

// Exists reports whether c is a real conversion.
func (c Conversion) Exists() bool {
	return c != ConvNone
}

// Classify returns the conversion from one type to another, preferring the
// implicit kind when both an implicit and an explicit path exist.
func (r *Registry) Classify(from, to TypeID) Conversion {
	if from == to || from == Error || to == Error {
		return ConvIdentity
	}
	if !r.IsValue(from) || !r.IsValue(to) {
		return ConvNone
	}

	switch {
	case to == Object:
		return ConvBox
	case widens(from, to):
		return ConvWiden
	case numericLike(from) && numericLike(to):
		return ConvNumeric
	case from == Object:
		return ConvUnbox
	case from == String && IsScalar(to):
		return ConvParse
	case to == String && IsScalar(from):
		return ConvToString
	}
	return ConvNone
}

// ImplicitlyConvertible reports whether from can be used where to is expected.
func (r *Registry) ImplicitlyConvertible(from, to TypeID) bool {
	return r.Classify(from, to).Implicit()
}

// ExplicitlyConvertible reports whether "from as to" is legal.
func (r *Registry) ExplicitlyConvertible(from, to TypeID) bool {
	return r.Classify(from, to).Exists()
}

// widens implements the implicit numeric table: integer ranks within one
// signedness, and any integer or f32 to f64.
func widens(from, to TypeID) bool {
	switch {
	case IsSigned(from) && IsSigned(to):
		return Bits(from) < Bits(to)
	case IsUnsigned(from) && IsUnsigned(to):
		return Bits(from) < Bits(to)
	case to == F64:
		return IsInteger(from) || from == F32
	}
	return false
}

// numericLike covers the types that interconvert with numeric casts.
func numericLike(t TypeID) bool {
	return IsNumeric(t) || t == Char
}
