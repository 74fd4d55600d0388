package basic

import "github.com/viperlang/viper/pkg/il"

// NumericType is BASIC's numeric scalar lattice (original_source's
// TypeRules.hpp, under src/frontends/basic/TypeRules.hpp), ordered by
// promotion rank: Integer < Long < Single < Double. This omits the I64
// rung of §4.7's general I16->I32->I64->F32->F64 promotion lattice:
// classic BASIC has no 64-bit integer literal or DIM type, so Long (I32)
// is the widest integral rank a BASIC source program can name.
type NumericType int

const (
	Integer NumericType = iota
	Long
	Single
	Double
)

// ILKind maps a NumericType to its IL representation.
func (n NumericType) ILKind() il.Kind {
	switch n {
	case Integer:
		return il.I16
	case Long:
		return il.I32
	case Single:
		return il.F32
	default:
		return il.F64
	}
}

func (n NumericType) IsFloat() bool { return n == Single || n == Double }

// resultType computes a binary operator's result type under BASIC's
// promotion rules (TypeRules::resultType): the result widens to whichever
// operand ranks higher, except integer division (\) and MOD which require
// (and preserve) an integral type, and ^, whose result is Single when both
// operands are integral.
func resultType(op string, lhs, rhs NumericType) NumericType {
	switch op {
	case "\\", "MOD":
		if lhs > Long {
			lhs = Long
		}
		if rhs > Long {
			rhs = Long
		}
		return maxType(lhs, rhs)
	case "^":
		if lhs.IsFloat() || rhs.IsFloat() {
			return maxType(lhs, rhs)
		}
		return Single
	default:
		return maxType(lhs, rhs)
	}
}

// unaryResultType computes a unary operator's result type; unary +/- never
// change the operand's rank.
func unaryResultType(_ string, operand NumericType) NumericType { return operand }

func maxType(a, b NumericType) NumericType {
	if a > b {
		return a
	}
	return b
}
