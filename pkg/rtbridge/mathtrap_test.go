package rtbridge

import (
	"math"
	"testing"

	"github.com/viperlang/viper/pkg/il"
)

func newTestDispatcher() *Dispatcher {
	return NewDispatcher(NewDefaultRegistry(), NewRuntime(nil, nil))
}

func TestPowChkDomOkOnOrdinaryInputs(t *testing.T) {
	d := newTestDispatcher()
	got, err := d.Call("rt_pow_f64_chkdom", []Value{VFloat(il.F64, 2), VFloat(il.F64, 10)})
	if err != nil {
		t.Fatalf("Call() = %v", err)
	}
	if got.Int != 1 {
		t.Errorf("ok flag = %d, want 1", got.Int)
	}
	if got.Float != 1024 {
		t.Errorf("2**10 = %g, want 1024", got.Float)
	}
}

func TestPowChkDomDomainErrorOnNegativeBaseFractionalExponent(t *testing.T) {
	d := newTestDispatcher()
	got, err := d.Call("rt_pow_f64_chkdom", []Value{VFloat(il.F64, -1), VFloat(il.F64, 0.5)})
	if err != nil {
		t.Fatalf("Call() = %v", err)
	}
	if got.Int != 0 {
		t.Errorf("ok flag = %d, want 0 for (-1)**0.5", got.Int)
	}
}

func TestPowChkDomOkOnNegativeBaseIntegerExponent(t *testing.T) {
	d := newTestDispatcher()
	got, err := d.Call("rt_pow_f64_chkdom", []Value{VFloat(il.F64, -2), VFloat(il.F64, 3)})
	if err != nil {
		t.Fatalf("Call() = %v", err)
	}
	if got.Int != 1 {
		t.Errorf("ok flag = %d, want 1 for (-2)**3", got.Int)
	}
	if got.Float != -8 {
		t.Errorf("(-2)**3 = %g, want -8", got.Float)
	}
}

func TestSqrtChkTrapsOnNegativeArgument(t *testing.T) {
	d := newTestDispatcher()
	_, err := d.Call("rt_sqrt_chk_f64", []Value{VFloat(il.F64, -4)})
	if err == nil {
		t.Fatal("Call() = nil error, want a DomainError trap")
	}
	var te *TrapError
	if !asTrapError(err, &te) || te.Kind != il.TrapDomainError {
		t.Errorf("err = %v, want a TrapError with Kind=DomainError", err)
	}
}

func TestAbsChkTrapsOnInt64Min(t *testing.T) {
	d := newTestDispatcher()
	_, err := d.Call("rt_abs_i64_chk", []Value{VInt(il.I64, math.MinInt64)})
	if err == nil {
		t.Fatal("Call() = nil error, want an Overflow trap")
	}
	var te *TrapError
	if !asTrapError(err, &te) || te.Kind != il.TrapOverflow {
		t.Errorf("err = %v, want a TrapError with Kind=Overflow", err)
	}
}

func TestCallUnknownHelperTraps(t *testing.T) {
	d := newTestDispatcher()
	_, err := d.Call("rt_does_not_exist", nil)
	if err == nil {
		t.Fatal("Call() = nil error, want a trap for an unknown helper")
	}
}

func TestCallArityMismatchTraps(t *testing.T) {
	d := newTestDispatcher()
	_, err := d.Call("rt_sqrt_chk_f64", nil)
	if err == nil {
		t.Fatal("Call() = nil error, want a trap for an arity mismatch")
	}
}

func asTrapError(err error, target **TrapError) bool {
	if te, ok := err.(*TrapError); ok {
		*target = te
		return true
	}
	return false
}
