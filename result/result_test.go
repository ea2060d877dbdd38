package result

import (
	"errors"
	"strconv"
	"testing"
)

var errBoom = errors.New("boom")

func TestOf(t *testing.T) {
	if r := Of(3, nil); !r.IsOk() || r.Value() != 3 {
		t.Errorf("Of(3, nil) = %+v", r)
	}
	if r := Of(3, errBoom); !r.IsErr() || r.Value() != 0 || r.Error() != errBoom {
		t.Errorf("Of(3, err) = %+v", r)
	}
}

func TestMapAndChain(t *testing.T) {
	double := func(n int) int { return n * 2 }
	parse := func(s string) Result[int] { return Of(strconv.Atoi(s)) }

	if got := Map(Ok(4), double).Value(); got != 8 {
		t.Errorf("Map(Ok(4)) = %d", got)
	}
	if r := Map(Err[int](errBoom), double); r.Error() != errBoom {
		t.Errorf("Map(Err) error = %v", r.Error())
	}

	if got := Chain(Ok("12"), parse).Value(); got != 12 {
		t.Errorf("Chain(Ok(12)) = %d", got)
	}
	if r := Chain(Ok("x"), parse); r.IsOk() {
		t.Errorf("Chain(Ok(x)) should fail")
	}
	called := false
	Chain(Err[string](errBoom), func(string) Result[int] { called = true; return Ok(0) })
	if called {
		t.Errorf("Chain must not call fn on error")
	}
}

func TestRecoverAndOrElse(t *testing.T) {
	r := Err[int](errBoom).Recover(func(error) int { return 7 })
	if !r.IsOk() || r.Value() != 7 {
		t.Errorf("Recover = %+v", r)
	}
	if got := Ok(1).Recover(func(error) int { return 7 }).Value(); got != 1 {
		t.Errorf("Recover on Ok = %d", got)
	}
	if got := Err[int](errBoom).OrElse(9); got != 9 {
		t.Errorf("OrElse = %d", got)
	}
}

func TestMapErr(t *testing.T) {
	wrapped := errors.New("wrapped")
	r := Err[int](errBoom).MapErr(func(error) error { return wrapped })
	if r.Error() != wrapped {
		t.Errorf("MapErr = %v", r.Error())
	}
	if Ok(1).MapErr(func(error) error { return wrapped }).IsErr() {
		t.Errorf("MapErr on Ok must stay Ok")
	}
}

func TestAll(t *testing.T) {
	r := All(Ok(1), Ok(2), Ok(3))
	v, err := r.Get()
	if err != nil || len(v) != 3 || v[2] != 3 {
		t.Errorf("All = %v, %v", v, err)
	}
	second := errors.New("second")
	if err := All(Ok(1), Err[int](errBoom), Err[int](second)).Error(); err != errBoom {
		t.Errorf("All should stop at first error, got %v", err)
	}
}

func TestUnwrapPanics(t *testing.T) {
	defer func() {
		if r := recover(); r != errBoom {
			t.Errorf("recover() = %v", r)
		}
	}()
	Err[int](errBoom).Unwrap()
}
