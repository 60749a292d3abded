package elementary

import (
	"fmt"
	"testing"
)

var sorted = []int{10, 20, 30, 40, 50, 60, 70, 80, 90}

type searchFunc func([]int, int) int

var orderedSearches = map[string]searchFunc{
	"binary":        Binary[int],
	"jump":          Jump[int],
	"interpolation": Interpolation[int],
}

func TestLinear(t *testing.T) {
	data := []int{10, 25, 30, 45, 60, 75, 90}
	if got := Linear(data, 45); got != 3 {
		t.Errorf("Linear(45) = %d, want 3", got)
	}
	if got := Linear([]int{7, 3, 7}, 7); got != 0 {
		t.Errorf("Linear should return the first match, got %d", got)
	}
	if got := Linear(data, 46); got != NotFound {
		t.Errorf("Linear(46) = %d, want NotFound", got)
	}
	if got := Linear([]string{"b", "a"}, "a"); got != 1 {
		t.Errorf("Linear on strings = %d, want 1", got)
	}
	if got := Linear[int](nil, 1); got != NotFound {
		t.Errorf("Linear(nil) = %d, want NotFound", got)
	}
}

func TestBinaryScenario(t *testing.T) {
	if got := Binary(sorted, 60); got != 5 {
		t.Errorf("Binary(60) = %d, want 5", got)
	}
	if got := Binary(sorted, 61); got != NotFound {
		t.Errorf("Binary(61) = %d, want NotFound", got)
	}
}

func TestJumpScenario(t *testing.T) {
	if got := Jump(sorted, 80); got != 7 {
		t.Errorf("Jump(80) = %d, want 7", got)
	}
}

func TestInterpolationScenario(t *testing.T) {
	if got := Interpolation(sorted, 30); got != 2 {
		t.Errorf("Interpolation(30) = %d, want 2", got)
	}
}

func TestOrderedSearchesFindEveryElement(t *testing.T) {
	for name, search := range orderedSearches {
		t.Run(name, func(t *testing.T) {
			for i, v := range sorted {
				if got := search(sorted, v); got != i {
					t.Errorf("%s(%d) = %d, want %d", name, v, got, i)
				}
			}
			for _, missing := range []int{-5, 0, 15, 55, 89, 91, 1000} {
				if got := search(sorted, missing); got != NotFound {
					t.Errorf("%s(%d) = %d, want NotFound", name, missing, got)
				}
			}
		})
	}
}

func TestOrderedSearchesDegenerateInputs(t *testing.T) {
	for name, search := range orderedSearches {
		t.Run(name, func(t *testing.T) {
			if got := search(nil, 1); got != NotFound {
				t.Errorf("empty: got %d, want NotFound", got)
			}
			if got := search([]int{}, 1); got != NotFound {
				t.Errorf("zero length: got %d, want NotFound", got)
			}
			if got := search([]int{4}, 4); got != 0 {
				t.Errorf("single hit: got %d, want 0", got)
			}
			if got := search([]int{4}, 5); got != NotFound {
				t.Errorf("single miss: got %d, want NotFound", got)
			}
		})
	}
}

func TestOrderedSearchesVaryingLengths(t *testing.T) {
	for n := 1; n <= 40; n++ {
		arr := make([]int, n)
		for i := range arr {
			arr[i] = i*3 + 1
		}
		for name, search := range orderedSearches {
			for i, v := range arr {
				if got := search(arr, v); got != i {
					t.Fatalf("n=%d %s(%d) = %d, want %d", n, name, v, got, i)
				}
				if got := search(arr, v+1); got != NotFound {
					t.Fatalf("n=%d %s(%d) = %d, want NotFound", n, name, v+1, got)
				}
			}
		}
	}
}

func TestDuplicatesReturnMatchingIndex(t *testing.T) {
	arr := []int{1, 2, 2, 2, 2, 3}
	for name, search := range orderedSearches {
		got := search(arr, 2)
		if got < 1 || got > 4 {
			t.Errorf("%s(2) = %d, want an index in [1,4]", name, got)
		}
		if again := search(arr, 2); again != got {
			t.Errorf("%s is not deterministic: %d then %d", name, got, again)
		}
	}
}

func TestInterpolationEqualBounds(t *testing.T) {
	arr := []int{7, 7, 7, 7}
	if got := Interpolation(arr, 7); got != 0 {
		t.Errorf("Interpolation(all equal, 7) = %d, want 0", got)
	}
	if got := Interpolation(arr, 8); got != NotFound {
		t.Errorf("Interpolation(all equal, 8) = %d, want NotFound", got)
	}
}

func TestInterpolationSkewedAndFloat(t *testing.T) {
	skewed := []int{1, 2, 3, 4, 5, 1000, 100000}
	for i, v := range skewed {
		if got := Interpolation(skewed, v); got != i {
			t.Errorf("Interpolation(skewed, %d) = %d, want %d", v, got, i)
		}
	}
	floats := []float64{0.5, 1.25, 2.0, 8.75}
	if got := Interpolation(floats, 2.0); got != 2 {
		t.Errorf("Interpolation(floats, 2.0) = %d, want 2", got)
	}
	if got := Interpolation(floats, 2.5); got != NotFound {
		t.Errorf("Interpolation(floats, 2.5) = %d, want NotFound", got)
	}
}

func TestUnsortedInputTerminates(t *testing.T) {
	arr := []int{9, 1, 8, 2, 7, 3}
	for name, search := range orderedSearches {
		got := search(arr, 3)
		if got != NotFound && arr[got] != 3 {
			t.Errorf("%s returned index %d holding %d", name, got, arr[got])
		}
	}
}

func BenchmarkOrderedSearches(b *testing.B) {
	arr := make([]int, 1<<16)
	for i := range arr {
		arr[i] = i * 2
	}
	for name, search := range orderedSearches {
		b.Run(fmt.Sprintf("%s_n%d", name, len(arr)), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = search(arr, (i%len(arr))*2)
			}
		})
	}
}
