// Package elementary implements index-returning searches over slices:
// linear, binary, jump and interpolation. All functions return NotFound when
// the target is absent.
//
// Binary, Jump and Interpolation require arr to be sorted ascending. This is
// the caller's responsibility and is not checked; on unsorted input the
// result is unspecified but the functions always terminate.
package elementary

import (
	"cmp"
	"math"
)

// NotFound is returned when the target is not present.
const NotFound = -1

// Number is the element constraint for Interpolation.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Linear scans arr in order and returns the first index equal to target.
func Linear[T comparable](arr []T, target T) int {
	for i, v := range arr {
		if v == target {
			return i
		}
	}
	return NotFound
}

// Binary halves the search range of an ascending arr. With duplicates it
// returns whichever matching index the halving reaches first.
func Binary[T cmp.Ordered](arr []T, target T) int {
	low, high := 0, len(arr)-1
	for low <= high {
		mid := low + (high-low)/2
		switch c := cmp.Compare(arr[mid], target); {
		case c == 0:
			return mid
		case c < 0:
			low = mid + 1
		default:
			high = mid - 1
		}
	}
	return NotFound
}

// Jump steps through an ascending arr in blocks of floor(sqrt(n)) until the
// block end reaches target, then scans that block linearly.
func Jump[T cmp.Ordered](arr []T, target T) int {
	n := len(arr)
	if n == 0 {
		return NotFound
	}
	block := int(math.Sqrt(float64(n)))
	step := block
	prev := 0
	for cmp.Less(arr[min(step, n)-1], target) {
		prev = step
		step += block
		if prev >= n {
			return NotFound
		}
	}
	for i := prev; i < min(step, n); i++ {
		if arr[i] == target {
			return i
		}
	}
	return NotFound
}

// Interpolation probes an ascending, ideally uniformly distributed arr at the
// position linear interpolation between the bounds predicts for target.
func Interpolation[T Number](arr []T, target T) int {
	low, high := 0, len(arr)-1
	for low <= high && arr[low] <= target && target <= arr[high] {
		if arr[low] == arr[high] {
			// all values in range are equal; interpolating would divide by zero
			if arr[low] == target {
				return low
			}
			return NotFound
		}

		span := float64(arr[high]) - float64(arr[low])
		offset := (float64(target) - float64(arr[low])) * float64(high-low) / span
		pos := low + int(offset)
		pos = max(low, min(pos, high))

		switch {
		case arr[pos] == target:
			return pos
		case arr[pos] < target:
			low = pos + 1
		default:
			high = pos - 1
		}
	}
	return NotFound
}
