// Package common holds the generic slice helpers shared by the transport packages.
package common

func Any[T any](array []T, block func(it T) bool) bool {
	for _, it := range array {
		if block(it) {
			return true
		}
	}
	return false
}

func All[T any](array []T, block func(it T) bool) bool {
	for _, it := range array {
		if !block(it) {
			return false
		}
	}
	return true
}

func Contains[T comparable](array []T, target T) bool {
	return Any(array, func(it T) bool {
		return it == target
	})
}

func Map[T any, N any](array []T, block func(it T) N) []N {
	mapped := make([]N, 0, len(array))
	for _, it := range array {
		mapped = append(mapped, block(it))
	}
	return mapped
}

// Filter returns the elements block accepts, or nil when there are none.
func Filter[T any](array []T, block func(it T) bool) []T {
	var filtered []T
	for _, it := range array {
		if block(it) {
			filtered = append(filtered, it)
		}
	}
	return filtered
}

func DefaultValue[T any]() T {
	var defaultValue T
	return defaultValue
}
