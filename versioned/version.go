package versioned

import "strconv"

// Version is a monotonically increasing version number. The zero value is
// Unversioned: no authoritative version is known yet.
type Version struct {
	N     int64
	Valid bool
}

// Unversioned is the bootstrap version
var Unversioned = Version{}

// At returns the version n
func At(n int64) Version {
	return Version{N: n, Valid: true}
}

// Less reports whether v is strictly older than other. An unversioned value
// is older than any versioned one.
func (v Version) Less(other Version) bool {
	if !other.Valid {
		return false
	}
	if !v.Valid {
		return true
	}
	return v.N < other.N
}

// String returns the version number, or "none" when unversioned
func (v Version) String() string {
	if !v.Valid {
		return "none"
	}
	return strconv.FormatInt(v.N, 10)
}

// Versioned tags a value with the version it was produced at.
type Versioned[T any] struct {
	Version Version
	Data    T
}

// Of returns data tagged with version n
func Of[T any](n int64, data T) Versioned[T] {
	return Versioned[T]{Version: At(n), Data: data}
}

// Accept reports whether candidate should replace current.
//
// A candidate without a version never wins, and a candidate wins over a
// versioned current value only with a strictly higher version. Applying the
// same candidate twice is a no-op after the first application, and any order
// of application converges on the highest version.
func Accept[T any](current, candidate Versioned[T]) bool {
	if !candidate.Version.Valid {
		return false
	}
	if current.Version.Valid && current.Version.N >= candidate.Version.N {
		return false
	}
	return true
}
