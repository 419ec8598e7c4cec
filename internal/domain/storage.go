package domain

import "time"

// AccessState classifies a bucket prior to creation
type AccessState int

const (
	// AccessAbsent means the bucket does not exist
	AccessAbsent AccessState = iota

	// AccessGranted means the bucket exists and is mutable by this principal
	AccessGranted

	// AccessDenied means the bucket exists but belongs to another principal
	AccessDenied
)

func (s AccessState) String() string {
	switch s {
	case AccessAbsent:
		return "absent"
	case AccessGranted:
		return "granted"
	case AccessDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// ObjectInfo describes one entry of a bucket listing snapshot
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}
