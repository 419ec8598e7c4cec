package config

import (
	"fmt"
	"regexp"
)

// S3 bucket names allow lowercase letters, digits, hyphens and dots.
// The prefix is capped so that appending a UUID stays within the
// 63-character bucket name limit.
const maxBucketPrefixLen = 26

var bucketPrefixPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]*$`)

// ValidateBucketPrefix validates a bucket name prefix
func ValidateBucketPrefix(prefix string) error {
	if prefix == "" {
		return fmt.Errorf("bucket prefix cannot be empty")
	}
	if len(prefix) > maxBucketPrefixLen {
		return fmt.Errorf("bucket prefix cannot exceed %d characters", maxBucketPrefixLen)
	}
	if !bucketPrefixPattern.MatchString(prefix) {
		return fmt.Errorf("bucket prefix %q contains invalid characters", prefix)
	}
	return nil
}
