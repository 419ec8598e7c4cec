package utils

import "hash/fnv"

// Hash32 generates a 32-bit hash of a byte slice
func Hash32(data []byte) uint32 {
	h := fnv.New32a()
	h.Write(data)
	return h.Sum32()
}

// Partition maps a record key onto one of n partitions
func Partition(key []byte, partitions int32) int32 {
	if partitions <= 1 {
		return 0
	}
	return int32(Hash32(key) % uint32(partitions))
}
