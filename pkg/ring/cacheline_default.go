//go:build !(darwin && arm64)

package ring

// CacheLineSize is the padding unit for every shared-memory sub-structure.
// x86_64 and non-Apple arm64 targets use 64-byte lines.
const CacheLineSize = 64
