//go:build darwin && arm64

package ring

// CacheLineSize is 128 bytes on Apple Silicon. Sub-word atomic RMW across
// process boundaries on read-only mappings has been observed to fail on
// this platform, which is also why Open and Create both map read-write
// (see segment.go).
const CacheLineSize = 128
