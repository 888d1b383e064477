// Package cache provides the LRU caches used by the index layer.
//
// # Block Cache
//
// LRUBlockCache stores fixed-size blocks of remote index blobs so that
// re-reading a partition index from S3 or MinIO is served from RAM.
// Capacity is in bytes and may additionally be charged against a
// resource.Controller memory budget.
//
// # Object Cache
//
// LRU is a generic, entry-counted cache with an eviction callback. The
// collection cache uses it to bound the number of open indexes and to
// release evicted ones.
package cache
