package domain

// KeyPrefix namespaces every key the service owns in the store.
const KeyPrefix = "kbsearch:"

// ChunkKeyPrefix prefixes content-chunk hashes.
const ChunkKeyPrefix = KeyPrefix + "chunk:"

// DocumentKeyPrefix prefixes source-document hashes.
const DocumentKeyPrefix = KeyPrefix + "doc:"

// ChunkIndexName is the FT index covering all content chunks.
const ChunkIndexName = KeyPrefix + "chunk:idx"
