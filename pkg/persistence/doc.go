// Package persistence holds the encoding of session states for stores that keep bytes.
//
// JSONCodec writes plain JSON. EncryptedCodec seals the JSON with AES-256-GCM and accepts
// fallback keys on read, so keys can be rotated without dropping live sessions.
package persistence
