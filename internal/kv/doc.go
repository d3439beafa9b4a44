// Package kv provides the durable string-keyed store behind every piece of
// game progress.
//
// Stores are deliberately dumb: values are strings, keys are namespaced with
// WithPrefix, and multi-key writes go through Apply so a purchase can never be
// observed half-written.
//
// # Backends
//
//   - SQLite: file-backed, WAL mode, one row per key plus an append-only
//     changes log that other processes poll for cross-tab notification.
//   - Memory: in-process map. Session handles share one map and see each
//     other's writes through Watch, the way two browser tabs share storage.
//   - Nop: returned by Probe when the backend fails its capability check.
//     Reads miss and writes succeed without effect, so the session runs
//     memory-only instead of failing.
//
// # Encodings
//
// Counters are base-10 integers, flags are the literal "true", and id sets
// are JSON arrays (see EncodeSet). Keys and ids are NFC-normalised at the
// boundary so visually identical ids never produce two entries.
package kv
