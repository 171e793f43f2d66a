// Package framer turns a raw byte stream into validated, checksum-stripped
// packets, per spec §4.1. It supports three framing modes (fixed length,
// header/footer-delimited, and schema-probed) and always resyncs by
// exactly one byte on an invalid candidate, to avoid silently losing data.
//
// A Framer is single-writer: Feed must only ever be called from the
// transport's read goroutine.
package framer
