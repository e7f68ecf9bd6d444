// Package metadata stores the per-identifier metadata records returned with
// search results.
//
// An Overlay is configured with a fixed set of field names. Records are
// filtered to that set on write and replaced wholesale on every Put, so the
// last writer wins.
//
// Example:
//
//	ov := metadata.New([]string{"source", "title"})
//	ov.Put("doc-1", map[string]string{"source": "a.md", "ignored": "x"})
//
//	rec, _ := ov.Get("doc-1") // {"source": "a.md"}
package metadata
