// Package errors provides the classified error primitives used across the
// page pipeline.
//
// Every failure carries a category (load, parse, render, config, ...), a
// severity and a context map. Per-document failures record the document path
// and a fine-grained kind so the batch report can tell the publisher exactly
// which document failed and why, while the sentinel from the originating
// package stays reachable through errors.Is.
//
// Example usage:
//
//	err := errors.RenderError("footnote reference has no definition").
//		WithPath("posts/2023-03-01-formatting.md").
//		WithKind("dangling_footnote").
//		WithCause(markdown.ErrDanglingFootnote).
//		Build()
package errors
