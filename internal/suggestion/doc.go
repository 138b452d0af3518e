// Package suggestion implements the metadata-suggestion stage. It reads the
// labelled fields of a Vietnamese administrative document out of the OCR text
// (số hiệu, ngày ban hành, trích yếu, độ khẩn, độ mật, ...), proposes a
// category from the reference keyword lists, and derives the user-facing
// metadata that the caller may edit before routing. Required fields that
// could not be found are listed as missing; they are advisory only.
package suggestion
