// Package textutil provides text processing utilities for fingerprinting,
// similarity, and path sanitization of Vietnamese administrative documents.
//
// The primary use cases are:
//   - Creating token-based fingerprints from OCR text for comparison
//   - Computing cosine similarity between fingerprints
//   - Sanitizing folder names and path segments for safe filesystem use
//
// Fingerprints use term frequency vectors. Tokenization normalizes text to
// NFC, lowercases it, splits on anything that is not a Unicode letter or digit,
// and drops single-rune tokens. Diacritics are preserved, so "hợp đồng" and
// "hop dong" are different terms.
package textutil
