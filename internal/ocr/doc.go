// Package ocr provides the text recognition stage. Two engines are bundled:
// TextEngine reads documents that already carry text (plain-text uploads),
// and CommandEngine shells out to an external recognizer such as tesseract
// for scans and PDFs. Both return NFC-normalized UTF-8 text and treat an empty
// result as a failure, since every later stage depends on the text.
package ocr
