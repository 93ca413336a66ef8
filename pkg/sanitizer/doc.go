// Package sanitizer normalizes user supplied slot fields before validation
// and storage.
//
// All functions are idempotent: applying them twice gives the same result as
// applying them once. Invalid input degrades to empty values rather than
// errors; validation decides whether an empty value is acceptable.
//
// Normalization includes:
//   - Text: Unicode NFC, control characters dropped, whitespace collapsed
//   - Multiline text: as Text, but line breaks are kept (at most one blank line)
//   - UIDs: trimmed, empty values and duplicates removed, order kept
//   - Prices: rounded to cents, negative zero folded to zero
package sanitizer
