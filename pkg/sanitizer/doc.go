// Package sanitizer normalizes slot request input before validation.
//
// All functions are idempotent. They never reject input; anything that is
// still malformed after normalization is left for the validator to report.
//
// Normalization includes:
//   - Ids: trim surrounding whitespace, drop zero-width and control runes
//   - Booking times: trim surrounding whitespace, upper-case the T and Z
//     designators so "2025-06-01t14:00:00z" parses as RFC 3339
package sanitizer
