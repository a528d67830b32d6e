// Package sanitizer normalizes restaurant and search input before validation
// and storage.
//
// All normalization functions are idempotent - applying them multiple times produces
// the same result. Functions handle invalid input gracefully, typically by returning
// the trimmed input or an empty value rather than errors; validation decides
// whether the result is acceptable.
//
// Normalization includes:
//   - Phone numbers: E.164 format (+[country][number]) when parseable
//   - URLs: Enforce HTTPS, lowercase hosts, drop tracking query parameters
//   - Strings: Collapse whitespace, trim leading/trailing spaces
//   - Emails: trimmed and lowercased
//   - Zip codes: upper case without inner spaces
//   - Slices: Remove duplicates and empty values after normalization
package sanitizer
