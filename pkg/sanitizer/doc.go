// Package sanitizer normalizes user-supplied identifiers (emails, phone
// numbers) into their canonical stored form before validation and lookup.
package sanitizer
