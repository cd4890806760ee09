// Package util provides small shared helpers.
//
//   - TruncateBody caps response bodies before they end up in error messages
package util
