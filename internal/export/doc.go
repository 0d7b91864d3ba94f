// Package export re-encodes finished clips for social platforms.
//
// Each platform has a Profile with caption and media limits. The built-in
// table can be overridden or extended from a YAML file. Optimizer picks the
// format and aspect ratio a platform accepts and delegates to the converter
// with the platform's size and duration ceilings.
package export
