package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// cratesPackageNameRegex matches valid crates.io package names.
var cratesPackageNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// ValidateCrateName validates a crates.io package name.
// The name ends up in download URLs, workspace directory names and index
// link names, so anything that could escape those contexts is rejected.
func ValidateCrateName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "crate name cannot be empty")
	}
	if len(name) > 64 {
		return New(ErrCodeInvalidPackage, "crate name too long (max 64 characters)")
	}
	if !cratesPackageNameRegex.MatchString(name) {
		return New(ErrCodeInvalidPackage, "invalid crates.io package name: %q", name)
	}
	return nil
}

// ValidateVersion validates a concrete crate version string.
//
// Versions are opaque identity strings, not constraints, so this only checks
// that the value is safe to use as a path segment:
//   - No empty versions
//   - No control characters or whitespace
//   - No path separators or traversal sequences
//   - No requirement operators (^, ~, *, >, <, =)
func ValidateVersion(version string) error {
	if version == "" {
		return New(ErrCodeInvalidPackage, "version cannot be empty")
	}
	if len(version) > 128 {
		return New(ErrCodeInvalidPackage, "version too long (max 128 characters)")
	}
	for _, r := range version {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidPackage, "version contains invalid characters")
		}
	}
	if strings.Contains(version, "..") || strings.ContainsAny(version, `/\`) {
		return New(ErrCodeInvalidPackage, "version contains path characters: %q", version)
	}
	if strings.ContainsAny(version, "^~*><=") {
		return New(ErrCodeInvalidPackage, "version must be concrete, not a requirement: %q", version)
	}
	return nil
}

// ValidateLinkName validates a name used for a link inside a store node.
func ValidateLinkName(name string) error {
	if name == "" || name == "." || name == ".." {
		return New(ErrCodeInvalidInput, "invalid link name: %q", name)
	}
	if strings.ContainsAny(name, "/\x00") {
		return New(ErrCodeInvalidInput, "link name cannot contain path separators: %q", name)
	}
	return nil
}
