package errors

import "testing"

func TestValidateCrateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "serde", false},
		{"dash and underscore", "serde_json-ext", false},
		{"mixed case", "Inflector", false},
		{"empty", "", true},
		{"leading digit", "1password", true},
		{"path traversal", "../etc", true},
		{"slash", "foo/bar", true},
		{"space", "foo bar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCrateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCrateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPackage) {
				t.Errorf("ValidateCrateName(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidPackage)
			}
		})
	}
}

func TestValidateVersion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"semver", "1.0.197", false},
		{"prerelease", "0.1.0-alpha.3", false},
		{"build metadata", "0.2.1+wasi-0.2.4", false},
		{"empty", "", true},
		{"requirement", "^1.0", true},
		{"wildcard", "1.*", true},
		{"traversal", "1.0/../..", true},
		{"whitespace", "1.0 ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVersion(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateVersion(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateLinkName(t *testing.T) {
	for _, ok := range []string{".deps", "serde", "1.0.0", "index.html"} {
		if err := ValidateLinkName(ok); err != nil {
			t.Errorf("ValidateLinkName(%q) unexpected error: %v", ok, err)
		}
	}
	for _, bad := range []string{"", ".", "..", "a/b", "a\x00b"} {
		if err := ValidateLinkName(bad); err == nil {
			t.Errorf("ValidateLinkName(%q) should fail", bad)
		}
	}
}
