package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  bool
	}{
		{"simple", "Final thesis", true},
		{"surrounding spaces", "  Essay  ", true},
		{"empty", "", false},
		{"whitespace only", " \t ", false},
		{"max length", strings.Repeat("a", MaxTitleLength), true},
		{"too long", strings.Repeat("a", MaxTitleLength+1), false},
		{"multibyte at max", strings.Repeat("é", MaxTitleLength), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, msg := ValidateTitle(tt.title)
			if got != tt.want {
				t.Errorf("ValidateTitle(%q) = %v (%s), want %v", tt.title, got, msg, tt.want)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "report.pdf", "report.pdf"},
		{"spaces", "my report v2.pdf", "my_report_v2.pdf"},
		{"unix path traversal", "../../etc/passwd", "passwd"},
		{"windows path", `C:\Users\me\thesis.docx`, "thesis.docx"},
		{"hidden file", ".env", "env"},
		{"only unsafe", "???", "file"},
		{"empty", "", "file"},
		{"unicode", "résumé.pdf", "r_sum_.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilename_Truncates(t *testing.T) {
	got := SanitizeFilename(strings.Repeat("x", 300) + ".pdf")
	if len(got) != maxFilenameLength {
		t.Errorf("len = %d, want %d", len(got), maxFilenameLength)
	}
	if !strings.HasSuffix(got, ".pdf") {
		t.Errorf("SanitizeFilename() = %q, want .pdf extension kept", got)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Ada@Example.COM "); got != "ada@example.com" {
		t.Errorf("NormalizeEmail() = %q, want %q", got, "ada@example.com")
	}
}

type testRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"first_name" validate:"notblank"`
	Role  string `json:"role" validate:"omitempty,role"`
}

func TestStruct(t *testing.T) {
	if err := Struct(testRequest{Email: "a@example.com", Name: "Ada", Role: "reviewer"}); err != nil {
		t.Fatalf("Struct() valid error = %v", err)
	}

	err := Struct(testRequest{Email: "not-an-email", Name: "  ", Role: "superuser"})
	var verrs Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("Struct() error = %T, want Errors", err)
	}
	for _, field := range []string{"email", "first_name", "role"} {
		if _, ok := verrs[field]; !ok {
			t.Errorf("Struct() missing error for %q in %v", field, verrs)
		}
	}
	if !strings.Contains(verrs["first_name"], "cannot be blank") {
		t.Errorf("first_name message = %q", verrs["first_name"])
	}
}
