package natid

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"123.456.789-01", "12345678901"},
		{"12345678901", "12345678901"},
		{" 123 456 789 01 ", "12345678901"},
		{"abc", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	if got := Format("12345678901"); got != "123.456.789-01" {
		t.Errorf("Format = %q, want 123.456.789-01", got)
	}
	// Non-canonical lengths pass through untouched.
	if got := Format("1234"); got != "1234" {
		t.Errorf("Format(short) = %q, want 1234", got)
	}
}

func TestLoginEmail(t *testing.T) {
	got := LoginEmail("12345678901", "patients.local")
	if got != "patient+12345678901@patients.local" {
		t.Errorf("LoginEmail = %q", got)
	}
}

func TestCandidates(t *testing.T) {
	digits, formatted := Candidates("123.456.789-01")
	if digits != "12345678901" {
		t.Errorf("digits = %q", digits)
	}
	if formatted != "123.456.789-01" {
		t.Errorf("formatted = %q", formatted)
	}

	// Non-canonical input keeps the raw string as the second candidate.
	digits, formatted = Candidates("99-88")
	if digits != "9988" {
		t.Errorf("digits = %q", digits)
	}
	if formatted != "99-88" {
		t.Errorf("formatted = %q", formatted)
	}
}
