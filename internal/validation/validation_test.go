package validation

import (
	"errors"
	"testing"
)

func TestIsValidPhone(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		valid bool
	}{
		{name: "plus prefixed", phone: "+998901234567", valid: true},
		{name: "digits only", phone: "998901234567", valid: true},
		{name: "plus only", phone: "+", valid: false},
		{name: "letters", phone: "call me", valid: false},
		{name: "digits with letters", phone: "99890abc", valid: false},
		{name: "empty string", phone: "", valid: false},
		{name: "arabic-indic digits", phone: "+٠١٢٣٤٥٦", valid: false},
		{name: "fullwidth digits", phone: "９９８９０１", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidPhone(tt.phone)
			if got != tt.valid {
				t.Fatalf("IsValidPhone(%q) = %v, want %v", tt.phone, got, tt.valid)
			}
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	if got := NormalizePhone(" +998 (90) 123-45-67 "); got != "+998901234567" {
		t.Fatalf("NormalizePhone = %q, want +998901234567", got)
	}
}

func TestHasHouseNumber(t *testing.T) {
	if !HasHouseNumber("15") {
		t.Fatalf("expected house number in %q", "15")
	}
	if !HasHouseNumber("кв. 4") {
		t.Fatalf("expected house number in %q", "кв. 4")
	}
	if HasHouseNumber("near the park") {
		t.Fatalf("unexpected house number in %q", "near the park")
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "integer", input: "50000", want: "50000"},
		{name: "comma decimal", input: "12,5", want: "12.5"},
		{name: "rounded", input: "1.005", want: "1.01"},
		{name: "negative", input: "-5", wantErr: ErrAmountNotPositive},
		{name: "zero", input: "0", wantErr: ErrAmountNotPositive},
		{name: "rounds to zero", input: "0.001", wantErr: ErrAmountNotPositive},
		{name: "not a number", input: "ten", wantErr: ErrAmountFormat},
		{name: "too large", input: "100000000000", wantErr: ErrAmountTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseAmount(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) unexpected error: %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Fatalf("ParseAmount(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsValidCode(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{code: "ZZZZ0000", valid: true},
		{code: "AB12CD34", valid: true},
		{code: "ab12cd34", valid: false},
		{code: "ZZZZ000", valid: false},
		{code: "ZZZZ-000", valid: false},
	}

	for _, tt := range tests {
		if got := IsValidCode(tt.code); got != tt.valid {
			t.Fatalf("IsValidCode(%q) = %v, want %v", tt.code, got, tt.valid)
		}
	}

	if got := NormalizeCode("  zzzz0000 "); got != "ZZZZ0000" {
		t.Fatalf("NormalizeCode = %q, want ZZZZ0000", got)
	}
}
