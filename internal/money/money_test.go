package money

import "testing"

func TestParsePositive(t *testing.T) {
	value, err := ParsePositive("150.25")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value.String() != "150.25" {
		t.Fatalf("unexpected value: %s", value)
	}
}

func TestParsePositiveRejectsZeroAndNegative(t *testing.T) {
	for _, input := range []string{"0", "0.00", "-10", "-0.01"} {
		if _, err := ParsePositive(input); err != ErrInvalidAmount {
			t.Fatalf("input %q: expected ErrInvalidAmount, got %v", input, err)
		}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "  ", "abc", "1.2.3", "1e"} {
		if _, err := Parse(input); err != ErrInvalidAmount {
			t.Fatalf("input %q: expected ErrInvalidAmount, got %v", input, err)
		}
	}
}

func TestParseRejectsExcessScale(t *testing.T) {
	if _, err := Parse("1.000000001"); err != ErrTooManyDecimals {
		t.Fatalf("expected ErrTooManyDecimals, got %v", err)
	}
	if _, err := Parse("1.00000001"); err != nil {
		t.Fatalf("eight decimals should parse, got %v", err)
	}
}

func TestFormat(t *testing.T) {
	value, err := Parse("10.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Format(value) != "10.50" {
		t.Fatalf("unexpected format: %s", Format(value))
	}
}

func TestClamp(t *testing.T) {
	negative, _ := Parse("-3")
	if !Clamp(negative).IsZero() {
		t.Fatalf("negative balance should clamp to zero")
	}
	positive, _ := Parse("3")
	if !Clamp(positive).Equal(positive) {
		t.Fatalf("positive balance should pass through")
	}
}
