package normalization

import (
	"testing"
)

type testEnum string

const (
	testEnumAlpha    testEnum = "alpha"
	testEnumBeta     testEnum = "beta"
	testEnumTwoWords testEnum = "two-words"
)

func TestNormalizer_Basic(t *testing.T) {
	normalizer := NewNormalizer(map[string]testEnum{
		"alpha":     testEnumAlpha,
		"beta":      testEnumBeta,
		"two-words": testEnumTwoWords,
	}, testEnumAlpha)

	tests := []struct {
		name     string
		input    string
		expected testEnum
	}{
		{"exact match", "alpha", testEnumAlpha},
		{"case insensitive", "BETA", testEnumBeta},
		{"with spaces", "  beta  ", testEnumBeta},
		{"underscores", "Two_Words", testEnumTwoWords},
		{"invalid input", "invalid", testEnumAlpha},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := normalizer.Normalize(tt.input)
			if result != tt.expected {
				t.Errorf("Normalize(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizer_WithError(t *testing.T) {
	normalizer := NewNormalizer(map[string]testEnum{
		"alpha": testEnumAlpha,
		"beta":  testEnumBeta,
	}, testEnumAlpha)

	result, err := normalizer.NormalizeWithError("ALPHA")
	if err != nil {
		t.Errorf("NormalizeWithError(valid input) returned error: %v", err)
	}
	if result != testEnumAlpha {
		t.Errorf("NormalizeWithError(valid input) = %v, want %v", result, testEnumAlpha)
	}

	_, err = normalizer.NormalizeWithError("gamma")
	if err == nil {
		t.Fatal("expected error for invalid input")
	}

	keys := normalizer.ValidKeys()
	if len(keys) != 2 || keys[0] != "alpha" || keys[1] != "beta" {
		t.Errorf("ValidKeys() = %v, want sorted [alpha beta]", keys)
	}
}
