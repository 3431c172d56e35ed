package deepsearch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulesweep/rulesweep/pkg/deepsearch"
	"github.com/rulesweep/rulesweep/pkg/rule"
)

func findVariant(variants []deepsearch.Variant, original string) *deepsearch.Variant {
	for i := range variants {
		if variants[i].Original == original {
			return &variants[i]
		}
	}
	return nil
}

func TestGenerateVariants_CaseForms(t *testing.T) {
	variants := deepsearch.GenerateVariants("CNIC", "Aadhar")
	require.NotEmpty(t, variants)

	// The exact pair leads.
	assert.Equal(t, "CNIC", variants[0].Original)
	assert.Equal(t, "Aadhar", variants[0].Replacement)
	assert.Equal(t, "Exact", variants[0].Category)

	lower := findVariant(variants, "cnic")
	require.NotNil(t, lower)
	assert.Equal(t, "aadhar", lower.Replacement)

	pascal := findVariant(variants, "Cnic")
	require.NotNil(t, pascal)
	assert.Equal(t, "Aadhar", pascal.Replacement)
}

func TestGenerateVariants_Prefixes(t *testing.T) {
	variants := deepsearch.GenerateVariants("Cnic", "Aadhar")

	txt := findVariant(variants, "txtCnic")
	require.NotNil(t, txt)
	assert.Equal(t, "txtAadhar", txt.Replacement)
	assert.Equal(t, "Prefix: txt*", txt.Category)

	col := findVariant(variants, "col_cnic")
	require.NotNil(t, col)
	assert.Equal(t, "col_aadhar", col.Replacement)

	colUpper := findVariant(variants, "col_CNIC")
	require.NotNil(t, colUpper)
	assert.Equal(t, "col_AADHAR", colUpper.Replacement)

	underscore := findVariant(variants, "_cnic")
	require.NotNil(t, underscore)
	assert.Equal(t, "_aadhar", underscore.Replacement)
}

func TestGenerateVariants_SnakeCase(t *testing.T) {
	variants := deepsearch.GenerateVariants("EmployeeCnic", "EmployeeAadhar")

	snake := findVariant(variants, "employee_cnic")
	require.NotNil(t, snake)
	assert.Equal(t, "employee_aadhar", snake.Replacement)

	shout := findVariant(variants, "EMPLOYEE_CNIC")
	require.NotNil(t, shout)
	assert.Equal(t, "EMPLOYEE_AADHAR", shout.Replacement)
}

func TestGenerateVariants_NoDuplicatesOrIdentity(t *testing.T) {
	variants := deepsearch.GenerateVariants("cnic", "cnic")
	assert.Empty(t, variants, "identical keywords generate nothing")

	variants = deepsearch.GenerateVariants("abc", "xyz")
	seen := make(map[[2]string]bool)
	for _, v := range variants {
		key := [2]string{v.Original, v.Replacement}
		assert.False(t, seen[key], "duplicate variant %v", key)
		seen[key] = true
		assert.NotEqual(t, v.Original, v.Replacement)
	}
}

func TestGenerateVariants_BlankInput(t *testing.T) {
	assert.Empty(t, deepsearch.GenerateVariants("", "x"))
	assert.Empty(t, deepsearch.GenerateVariants("x", "  "))
}

func TestGenerateFromRules_TagsSource(t *testing.T) {
	variants := deepsearch.GenerateFromRules([]rule.Rule{
		{ID: 4, Name: "rename-cnic", SearchPattern: "CNIC", ReplacementText: "Aadhar"},
	})
	require.NotEmpty(t, variants)
	for _, v := range variants {
		assert.Equal(t, int64(4), v.SourceRuleID)
		assert.Equal(t, "rename-cnic", v.SourceRuleName)
	}
}

func TestAsRules_OnlySelected(t *testing.T) {
	rules := deepsearch.AsRules([]deepsearch.Variant{
		{Original: "cnic", Replacement: "aadhar", Category: "Case Variant", Selected: true},
		{Original: "CNIC", Replacement: "AADHAR", Category: "Case Variant", Selected: false},
	})
	require.Len(t, rules, 1)
	assert.Equal(t, "cnic", rules[0].SearchPattern)
	assert.True(t, rules[0].CaseSensitive)
	assert.True(t, rules[0].IsActive)
}
