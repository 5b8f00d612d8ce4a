// Test Type: Unit Test
// Description: Tests for the condition package - expression parsing and evaluation

package condition_test

import (
	"testing"

	"github.com/arthur-debert/fuzzgen/pkg/condition"
	"github.com/arthur-debert/fuzzgen/pkg/errors"
	"github.com/arthur-debert/fuzzgen/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() *types.Context {
	return &types.Context{
		ProjectName: "my-project",
		TargetName:  "my-project",
		Integration: "make",
		Fuzzer:      "libfuzzer",
		Minimal:     false,
		Variables:   map[string]string{"license": "mit"},
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want bool
	}{
		{
			name: "string_equality_match",
			expr: "integration == 'make'",
			want: true,
		},
		{
			name: "string_equality_mismatch",
			expr: "integration == 'cmake'",
			want: false,
		},
		{
			name: "boolean_literal",
			expr: "minimal == false",
			want: true,
		},
		{
			name: "and_both_true",
			expr: "integration == 'make' && minimal == false",
			want: true,
		},
		{
			name: "and_one_false",
			expr: "integration == 'make' && minimal == true",
			want: false,
		},
		{
			name: "or_one_true",
			expr: "integration == 'cmake' || integration == 'make'",
			want: true,
		},
		{
			name: "manifest_variable",
			expr: "license == 'mit'",
			want: true,
		},
		{
			name: "three_clauses",
			expr: "fuzzer == 'libfuzzer' && integration == 'make' && minimal == false",
			want: true,
		},
		{
			// Strict left-associativity: (false && true) || true == true.
			// Standard precedence (&& binding tighter) would give the
			// same value here, so also check the mirrored case below.
			name: "mixed_operators_left_assoc",
			expr: "integration == 'cmake' && minimal == false || fuzzer == 'libfuzzer'",
			want: true,
		},
		{
			// (true || true) && false == false under left-assoc;
			// standard precedence would give true || (true && false) == true.
			name: "left_assoc_differs_from_precedence",
			expr: "integration == 'make' || minimal == false && minimal == true",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := condition.Evaluate(tt.expr, testContext())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateDeterminism(t *testing.T) {
	expr, err := condition.Parse("integration == 'make' && minimal == false")
	require.NoError(t, err)

	ctx := testContext()
	first, err := expr.Eval(ctx)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		again, err := expr.Eval(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEvaluateUnknownVariable(t *testing.T) {
	_, err := condition.Evaluate("no_such_variable == 'x'", testContext())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrUnknownVariable))

	details := errors.GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, "no_such_variable", details["variable"])
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"empty", ""},
		{"missing_operator", "integration 'make'"},
		{"missing_literal", "integration =="},
		{"unquoted_literal", "integration == make"},
		{"unterminated_literal", "integration == 'make"},
		{"dangling_operator", "integration == 'make' &&"},
		{"not_equals_unsupported", "integration != 'make'"},
		{"trailing_garbage", "integration == 'make' extra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := condition.Parse(tt.expr)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrConditionSyntax))
		})
	}
}

func TestParsedExprString(t *testing.T) {
	expr, err := condition.Parse("integration == 'make' && minimal == false")
	require.NoError(t, err)
	assert.Equal(t, "(integration == 'make' && minimal == 'false')", expr.String())
}
