package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileFilter_Invalid(t *testing.T) {
	_, err := CompileFilter([]string{".kind =="})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse jq filter")
}

func TestFilter_Empty(t *testing.T) {
	f, err := CompileFilter(nil)
	require.NoError(t, err)
	assert.True(t, f.Empty())

	rep := New(sampleRecord(), sampleExtraction())
	out, err := f.Apply(rep)
	require.NoError(t, err)
	assert.Same(t, rep, out)
}

func TestFilter_Apply(t *testing.T) {
	tests := []struct {
		name    string
		exprs   []string
		indexes []int
	}{
		{
			name:    "by kind",
			exprs:   []string{`.kind == "token"`},
			indexes: []int{2},
		},
		{
			name:    "by delta",
			exprs:   []string{`.delta >= 30`},
			indexes: []int{1, 2},
		},
		{
			name:    "all must match",
			exprs:   []string{`.kind == "sol"`, `.delta > 10`},
			indexes: []int{1},
		},
		{
			name:    "ui_delta compares as a number",
			exprs:   []string{`.ui_delta > 1`},
			indexes: []int{2},
		},
		{
			name:    "ui_delta below one",
			exprs:   []string{`.ui_delta < 0.0000001`},
			indexes: []int{1, 4},
		},
		{
			name:    "missing field is falsy",
			exprs:   []string{`.owner`},
			indexes: []int{2},
		},
		{
			name:    "runtime error is no match",
			exprs:   []string{`.kind | tonumber`},
			indexes: []int{},
		},
		{
			name:    "empty result is no match",
			exprs:   []string{`empty`},
			indexes: []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := CompileFilter(tt.exprs)
			require.NoError(t, err)
			assert.Equal(t, tt.exprs, f.Exprs())

			rep := New(sampleRecord(), sampleExtraction())
			out, err := f.Apply(rep)
			require.NoError(t, err)

			got := make([]int, 0, len(out.Events))
			for _, ev := range out.Events {
				got = append(got, ev.Index)
			}
			assert.Equal(t, tt.indexes, got)

			// The input report is left untouched.
			assert.Len(t, rep.Events, 3)
			assert.Equal(t, rep.Signature, out.Signature)
		})
	}
}

func TestFilter_MatchLargeDelta(t *testing.T) {
	ev := Event{Kind: "token", Delta: 9007199254740993, UIDelta: ScaleAmount(9007199254740993, 0)}

	tests := []struct {
		expr string
		want bool
	}{
		{`.delta > 9007199254740992`, true},
		{`.delta == 9007199254740993`, true},
		{`.delta < 9007199254740993`, false},
		{`.ui_delta > 9007199254740992`, true},
	}
	for _, tt := range tests {
		f, err := CompileFilter([]string{tt.expr})
		require.NoError(t, err)

		got, err := f.Match(ev)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.expr)
	}
}

func TestFilter_MatchMaxUint64Delta(t *testing.T) {
	ev := Event{Kind: "token", Delta: 18446744073709551615, UIDelta: ScaleAmount(18446744073709551615, 6)}

	f, err := CompileFilter([]string{`.delta > 18446744073709551614`})
	require.NoError(t, err)

	got, err := f.Match(ev)
	require.NoError(t, err)
	assert.True(t, got)
}
