package pii

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternDetector(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		typ   string
		start int
		end   int
	}{
		{"email", "contact alice@example.com now", TypeEmail, 8, 25},
		{"ssn", "ssn 123-45-6789", TypeSSN, 4, 15},
		{"credit card", "card 4111 1111 1111 1111 exp", TypeCreditCard, 5, 24},
		{"phone with parens", "call (555) 123-4567", TypePhone, 5, 19},
		{"phone dashed", "call 555-123-4567 today", TypePhone, 5, 17},
		{"ipv4", "host 10.0.0.1 down", TypeIPAddress, 5, 13},
		{"rune offsets", "Żółw: bob@x.io", TypeEmail, 6, 14},
	}

	d := NewPatternDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings, err := d.DetectPII(context.Background(), tt.text)
			require.NoError(t, err)
			require.Len(t, findings, 1)
			assert.Equal(t, tt.typ, findings[0].Type)
			assert.Equal(t, tt.start, findings[0].Start)
			assert.Equal(t, tt.end, findings[0].End)
			assert.Greater(t, findings[0].Confidence, 0.0)
		})
	}
}

func TestPatternDetector_RejectsInvalidCardNumbers(t *testing.T) {
	findings, err := NewPatternDetector().DetectPII(context.Background(), "ref 4111 1111 1111 1112")
	require.NoError(t, err)
	for _, f := range findings {
		assert.NotEqual(t, TypeCreditCard, f.Type)
	}
}

func TestPatternDetector_NoOverlapAndOrdered(t *testing.T) {
	text := "mail a@b.io, ssn 123-45-6789, call 555.123.4567, ip 192.168.1.20"
	findings, err := NewPatternDetector().DetectPII(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, findings, 4)

	for i := 1; i < len(findings); i++ {
		assert.LessOrEqual(t, findings[i-1].End, findings[i].Start)
	}
	assert.Equal(t, TypeEmail, findings[0].Type)
	assert.Equal(t, TypeIPAddress, findings[3].Type)
}

func TestPatternDetector_Empty(t *testing.T) {
	findings, err := NewPatternDetector().DetectPII(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, findings)
	assert.Empty(t, findings)
}

func TestPatternDetector_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPatternDetector().DetectPII(ctx, "a@b.io")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLuhnValid(t *testing.T) {
	assert.True(t, luhnValid("4111111111111111"))
	assert.True(t, luhnValid("5500-0000-0000-0004"))
	assert.False(t, luhnValid("4111111111111112"))
	assert.False(t, luhnValid("1234"))
}
