package notes

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fyrsmithlabs/redactd/internal/pii"
	"github.com/fyrsmithlabs/redactd/internal/pin"
	"github.com/fyrsmithlabs/redactd/internal/redaction"
	"github.com/fyrsmithlabs/redactd/internal/secrets"
	"github.com/fyrsmithlabs/redactd/internal/spans"
	"github.com/fyrsmithlabs/redactd/internal/store"
)

const content = "Email alice@example.com, password=S3cr3tPass!"

var maskedPassword = "S" + strings.Repeat("█", 9) + "!"

func newService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	st := store.NewMemoryStore()
	eng := secrets.MustNewEngine(nil, nil, logger)

	m, err := spans.NewMaterializer(pii.NewPatternDetector(), eng, st, nil, logger)
	require.NoError(t, err)
	g, err := pin.NewGuard(st, pin.DefaultConfig(), logger)
	require.NoError(t, err)

	svc, err := NewService(st, m, g, eng, nil, logger)
	require.NoError(t, err)
	return svc, st
}

func TestService_PreviewRedaction(t *testing.T) {
	tests := []struct {
		name       string
		level      int
		policy     string
		want       string
		policyName string
	}{
		{"public shows everything", 0, "", content, "Public"},
		{"internal hides secrets", 1, "", "Email alice@example.com, password=" + maskedPassword, "Internal"},
		{"confidential hides both", 2, "", "Email a●●●●@example.com, password=" + maskedPassword, "Confidential"},
		{"policy name tightens", 1, "secret", "Email a●●●●@example.com, password=" + maskedPassword, "Secret"},
		{"policy name cannot loosen", 2, "public", "Email a●●●●@example.com, password=" + maskedPassword, "Confidential"},
		{"unknown policy name is confidential", 0, "whatever", "Email a●●●●@example.com, password=" + maskedPassword, "Confidential"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(t)
			ctx := context.Background()

			note, err := svc.CreateNote(ctx, content, tt.level)
			require.NoError(t, err)

			preview, err := svc.PreviewRedaction(ctx, note.ID, tt.policy)
			require.NoError(t, err)
			assert.Equal(t, note.ID, preview.NoteID)
			assert.Equal(t, tt.level, preview.SensitivityLevel)
			assert.Equal(t, tt.want, preview.MaskedText)
			assert.Equal(t, tt.policyName, preview.Policy)
			assert.Len(t, preview.Spans, 2)
		})
	}
}

func TestService_PreviewRedaction_SpansPersistedOnce(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	note, err := svc.CreateNote(ctx, content, 2)
	require.NoError(t, err)

	first, err := svc.PreviewRedaction(ctx, note.ID, "")
	require.NoError(t, err)
	second, err := svc.PreviewRedaction(ctx, note.ID, "")
	require.NoError(t, err)

	assert.Equal(t, first.MaskedText, second.MaskedText)
	stored, err := st.ListSpans(ctx, note.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	assert.Equal(t, stored[0].ID, second.Spans[0].ID)
}

func TestService_PreviewRedaction_NotFound(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.PreviewRedaction(context.Background(), "missing", "")
	assert.ErrorIs(t, err, ErrNoteNotFound)
}

func TestService_CreateNoteValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateNote(ctx, "", 0)
	assert.ErrorIs(t, err, ErrEmptyContent)
	_, err = svc.CreateNote(ctx, "x", 4)
	assert.ErrorIs(t, err, ErrInvalidSensitivity)
	_, err = svc.CreateNote(ctx, "x", -1)
	assert.ErrorIs(t, err, ErrInvalidSensitivity)
}

func TestService_DeleteNote(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	note, err := svc.CreateNote(ctx, content, 1)
	require.NoError(t, err)
	_, err = svc.PreviewRedaction(ctx, note.ID, "")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteNote(ctx, note.ID))
	_, err = svc.GetNote(ctx, note.ID)
	assert.ErrorIs(t, err, ErrNoteNotFound)
	_, err = st.ListSpans(ctx, note.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, svc.DeleteNote(ctx, note.ID), ErrNoteNotFound)
}

func TestService_RedactText(t *testing.T) {
	svc, _ := newService(t)
	text := "John said sk-abcd is live"
	spanSet := []redaction.Span{
		{Start: 0, End: 4, Label: "PII_NAME"},
		{Start: 10, End: 14, Label: "SECRET_API_KEY"},
	}

	got := svc.RedactText(text, 1, spanSet)
	assert.True(t, strings.HasPrefix(got, "John said "))
	assert.Equal(t, "████", string([]rune(got)[10:14]))
	assert.Equal(t, text, svc.RedactText(text, 0, spanSet))
}

func TestService_VoicePin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	assert.False(t, svc.VerifyVoicePin(ctx, "1234", "u1"))
	require.NoError(t, svc.SetVoicePin(ctx, "1234", "u1"))
	assert.True(t, svc.VerifyVoicePin(ctx, "1234", "u1"))
	assert.False(t, svc.VerifyVoicePin(ctx, "9999", "u1"))
}

func TestService_Disclose(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	internal, err := svc.CreateNote(ctx, content, 1)
	require.NoError(t, err)
	got, err := svc.Disclose(ctx, internal.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	confidential, err := svc.CreateNote(ctx, content, 2)
	require.NoError(t, err)

	_, err = svc.Disclose(ctx, confidential.ID, "u1", "1234")
	assert.ErrorIs(t, err, ErrPinRejected, "no pin set yet")

	require.NoError(t, svc.SetVoicePin(ctx, "1234", "u1"))
	_, err = svc.Disclose(ctx, confidential.ID, "u1", "0000")
	assert.ErrorIs(t, err, ErrPinRejected)

	got, err = svc.Disclose(ctx, confidential.ID, "u1", "1234")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = svc.Disclose(ctx, "missing", "u1", "1234")
	assert.ErrorIs(t, err, ErrNoteNotFound)
}

func TestService_Disclose_ManyNotesInARow(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.SetVoicePin(ctx, "1234", "u1"))

	for i := 0; i < 10; i++ {
		note, err := svc.CreateNote(ctx, content, redaction.LevelConfidential)
		require.NoError(t, err)
		got, err := svc.Disclose(ctx, note.ID, "u1", "1234")
		require.NoError(t, err, "disclosure %d", i+1)
		assert.Equal(t, content, got)
	}
}

func TestService_ScanText(t *testing.T) {
	svc, _ := newService(t)

	report, err := svc.ScanText(context.Background(), "key=AKIAABCDEFGHIJKLMN password=S3cr3tPass!")
	require.NoError(t, err)
	require.Len(t, report.Detections, 2)
	assert.Equal(t, secrets.TypeAWSAccessKey, report.Detections[0].Type)
	assert.Equal(t, secrets.TypePassword, report.Detections[1].Type)
}
