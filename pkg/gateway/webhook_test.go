package gateway

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"event":"charge.completed"}`)
	sig := Sign(payload, "whsec")

	require.True(t, VerifySignature(payload, "whsec", sig))
	require.False(t, VerifySignature(payload, "other", sig))
	require.False(t, VerifySignature(payload, "whsec", ""))
	require.False(t, VerifySignature([]byte(`{"event":"x"}`), "whsec", sig))
}

func TestParseEventReferences(t *testing.T) {
	charge, err := ParseEvent([]byte(`{"event":"charge.completed","data":{"id":7,"tx_ref":"PAY-1","status":"successful","amount":"150.25"}}`))
	require.NoError(t, err)
	require.Equal(t, "PAY-1", charge.Reference())
	require.Equal(t, StatusSuccessful, charge.Outcome())
	require.Equal(t, int64(15025), charge.AmountCents())

	transfer, err := ParseEvent([]byte(`{"event":"transfer.completed","data":{"id":9,"reference":"PO-1","status":"FAILED"}}`))
	require.NoError(t, err)
	require.Equal(t, "PO-1", transfer.Reference())
	require.Equal(t, StatusFailed, transfer.Outcome())
}

func TestParseEventRejectsMissingType(t *testing.T) {
	_, err := ParseEvent([]byte(`{"data":{}}`))
	require.Error(t, err)

	_, err = ParseEvent([]byte(`not json`))
	require.Error(t, err)
}
