package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBankDetailsIsComplete(t *testing.T) {
	full := BankDetails{BankCode: "058", AccountNumber: "0123456789", AccountName: "Ikeja Auto Parts"}
	assert.True(t, full.IsComplete())

	missingName := full
	missingName.AccountName = "  "
	assert.False(t, missingName.IsComplete())

	assert.False(t, BankDetails{}.IsComplete())
}
