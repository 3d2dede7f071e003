package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, r := range Roles {
		got, err := ParseRole(string(r))
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	got, err := ParseRole("")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, got)

	for _, bad := range []string{"admin", "ADMIN", "Admin ", "Superuser"} {
		_, err := ParseRole(bad)
		assert.ErrorIs(t, err, ErrInvalidInput, bad)
	}
}

func TestCanWriteTransactions(t *testing.T) {
	assert.True(t, RoleAdmin.CanWriteTransactions())
	assert.True(t, RoleManager.CanWriteTransactions())
	assert.False(t, RoleStaff.CanWriteTransactions())
	assert.False(t, RoleUser.CanWriteTransactions())
	assert.False(t, Role("Admn").CanWriteTransactions())
}

func TestTransactionClass(t *testing.T) {
	assert.Equal(t, "inv_transaksi_masuk", ClassInbound.Table())
	assert.Equal(t, "inv_transaksi_keluar", ClassOutbound.Table())
	assert.Equal(t, "IN", ClassInbound.Code())
	assert.Equal(t, "OUT", ClassOutbound.Code())
	assert.Equal(t, "Transaksi Keluar", ClassOutbound.Label())
	assert.Panics(t, func() { TransactionClass("sideways").Table() })
}
