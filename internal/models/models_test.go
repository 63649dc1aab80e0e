package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentMethodValid(t *testing.T) {
	for _, m := range []PaymentMethod{PaymentCash, PaymentCard, PaymentUPI, PaymentWallet} {
		assert.True(t, m.Valid(), "expected %s to be valid", m)
	}

	assert.False(t, PaymentMethod("").Valid())
	assert.False(t, PaymentMethod("BITCOIN").Valid())
	assert.False(t, PaymentMethod("cash").Valid(), "payment methods are case sensitive")
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleManager, RoleCashier} {
		assert.True(t, r.Valid(), "expected %s to be valid", r)
	}

	assert.False(t, Role("CLERK").Valid())
	assert.False(t, Role("").Valid())
}
