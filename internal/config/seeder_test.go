package config

import (
	"testing"

	"cmm-stock/internal/adapters/persistence/models"
	"cmm-stock/internal/core/domain"
	"cmm-stock/internal/pkg/password"
	"cmm-stock/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeederCreatesAdminOnce(t *testing.T) {
	password.Cost = bcrypt.MinCost
	db := testutil.OpenDB(t)

	seed := SeedConfig{AdminEmail: "Admin@CMM.co.id", AdminPassword: "rahasia"}
	require.NoError(t, NewSeeder(db, seed).Run())
	require.NoError(t, NewSeeder(db, seed).Run())

	var admins []models.User
	require.NoError(t, db.Where("role = ?", domain.RoleAdmin).Find(&admins).Error)
	require.Len(t, admins, 1)
	assert.Equal(t, "admin@cmm.co.id", admins[0].Email)
	assert.True(t, password.Verify("rahasia", admins[0].Password))
}

func TestSeederSkipsWithoutCredentials(t *testing.T) {
	db := testutil.OpenDB(t)

	require.NoError(t, NewSeeder(db, SeedConfig{}).Run())

	var n int64
	require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
	assert.Zero(t, n)
}
