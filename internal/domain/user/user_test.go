package user

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"+56912345678", true},
		{"+56212345678", true},
		{"+56312345678", false},
		{"+5691234567", false},
		{"+569123456789", false},
		{"56912345678", false},
		{"+56 9 1234 5678", false},
		{"+5691234567a", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidPhone(tt.phone))
		})
	}
}

func TestUser_SafeHidesPassword(t *testing.T) {
	u := New(" Ana@Example.com ", "Ana", "+56912345678", RoleMember, "hash", time.Now())

	raw, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hash")

	safe, err := json.Marshal(u.Safe())
	require.NoError(t, err)
	assert.NotContains(t, string(safe), "password")
	assert.Contains(t, string(safe), `"email":"ana@example.com"`)
}

func TestNew_DefaultsUnknownRole(t *testing.T) {
	u := New("a@b.cl", "A", "", Role("root"), "hash", time.Now())
	assert.Equal(t, RoleMember, u.Role)
	assert.True(t, u.IsActive)
}

func TestUser_ConnectTo(t *testing.T) {
	u := New("a@b.cl", "A", "", RoleMember, "hash", time.Now().Add(-time.Hour))
	companyID, tenantID := uuid.New(), uuid.New()
	now := time.Now()

	u.ConnectTo(companyID, tenantID, now)

	assert.True(t, u.BelongsToCompany(companyID))
	assert.True(t, u.BelongsToTenant(tenantID))
	assert.False(t, u.BelongsToTenant(uuid.New()))
	assert.Equal(t, now, *u.UpdatedAt)
}
