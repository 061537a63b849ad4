package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoleHierarchy(t *testing.T) {
	assert.True(t, RoleAdmin.IsAtLeast(RoleClient))
	assert.True(t, RoleAdmin.IsAtLeast(RoleAdmin))
	assert.True(t, RoleWorker.IsAtLeast(RoleClient))
	assert.False(t, RoleClient.IsAtLeast(RoleWorker))
	assert.False(t, UserRole("stranger").IsAtLeast(RoleClient))
	assert.False(t, RoleAdmin.IsAtLeast(UserRole("stranger")))
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole("worker")
	assert.True(t, ok)
	assert.Equal(t, RoleWorker, role)

	_, ok = ParseRole("superuser")
	assert.False(t, ok)
}

func TestGetAllRoles(t *testing.T) {
	roles := GetAllRoles()
	assert.Equal(t, []UserRole{RoleClient, RoleWorker, RoleAdmin}, roles)
	for _, r := range roles {
		assert.True(t, r.IsValid())
	}
}

func TestUserIsConnected(t *testing.T) {
	assert.True(t, (&User{Status: StatusConnected}).IsConnected())
	assert.False(t, (&User{Status: StatusDisconnected}).IsConnected())
	assert.False(t, (*User)(nil).IsConnected())
}

func TestUserIsInactive(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	recent := time.Now().Add(-time.Minute)

	assert.True(t, (&User{LastActivityAt: &past}).IsInactive(time.Hour))
	assert.False(t, (&User{LastActivityAt: &recent}).IsInactive(time.Hour))
	assert.False(t, (&User{}).IsInactive(time.Hour), "no recorded activity is not staleness")
}
