package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRoles(t *testing.T) {
	out := NormalizeRoles([]UserRole{" Admin ", "viewer", "ADMIN", "", "editor"})
	assert.Equal(t, []UserRole{RoleAdmin, RoleViewer, RoleEditor}, out)
}

func TestEnsureDefaultRole(t *testing.T) {
	assert.Equal(t, []UserRole{RoleViewer}, EnsureDefaultRole(nil))
	assert.Equal(t, []UserRole{RoleAdmin, RoleViewer}, EnsureDefaultRole([]UserRole{RoleAdmin}))

	withViewer := []UserRole{RoleViewer, RoleEditor}
	assert.Equal(t, withViewer, EnsureDefaultRole(withViewer))
}

func TestHighestRole(t *testing.T) {
	assert.Equal(t, RoleViewer, HighestRole(nil))
	assert.Equal(t, RoleAdmin, HighestRole([]UserRole{RoleViewer, RoleAdmin, RoleEditor}))
	assert.Equal(t, RoleEditor, HighestRole([]UserRole{RoleEditor, RoleViewer}))
}

func TestHasAtLeast(t *testing.T) {
	roles := []UserRole{RoleViewer, RoleEditor}

	assert.True(t, HasAtLeast(roles, RoleViewer))
	assert.True(t, HasAtLeast(roles, RoleEditor))
	assert.False(t, HasAtLeast(roles, RoleAdmin))
	assert.False(t, HasAtLeast(roles, UserRole("owner")))
	assert.False(t, HasAtLeast(nil, RoleViewer))
}

func TestIsValidRoleList(t *testing.T) {
	assert.False(t, IsValidRoleList(nil))
	assert.True(t, IsValidRoleList([]UserRole{RoleViewer, RoleAdmin}))
	assert.False(t, IsValidRoleList([]UserRole{RoleViewer, "owner"}))
}
