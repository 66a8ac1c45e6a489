package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trimslot/trimslot/pkg/identity"
)

func TestResolveSuperAdmin(t *testing.T) {
	sa := identity.NewSuperAdmin("sa-1")

	t.Run("no override yields global scope", func(t *testing.T) {
		tc, err := Resolve(sa, "")
		require.NoError(t, err)
		assert.True(t, tc.IsGlobal())
		_, ok := tc.OrganizationID()
		assert.False(t, ok)
	})

	t.Run("override acts as that tenant", func(t *testing.T) {
		tc, err := Resolve(sa, "org-7")
		require.NoError(t, err)
		assert.False(t, tc.IsGlobal())
		orgID, ok := tc.OrganizationID()
		require.True(t, ok)
		assert.Equal(t, "org-7", orgID)
	})
}

func TestResolveScopedPrincipal(t *testing.T) {
	p, err := identity.NewScoped("u-1", "org-1", identity.RoleEmployee)
	require.NoError(t, err)

	t.Run("defaults to own organization", func(t *testing.T) {
		tc, err := Resolve(p, "")
		require.NoError(t, err)
		orgID, ok := tc.OrganizationID()
		require.True(t, ok)
		assert.Equal(t, "org-1", orgID)
	})

	t.Run("matching override is a no-op", func(t *testing.T) {
		tc, err := Resolve(p, "org-1")
		require.NoError(t, err)
		orgID, _ := tc.OrganizationID()
		assert.Equal(t, "org-1", orgID)
	})

	t.Run("foreign override is forbidden", func(t *testing.T) {
		_, err := Resolve(p, "org-2")
		assert.ErrorIs(t, err, ErrForbiddenScope)
	})
}

func TestContextCovers(t *testing.T) {
	assert.True(t, Global().Covers("org-1"))
	assert.True(t, Global().Covers("org-2"))
	assert.True(t, For("org-1").Covers("org-1"))
	assert.False(t, For("org-1").Covers("org-2"))
}

func TestContextString(t *testing.T) {
	assert.Equal(t, "global", Global().String())
	assert.Equal(t, "org-1", For("org-1").String())
}
