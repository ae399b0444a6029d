package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"masters/internal/masters/store"
	"masters/pkg/domain"
)

func TestKeysAreDeterministic(t *testing.T) {
	keys := NewKeys("masters")
	scope := store.Scope{TenantID: "acme", Scoped: true}
	f := store.Filter{Search: "germ"}

	assert.Equal(t, keys.List("countries", scope, f), keys.List("countries", scope, f))
	id := domain.NewRecordID()
	assert.Equal(t, keys.Record("countries", id, scope), keys.Record("countries", id, scope))
}

func TestKeysSeparateTenants(t *testing.T) {
	keys := NewKeys("masters")
	a := store.Scope{TenantID: "acme", Scoped: true}
	b := store.Scope{TenantID: "globex", Scoped: true}
	global := store.Scope{}

	assert.NotEqual(t, keys.List("countries", a, store.Filter{}), keys.List("countries", b, store.Filter{}))
	assert.Contains(t, keys.List("countries", global, store.Filter{}), ":global:")
}

func TestKeysSeparateFilters(t *testing.T) {
	keys := NewKeys("masters")
	scope := store.Scope{}

	plain := keys.List("countries", scope, store.Filter{})
	searched := keys.List("countries", scope, store.Filter{Search: "germ"})
	active := true
	filtered := keys.List("countries", scope, store.Filter{IsActive: &active})

	assert.True(t, strings.HasSuffix(plain, ":all"), "empty filter gets the literal token")
	assert.NotEqual(t, plain, searched)
	assert.NotEqual(t, searched, filtered)
}

func TestFilterValuesCannotForgeOtherFields(t *testing.T) {
	keys := NewKeys("masters")
	scope := store.Scope{}

	// A separator inside a value must not collide with the same bytes
	// spread over two fields.
	smuggled := keys.List("countries", scope, store.Filter{Name: strPtr("a|code=b")})
	split := keys.List("countries", scope, store.Filter{Name: strPtr("a"), Code: strPtr("b")})
	assert.NotEqual(t, smuggled, split)

	shifted := keys.List("countries", scope, store.Filter{Name: strPtr("ab"), Code: strPtr("c")})
	other := keys.List("countries", scope, store.Filter{Name: strPtr("a"), Code: strPtr("bc")})
	assert.NotEqual(t, shifted, other)
}

func TestRecordKeyUnderRecordPrefix(t *testing.T) {
	keys := NewKeys("masters")
	id := domain.NewRecordID()

	// Every tenant's view of a record must share one invalidation prefix.
	prefix := keys.RecordPrefix("countries", id)
	for _, scope := range []store.Scope{{}, {TenantID: "acme", Scoped: true}} {
		assert.True(t, strings.HasPrefix(keys.Record("countries", id, scope), prefix))
	}
}

func TestListAndTreeKeysUnderTypePrefixes(t *testing.T) {
	keys := NewKeys("masters")
	scope := store.Scope{TenantID: "acme", Scoped: true}
	id := domain.NewRecordID()

	assert.True(t, strings.HasPrefix(keys.List("countries", scope, store.Filter{}), keys.ListPrefix("countries")))
	assert.True(t, strings.HasPrefix(keys.Tree("countries", scope, nil), keys.TreePrefix("countries")))
	assert.True(t, strings.HasPrefix(keys.Tree("countries", scope, &id), keys.TreePrefix("countries")))
}

func TestTreeKeyDistinguishesLevels(t *testing.T) {
	keys := NewKeys("masters")
	scope := store.Scope{}
	id := domain.NewRecordID()

	assert.NotEqual(t, keys.Tree("countries", scope, nil), keys.Tree("countries", scope, &id))
}

func TestEverythingUnderRootPrefix(t *testing.T) {
	keys := NewKeys("custom")
	scope := store.Scope{}
	id := domain.NewRecordID()

	for _, key := range []string{
		keys.Record("countries", id, scope),
		keys.List("countries", scope, store.Filter{}),
		keys.Tree("countries", scope, nil),
	} {
		assert.True(t, strings.HasPrefix(key, keys.Prefix()))
	}
}
