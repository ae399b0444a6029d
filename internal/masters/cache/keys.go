package cache

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"masters/internal/masters/store"
	"masters/pkg/domain"
)

// Keys builds deterministic cache keys. Layout:
//
//	<prefix>:data:<type>:<id>:<tenant>      one record
//	<prefix>:list:<type>:<tenant>:<filter>  filtered list
//	<prefix>:tree:<type>:<tenant>:<parent>  hierarchical level
//
// The record id precedes the tenant so every tenant's view of a record
// shares one invalidation prefix.
type Keys struct {
	prefix string
}

func NewKeys(prefix string) *Keys {
	if prefix == "" {
		prefix = "masters"
	}
	return &Keys{prefix: prefix}
}

// Prefix returns the root prefix, used by the administrative flush.
func (k *Keys) Prefix() string {
	return k.prefix + ":"
}

func (k *Keys) Record(typeSlug string, id domain.RecordID, scope store.Scope) string {
	return fmt.Sprintf("%s:data:%s:%s:%s", k.prefix, typeSlug, id.String(), tenantKey(scope))
}

// RecordPrefix covers one record across every tenancy scope.
func (k *Keys) RecordPrefix(typeSlug string, id domain.RecordID) string {
	return fmt.Sprintf("%s:data:%s:%s:", k.prefix, typeSlug, id.String())
}

func (k *Keys) List(typeSlug string, scope store.Scope, f store.Filter) string {
	return fmt.Sprintf("%s:list:%s:%s:%s", k.prefix, typeSlug, tenantKey(scope), filterFingerprint(f))
}

// ListPrefix covers every cached list of a type, across tenants. Writes to
// shared rows change every tenant's lists, so invalidation spans them all.
func (k *Keys) ListPrefix(typeSlug string) string {
	return fmt.Sprintf("%s:list:%s:", k.prefix, typeSlug)
}

func (k *Keys) Tree(typeSlug string, scope store.Scope, parentID *domain.RecordID) string {
	parent := "root"
	if parentID != nil {
		parent = parentID.String()
	}
	return fmt.Sprintf("%s:tree:%s:%s:%s", k.prefix, typeSlug, tenantKey(scope), parent)
}

func (k *Keys) TreePrefix(typeSlug string) string {
	return fmt.Sprintf("%s:tree:%s:", k.prefix, typeSlug)
}

func tenantKey(scope store.Scope) string {
	if !scope.Scoped {
		return "global"
	}
	return scope.TenantID
}

// filterFingerprint canonicalizes a filter into a short stable token.
// Field order is fixed, so equal filters always produce equal keys. Values
// are length-prefixed so a value containing the separators can never
// collide with a different field combination.
func filterFingerprint(f store.Filter) string {
	var b strings.Builder
	if f.RootOnly {
		b.WriteString("root|")
	}
	if f.ParentID != nil {
		writeField(&b, "parent", f.ParentID.String())
	}
	if f.Search != "" {
		writeField(&b, "search", f.Search)
	}
	appendField(&b, "name", f.Name)
	appendField(&b, "code", f.Code)
	appendField(&b, "iso", f.ISOCode)
	if f.IsActive != nil {
		writeField(&b, "active", strconv.FormatBool(*f.IsActive))
	}
	if b.Len() == 0 {
		return "all"
	}
	h := fnv.New64a()
	h.Write([]byte(b.String()))
	return strconv.FormatUint(h.Sum64(), 16)
}

func writeField(b *strings.Builder, name, val string) {
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(strconv.Itoa(len(val)))
	b.WriteByte(':')
	b.WriteString(val)
	b.WriteByte('|')
}

func appendField(b *strings.Builder, name string, val *string) {
	if val != nil {
		writeField(b, name, *val)
	}
}
