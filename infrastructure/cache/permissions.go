// Package cache holds the in-process lookups used on every request: route
// permissions per role, live sessions and users.
package cache

import (
	"sort"
	"sync"
)

// Resource is one route a role may call, identified by a permission code.
type Resource struct {
	Code   string
	Role   string
	Method string
	Path   string
}

type PermissionCache struct {
	mu     sync.RWMutex
	byRole map[string][]Resource
	codes  map[string]struct{}
}

func NewPermissionCache() *PermissionCache {
	return &PermissionCache{
		byRole: make(map[string][]Resource),
		codes:  make(map[string]struct{}),
	}
}

func (c *PermissionCache) Add(r Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byRole[r.Role] = append(c.byRole[r.Role], r)
	c.codes[r.Code] = struct{}{}
}

func (c *PermissionCache) Resources(roles ...string) []Resource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Resource, 0)
	for _, role := range roles {
		out = append(out, c.byRole[role]...)
	}
	return out
}

// Codes returns the permission codes granted to roles, or every known code
// when roles is empty.
func (c *PermissionCache) Codes(roles ...string) map[string]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]bool)
	if len(roles) == 0 {
		for code := range c.codes {
			out[code] = true
		}
		return out
	}
	for _, role := range roles {
		for _, r := range c.byRole[role] {
			out[r.Code] = true
		}
	}
	return out
}

func (c *PermissionCache) SortedCodes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.codes))
	for name := range c.codes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
