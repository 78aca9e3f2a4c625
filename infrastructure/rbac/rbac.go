// Package rbac maps roles onto the routes they may call.
package rbac

import (
	"strings"

	"cellarbook/infrastructure/cache"
)

const (
	RoleAdmin  = "admin"
	RoleCellar = "cellar"
	RoleViewer = "viewer"
)

// Roles in descending privilege.
var Roles = []string{RoleAdmin, RoleCellar, RoleViewer}

func ValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

type Rbac struct {
	cache *cache.PermissionCache
}

func New(c *cache.PermissionCache) *Rbac {
	return &Rbac{cache: c}
}

// Add grants role access to method+path under permission code.
func (r *Rbac) Add(role, code, method, path string) {
	if r == nil || r.cache == nil {
		return
	}
	r.cache.Add(cache.Resource{
		Role:   role,
		Code:   code,
		Method: strings.ToUpper(method),
		Path:   path,
	})
}

// Read grants every role. Admin is implicit but listed so its codes show up.
func (r *Rbac) Read(code, method, path string) {
	for _, role := range Roles {
		r.Add(role, code, method, path)
	}
}

// Write grants admin and cellar.
func (r *Rbac) Write(code, method, path string) {
	r.Add(RoleAdmin, code, method, path)
	r.Add(RoleCellar, code, method, path)
}

// Allowed reports whether any of roles may call method on urlPath.
func (r *Rbac) Allowed(roles []string, urlPath, method string) bool {
	if r == nil || r.cache == nil || len(roles) == 0 {
		return false
	}
	for _, role := range roles {
		if role == RoleAdmin {
			return true
		}
	}
	return ValidateResourceAccess(r.cache.Resources(roles...), urlPath, method)
}

func ValidateResourceAccess(resources []cache.Resource, urlPath, method string) bool {
	method = strings.ToUpper(method)
	for _, res := range resources {
		if res.Method == method && matchPath(res.Path, urlPath) {
			return true
		}
	}
	return false
}

// matchPath compares slash separated segments. "*" matches one segment, and a
// trailing "*" matches any remaining suffix.
func matchPath(pattern, path string) bool {
	if pattern == path {
		return true
	}
	patternSeg := strings.Split(strings.Trim(pattern, "/"), "/")
	pathSeg := strings.Split(strings.Trim(path, "/"), "/")

	last := len(patternSeg) - 1
	tail := patternSeg[last] == "*"
	if len(pathSeg) < len(patternSeg) || (!tail && len(pathSeg) != len(patternSeg)) {
		return false
	}
	for i, seg := range patternSeg {
		if i == last && tail {
			return true
		}
		if seg != "*" && seg != pathSeg[i] {
			return false
		}
	}
	return true
}
