package middleware

import (
	"net/url"
	"strings"
)

// Origins is the set of browser origins allowed to call the service.
type Origins struct {
	any     bool
	allowed map[string]struct{}
}

// NewOrigins builds the set from configured values. "*" admits every origin.
func NewOrigins(values []string) Origins {
	o := Origins{allowed: make(map[string]struct{}, len(values))}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "*" {
			o.any = true
			continue
		}
		if v != "" {
			o.allowed[strings.ToLower(strings.TrimRight(v, "/"))] = struct{}{}
		}
	}
	return o
}

// Allows reports whether origin is in the set. Matching ignores case.
func (o Origins) Allows(origin string) bool {
	if origin == "" {
		return false
	}
	if o.any {
		return true
	}
	_, ok := o.allowed[strings.ToLower(origin)]
	return ok
}

// SameHost reports whether origin points at host, the Host of the request it came with.
func SameHost(origin, host string) bool {
	u, err := url.Parse(origin)
	return err == nil && u.Host != "" && strings.EqualFold(u.Host, host)
}
