// Package nginx renders reverse-proxy configuration from an ordered
// route list. Pure functions only: identical input yields byte-identical
// output, so the proxy image can be rebuilt reproducibly and the
// routing model tested independently of the text format.
package nginx

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrNoRoutes       = errors.New("config has no routes")
	ErrNoRootRoute    = errors.New("config has no root catch-all route")
	ErrRootNotLast    = errors.New("root catch-all route must be last")
	ErrDuplicateRoot  = errors.New("config has more than one root route")
	ErrEmptyTarget    = errors.New("route target is empty")
	ErrInvalidPrefix  = errors.New("route prefix must start with /")
	ErrInvalidPort    = errors.New("listen port is out of range")
)

// =============================================================================
// Routing Model
// =============================================================================

// Route forwards requests whose path starts with Prefix to Target.
// Routes are ordered: earlier routes take precedence on overlapping
// prefixes.
type Route struct {
	Prefix string
	Target string
}

// Config is the full proxy routing document: one listen port plus an
// ordered route list ending in the root catch-all.
type Config struct {
	ListenPort int
	Routes     []Route
}

// Validate enforces the routing invariants: at least one route, every
// prefix rooted and every target non-empty, and exactly one root ("/")
// route sitting last so it cannot shadow more specific prefixes.
func (c Config) Validate() error {
	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.ListenPort)
	}
	if len(c.Routes) == 0 {
		return ErrNoRoutes
	}

	rootSeen := false
	for i, r := range c.Routes {
		if !strings.HasPrefix(r.Prefix, "/") {
			return fmt.Errorf("%w: %q", ErrInvalidPrefix, r.Prefix)
		}
		if strings.TrimSpace(r.Target) == "" {
			return fmt.Errorf("%w: prefix %q", ErrEmptyTarget, r.Prefix)
		}
		if r.Prefix == "/" {
			if rootSeen {
				return ErrDuplicateRoot
			}
			rootSeen = true
			if i != len(c.Routes)-1 {
				return ErrRootNotLast
			}
		}
	}
	if !rootSeen {
		return ErrNoRootRoute
	}
	return nil
}

// =============================================================================
// Rendering
// =============================================================================

// Render produces the nginx server block for the config. Location
// blocks are emitted in route order; nginx prefix matching prefers the
// longest prefix, and the validated route order (root last) keeps both
// evaluation models agreeing on a winner. Each block forwards the
// original Host, the caller address, and the accumulated
// X-Forwarded-For chain.
func Render(c Config) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("server {\n")
	fmt.Fprintf(&b, "    listen %d;\n", c.ListenPort)

	for _, r := range c.Routes {
		b.WriteString("\n")
		fmt.Fprintf(&b, "    location %s {\n", r.Prefix)
		fmt.Fprintf(&b, "        proxy_pass %s;\n", r.Target)
		b.WriteString("        proxy_set_header Host $host;\n")
		b.WriteString("        proxy_set_header X-Real-IP $remote_addr;\n")
		b.WriteString("        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;\n")
		b.WriteString("    }\n")
	}

	b.WriteString("}\n")
	return b.String(), nil
}

// RenderDockerfile produces the minimal image definition layering the
// rendered config onto a reverse-proxy base image. confName is the
// config file name as written into the build context.
func RenderDockerfile(baseImage, confName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "FROM %s\n", baseImage)
	fmt.Fprintf(&b, "COPY %s /etc/nginx/conf.d/default.conf\n", confName)
	return b.String()
}
