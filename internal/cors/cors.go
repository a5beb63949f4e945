package cors

import (
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strings"

	rscors "github.com/rs/cors"
)

var (
	DefaultMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	DefaultHeaders = []string{"Content-Type", "Authorization"}
)

// loopback origins are always allowed, whatever the configuration says.
var loopback = []*regexp.Regexp{
	regexp.MustCompile(`^http://localhost:\d+$`),
	regexp.MustCompile(`^http://127\.0\.0\.1:\d+$`),
}

// Config holds the raw settings as read from the environment.
type Config struct {
	Origins     string
	Methods     string
	Headers     string
	Credentials string
}

// Policy is the resolved allow-list. It is built once and only read
// afterwards.
type Policy struct {
	Origins     []string
	Patterns    []*regexp.Regexp
	Methods     []string
	Headers     []string
	Credentials bool

	cors *rscors.Cors
}

// Resolve builds the policy. Empty lists fall back to the defaults and
// credentials stay enabled unless Credentials is exactly "false".
func Resolve(cfg Config) *Policy {
	p := &Policy{
		Origins:     splitList(cfg.Origins),
		Patterns:    slices.Clone(loopback),
		Methods:     splitList(cfg.Methods),
		Headers:     splitList(cfg.Headers),
		Credentials: cfg.Credentials != "false",
	}
	if len(p.Methods) == 0 {
		p.Methods = slices.Clone(DefaultMethods)
	}
	if len(p.Headers) == 0 {
		p.Headers = slices.Clone(DefaultHeaders)
	}
	p.cors = rscors.New(rscors.Options{
		AllowOriginFunc:  p.AllowOrigin,
		AllowedMethods:   p.Methods,
		AllowedHeaders:   p.Headers,
		AllowCredentials: p.Credentials,
	})
	return p
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// AllowOrigin reports whether origin is a configured literal or matches a
// loopback pattern.
func (p *Policy) AllowOrigin(origin string) bool {
	if slices.Contains(p.Origins, origin) {
		return true
	}
	for _, re := range p.Patterns {
		if re.MatchString(origin) {
			return true
		}
	}
	return false
}

// Handler applies the policy in front of next. Preflight requests are
// answered here.
func (p *Policy) Handler(next http.Handler) http.Handler {
	return p.cors.Handler(next)
}

// Describe returns the policy as log lines for the startup banner.
func (p *Policy) Describe() []string {
	var lines []string
	if len(p.Origins) > 0 {
		lines = append(lines, "CORS Origins: "+strings.Join(p.Origins, ", "))
	}
	return append(lines,
		"CORS Methods: "+strings.Join(p.Methods, ", "),
		"CORS Headers: "+strings.Join(p.Headers, ", "),
		fmt.Sprintf("CORS Credentials: %t", p.Credentials),
	)
}
