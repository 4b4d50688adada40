package middleware

import (
	"context"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

var apiPrefix = regexp.MustCompile(`^/api/[vV][0-9]+`)

// ProfileLabels tags the rest of the chain with pprof labels so CPU profiles
// can be sliced by route, method, resource and caller kind. Unmatched routes
// and the listed probe paths run unlabelled. Mount it after Identity.
func ProfileLabels(skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		route := c.FullPath()
		if _, ok := skipped[c.Request.URL.Path]; ok || route == "" {
			c.Next()
			return
		}

		labels := map[string]string{
			telemetry.ProfilingLabelMethod:   c.Request.Method,
			telemetry.ProfilingLabelRoute:    route,
			telemetry.ProfilingLabelResource: routeResource(route),
			telemetry.ProfilingLabelCaller:   callerKind(c),
		}
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// routeResource is the first static segment after the versioned API prefix,
// so "/api/v1/orders/:id/ship" is "orders".
func routeResource(route string) string {
	rest := strings.TrimPrefix(apiPrefix.ReplaceAllString(route, ""), "/")
	head, _, _ := strings.Cut(rest, "/")
	if strings.HasPrefix(head, ":") || strings.HasPrefix(head, "*") {
		return ""
	}
	return head
}
