package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/progreview/progreview-api/internal/errs"
)

// AllowGroups admits callers whose claims mark them root or list one of groups.
// It must run after AuthMiddleware.
func AllowGroups(groups ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		allowed[g] = struct{}{}
	}
	return func(c *gin.Context) {
		cm := Claims(c)
		if cm == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errs.ErrUnauthorized.Error()})
			return
		}
		if root, _ := cm["root"].(bool); root {
			c.Next()
			return
		}
		for _, g := range claimGroups(cm) {
			if _, ok := allowed[g]; ok {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": errs.ErrForbidden.Error()})
	}
}

// claimGroups accepts both []string and the []interface{} produced by JSON decoding.
func claimGroups(cm map[string]interface{}) []string {
	switch v := cm["groups"].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, g := range v {
			if s, ok := g.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
