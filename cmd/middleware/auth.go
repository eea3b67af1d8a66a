package middleware

import (
	"context"
	"strings"

	"github.com/coreos/go-oidc"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var (
	verifier *oidc.IDTokenVerifier
	log      *logrus.Entry
)

// InitAuth discovers the OIDC provider and prepares the token verifier.
func InitAuth(issuerURL string, logger *logrus.Logger) error {
	log = logger.WithField("component", "auth")

	provider, err := oidc.NewProvider(context.Background(), issuerURL)
	if err != nil {
		return err
	}
	verifier = provider.Verifier(&oidc.Config{SkipClientIDCheck: true})
	log.Info("OIDC verifier initialized")
	return nil
}

// RequireAuth validates the bearer token and stores the subject and email
// claims for the handlers and the audit trail.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": gin.H{"code": "UNAUTHORIZED", "message": "missing auth"}})
			return
		}

		tokenStr := strings.TrimPrefix(auth, "Bearer ")
		if tokenStr == auth {
			c.AbortWithStatusJSON(401, gin.H{"error": gin.H{"code": "UNAUTHORIZED", "message": "invalid format"}})
			return
		}

		idToken, err := verifier.Verify(c.Request.Context(), tokenStr)
		if err != nil {
			log.Warnf("token verification failed: %v", err)
			c.AbortWithStatusJSON(401, gin.H{"error": gin.H{"code": "UNAUTHORIZED", "message": "invalid token"}})
			return
		}

		var claims struct {
			Sub   string `json:"sub"`
			Email string `json:"email"`
		}
		if err := idToken.Claims(&claims); err != nil {
			c.AbortWithStatusJSON(401, gin.H{"error": gin.H{"code": "UNAUTHORIZED", "message": "claim parse failed"}})
			return
		}

		c.Set("user_id", claims.Sub)
		c.Set("user_email", claims.Email)
		c.Next()
	}
}
