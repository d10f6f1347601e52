package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	ctxUserID = "userId"
	ctxName   = "userName"
	ctxRoles  = "roles"
)

// Protect rejects requests without a valid bearer token and stores the
// caller identity on the gin context.
func (v *Verifier) Protect(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := GetBearerToken(c.Request)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, no token"})
			return
		}

		claims, err := v.ParseToken(tokenStr)
		if err != nil {
			log.Debug("rejecting bearer token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, token failed"})
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxName, claims.Name)
		c.Set(ctxRoles, claims.Roles)
		c.Next()
	}
}

// AdminOnly must run after Protect.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Not authorized as an admin"})
			return
		}
		c.Next()
	}
}

func IsAdmin(c *gin.Context) bool {
	return HasRole(c.GetStringSlice(ctxRoles), RoleAdmin)
}

// UserID returns the authenticated caller as an ObjectID.
func UserID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.GetString(ctxUserID))
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

func UserName(c *gin.Context) string {
	return c.GetString(ctxName)
}
