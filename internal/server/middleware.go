package server

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/ftyszyx/school-manager/internal/domain"
	apperrors "github.com/ftyszyx/school-manager/internal/errors"
)

const claimsContextKey = "claims"

// jwtClaims is the token payload issued by the auth collaborator.
type jwtClaims struct {
	UserID  int32   `json:"user_id"`
	RoleIDs []int32 `json:"role_ids"`
	jwt.RegisteredClaims
}

// requireAuth validates the bearer token and stores the claims on the
// request context. Token issuance lives outside this service; only
// verification happens here.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			return apperrors.UnauthorizedError("missing bearer token")
		}

		claims := new(jwtClaims)
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, domain.ErrInvalidToken
			}
			return []byte(s.config.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return apperrors.UnauthorizedError("invalid token")
		}

		c.Set(claimsContextKey, domain.Claims{UserID: claims.UserID, RoleIDs: claims.RoleIDs})
		return next(c)
	}
}

// requirePermission authorizes the request against the user's cached
// permission set. Denials and internal checker errors both resolve to
// forbidden; infrastructure trouble never surfaces past the log.
func (s *Server) requirePermission(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := requestClaims(c)
		if err != nil {
			return apperrors.UnauthorizedError("unauthorized")
		}

		method := c.Request().Method
		path := c.Request().URL.Path

		allowed, err := s.checker.CheckPathPermission(c.Request().Context(), claims.UserID, claims.RoleIDs, method, path)
		if err != nil {
			// Fail closed: an unknown method or a store failure denies.
			return apperrors.ForbiddenError("forbidden").
				WithContext("user_id", claims.UserID).
				WithContext("check_error", err.Error())
		}
		if !allowed {
			return apperrors.ForbiddenError("forbidden").WithContext("user_id", claims.UserID)
		}

		return next(c)
	}
}

func requestClaims(c echo.Context) (domain.Claims, error) {
	claims, ok := c.Get(claimsContextKey).(domain.Claims)
	if !ok {
		return domain.Claims{}, domain.ErrMissingClaims
	}
	return claims, nil
}
