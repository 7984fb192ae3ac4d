// Package token decodes the signed session assertion the Permission Oracle
// uses to resolve a user and site mode across the out-of-scope transport
// boundary (SPEC_FULL.md §4.5 expansion "User resolution").
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ontocore/core/internal/permission"
	"github.com/ontocore/core/pkg/coreerrors"
)

// Claims are the assertion's payload: the user's oid, the org they are
// acting within, and the site mode the caller is operating under.
type Claims struct {
	Org      string `json:"org"`
	SiteMode string `json:"site_mode"`
	jwt.RegisteredClaims
}

const (
	siteModeServer          = "server"
	siteModeConnectedClient = "connected_client"
	siteModeOfflineClient   = "offline_client"
)

// Resolved is what a verified assertion decodes to: the claimed user's oid
// (the assertion's Subject) and the site mode, ready to pass to
// permission.Oracle.GetPerms.
type Resolved struct {
	UserOID string
	Org     string
	Mode    permission.SiteMode
}

// Decode verifies assertion with secret (HS256) and decodes it into a
// Resolved. A missing or invalid signature is reported as a
// PermissionError diagnostic, not a hard error — the caller falls back to
// "no user resolvable" (spec.md §4.5 rule 6).
func Decode(assertion string, secret []byte) (Resolved, *coreerrors.CoreError) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(assertion, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, coreerrors.InvalidAssertion("unexpected signing method", nil)
		}
		return secret, nil
	})
	if err != nil {
		return Resolved{}, coreerrors.InvalidAssertion("signature verification failed", err)
	}
	if !parsed.Valid {
		return Resolved{}, coreerrors.InvalidAssertion("token not valid", nil)
	}
	if claims.Subject == "" {
		return Resolved{}, coreerrors.InvalidAssertion("missing sub claim", nil)
	}

	mode, cErr := parseSiteMode(claims.SiteMode)
	if cErr != nil {
		return Resolved{}, cErr
	}

	return Resolved{UserOID: claims.Subject, Org: claims.Org, Mode: mode}, nil
}

func parseSiteMode(raw string) (permission.SiteMode, *coreerrors.CoreError) {
	switch raw {
	case "", siteModeServer:
		return permission.SiteModeServer, nil
	case siteModeConnectedClient:
		return permission.SiteModeConnectedClient, nil
	case siteModeOfflineClient:
		return permission.SiteModeOfflineClient, nil
	default:
		return 0, coreerrors.InvalidAssertion("unrecognized site_mode claim", nil)
	}
}

// Issue mints a signed assertion for userOID, used by test harnesses and
// the bootstrap dev server (real deployments front the core with a proper
// identity provider).
func Issue(userOID, org string, mode permission.SiteMode, secret []byte, ttl time.Duration) (string, error) {
	siteMode := siteModeServer
	switch mode {
	case permission.SiteModeConnectedClient:
		siteMode = siteModeConnectedClient
	case permission.SiteModeOfflineClient:
		siteMode = siteModeOfflineClient
	}

	now := time.Now()
	claims := &Claims{
		Org:      org,
		SiteMode: siteMode,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userOID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}
