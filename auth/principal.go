// Package auth defines who is making a request. The principal is resolved
// once per request by middleware and read by handlers from the gin context.
package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/nagoyameshi/models"
)

type Kind int

const (
	KindGuest Kind = iota
	KindMember
	KindAdministrator
)

func (k Kind) String() string {
	switch k {
	case KindMember:
		return "member"
	case KindAdministrator:
		return "administrator"
	default:
		return "guest"
	}
}

// Principal is exactly one of Guest, Member or Administrator.
type Principal struct {
	Kind       Kind
	User       *models.User
	Admin      *models.Admin
	Subscribed bool
	TokenID    string
}

func Guest() Principal {
	return Principal{Kind: KindGuest}
}

func Member(user *models.User, subscribed bool, tokenID string) Principal {
	return Principal{Kind: KindMember, User: user, Subscribed: subscribed, TokenID: tokenID}
}

func Administrator(admin *models.Admin, tokenID string) Principal {
	return Principal{Kind: KindAdministrator, Admin: admin, TokenID: tokenID}
}

func (p Principal) IsGuest() bool         { return p.Kind == KindGuest }
func (p Principal) IsMember() bool        { return p.Kind == KindMember }
func (p Principal) IsAdministrator() bool { return p.Kind == KindAdministrator }

// IsPremium is true only for a member holding a valid premium subscription.
func (p Principal) IsPremium() bool {
	return p.Kind == KindMember && p.Subscribed
}

// UserID returns the member id, or 0 for anyone else.
func (p Principal) UserID() uint {
	if p.Kind != KindMember || p.User == nil {
		return 0
	}
	return p.User.ID
}

const contextKey = "principal"

func WithPrincipal(c *gin.Context, p Principal) {
	c.Set(contextKey, p)
}

// FromContext returns the resolved principal, defaulting to Guest.
func FromContext(c *gin.Context) Principal {
	v, ok := c.Get(contextKey)
	if !ok {
		return Guest()
	}
	p, ok := v.(Principal)
	if !ok {
		return Guest()
	}
	return p
}
