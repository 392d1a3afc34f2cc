package http

import (
	"github.com/duetapp/duet-api/internal/infrastructure/dynamo"
	"github.com/duetapp/duet-api/internal/infrastructure/google"
	jwtinfra "github.com/duetapp/duet-api/internal/infrastructure/jwt"
	s3infra "github.com/duetapp/duet-api/internal/infrastructure/s3"
	"github.com/duetapp/duet-api/internal/infrastructure/smtp"
	"github.com/duetapp/duet-api/internal/infrastructure/sns"
)

// Deps holds all infrastructure dependencies for the router. Services define
// their own narrow store interfaces; these concrete repos satisfy them.
type Deps struct {
	CoupleRepo     *dynamo.CoupleRepo
	PartnerRepo    *dynamo.PartnerRepo
	TokenRepo      *dynamo.TokenRepo
	SessionRepo    *dynamo.SessionRepo
	AvatarStore    *s3infra.Store
	Mailer         smtp.Mailer
	SMSSender      sns.SMSSender
	JWTProvider    *jwtinfra.Provider
	GoogleVerifier *google.Verifier
}
