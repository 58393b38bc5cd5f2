package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/profile"
)

const (
	contextTokenKey   = "userToken"
	contextProfileKey = "profile"
	tokenAudience     = "Monguri"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role"`
	IsMentor     bool   `json:"is_mentor,omitempty"` // -> MENTOR PORTAL
	IsMentee     bool   `json:"is_mentee,omitempty"` // -> MENTEE PORTAL
	IsAdmin      bool   `json:"is_admin,omitempty"`  // -> ADMIN PORTAL
	Portal       string `json:"portal"`
}

func (c Claims) Actor() core.Actor { return core.Actor{ID: c.Subject, Role: c.Role} }

type authenticator struct {
	conf      *core.Config
	profiles  *profile.Service
	jwtConfig middleware.JWTConfig
	now       func() time.Time
}

func newAuthenticator(conf *core.Config, profiles *profile.Service) *authenticator {
	return &authenticator{
		conf:     conf,
		profiles: profiles,
		jwtConfig: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    contextTokenKey,
			Claims:        new(Claims),
		},
		now: time.Now,
	}
}

// Claims builds the token claims of `p`. `origIat` carries the issue time of the first token when refreshing.
func (a *authenticator) Claims(p profile.Profile, origIat ...int64) *Claims {
	now := a.now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.conf.AppName,
			Subject:   p.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(a.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         p.Name,
		Email:        p.Email,
		Role:         p.Role,
		IsMentor:     p.IsMentor(),
		IsMentee:     p.IsMentee(),
		IsAdmin:      p.IsAdmin(),
		Portal:       p.Portal(),
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func (a *authenticator) GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(a.jwtConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(a.jwtConfig.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// TokenFor returns a fresh access token for `p`; tests use it to authenticate requests.
func (s *Server) TokenFor(p profile.Profile) (string, error) {
	return s.auth.GenerateToken(s.auth.Claims(p))
}

// optionalJWT authenticates requests carrying a token and lets anonymous ones through.
func (a *authenticator) optionalJWT() echo.MiddlewareFunc {
	conf := a.jwtConfig
	conf.Skipper = func(ctx echo.Context) bool {
		return ctx.Request().Header.Get(echo.HeaderAuthorization) == ""
	}
	return middleware.JWTWithConfig(conf)
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// actor resolves the acting identity of an authenticated request.
func actor(ctx echo.Context) (core.Actor, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return core.Actor{}, err
	}
	return claims.Actor(), nil
}

func (a *authenticator) contextProfile(ctx echo.Context) (profile.Profile, error) {
	if p, ok := ctx.Get(contextProfileKey).(profile.Profile); ok {
		return p, nil
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return profile.Profile{}, err
	}
	p, err := a.profiles.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if core.IsNotFound(err) {
			return profile.Profile{}, errUnauthorized
		}
		return profile.Profile{}, errors.Wrap(err, "finding profile by ID")
	}
	ctx.Set(contextProfileKey, p)
	return p, nil
}

func (a *authenticator) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}
	p, err := a.contextProfile(ctx)
	if err != nil {
		return "", err
	}
	if !p.IsActive {
		return "", errAccountDeactivated
	}

	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if a.now().After(expTime) {
		return "", errRefreshExpired
	}
	return a.GenerateToken(a.Claims(p, claims.OrigIssuedAt))
}

type authApi struct {
	srv *Server
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, srv *Server) {
	api := authApi{srv: srv}

	ag := g.Group("/auth")
	ag.POST("/signup", api.signup)
	ag.POST("/login", api.login)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)
	ag.POST("/token-refresh", api.refreshToken, jwt)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token  string `json:"token"`
		Role   string `json:"role"`
		Portal string `json:"portal"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}

func (api authApi) signup(ctx echo.Context) error {
	var data profile.NewProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProfile")
	}
	rctx := ctx.Request().Context()
	if err := data.Validate(rctx, api.srv.Validate, api.srv.Profiles); err != nil {
		return err
	}
	p, err := api.srv.Profiles.Create(rctx, data)
	if err != nil {
		return errors.Wrap(err, "creating profile")
	}
	return created(ctx, p)
}

func (api authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.srv.Validate); err != nil {
		return err
	}

	p, err := api.srv.Profiles.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return err
	}
	claims := api.srv.auth.Claims(p)
	token, err := api.srv.auth.GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ok(ctx, LoginResponse{Token: token, Role: claims.Role, Portal: claims.Portal})
}

func (api authApi) refreshToken(ctx echo.Context) error {
	token, err := api.srv.auth.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	claims, _ := getContextClaims(ctx)
	return ok(ctx, LoginResponse{Token: token, Role: claims.Role, Portal: claims.Portal})
}

func (api authApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.srv.Validate); err != nil {
		return err
	}

	if err := api.srv.Profiles.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil && !core.IsNotFound(err) {
		// do not return errors to attackers
		api.srv.Logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ok(ctx, echo.Map{
		"message": "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api authApi) confirmPasswordReset(ctx echo.Context) error {
	var data profile.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}
	if err := data.Validate(api.srv.Validate); err != nil {
		return err
	}
	if err := api.srv.Profiles.ResetPassword(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ok(ctx, echo.Map{"message": "Password has been reset with the new password."})
}

