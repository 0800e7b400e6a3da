// Package auth implements account registration, sign in and token
// management.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jghoshh/bienestar/backend/models"
	"github.com/jghoshh/bienestar/backend/queue"
	cache "github.com/jghoshh/bienestar/backend/storage/cache"
	storage "github.com/jghoshh/bienestar/backend/storage/persistent"
	"github.com/jghoshh/bienestar/lib/apperr"
	"github.com/jghoshh/bienestar/lib/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// resetTokenTTL bounds how long a mailed reset token stays valid.
const resetTokenTTL = time.Hour

// Session is the result of a successful sign in or registration.
type Session struct {
	User   *models.User `json:"user"`
	Tokens *Tokens      `json:"tokens"`
}

// Service implements the account operations.
type Service struct {
	store     storage.StorageInterface
	cache     cache.CacheInterface
	publisher queue.Publisher
	tokens    *TokenIssuer
	federated *FederatedVerifier
	logger    *zap.Logger
	now       func() time.Time
	hashCost  int
}

type Option func(*Service)

// WithFederatedVerifier enables SignInWithFederated.
func WithFederatedVerifier(v *FederatedVerifier) Option {
	return func(s *Service) { s.federated = v }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithHashCost sets the bcrypt cost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

func NewService(store storage.StorageInterface, c cache.CacheInterface, publisher queue.Publisher, signingKey string, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		cache:     c,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		hashCost:  bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tokens = NewTokenIssuer(signingKey, s.now)
	return s
}

var (
	errInvalidEmail = apperr.Validation("invalid email format").OnField(apperr.FieldEmail)
	errWeakPassword = apperr.Validation("password must be at least 8 characters and contain both letters and numbers").OnField(apperr.FieldPassword)
	errEmailTaken   = apperr.Conflict("an account with this email already exists").OnField(apperr.FieldEmail)
	errUnknownEmail = apperr.Unauthorized("no account found with this email").OnField(apperr.FieldEmail)
	errBadPassword  = apperr.Unauthorized("incorrect password").OnField(apperr.FieldPassword)
	errBadToken     = apperr.Unauthorized("invalid or expired token").OnField(apperr.FieldGeneral)
	errUnverified   = apperr.Unauthorized("the identity provider has not verified this email").OnField(apperr.FieldEmail)
)

// Register creates a password account and signs it in.
func (s *Service) Register(ctx context.Context, email, password string) (*Session, error) {
	email = utils.NormalizeEmail(email)
	if !utils.ValidateEmail(email) {
		return nil, errInvalidEmail
	}
	if !utils.ValidatePassword(password) {
		return nil, errWeakPassword
	}

	if _, err := s.store.FindUserByEmail(ctx, email); err == nil {
		return nil, errEmailTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, s.internal("looking up email", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, s.internal("hashing password", err)
	}

	user := &models.User{
		Email:        email,
		DisplayName:  strings.SplitN(email, "@", 2)[0],
		PasswordHash: string(hash),
		Provider:     models.ProviderPassword,
		CreatedAt:    s.now().UTC(),
	}
	if _, err := s.store.AddUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, errEmailTaken
		}
		return nil, s.internal("adding user", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID.Hex()))
	return s.session(user)
}

// Login signs in a password account.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = utils.NormalizeEmail(email)
	if !utils.ValidateEmail(email) {
		return nil, errInvalidEmail
	}
	if password == "" {
		return nil, apperr.Validation("password is required").OnField(apperr.FieldPassword)
	}

	user, err := s.store.FindUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, errUnknownEmail
	} else if err != nil {
		return nil, s.internal("looking up email", err)
	}
	if user.PasswordHash == "" {
		return nil, apperr.Unauthorized("this account signs in with an identity provider").OnField(apperr.FieldGeneral)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errBadPassword
	}
	return s.session(user)
}

// SignInWithFederated signs in with an identity-provider ID token, creating
// the account on first use.
func (s *Service) SignInWithFederated(ctx context.Context, idToken string) (*Session, error) {
	if s.federated == nil {
		return nil, apperr.Unauthorized("federated sign-in is not configured").OnField(apperr.FieldGeneral)
	}
	identity, err := s.federated.Verify(idToken)
	if err != nil {
		s.logger.Info("federated token rejected", zap.Error(err))
		return nil, errBadToken
	}

	user, err := s.store.FindUserBySubject(ctx, models.ProviderFederated, identity.Subject)
	if err == nil {
		return s.session(user)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, s.internal("looking up federated subject", err)
	}

	// only a verified provider email may open a new account
	if !identity.Verified {
		return nil, errUnverified
	}
	email := utils.NormalizeEmail(identity.Email)
	if _, err := s.store.FindUserByEmail(ctx, email); err == nil {
		return nil, errEmailTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, s.internal("looking up email", err)
	}

	name := identity.Name
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	user = &models.User{
		Email:           email,
		DisplayName:     name,
		PhotoURL:        identity.Picture,
		Provider:        models.ProviderFederated,
		ProviderSubject: identity.Subject,
		CreatedAt:       s.now().UTC(),
	}
	if _, err := s.store.AddUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, errEmailTaken
		}
		return nil, s.internal("adding federated user", err)
	}
	s.logger.Info("federated user created", zap.String("user_id", user.ID.Hex()))
	return s.session(user)
}

// Authenticate returns the user id carried by a valid access token.
func (s *Service) Authenticate(accessToken string) (string, error) {
	userID, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return "", errBadToken
	}
	return userID, nil
}

// CurrentUser returns the account behind an access token.
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	userID, err := s.Authenticate(accessToken)
	if err != nil {
		return nil, err
	}
	return s.User(ctx, userID)
}

// User loads an account by id.
func (s *Service) User(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.FindUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Unauthorized("account no longer exists").OnField(apperr.FieldGeneral)
	} else if err != nil {
		return nil, s.internal("loading user", err)
	}
	return user, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	claims, err := s.tokens.parseRefresh(refreshToken)
	if err != nil {
		return nil, errBadToken
	}
	revoked, err := s.cache.Exists(ctx, revokedKey(claims.ID))
	if err != nil {
		return nil, s.internal("checking revocation", err)
	}
	if revoked {
		return nil, errBadToken
	}
	if _, err := s.User(ctx, claims.UserID); err != nil {
		return nil, err
	}
	if err := s.revoke(ctx, claims); err != nil {
		return nil, err
	}
	return s.tokens.Issue(claims.UserID)
}

// SignOut revokes a refresh token. Tokens that are already invalid or
// expired need no revocation.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.parseRefresh(refreshToken)
	if err != nil {
		return nil
	}
	return s.revoke(ctx, claims)
}

func (s *Service) revoke(ctx context.Context, claims *tokenClaims) error {
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.cache.Set(ctx, revokedKey(claims.ID), true, ttl); err != nil {
		return s.internal("revoking token", err)
	}
	return nil
}

func revokedKey(jti string) string {
	return "revoked_refresh_" + jti
}

// UpdateUserName changes the display name.
func (s *Service) UpdateUserName(ctx context.Context, userID, name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < 2 {
		return nil, apperr.Validation("name must be at least 2 characters").OnField(apperr.FieldGeneral)
	}
	return s.updateUser(ctx, userID, storage.UserUpdate{DisplayName: &name})
}

// UpdateProfilePicture changes the photo URL. Only http(s) URLs are accepted.
func (s *Service) UpdateProfilePicture(ctx context.Context, userID, photoURL string) (*models.User, error) {
	photoURL = strings.TrimSpace(photoURL)
	u, err := url.ParseRequestURI(photoURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperr.Validation("photo url must be an http or https url").OnField(apperr.FieldGeneral)
	}
	return s.updateUser(ctx, userID, storage.UserUpdate{PhotoURL: &photoURL})
}

func (s *Service) updateUser(ctx context.Context, userID string, update storage.UserUpdate) (*models.User, error) {
	user, err := s.store.UpdateUser(ctx, userID, update)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("account not found").OnField(apperr.FieldGeneral)
	} else if err != nil {
		return nil, s.internal("updating user", err)
	}
	return user, nil
}

// SendPasswordResetEmail mails a one-time reset token to a password account.
func (s *Service) SendPasswordResetEmail(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)
	if !utils.ValidateEmail(email) {
		return errInvalidEmail
	}
	user, err := s.store.FindUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound("no account found with this email").OnField(apperr.FieldEmail)
	} else if err != nil {
		return s.internal("looking up email", err)
	}
	if user.Provider != models.ProviderPassword {
		return apperr.Validation("this account signs in with an identity provider").OnField(apperr.FieldEmail)
	}

	token, err := resetToken()
	if err != nil {
		return s.internal("generating reset token", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), s.hashCost)
	if err != nil {
		return s.internal("hashing reset token", err)
	}
	reset := models.PasswordReset{
		UserID:    user.ID.Hex(),
		TokenHash: string(hash),
		ExpiresAt: s.now().Add(resetTokenTTL),
	}
	if err := s.store.SavePasswordReset(ctx, reset); err != nil {
		return s.internal("saving reset token", err)
	}

	body := fmt.Sprintf("Here is your password reset code: %s\n\nIt expires in one hour. If you did not ask to reset your password you can ignore this message.", token)
	msg := queue.NewNotification(queue.KindPasswordReset, user.Email, "Reset your password", body)
	if err := s.publisher.PublishNotification(ctx, msg); err != nil {
		return s.internal("queueing reset email", err)
	}
	return nil
}

// ResetPassword sets a new password when token matches the pending reset.
func (s *Service) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	email = utils.NormalizeEmail(email)
	if !utils.ValidateEmail(email) {
		return errInvalidEmail
	}
	if !utils.ValidatePassword(newPassword) {
		return errWeakPassword
	}
	user, err := s.store.FindUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return errUnknownEmail
	} else if err != nil {
		return s.internal("looking up email", err)
	}
	userID := user.ID.Hex()

	reset, err := s.store.FindPasswordReset(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.Unauthorized("no password reset is pending").OnField(apperr.FieldGeneral)
	} else if err != nil {
		return s.internal("loading reset token", err)
	}
	if !s.now().Before(reset.ExpiresAt) {
		if _, err := s.store.DeletePasswordReset(ctx, userID); err != nil {
			s.logger.Warn("failed to delete expired reset token", zap.String("user_id", userID), zap.Error(err))
		}
		return apperr.Unauthorized("reset code has expired").OnField(apperr.FieldGeneral)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(reset.TokenHash), []byte(strings.ToUpper(strings.TrimSpace(token)))); err != nil {
		return apperr.Unauthorized("invalid reset code").OnField(apperr.FieldGeneral)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return s.internal("hashing password", err)
	}
	hashed := string(hash)
	if _, err := s.updateUser(ctx, userID, storage.UserUpdate{PasswordHash: &hashed}); err != nil {
		return err
	}
	if _, err := s.store.DeletePasswordReset(ctx, userID); err != nil {
		s.logger.Warn("failed to delete used reset token", zap.String("user_id", userID), zap.Error(err))
	}
	return nil
}

// DeleteAccount removes the account and everything it owns.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	if _, err := s.store.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("account not found").OnField(apperr.FieldGeneral)
		}
		return s.internal("deleting user", err)
	}
	s.logger.Info("user deleted", zap.String("user_id", userID))
	return nil
}

func (s *Service) session(user *models.User) (*Session, error) {
	tokens, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, s.internal("issuing tokens", err)
	}
	return &Session{User: user, Tokens: tokens}, nil
}

func (s *Service) internal(op string, err error) error {
	s.logger.Error("auth operation failed", zap.String("op", op), zap.Error(err))
	return apperr.Internal(fmt.Errorf("%s: %w", op, err)).OnField(apperr.FieldGeneral)
}

// resetToken returns a random six character base32 code.
func resetToken() (string, error) {
	tokenBytes := make([]byte, 4)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(tokenBytes)
	return token[:6], nil
}
