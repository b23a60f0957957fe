package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"Circle_Community/internal/model"
	"Circle_Community/internal/pkg"
)

const MinPasswordLen = 6

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

type RegisterInput struct {
	Username string       `json:"username"`
	Email    string       `json:"email"`
	Password string       `json:"password"`
	Gender   model.Gender `json:"gender"`
}

type LoginInput struct {
	EmailOrUsername string `json:"emailOrUsername"`
	Password        string `json:"password"`
}

type ProfilePatch struct {
	Avatar *string       `json:"avatar"`
	Bio    *string       `json:"bio"`
	Gender *model.Gender `json:"gender"`
}

type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type UserService struct {
	users    UserStore
	sessions SessionStore
	tokens   *pkg.TokenIssuer
	log      *slog.Logger
}

func NewUserService(users UserStore, sessions SessionStore, tokens *pkg.TokenIssuer, logger *slog.Logger) *UserService {
	return &UserService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		log:      logger,
	}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	if !usernameRe.MatchString(username) {
		return nil, pkg.BadRequest("username must be 3-20 letters, digits or underscores")
	}
	if len(in.Password) < MinPasswordLen {
		return nil, pkg.BadRequest("password must be at least 6 characters")
	}
	if in.Gender == "" {
		in.Gender = model.GenderPreferNotToSay
	}
	if !in.Gender.Valid() {
		return nil, pkg.BadRequest("invalid gender")
	}
	var email *string
	if e := strings.ToLower(strings.TrimSpace(in.Email)); e != "" {
		if !strings.Contains(e, "@") {
			return nil, pkg.BadRequest("invalid email")
		}
		email = &e
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, pkg.Internal("hash password", err)
	}
	user := &model.User{
		Username: username,
		Email:    email,
		Password: string(hash),
		Gender:   in.Gender,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, pkg.Conflict("username or email already registered")
		}
		return nil, storeErr(err, "user not found")
	}
	return s.issue(ctx, user)
}

func (s *UserService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	login := strings.TrimSpace(in.EmailOrUsername)
	if login == "" || in.Password == "" {
		return nil, pkg.BadRequest("emailOrUsername and password required")
	}
	user, err := s.users.FindByLogin(ctx, login)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkg.Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)) != nil {
		return nil, pkg.Unauthorized("invalid credentials")
	}
	return s.issue(ctx, user)
}

// issue 签发 token 并写入会话存储，新登录会顶掉旧 token
func (s *UserService) issue(ctx context.Context, user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, pkg.Internal("sign token", err)
	}
	if err := s.sessions.Save(ctx, user.ID, token, s.tokens.TTL()); err != nil {
		return nil, pkg.Internal("save session", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *UserService) Logout(ctx context.Context, userID uint64) error {
	if err := s.sessions.Delete(ctx, userID); err != nil {
		return pkg.Internal("delete session", err)
	}
	return nil
}

// Authenticate 校验签名和过期，并且必须是会话中当前有效的那个 token
func (s *UserService) Authenticate(ctx context.Context, token string) (uint64, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, pkg.ErrTokenExpired) {
			return 0, pkg.Unauthorized("token expired")
		}
		return 0, pkg.Unauthorized("invalid token")
	}
	active, err := s.sessions.Get(ctx, claims.UserID)
	if errors.Is(err, pkg.ErrSessionNotFound) {
		return 0, pkg.Unauthorized("session expired, please log in again")
	}
	if err != nil {
		return 0, pkg.Internal("load session", err)
	}
	if active != token {
		return 0, pkg.Unauthorized("token has been revoked")
	}
	return claims.UserID, nil
}

func (s *UserService) Me(ctx context.Context, userID uint64) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	return user, nil
}

// Profile karma 读取时计算，不落库
func (s *UserService) Profile(ctx context.Context, username string) (*model.Profile, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	karma, err := s.users.Karma(ctx, user.ID)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	return &model.Profile{User: *user, Karma: karma}, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uint64, patch ProfilePatch) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	if patch.Avatar != nil {
		user.Avatar = strings.TrimSpace(*patch.Avatar)
	}
	if patch.Bio != nil {
		user.Bio = pkg.PlainText(*patch.Bio)
	}
	if patch.Gender != nil {
		if !patch.Gender.Valid() {
			return nil, pkg.BadRequest("invalid gender")
		}
		user.Gender = *patch.Gender
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, storeErr(err, "user not found")
	}
	return user, nil
}
