package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aussiebroadwan/tabchat/internal/chat/domain"
	"github.com/aussiebroadwan/tabchat/internal/chat/service"
	"github.com/aussiebroadwan/tabchat/pkg/ratelimit"
)

// LoginCooldown is the per-address window between authpswd attempts.
const LoginCooldown = time.Second

// Services are the collaborators the built-in commands call.
type Services struct {
	Users   *service.UserService
	Guard   *service.Guard
	Posts   *service.PostService
	Limiter ratelimit.Limiter
}

// Handlers returns the built-in command table.
func Handlers(s Services) map[string]Handler {
	return map[string]Handler{
		"ping":        s.ping,
		"version_chk": s.versionCheck,
		"get_ulist":   s.userList,
		"authpswd":    s.authPassword,
		"get_profile": s.getProfile,
		"get_home":    s.getHome,
		"get_post":    s.getPost,
	}
}

func (s Services) ping(_ context.Context, c *Conn, req Request) error {
	c.Status(req, CodeOK)
	return nil
}

func (s Services) versionCheck(_ context.Context, c *Conn, req Request) error {
	if err := c.Reply(req, "vers", ProtocolVersion); err != nil {
		return err
	}
	c.Status(req, CodeOK)
	return nil
}

func (s Services) userList(_ context.Context, c *Conn, req Request) error {
	return c.Reply(req, "ulist", c.Gateway().UserList())
}

type authRequest struct {
	Username *string `json:"username"`
	Password *string `json:"pswd"`
	Token    *string `json:"token"`
}

type authReply struct {
	Session      *domain.Session `json:"session,omitempty"`
	User         domain.Profile  `json:"user"`
	RequiresTOTP bool            `json:"requiresTotp"`
}

func (s Services) authPassword(ctx context.Context, c *Conn, req Request) error {
	var in authRequest
	if err := json.Unmarshal(req.Val, &in); err != nil {
		return Statusf(CodeDatatype, err)
	}
	if in.Username == nil || (in.Password == nil) == (in.Token == nil) {
		return Status(CodeDatatype)
	}

	if s.Limiter != nil {
		blocked, err := s.Limiter.Check(ctx, ratelimit.CategoryLogin, c.RemoteAddr, LoginCooldown)
		if err != nil {
			c.Logger().Warn("rate limiter unavailable, allowing login", "error", err)
		} else if blocked {
			return Status(CodeRateLimit)
		}
	}

	if c.Authenticated() {
		return Status(CodeAlreadyAuthenticated)
	}

	var reply authReply
	if in.Password != nil {
		fd, err := s.Users.Login(ctx, *in.Username, *in.Password, "")
		if err != nil {
			return mapAuthError(err)
		}
		reply = authReply{Session: &fd.Session, User: fd.User, RequiresTOTP: fd.RequiresTOTP}
	} else {
		user, err := s.tokenLogin(ctx, *in.Username, *in.Token)
		if err != nil {
			return err
		}
		reply = authReply{User: user.Profile()}
	}

	if err := c.Gateway().Bind(c, reply.User.ID, reply.User.Username); err != nil {
		if errors.Is(err, ErrAlreadyBound) {
			return Status(CodeAlreadyAuthenticated)
		}
		return err
	}
	c.Logger().Info("gateway connection authenticated")

	if err := c.Reply(req, "authpswd", reply); err != nil {
		return err
	}
	c.Gateway().BroadcastCommand("ulist", c.Gateway().UserList())
	return nil
}

func (s Services) tokenLogin(ctx context.Context, username, token string) (domain.User, error) {
	user, err := s.Users.Lookup(ctx, username)
	if err != nil {
		return domain.User{}, mapAuthError(err)
	}
	if user.Banned {
		return domain.User{}, Status(CodeBanned)
	}

	p, err := s.Guard.Authorize(ctx, token, service.Policy{Kinds: []domain.SessionKind{domain.KindUser}})
	if err != nil {
		return domain.User{}, mapAuthError(err)
	}
	if p.User.ID != user.ID {
		return domain.User{}, Status(CodeUnauthenticated)
	}
	return p.User, nil
}

// mapAuthError converts service failures into wire codes. Store outages
// fall through as plain errors and reply Internal.
func mapAuthError(err error) error {
	switch {
	case errors.Is(err, service.ErrUnknownUser):
		return Statusf(CodeIDNotFound, err)
	case errors.Is(err, service.ErrBanned):
		return Statusf(CodeBanned, err)
	case errors.Is(err, service.ErrInvalidCredentials):
		return Statusf(CodeInvalidPassword, err)
	case errors.Is(err, service.ErrSuspended):
		return Statusf(CodeSuspended, err)
	case errors.Is(err, service.ErrRateLimited):
		return Statusf(CodeRateLimit, err)
	case errors.Is(err, service.ErrUnauthenticated):
		return Statusf(CodeUnauthenticated, err)
	case errors.Is(err, service.ErrForbidden):
		return Statusf(CodeMissingPermissions, err)
	}
	return err
}

func decodeString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", Statusf(CodeDatatype, err)
	}
	return s, nil
}

func (s Services) getProfile(ctx context.Context, c *Conn, req Request) error {
	username, err := decodeString(req.Val)
	if err != nil {
		return err
	}

	profile, err := s.Users.Profile(ctx, username, c.UserID())
	if err != nil {
		return mapAuthError(err)
	}
	return c.Reply(req, "profile", profile)
}

func (s Services) getHome(ctx context.Context, c *Conn, req Request) error {
	posts, err := s.Posts.Home(ctx)
	if err != nil {
		return err
	}
	return c.Reply(req, "home", posts)
}

func (s Services) getPost(ctx context.Context, c *Conn, req Request) error {
	id, err := decodeString(req.Val)
	if err != nil {
		return err
	}

	post, err := s.Posts.Get(ctx, id)
	if errors.Is(err, service.ErrPostNotFound) {
		return Statusf(CodeIDNotFound, err)
	}
	if err != nil {
		return err
	}
	return c.Reply(req, "post", post)
}
