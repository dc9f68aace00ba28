package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/morezero/apiclient/pkg/transport"
)

const userLogPrefix = "api:user"

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult keeps the user info document raw so it can be stored as-is.
type LoginResult struct {
	Token    string          `json:"token"`
	UserInfo json.RawMessage `json:"userInfo"`
}

type UserInfo struct {
	ID          int64    `json:"id"`
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Avatar      string   `json:"avatar,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// UserService covers authentication and the current user's profile.
type UserService struct {
	c *transport.Client
}

func (s *UserService) Login(ctx context.Context, req LoginRequest, opts ...transport.RequestOption) (*LoginResult, error) {
	if req.Username == "" || req.Password == "" {
		return nil, fmt.Errorf("%s - username and password are required", userLogPrefix)
	}
	res, err := transport.Post[LoginResult](ctx, s.c, PathLogin, req, opts...)
	if err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, fmt.Errorf("%s - login response carried no token", userLogPrefix)
	}
	return &res, nil
}

func (s *UserService) GetUserInfo(ctx context.Context, opts ...transport.RequestOption) (*UserInfo, error) {
	info, err := transport.Get[UserInfo](ctx, s.c, PathUserInfo, opts...)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// UpdateUserInfo sends a partial update of the current user's fields.
func (s *UserService) UpdateUserInfo(ctx context.Context, fields map[string]any, opts ...transport.RequestOption) (bool, error) {
	return transport.Put[bool](ctx, s.c, PathUserInfo, fields, opts...)
}
