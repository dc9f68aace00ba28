// Package api is the endpoint catalog built on the shared transport client.
package api

import (
	"net/url"

	"github.com/morezero/apiclient/pkg/transport"
)

// Endpoint paths.
const (
	PathLogin    = "/api/auth/login"
	PathUserInfo = "/api/users/info"
	PathExamples = "/api/examples"
	PathUpload   = "/api/files/upload"
)

// Service groups the endpoint services over one client.
type Service struct {
	User    *UserService
	Example *ExampleService
	File    *FileService
}

// New creates the endpoint catalog over c.
func New(c *transport.Client) *Service {
	return &Service{
		User:    &UserService{c: c},
		Example: &ExampleService{c: c},
		File:    &FileService{c: c},
	}
}

func examplePath(id string) string {
	return PathExamples + "/" + url.PathEscape(id)
}
