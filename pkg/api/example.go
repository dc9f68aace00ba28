package api

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/morezero/apiclient/pkg/transport"
)

type Example struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Content     json.RawMessage `json:"content,omitempty"`
	CreatedAt   string          `json:"createdAt,omitempty"`
	UpdatedAt   string          `json:"updatedAt,omitempty"`
}

type ExampleInput struct {
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Content     json.RawMessage `json:"content,omitempty"`
}

// ListParams filters List. Zero fields are omitted from the query.
type ListParams struct {
	Page     int
	PageSize int
	Keyword  string
}

type ExamplePage struct {
	List     []Example `json:"list"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
}

// ExampleService is the CRUD surface of the example module.
type ExampleService struct {
	c *transport.Client
}

func (s *ExampleService) List(ctx context.Context, p ListParams, opts ...transport.RequestOption) (*ExamplePage, error) {
	var query []transport.RequestOption
	if p.Page > 0 {
		query = append(query, transport.WithParam("page", strconv.Itoa(p.Page)))
	}
	if p.PageSize > 0 {
		query = append(query, transport.WithParam("pageSize", strconv.Itoa(p.PageSize)))
	}
	if p.Keyword != "" {
		query = append(query, transport.WithParam("keyword", p.Keyword))
	}
	page, err := transport.Get[ExamplePage](ctx, s.c, PathExamples, append(query, opts...)...)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *ExampleService) Get(ctx context.Context, id string, opts ...transport.RequestOption) (*Example, error) {
	ex, err := transport.Get[Example](ctx, s.c, examplePath(id), opts...)
	if err != nil {
		return nil, err
	}
	return &ex, nil
}

func (s *ExampleService) Create(ctx context.Context, in ExampleInput, opts ...transport.RequestOption) (*Example, error) {
	ex, err := transport.Post[Example](ctx, s.c, PathExamples, in, opts...)
	if err != nil {
		return nil, err
	}
	return &ex, nil
}

func (s *ExampleService) Update(ctx context.Context, id string, in ExampleInput, opts ...transport.RequestOption) (bool, error) {
	return transport.Put[bool](ctx, s.c, examplePath(id), in, opts...)
}

func (s *ExampleService) Delete(ctx context.Context, id string, opts ...transport.RequestOption) (bool, error) {
	return transport.Delete[bool](ctx, s.c, examplePath(id), opts...)
}
