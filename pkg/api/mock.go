package api

import (
	"context"
)

type MockAPIGenerator struct {
	MockClient MockAPIClient
	Paths      []string
}

func (m *MockAPIGenerator) New(path string, args ...any) Client {
	m.Paths = append(m.Paths, path)
	return &m.MockClient
}

type MockAPIClient struct {
	Headers map[string]string
	Sent    Body

	POSTFunc func(ctx context.Context, opts ...Opt) (*Response, error)
	GETFunc  func(ctx context.Context, opts ...Opt) (*Response, error)
}

func (c *MockAPIClient) Header(name, value string) Client {
	if c.Headers == nil {
		c.Headers = make(map[string]string)
	}

	c.Headers[name] = value
	return c
}

func (c *MockAPIClient) Body(body Body) Client {
	c.Sent = body
	return c
}

func (c *MockAPIClient) POST(ctx context.Context, opts ...Opt) (*Response, error) {
	if c.POSTFunc != nil {
		return c.POSTFunc(ctx, opts...)
	}

	panic("not implemented")
}

func (c *MockAPIClient) GET(ctx context.Context, opts ...Opt) (*Response, error) {
	if c.GETFunc != nil {
		return c.GETFunc(ctx, opts...)
	}

	panic("not implemented")
}
