// Package generation asks a language model for a complete website project
// and turns its reply into a validated file map.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sitebuilder-backend/pkg/logger"
)

const DefaultTimeout = 90 * time.Second

var ErrInvalidRequest = errors.New("invalid generation request")

// Backend is one model provider. Complete returns the raw reply text; any
// error it returns is treated as a transport failure.
type Backend interface {
	Name() string
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type Options struct {
	// Timeout bounds each attempt.
	Timeout time.Duration
}

type Client struct {
	primary  Backend
	fallback Backend
	timeout  time.Duration
}

// NewClient wires a primary backend and an optional fallback that is tried
// once when the primary fails at the transport level.
func NewClient(primary, fallback Backend, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if primary == nil {
		primary, fallback = fallback, nil
	}
	return &Client{primary: primary, fallback: fallback, timeout: opts.Timeout}
}

func (c *Client) Primary() string {
	if c.primary == nil {
		return ""
	}
	return c.primary.Name()
}

// GenerateProject runs one generation. Malformed or empty replies are never
// retried.
func (c *Client) GenerateProject(ctx context.Context, req Request) (*Project, error) {
	req = req.WithDefaults()
	if req.Description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidRequest)
	}
	if c.primary == nil {
		return nil, ErrNoBackend
	}

	proj, err := c.attempt(ctx, c.primary, req)
	if err == nil {
		return proj, nil
	}
	if !errors.Is(err, ErrGenerationBackend) || c.fallback == nil || ctx.Err() != nil {
		return nil, err
	}

	logger.Warnf("generation backend %s failed, falling back to %s: %v", c.primary.Name(), c.fallback.Name(), err)
	return c.attempt(ctx, c.fallback, req.ForFallback())
}

func (c *Client) attempt(ctx context.Context, b Backend, req Request) (*Project, error) {
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	reply, err := b.Complete(actx, SystemInstruction(), BuildPrompt(req))
	if err != nil {
		var be *BackendError
		if !errors.As(err, &be) {
			err = &BackendError{Provider: b.Name(), Err: err}
		}
		return nil, err
	}
	logger.Debugf("generation backend %s replied in %s (%d bytes)", b.Name(), time.Since(start).Round(time.Millisecond), len(reply))

	proj, err := ParseProject(reply)
	if err != nil {
		return nil, err
	}
	if proj.Description == "" {
		proj.Description = req.Description
	}
	return proj, nil
}
