// Package mock provides a scripted LLMClient for tests. It replays queued
// responses in order and records every request it receives, so tests can
// assert on prompts and schemas without a live service.
package mock

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/k-nishimoto/untangle"
)

// Result is one scripted outcome: a response text or an error.
type Result struct {
	Text string
	Err  error
}

// Text scripts a successful response.
func Text(s string) Result {
	return Result{Text: s}
}

// Fail scripts a failing call.
func Fail(err error) Result {
	return Result{Err: err}
}

// Client replays scripted results. Safe for concurrent use.
type Client struct {
	mu    sync.Mutex
	queue []Result
	calls []untangle.GenerateRequest
}

// New creates a Client that replays results in order.
func New(results ...Result) *Client {
	return &Client{queue: results}
}

// Enqueue appends further scripted results.
func (c *Client) Enqueue(results ...Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, results...)
}

// Generate pops the next scripted result. Running out of script is a test
// bug and fails loudly.
func (c *Client) Generate(ctx context.Context, req *untangle.GenerateRequest) (*untangle.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, *req)

	if len(c.queue) == 0 {
		return nil, goerr.New("mock: no scripted response left", goerr.V("calls", len(c.calls)))
	}
	next := c.queue[0]
	c.queue = c.queue[1:]

	if next.Err != nil {
		return nil, next.Err
	}
	return &untangle.Response{Text: next.Text}, nil
}

// Calls returns copies of every request received so far.
func (c *Client) Calls() []untangle.GenerateRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]untangle.GenerateRequest, len(c.calls))
	copy(out, c.calls)
	return out
}

// CallCount returns how many times Generate was invoked.
func (c *Client) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}
