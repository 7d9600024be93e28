// Package a2aclient is the outbound half of the agent protocol: agent card
// discovery, blocking sends, and server-sent-event streaming against a peer
// agent's JSON-RPC endpoint.
package a2aclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ChristChad-mv/careflow-sub000/internal/a2a"
	"github.com/ChristChad-mv/careflow-sub000/internal/idgen"
)

// streamScanBuffer caps one SSE line; generation chunks stay far below it.
const streamScanBuffer = 1 << 20

type Client struct {
	HTTP   *http.Client
	Logger *slog.Logger
}

func New() *Client {
	return &Client{HTTP: &http.Client{Timeout: 5 * time.Minute}}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Resolve fetches the agent card from the well-known path, falling back to
// the alternate spelling some agents publish under.
func (c *Client) Resolve(ctx context.Context, baseURL string) (a2a.AgentCard, error) {
	base := strings.TrimRight(baseURL, "/")
	var lastErr error
	for _, path := range []string{a2a.AgentCardPath, a2a.AgentCardAltPath} {
		card, err := c.fetchCard(ctx, base+path)
		if err == nil {
			return card, nil
		}
		lastErr = err
	}
	return a2a.AgentCard{}, fmt.Errorf("resolve agent card at %s: %w", baseURL, lastErr)
}

func (c *Client) fetchCard(ctx context.Context, url string) (a2a.AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return a2a.AgentCard{}, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return a2a.AgentCard{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return a2a.AgentCard{}, fmt.Errorf("agent card fetch: status %d", resp.StatusCode)
	}
	var card a2a.AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return a2a.AgentCard{}, fmt.Errorf("decode agent card: %w", err)
	}
	return card, nil
}

func (c *Client) post(ctx context.Context, serverURL, method string, params any, accept string) (*http.Response, error) {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	id, err := json.Marshal(idgen.New())
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(a2a.Request{
		JSONRPC: a2a.Version,
		ID:      id,
		Method:  method,
		Params:  rawParams,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serverURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%s: status %d", method, resp.StatusCode)
	}
	return resp, nil
}

// SendMessage performs a blocking message/send and returns the resulting
// task snapshot.
func (c *Client) SendMessage(ctx context.Context, serverURL string, msg *a2a.Message) (*a2a.Task, error) {
	resp, err := c.post(ctx, serverURL, a2a.MethodMessageSend, a2a.MessageSendParams{Message: msg}, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rpcResp a2a.Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	var task a2a.Task
	if err := json.Unmarshal(rpcResp.Result, &task); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &task, nil
}

// GetTask fetches the current snapshot of a task by ID.
func (c *Client) GetTask(ctx context.Context, serverURL, taskID string) (*a2a.Task, error) {
	resp, err := c.post(ctx, serverURL, a2a.MethodTasksGet, a2a.TaskIDParams{ID: taskID}, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rpcResp a2a.Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	var task a2a.Task
	if err := json.Unmarshal(rpcResp.Result, &task); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &task, nil
}

// CancelTask requests cancellation of an in-flight task.
func (c *Client) CancelTask(ctx context.Context, serverURL, taskID string) error {
	resp, err := c.post(ctx, serverURL, a2a.MethodTasksCancel, a2a.TaskIDParams{ID: taskID}, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var rpcResp a2a.Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	return nil
}

// StreamEvent is one decoded streaming result: either a task snapshot or a
// status update, mirroring what the peer emits.
type StreamEvent struct {
	Task   *a2a.Task
	Status *a2a.StatusUpdateEvent
}

// SendMessageStream performs message/stream and invokes handle for every
// decoded event, in order, until the peer marks an event final or the
// stream ends. Malformed SSE lines are skipped, not fatal.
func (c *Client) SendMessageStream(ctx context.Context, serverURL string, msg *a2a.Message, handle func(StreamEvent)) error {
	resp, err := c.post(ctx, serverURL, a2a.MethodMessageStream, a2a.MessageSendParams{Message: msg}, "text/event-stream")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 4096), streamScanBuffer)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

		var rpcResp a2a.Response
		if err := json.Unmarshal([]byte(payload), &rpcResp); err != nil {
			c.logger().Debug("skipping malformed stream line", "error", err)
			continue
		}
		if rpcResp.Error != nil {
			return rpcResp.Error
		}

		event, final, err := decodeStreamResult(rpcResp.Result)
		if err != nil {
			c.logger().Debug("skipping undecodable stream event", "error", err)
			continue
		}
		handle(event)
		if final {
			return nil
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("read event stream: %w", err)
	}
	return nil
}

// decodeStreamResult sniffs the result kind and decodes accordingly.
func decodeStreamResult(raw json.RawMessage) (StreamEvent, bool, error) {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return StreamEvent{}, false, err
	}
	switch probe.Kind {
	case a2a.KindTask:
		var task a2a.Task
		if err := json.Unmarshal(raw, &task); err != nil {
			return StreamEvent{}, false, err
		}
		return StreamEvent{Task: &task}, false, nil
	case a2a.KindStatusUpdate:
		var update a2a.StatusUpdateEvent
		if err := json.Unmarshal(raw, &update); err != nil {
			return StreamEvent{}, false, err
		}
		return StreamEvent{Status: &update}, update.Final, nil
	default:
		return StreamEvent{}, false, fmt.Errorf("unknown stream result kind %q", probe.Kind)
	}
}
