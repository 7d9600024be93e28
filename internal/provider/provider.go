// Package provider wraps the Gemini generation backend behind a small
// streaming interface so the relay and the tests never touch the SDK
// directly.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"google.golang.org/genai"

	"github.com/ChristChad-mv/careflow-sub000/internal/a2a"
)

// Chunk is one streamed generation event: a fragment of text, a function
// invocation, or both empty (skippable).
type Chunk struct {
	Text         string
	FunctionCall *FunctionCall
}

type FunctionCall struct {
	Name string
	Args map[string]any
}

// Stream yields chunks in arrival order. Recv returns io.EOF when the
// underlying generation is exhausted.
type Stream interface {
	Recv() (Chunk, error)
}

// ToolDecl declares one callable tool to the model.
type ToolDecl struct {
	Name        string
	Description string
}

// Request is one streamed generation request.
type Request struct {
	System  string
	History []a2a.Message
	Tools   []ToolDecl
}

// Generator produces generation streams. *Client implements it against
// Vertex/Gemini; the fake in this package implements it for tests.
type Generator interface {
	Stream(ctx context.Context, req Request) (Stream, error)
}

type Config struct {
	Backend         string // "vertex" or "gemini-api"
	Project         string
	Location        string
	Model           string
	APIKey          string
	Temperature     float32
	MaxOutputTokens int32
}

type Client struct {
	client *genai.Client
	cfg    Config
}

// NewClient creates a Gemini client on the configured backend.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Model == "" {
		return nil, errors.New("provider model is required")
	}

	var cc genai.ClientConfig
	switch cfg.Backend {
	case "", "vertex":
		if cfg.Project == "" || cfg.Location == "" {
			return nil, errors.New("provider project and location are required for the vertex backend")
		}
		cc = genai.ClientConfig{
			Project:  cfg.Project,
			Location: cfg.Location,
			Backend:  genai.BackendVertexAI,
		}
	case "gemini-api":
		if cfg.APIKey == "" {
			return nil, errors.New("provider api key is required for the gemini-api backend")
		}
		cc = genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
	default:
		return nil, fmt.Errorf("unsupported provider backend: %s", cfg.Backend)
	}

	client, err := genai.NewClient(ctx, &cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Client{client: client, cfg: cfg}, nil
}

// Stream starts a streamed generation over the conversation history.
func (c *Client) Stream(ctx context.Context, req Request) (Stream, error) {
	var contents []*genai.Content
	for _, m := range req.History {
		role := genai.Role(genai.RoleUser)
		if m.Role == a2a.RoleAgent {
			role = genai.RoleModel
		}
		text := m.Text()
		if text == "" {
			continue
		}
		contents = append(contents, genai.NewContentFromText(text, role))
	}
	if len(contents) == 0 {
		return nil, errors.New("empty conversation history")
	}

	temp := c.cfg.Temperature
	if temp == 0 {
		temp = 0.7
	}
	maxTokens := c.cfg.MaxOutputTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}
	gcfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: maxTokens,
	}
	if req.System != "" {
		gcfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		tool := &genai.Tool{}
		for _, t := range req.Tools {
			tool.FunctionDeclarations = append(tool.FunctionDeclarations, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
			})
		}
		gcfg.Tools = []*genai.Tool{tool}
	}

	seq := c.client.Models.GenerateContentStream(ctx, c.cfg.Model, contents, gcfg)
	next, stop := iter.Pull2(seq)
	return &genaiStream{next: next, stop: stop}, nil
}

type genaiStream struct {
	next    func() (*genai.GenerateContentResponse, error, bool)
	stop    func()
	pending []Chunk
	done    bool
}

func (s *genaiStream) Recv() (Chunk, error) {
	for {
		if len(s.pending) > 0 {
			chunk := s.pending[0]
			s.pending = s.pending[1:]
			return chunk, nil
		}
		if s.done {
			return Chunk{}, io.EOF
		}
		resp, err, ok := s.next()
		if !ok {
			s.done = true
			s.stop()
			return Chunk{}, io.EOF
		}
		if err != nil {
			s.done = true
			s.stop()
			return Chunk{}, err
		}
		s.pending = append(s.pending, chunksFromResponse(resp)...)
	}
}

func chunksFromResponse(resp *genai.GenerateContentResponse) []Chunk {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return nil
	}
	var out []Chunk
	for _, part := range content.Parts {
		if part == nil {
			continue
		}
		chunk := Chunk{Text: part.Text}
		if part.FunctionCall != nil {
			chunk.FunctionCall = &FunctionCall{
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			}
		}
		if chunk.Text == "" && chunk.FunctionCall == nil {
			continue
		}
		out = append(out, chunk)
	}
	return out
}
