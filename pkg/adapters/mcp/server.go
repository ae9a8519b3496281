package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/convo"
	"github.com/aretw0/convo/internal/logging"
	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/persistence/middleware"
	"github.com/aretw0/convo/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DefaultSessionID names the session used when a tool call omits session_id.
const DefaultSessionID = "default"

// ErrNoSession is returned by get_response for a session that was never started.
var ErrNoSession = errors.New("session not started")

// TurnResponse is the structured result of every conversation tool.
type TurnResponse struct {
	SessionID string           `json:"session_id" jsonschema_description:"The session the turn belongs to"`
	Messages  []string         `json:"messages" jsonschema_description:"Speech text of the turn, markup removed"`
	Choices   []string         `json:"choices" jsonschema_description:"Suggested replies, in order"`
	Ended     bool             `json:"ended" jsonschema_description:"Indicates if the conversation has ended"`
	Trace     []map[string]any `json:"trace" jsonschema_description:"Raw traces of the turn in wire shape"`
	Variables map[string]any   `json:"variables,omitempty" jsonschema_description:"Variables after the turn"`
}

// SessionSource creates sessions positioned at the runtime's initial state.
// *convo.Factory satisfies it.
type SessionSource interface {
	FetchSession(ctx context.Context) (*session.Session, error)
}

var _ SessionSource = (*convo.Factory)(nil)

// Server exposes conversations as MCP tools. Sessions are kept in memory,
// keyed by the session_id tool argument.
type Server struct {
	source    SessionSource
	mcpServer *server.MCPServer
	logger    *slog.Logger

	mask []string

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithVariableMask masks variables whose key matches one of the patterns in
// every response.
func WithVariableMask(patterns ...string) Option {
	return func(s *Server) {
		s.mask = append(s.mask, patterns...)
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(source SessionSource, opts ...Option) *Server {
	s := &Server{
		source:    source,
		mcpServer: server.NewMCPServer("convo-mcp", strings.TrimSpace(convo.Version)),
		logger:    logging.NewNop(),
		sessions:  make(map[string]*session.Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	sessionArg := mcp.WithString("session_id", mcp.Description("Conversation to act on (default: \"default\")"))

	s.mcpServer.AddTool(mcp.NewTool("start",
		mcp.WithDescription("Start or restart a conversation and return the first turn."),
		sessionArg,
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("send_text",
		mcp.WithDescription("Send user text to a started conversation. Empty text continues without input."),
		mcp.WithString("text", mcp.Required(), mcp.Description("User input string")),
		sessionArg,
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleSendText))

	s.mcpServer.AddTool(mcp.NewTool("send_intent",
		mcp.WithDescription("Send a pre-resolved intent to a started conversation."),
		mcp.WithString("intent", mcp.Required(), mcp.Description("Intent name")),
		mcp.WithString("entities", mcp.Description("JSON array of {name, value} entities")),
		mcp.WithString("query", mcp.Description("Original utterance")),
		mcp.WithNumber("confidence", mcp.Description("Recognition confidence between 0 and 1")),
		sessionArg,
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleSendIntent))

	s.mcpServer.AddTool(mcp.NewTool("get_response",
		mcp.WithDescription("Return the last turn of a conversation without advancing it."),
		sessionArg,
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleGetResponse))
}

func sessionID(args map[string]interface{}) string {
	if id, ok := args["session_id"].(string); ok && strings.TrimSpace(id) != "" {
		return id
	}
	return DefaultSessionID
}

func (s *Server) lookup(id string) (*session.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	id := sessionID(args)

	sess, ok := s.lookup(id)
	if !ok {
		fresh, err := s.source.FetchSession(ctx)
		if err != nil {
			return TurnResponse{}, fmt.Errorf("failed to create session: %w", err)
		}
		s.mu.Lock()
		if existing, found := s.sessions[id]; found {
			fresh = existing
		} else {
			s.sessions[id] = fresh
		}
		s.mu.Unlock()
		sess = fresh
	}

	turn, err := sess.Start(ctx)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("start failed: %w", err)
	}
	return s.respond(id, turn)
}

func (s *Server) handleSendText(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	id := sessionID(args)
	sess, ok := s.lookup(id)
	if !ok {
		return TurnResponse{}, fmt.Errorf("%w: %q", ErrNoSession, id)
	}

	text, _ := args["text"].(string)
	turn, err := sess.SendText(ctx, text)
	if err != nil {
		s.logger.Warn("MCP send_text rejected", "session", id, "err", err, "size", len(text))
		return TurnResponse{}, fmt.Errorf("send_text failed: %w", err)
	}
	return s.respond(id, turn)
}

func (s *Server) handleSendIntent(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	id := sessionID(args)
	sess, ok := s.lookup(id)
	if !ok {
		return TurnResponse{}, fmt.Errorf("%w: %q", ErrNoSession, id)
	}

	name, _ := args["intent"].(string)
	if strings.TrimSpace(name) == "" {
		return TurnResponse{}, errors.New("intent is required")
	}
	query, _ := args["query"].(string)
	confidence, _ := args["confidence"].(float64)

	var entities []domain.Entity
	if raw, ok := args["entities"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &entities); err != nil {
			return TurnResponse{}, fmt.Errorf("invalid entities: %w", err)
		}
	}

	turn, err := sess.SendIntent(ctx, name, entities, query, confidence)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("send_intent failed: %w", err)
	}
	return s.respond(id, turn)
}

func (s *Server) handleGetResponse(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	id := sessionID(args)
	sess, ok := s.lookup(id)
	if !ok {
		return TurnResponse{}, fmt.Errorf("%w: %q", ErrNoSession, id)
	}
	return s.respond(id, sess.Context())
}

func (s *Server) respond(id string, turn *session.Context) (TurnResponse, error) {
	resp, err := newTurnResponse(id, turn)
	if err != nil || len(s.mask) == 0 || resp.Variables == nil {
		return resp, err
	}
	resp.Variables, err = middleware.MaskVariables(resp.Variables, s.mask)
	return resp, err
}

func newTurnResponse(id string, turn *session.Context) (TurnResponse, error) {
	resp := TurnResponse{
		SessionID: id,
		Messages:  []string{},
		Choices:   []string{},
		Trace:     []map[string]any{},
	}
	if turn == nil {
		return resp, nil
	}

	for _, t := range turn.Response() {
		if sp, ok := t.(domain.SpeakTrace); ok {
			resp.Messages = append(resp.Messages, sp.Message)
		}
	}
	for _, c := range turn.Choices() {
		resp.Choices = append(resp.Choices, c.Name)
	}
	for _, t := range turn.Trace() {
		raw, err := domain.MarshalTrace(t)
		if err != nil {
			return TurnResponse{}, err
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return TurnResponse{}, err
		}
		resp.Trace = append(resp.Trace, m)
	}
	resp.Ended = turn.IsEnding()
	resp.Variables = turn.Variables()
	return resp, nil
}

func (s *Server) sessionIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("convo://sessions", "Open Conversations",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.sessionIDs())
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "convo://sessions",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
