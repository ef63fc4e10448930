package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/augeas"
	"github.com/aretw0/augeas/internal/logging"
	"github.com/aretw0/augeas/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ErrorsURI is the resource listing the errors of the last load or save.
const ErrorsURI = "augeas://errors"

// PathArgs are the arguments of the tools that take a single path.
type PathArgs struct {
	Path string `json:"path"`
}

// SetArgs are the arguments of aug_set.
type SetArgs struct {
	Path  string  `json:"path"`
	Value *string `json:"value,omitempty"`
}

// MoveArgs are the arguments of aug_mv.
type MoveArgs struct {
	Src string `json:"src"`
	Dst string `json:"dst"`
}

// SrunArgs are the arguments of aug_srun.
type SrunArgs struct {
	Text string `json:"text"`
}

// NodeResult is returned by aug_get.
type NodeResult struct {
	Path   string  `json:"path" jsonschema_description:"The queried path expression"`
	Value  *string `json:"value,omitempty" jsonschema_description:"The node value, absent for nodes without a value"`
	Exists bool    `json:"exists" jsonschema_description:"Whether a node matched"`
}

// MatchResult is returned by aug_match.
type MatchResult struct {
	Paths []string `json:"paths" jsonschema_description:"Matching paths in tree order"`
}

// CountResult is returned by aug_rm.
type CountResult struct {
	Count int `json:"count" jsonschema_description:"Number of nodes removed"`
}

// TreeResult is returned by the commands that change or write the tree.
type TreeResult struct {
	OK     bool               `json:"ok"`
	Errors []augeas.FileError `json:"errors,omitempty" jsonschema_description:"Per file errors recorded by load or save"`
}

// SrunResult is returned by aug_srun.
type SrunResult struct {
	Output string `json:"output"`
	Quit   bool   `json:"quit"`
}

// Server exposes one named session of a Manager as MCP tools.
type Server struct {
	sessions  *session.Manager
	name      string
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, name string, opts ...Option) *Server {
	s := &Server{
		sessions:  sessions,
		name:      name,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("augeas-mcp", strings.TrimSpace(augeas.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
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

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("aug_get",
		mcp.WithDescription("Get the value of the single node matching a path expression."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path expression, e.g. /files/etc/hosts/1/ipaddr")),
		mcp.WithOutputSchema[NodeResult](),
	), mcp.NewStructuredToolHandler(s.handleGet))

	s.mcpServer.AddTool(mcp.NewTool("aug_set",
		mcp.WithDescription("Set the value of a node, creating it and missing ancestors."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path expression matching at most one node")),
		mcp.WithString("value", mcp.Description("New value; omit to clear the value")),
		mcp.WithOutputSchema[TreeResult](),
	), mcp.NewStructuredToolHandler(s.handleSet))

	s.mcpServer.AddTool(mcp.NewTool("aug_match",
		mcp.WithDescription("List the paths of all nodes matching a path expression."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path expression")),
		mcp.WithOutputSchema[MatchResult](),
	), mcp.NewStructuredToolHandler(s.handleMatch))

	s.mcpServer.AddTool(mcp.NewTool("aug_rm",
		mcp.WithDescription("Remove all nodes matching a path expression and their descendants."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path expression")),
		mcp.WithOutputSchema[CountResult](),
	), mcp.NewStructuredToolHandler(s.handleRm))

	s.mcpServer.AddTool(mcp.NewTool("aug_mv",
		mcp.WithDescription("Move a node and its subtree to another path."),
		mcp.WithString("src", mcp.Required(), mcp.Description("Path expression of the node to move")),
		mcp.WithString("dst", mcp.Required(), mcp.Description("Destination path, created if missing")),
		mcp.WithOutputSchema[TreeResult](),
	), mcp.NewStructuredToolHandler(s.handleMv))

	s.mcpServer.AddTool(mcp.NewTool("aug_save",
		mcp.WithDescription("Write changed files back to disk."),
		mcp.WithOutputSchema[TreeResult](),
	), mcp.NewStructuredToolHandler(s.treeCommand((*augeas.Session).Save)))

	s.mcpServer.AddTool(mcp.NewTool("aug_load",
		mcp.WithDescription("Reload all files from disk, discarding unsaved changes."),
		mcp.WithOutputSchema[TreeResult](),
	), mcp.NewStructuredToolHandler(s.treeCommand((*augeas.Session).Load)))

	s.mcpServer.AddTool(mcp.NewTool("aug_transform",
		mcp.WithDescription("Register a lens for a set of files. Run aug_load afterwards to parse them."),
		mcp.WithString("lens", mcp.Required(), mcp.Description("Lens name, e.g. Simplevars.lns")),
		mcp.WithArray("incl", mcp.Required(), mcp.WithStringItems(), mcp.Description("Glob patterns of files to include")),
		mcp.WithArray("excl", mcp.WithStringItems(), mcp.Description("Glob patterns of files to exclude")),
		mcp.WithString("name", mcp.Description("Transform name, defaults to the lens module")),
		mcp.WithOutputSchema[TreeResult](),
	), mcp.NewStructuredToolHandler(s.handleTransform))

	s.mcpServer.AddTool(mcp.NewTool("aug_srun",
		mcp.WithDescription("Run augtool style commands, one per line."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Commands such as: set /files/etc/hosts/1/alias web")),
		mcp.WithOutputSchema[SrunResult](),
	), mcp.NewStructuredToolHandler(s.handleSrun))
}

func (s *Server) with(ctx context.Context, fn func(*augeas.Session) error) error {
	err := s.sessions.WithLock(ctx, s.name, fn)
	if err != nil {
		s.logger.Debug("MCP tool failed", "err", err)
	}
	return err
}

func (s *Server) handleGet(ctx context.Context, _ mcp.CallToolRequest, args PathArgs) (NodeResult, error) {
	res := NodeResult{Path: args.Path}
	err := s.with(ctx, func(sess *augeas.Session) error {
		v, ok, err := sess.Get(args.Path)
		if err != nil {
			return err
		}
		if ok {
			res.Value, res.Exists = &v, true
			return nil
		}
		res.Exists, err = sess.Exists(args.Path)
		return err
	})
	return res, err
}

func (s *Server) handleSet(ctx context.Context, _ mcp.CallToolRequest, args SetArgs) (TreeResult, error) {
	err := s.with(ctx, func(sess *augeas.Session) error {
		if args.Value == nil {
			return sess.Touch(args.Path)
		}
		return sess.Set(args.Path, *args.Value)
	})
	return TreeResult{OK: err == nil}, err
}

func (s *Server) handleMatch(ctx context.Context, _ mcp.CallToolRequest, args PathArgs) (MatchResult, error) {
	var res MatchResult
	err := s.with(ctx, func(sess *augeas.Session) (err error) {
		res.Paths, err = sess.Match(args.Path)
		return err
	})
	return res, err
}

func (s *Server) handleRm(ctx context.Context, _ mcp.CallToolRequest, args PathArgs) (CountResult, error) {
	var res CountResult
	err := s.with(ctx, func(sess *augeas.Session) (err error) {
		res.Count, err = sess.Rm(args.Path)
		return err
	})
	return res, err
}

func (s *Server) handleMv(ctx context.Context, _ mcp.CallToolRequest, args MoveArgs) (TreeResult, error) {
	err := s.with(ctx, func(sess *augeas.Session) error {
		return sess.Mv(args.Src, args.Dst)
	})
	return TreeResult{OK: err == nil}, err
}

func (s *Server) handleTransform(ctx context.Context, _ mcp.CallToolRequest, args augeas.Transform) (TreeResult, error) {
	err := s.with(ctx, func(sess *augeas.Session) error {
		return sess.Transform(args)
	})
	return TreeResult{OK: err == nil}, err
}

func (s *Server) handleSrun(ctx context.Context, _ mcp.CallToolRequest, args SrunArgs) (SrunResult, error) {
	var res SrunResult
	err := s.with(ctx, func(sess *augeas.Session) error {
		out, err := sess.Srun(args.Text)
		res = SrunResult{Output: out.Output, Quit: out.Quit}
		return err
	})
	return res, err
}

// treeCommand wraps load or save. A failure is reported in the result
// together with the per file errors instead of as a bare tool error.
func (s *Server) treeCommand(cmd func(*augeas.Session) error) func(context.Context, mcp.CallToolRequest, struct{}) (TreeResult, error) {
	return func(ctx context.Context, _ mcp.CallToolRequest, _ struct{}) (TreeResult, error) {
		var res TreeResult
		err := s.with(ctx, func(sess *augeas.Session) error {
			if err := cmd(sess); err != nil {
				res.Errors, _ = sess.FileErrors()
				return err
			}
			res.OK = true
			return nil
		})
		if err != nil && len(res.Errors) > 0 {
			return res, nil
		}
		return res, err
	}
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(ErrorsURI, "Errors of the last load or save",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		var files []augeas.FileError
		err := s.with(ctx, func(sess *augeas.Session) (err error) {
			files, err = sess.FileErrors()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read file errors: %w", err)
		}
		jsonBytes, _ := json.Marshal(files)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      ErrorsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
