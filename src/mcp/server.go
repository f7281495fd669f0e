// Package mcp exposes read-only build resolution and deployment history as
// MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"ci-deployer/src/apperr"
	"ci-deployer/src/jenkins"
	"ci-deployer/src/sanitize"
	"ci-deployer/src/store"
)

// Server is the MCP server for cideploy.
type Server struct {
	mcpServer *server.MCPServer
	resolver  *jenkins.Resolver
	history   store.Store
}

// NewServer creates a new MCP server. history may be nil, in which case
// the list_deployments tool is not offered.
func NewServer(resolver *jenkins.Resolver, history store.Store, version string) *Server {
	s := server.NewMCPServer(
		"cideploy",
		version,
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		resolver:  resolver,
		history:   history,
	}
	srv.registerTools()

	return srv
}

func jobParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("job",
			mcp.Required(),
			mcp.Description("Jenkins job name, e.g. zanata-platform"),
		),
		mcp.WithString("folder",
			mcp.Description("Folder containing the job, e.g. github-zanata-org"),
		),
		mcp.WithString("branch",
			mcp.Description("Branch of a multibranch job, e.g. master"),
		),
	}
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	showJob := mcp.NewTool("show_job", append([]mcp.ToolOption{
		mcp.WithDescription("Show a Jenkins job summary: display name and the numbers of its last, last completed, last failed and last successful builds."),
	}, jobParams()...)...)

	showBuild := mcp.NewTool("show_last_successful_build", append([]mcp.ToolOption{
		mcp.WithDescription("Show the last successful build of a Jenkins job: number, URL, neighbouring build numbers and its artifacts."),
	}, jobParams()...)...)

	showLink := mcp.NewTool("show_download_link", append([]mcp.ToolOption{
		mcp.WithDescription("Resolve the download URL of the artifact that would be deployed from the last successful build."),
		mcp.WithString("patterns",
			mcp.Description("Comma-separated artifact path regular expressions, tried in order (default: the WAR patterns)"),
		),
	}, jobParams()...)...)

	s.mcpServer.AddTool(showJob, s.handleShowJob)
	s.mcpServer.AddTool(showBuild, s.handleShowLastSuccessfulBuild)
	s.mcpServer.AddTool(showLink, s.handleShowDownloadLink)

	if s.history != nil {
		listDeployments := mcp.NewTool("list_deployments",
			mcp.WithDescription("List recent deployments, newest first, with the state each one reached."),
			mcp.WithString("host",
				mcp.Description("Only deployments to this host"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Max deployments to return (default: 20)"),
			),
		)
		s.mcpServer.AddTool(listDeployments, s.handleListDeployments)
	}
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

func descriptorFrom(request mcp.CallToolRequest) (jenkins.JobDescriptor, error) {
	return jenkins.Resolve(
		request.GetString("job", ""),
		request.GetString("folder", ""),
		request.GetString("branch", ""),
	)
}

func (s *Server) handleShowJob(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := descriptorFrom(request)
	if err != nil {
		return toolError(err), nil
	}
	job, err := s.resolver.LoadJob(ctx, d)
	if err != nil {
		return toolError(err), nil
	}
	return fieldsResult(job.Summary())
}

func (s *Server) handleShowLastSuccessfulBuild(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := descriptorFrom(request)
	if err != nil {
		return toolError(err), nil
	}
	_, build, err := s.resolver.LastSuccessfulBuild(ctx, d)
	if err != nil {
		return toolError(err), nil
	}
	return fieldsResult(build.Summary())
}

func (s *Server) handleShowDownloadLink(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := descriptorFrom(request)
	if err != nil {
		return toolError(err), nil
	}

	raw := jenkins.DefaultPatterns
	if p := request.GetString("patterns", ""); p != "" {
		raw = strings.Split(p, ",")
	}
	patterns, err := jenkins.CompilePatterns(raw)
	if err != nil {
		return toolError(err), nil
	}

	resolved, err := s.resolver.ResolveArtifact(ctx, d, patterns)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]interface{}{
		"build_number": resolved.Build.Descriptor.Number,
		"artifact":     resolved.Artifact.RelativePath,
		"download_url": resolved.DownloadURL,
	})
}

func (s *Server) handleListDeployments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deployments, err := s.history.ListDeployments(ctx, request.GetString("host", ""), request.GetInt("limit", 20))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(deployments)
}

// toolError reports failures to the client as tool errors, with the
// operator hint when there is one.
func toolError(err error) *mcp.CallToolResult {
	var userErr *apperr.UserError
	if wrapped := apperr.WrapError(err); errors.As(wrapped, &userErr) {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s (hint: %s)", userErr.Message, sanitize.Error(userErr.Err), userErr.Hint))
	}
	return mcp.NewToolResultError(sanitize.Error(err))
}

func fieldsResult(fields []jenkins.Field) (*mcp.CallToolResult, error) {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return jsonResult(out)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
