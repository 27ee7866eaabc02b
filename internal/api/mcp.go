package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lexsift/lexsift/internal/document"
	"github.com/lexsift/lexsift/internal/prompts"
	"github.com/lexsift/lexsift/internal/rag"
)

// MCPDeps holds dependencies for the MCP server. The tools delegate to
// the same orchestrator and analyzer paths as the HTTP handlers.
type MCPDeps struct {
	Registry      *document.Registry
	Orchestrator  Generator
	Risks         RiskAnalyzer
	SummarizeOpts rag.Options
	ChatOpts      rag.Options
}

// NewMCPServer creates an MCP server exposing document analysis tools
// over stdio.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"lexsift",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("lexsift: legal document summarization, risk analysis, and grounded Q&A over uploaded documents."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("summarize_document",
			mcp.WithDescription("Produce an executive summary, key obligations, and plain-language explanation of an uploaded document."),
			mcp.WithString("doc_id", mcp.Description("ID of an uploaded document"), mcp.Required()),
		),
		mcpSummarizeDocument(deps),
	)

	s.AddTool(
		mcp.NewTool("analyze_risks",
			mcp.WithDescription("Detect risky clauses in an uploaded document and elaborate them with remediation advice."),
			mcp.WithString("doc_id", mcp.Description("ID of an uploaded document"), mcp.Required()),
		),
		mcpAnalyzeRisks(deps),
	)

	s.AddTool(
		mcp.NewTool("ask_document",
			mcp.WithDescription("Answer a question grounded on an uploaded document's content."),
			mcp.WithString("doc_id", mcp.Description("ID of an uploaded document"), mcp.Required()),
			mcp.WithString("question", mcp.Description("The question to answer"), mcp.Required()),
		),
		mcpAskDocument(deps),
	)

	return s
}

func mcpSummarizeDocument(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		docID, err := req.RequireString("doc_id")
		if err != nil {
			return mcpError("doc_id is required"), nil
		}

		result, err := deps.Orchestrator.Generate(ctx, docID, prompts.Summarize, deps.SummarizeOpts)
		if err != nil {
			return mcpError(fmt.Sprintf("summarization failed: %v", err)), nil
		}
		return mcpText(result.Text), nil
	}
}

func mcpAnalyzeRisks(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		docID, err := req.RequireString("doc_id")
		if err != nil {
			return mcpError("doc_id is required"), nil
		}

		doc, err := deps.Registry.Get(docID)
		if err != nil {
			return mcpError(fmt.Sprintf("document not found: %s", docID)), nil
		}

		report := deps.Risks.Analyze(ctx, doc.FullText)
		b, err := json.Marshal(report)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal report: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAskDocument(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		docID, err := req.RequireString("doc_id")
		if err != nil {
			return mcpError("doc_id is required"), nil
		}
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}

		prompt := prompts.ChatSystem + "\n\nUser question: " + question
		result, err := deps.Orchestrator.Generate(ctx, docID, prompt, deps.ChatOpts)
		if err != nil {
			return mcpError(fmt.Sprintf("answer failed: %v", err)), nil
		}
		return mcpText(result.Text), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
