package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"codesift/internal/chunker"
	"codesift/internal/index"
	"codesift/internal/store"
	"codesift/internal/tui"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing codebase search tools",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.Store.Path); os.IsNotExist(err) {
		return fmt.Errorf("index not found at %s\nRun 'codesift index <path>' first to build the index", cfg.Store.Path)
	}

	log := newLogger()
	coord, st, err := buildCoordinator(cfg, nil, log)
	if err != nil {
		return err
	}
	defer st.Close()

	s := mcpserver.NewMCPServer("codesift", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(searchCodebaseTool(), makeSearchHandler(coord))
	s.AddTool(listIndexedFilesTool(), makeListFilesHandler(st, coord.Registry()))

	return mcpserver.ServeStdio(s)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func searchCodebaseTool() mcp.Tool {
	return mcp.NewTool("search_codebase",
		mcp.WithDescription("Semantically search the indexed codebase using vector similarity over structural chunks. Returns relevant code with file paths and line numbers."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language or keyword query to search the codebase"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of chunks to return (default 10)"),
		),
	)
}

func listIndexedFilesTool() mcp.Tool {
	return mcp.NewTool("list_indexed_files",
		mcp.WithDescription("List all files in the index with their language and chunk count."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("language",
			mcp.Description("Optional language filter (e.g. 'go', 'python'). Case-insensitive."),
		),
	)
}

// --- Handler factories ---

func makeSearchHandler(coord *index.Coordinator) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		k := req.GetInt("k", 10)
		if k <= 0 {
			k = 10
		}

		results, err := coord.Search(ctx, query, k)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}

		return mcp.NewToolResultText(tui.FormatResults(query, results)), nil
	}
}

func makeListFilesHandler(st store.Store, registry *chunker.Registry) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		langFilter := strings.ToLower(req.GetString("language", ""))

		fps, err := st.ListFingerprints()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list files failed: %v", err)), nil
		}

		type entry struct {
			fp   store.Fingerprint
			lang string
		}
		var filtered []entry
		for _, fp := range fps {
			lang := registry.LanguageName(fp.Path)
			if lang == "" {
				lang = "text"
			}
			if langFilter == "" || strings.ToLower(lang) == langFilter {
				filtered = append(filtered, entry{fp, lang})
			}
		}

		var sb strings.Builder
		if langFilter != "" {
			fmt.Fprintf(&sb, "## Indexed files (%d, language: %s)\n\n", len(filtered), langFilter)
		} else {
			fmt.Fprintf(&sb, "## Indexed files (%d)\n\n", len(filtered))
		}
		for _, e := range filtered {
			fmt.Fprintf(&sb, "- **%s** (%s, %d chunks)\n", e.fp.Path, e.lang, e.fp.ChunkCount)
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}
