package main

import (
	"flag"

	"calx/internal/lsp"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"
)

const (
	lsName  = "calx-lsp"
	version = "0.1"
)

var store = lsp.NewStore()
var handler protocol.Handler
var log = commonlog.GetLogger("calx.lsp")

func main() {
	verbose := flag.Int("v", 1, "log verbosity (0 quiet, higher is louder)")
	logPath := flag.String("log", "", "write logs to this file instead of stderr")
	flag.Parse()

	var path *string
	if *logPath != "" {
		path = logPath
	}
	commonlog.Configure(*verbose, path)

	handler = protocol.Handler{
		Initialize:                     initialize,
		Initialized:                    initialized,
		Shutdown:                       shutdown,
		SetTrace:                       setTrace,
		TextDocumentDidOpen:            textDocumentDidOpen,
		TextDocumentDidChange:          textDocumentDidChange,
		TextDocumentDidSave:            textDocumentDidSave,
		TextDocumentDidClose:           textDocumentDidClose,
		TextDocumentCodeAction:         textDocumentCodeAction,
		TextDocumentFormatting:         textDocumentFormatting,
		TextDocumentSemanticTokensFull: textDocumentSemanticTokensFull,
		TextDocumentDefinition:         textDocumentDefinition,
		TextDocumentDocumentSymbol:     textDocumentDocumentSymbol,
		TextDocumentCompletion:         textDocumentCompletion,
		TextDocumentHover:              textDocumentHover,
		TextDocumentReferences:         textDocumentReferences,
	}

	srv := server.NewServer(&handler, lsName, false)
	if err := srv.RunStdio(); err != nil {
		log.Errorf("server stopped: %v", err)
	}
}

func initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	if params.RootURI != nil {
		log.Infof("initializing in %s", lsp.UriToPath(*params.RootURI))
	}

	full := protocol.TextDocumentSyncKindFull
	legend := protocol.SemanticTokensLegend{
		TokenTypes:     lsp.SemanticTokenTypes,
		TokenModifiers: lsp.SemanticTokenModifiers,
	}
	caps := protocol.ServerCapabilities{
		TextDocumentSync: &protocol.TextDocumentSyncOptions{
			OpenClose: &protocol.True,
			Change:    &full,
			Save:      protocol.SaveOptions{IncludeText: &protocol.False},
		},
		CodeActionProvider: protocol.CodeActionOptions{
			CodeActionKinds: []protocol.CodeActionKind{protocol.CodeActionKindQuickFix},
		},
		SemanticTokensProvider: &protocol.SemanticTokensOptions{
			Legend: legend,
			Full:   true,
			Range:  false,
		},
		DocumentFormattingProvider: true,
		DefinitionProvider:         true,
		DocumentSymbolProvider:     true,
		CompletionProvider: &protocol.CompletionOptions{
			TriggerCharacters: []string{"(", " "},
		},
		HoverProvider:      true,
		ReferencesProvider: true,
	}

	return protocol.InitializeResult{
		Capabilities: caps,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: ptrString(version),
		},
	}, nil
}

func initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func shutdown(ctx *glsp.Context) error {
	log.Infof("shutting down with %d open document(s)", store.Len())
	return nil
}

func setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

func textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	store.Set(uri, params.TextDocument.Text, int32(params.TextDocument.Version))
	log.Debugf("opened %s", uri)
	return publishDiagnostics(ctx, uri, params.TextDocument.Text)
}

func textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	if len(params.ContentChanges) == 0 {
		return nil
	}

	text, ok := extractFullText(params.ContentChanges[len(params.ContentChanges)-1])
	if !ok {
		return nil
	}

	if !store.Set(uri, text, int32(params.TextDocument.Version)) {
		log.Debugf("dropped stale change to %s", uri)
		return nil
	}
	return publishDiagnostics(ctx, uri, text)
}

func textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	if text, ok := store.Get(uri); ok {
		return publishDiagnostics(ctx, uri, text)
	}
	return nil
}

func textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	store.Delete(uri)
	return publishDiagnostics(ctx, uri, "")
}

func textDocumentCodeAction(ctx *glsp.Context, params *protocol.CodeActionParams) (any, error) {
	uri := string(params.TextDocument.URI)
	text, ok := store.Get(uri)
	if !ok {
		return nil, nil
	}
	actions := lsp.CodeActions(uri, text, params.Context.Diagnostics)
	if len(actions) == 0 {
		return nil, nil
	}
	return actions, nil
}

func textDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	uri := string(params.TextDocument.URI)
	text, ok := store.Get(uri)
	if !ok || !lsp.IsSourceURI(uri) {
		return &protocol.SemanticTokens{Data: []uint32{}}, nil
	}

	sem := lsp.SemanticTokensForText(text)
	data := lsp.EncodeSemanticTokens(sem)
	return &protocol.SemanticTokens{Data: data}, nil
}

func textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := string(params.TextDocument.URI)
	text, ok := store.Get(uri)
	if !ok {
		return nil, nil
	}
	locs, err := lsp.DefinitionAt(uri, text, params.Position)
	if err != nil || len(locs) == 0 {
		return nil, err
	}
	return locs, nil
}

func textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	uri := string(params.TextDocument.URI)
	text, ok := store.Get(uri)
	if !ok {
		return []protocol.DocumentSymbol{}, nil
	}
	return lsp.DocumentSymbols(text), nil
}

func textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	uri := string(params.TextDocument.URI)
	text, ok := store.Get(uri)
	if !ok {
		return nil, nil
	}
	items := lsp.CompletionItems(text, params.Position)
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}

func textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	uri := string(params.TextDocument.URI)
	text, ok := store.Get(uri)
	if !ok {
		return nil, nil
	}
	return lsp.HoverAt(text, params.Position)
}

func textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	uri := string(params.TextDocument.URI)
	text, ok := store.Get(uri)
	if !ok {
		return nil, nil
	}
	return lsp.ReferencesAt(uri, text, params.Position, params.Context.IncludeDeclaration)
}

func publishDiagnostics(ctx *glsp.Context, uri string, text string) error {
	diags := []protocol.Diagnostic{}
	if lsp.IsSourceURI(uri) && text != "" {
		diags = lsp.Diagnostics(text)
	}
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentUri(uri),
		Diagnostics: diags,
	})
	return nil
}

func extractFullText(change any) (string, bool) {
	switch typed := change.(type) {
	case protocol.TextDocumentContentChangeEventWhole:
		return typed.Text, true
	case protocol.TextDocumentContentChangeEvent:
		return typed.Text, true
	default:
		return "", false
	}
}

func ptrString(s string) *string { return &s }
