package server

import (
	"net/http"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/teranos/chrono/errors"
	"github.com/teranos/chrono/internal/util"
	"github.com/teranos/chrono/logger"
	"github.com/teranos/chrono/tmln/complete"
	"github.com/teranos/chrono/tmln/lexer"
	"github.com/teranos/chrono/tmln/lsp"
	"github.com/teranos/chrono/version"
)

const languageServerName = "chrono timeline language server"

// GLSPHandler implements the LSP protocol for one WebSocket connection.
// It wraps lsp.Service and caches the documents the client has open.
type GLSPHandler struct {
	service      *lsp.Service
	server       *ChronoServer
	documents    map[string]string // URI → document content
	maxDocuments int
	mu           sync.RWMutex
}

// NewGLSPHandler creates a handler with an empty document cache
func NewGLSPHandler(service *lsp.Service, server *ChronoServer) *GLSPHandler {
	return &GLSPHandler{
		service:      service,
		server:       server,
		documents:    make(map[string]string),
		maxDocuments: int(server.maxDocuments.Load()),
	}
}

// Initialize handles the LSP initialize request
func (h *GLSPHandler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	h.server.logger.Infow("LSP client initializing", "client", params.ClientInfo)

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities := protocol.ServerCapabilities{
		CompletionProvider: &protocol.CompletionOptions{
			TriggerCharacters: []string{" ", "=", "{"},
		},
		HoverProvider: &protocol.HoverOptions{},
		TextDocumentSync: &protocol.TextDocumentSyncOptions{
			OpenClose: util.Ptr(true),
			Change:    &syncKind,
		},
		SemanticTokensProvider: &protocol.SemanticTokensOptions{
			Legend: protocol.SemanticTokensLegend{
				TokenTypes:     lsp.TokenTypes,
				TokenModifiers: []string{},
			},
			Full: true,
		},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    languageServerName,
			Version: util.Ptr(version.Version),
		},
	}, nil
}

// Initialized is called after the client receives InitializeResult
func (h *GLSPHandler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	h.server.logger.Debugw("LSP client initialized")
	return nil
}

// Shutdown handles the LSP shutdown request
func (h *GLSPHandler) Shutdown(ctx *glsp.Context) error {
	h.server.logger.Debugw("LSP client shutting down")
	return nil
}

// TextDocumentDidOpen caches a document and publishes its diagnostics
func (h *GLSPHandler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	text := params.TextDocument.Text

	h.mu.Lock()
	if _, exists := h.documents[uri]; !exists && len(h.documents) >= h.maxDocuments {
		h.mu.Unlock()
		h.server.logger.Warnw("Document cache limit reached, rejecting new document",
			logger.FieldURI, uri,
			"max_allowed", h.maxDocuments,
		)
		return errors.Newf("document cache limit reached (%d documents open)", h.maxDocuments)
	}
	h.documents[uri] = text
	total := len(h.documents)
	h.mu.Unlock()

	h.server.logger.Debugw("Document opened",
		logger.FieldURI, uri,
		logger.FieldSize, len(text),
		"total_documents", total,
	)
	h.publishDiagnostics(ctx, params.TextDocument.URI, text)
	return nil
}

// TextDocumentDidChange replaces a cached document (full sync)
func (h *GLSPHandler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := string(params.TextDocument.URI)

	h.mu.Lock()
	if _, open := h.documents[uri]; !open {
		h.mu.Unlock()
		return errors.Newf("document %s is not open", uri)
	}
	text := h.documents[uri]
	for _, change := range params.ContentChanges {
		if whole, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
			text = whole.Text
		}
	}
	h.documents[uri] = text
	h.mu.Unlock()

	h.server.logger.Debugw("Document changed", logger.FieldURI, uri, "changes", len(params.ContentChanges))
	h.publishDiagnostics(ctx, params.TextDocument.URI, text)
	return nil
}

// TextDocumentDidClose drops a document from the cache
func (h *GLSPHandler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	h.mu.Lock()
	delete(h.documents, string(params.TextDocument.URI))
	h.mu.Unlock()

	h.server.logger.Debugw("Document closed", logger.FieldURI, params.TextDocument.URI)
	return nil
}

func (h *GLSPHandler) document(uri protocol.DocumentUri) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	text, ok := h.documents[string(uri)]
	return text, ok
}

// TextDocumentCompletion offers vocabulary words narrowed to the word
// being typed
func (h *GLSPHandler) TextDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			h.server.logger.Errorw("Panic in completion handler", "panic", r, logger.FieldURI, params.TextDocument.URI)
			result, err = []protocol.CompletionItem{}, nil
		}
	}()

	text, ok := h.document(params.TextDocument.URI)
	if !ok {
		return []protocol.CompletionItem{}, nil
	}

	items := h.service.CompleteInDocument(text, int(params.Position.Line), int(params.Position.Character))
	completionItems := make([]protocol.CompletionItem, len(items))
	for i, item := range items {
		completionItems[i] = protocol.CompletionItem{
			Label:      item.Label,
			Kind:       mapCompletionKind(item.Category),
			Detail:     stringPtrOrNil(item.Category),
			InsertText: stringPtrOrNil(item.InsertText),
			SortText:   stringPtrOrNil(item.SortText),
		}
		if item.Doc != "" {
			completionItems[i].Documentation = item.Doc
		}
	}

	h.server.logger.Debugw("LSP completion result",
		logger.FieldURI, params.TextDocument.URI,
		"line", params.Position.Line,
		logger.FieldCount, len(completionItems))
	return completionItems, nil
}

// TextDocumentHover documents the vocabulary word under the cursor
func (h *GLSPHandler) TextDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (result *protocol.Hover, err error) {
	defer func() {
		if r := recover(); r != nil {
			h.server.logger.Errorw("Panic in hover handler", "panic", r, logger.FieldURI, params.TextDocument.URI)
			result, err = nil, nil
		}
	}()

	text, ok := h.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	info := h.service.Hover(text, int(params.Position.Line), int(params.Position.Character))
	if info == nil {
		return nil, nil
	}

	rng := toProtocolRange(info.Range)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: info.Contents,
		},
		Range: &rng,
	}, nil
}

// TextDocumentSemanticTokensFull classifies the whole document
func (h *GLSPHandler) TextDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (result *protocol.SemanticTokens, err error) {
	defer func() {
		if r := recover(); r != nil {
			h.server.logger.Errorw("Panic in semantic tokens handler", "panic", r, logger.FieldURI, params.TextDocument.URI)
			result, err = &protocol.SemanticTokens{Data: []protocol.UInteger{}}, nil
		}
	}()

	text, ok := h.document(params.TextDocument.URI)
	if !ok || text == "" {
		return &protocol.SemanticTokens{Data: []protocol.UInteger{}}, nil
	}

	tokens := h.service.SemanticTokens(text)
	data := lsp.EncodeSemanticTokens(tokens)

	h.server.logger.Debugw("LSP semantic tokens result",
		logger.FieldURI, params.TextDocument.URI,
		"token_count", len(tokens))
	return &protocol.SemanticTokens{Data: data}, nil
}

// publishDiagnostics reports lexical problems for a document
func (h *GLSPHandler) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	if ctx == nil || ctx.Notify == nil {
		return
	}
	analysis := h.service.Analyze(text)

	diagnostics := make([]protocol.Diagnostic, len(analysis.Diagnostics))
	for i, d := range analysis.Diagnostics {
		diagnostics[i] = protocol.Diagnostic{
			Range:    toProtocolRange(d.Range),
			Severity: util.Ptr(protocol.DiagnosticSeverityError),
			Source:   util.Ptr("chrono"),
			Message:  d.Message,
		}
	}
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// toProtocolRange converts a 1-based lexer range to a 0-based LSP range
func toProtocolRange(r lexer.Range) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(r.Start.Line - 1), Character: protocol.UInteger(r.Start.Character)},
		End:   protocol.Position{Line: protocol.UInteger(r.End.Line - 1), Character: protocol.UInteger(r.End.Character)},
	}
}

func stringPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// mapCompletionKind maps candidate categories to LSP CompletionItemKind
func mapCompletionKind(category string) *protocol.CompletionItemKind {
	var k protocol.CompletionItemKind
	switch category {
	case complete.CategoryKeyword:
		k = protocol.CompletionItemKindKeyword
	case complete.CategoryProperty:
		k = protocol.CompletionItemKindProperty
	case complete.CategoryConstant, complete.CategoryImportance, complete.CategoryRelationshipType:
		k = protocol.CompletionItemKindEnumMember
	default:
		k = protocol.CompletionItemKindText
	}
	return &k
}

// HandleGLSPWebSocket upgrades to WebSocket and serves LSP until the client
// disconnects or the server stops
func (s *ChronoServer) HandleGLSPWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.getState() != ServerStateRunning {
		writeError(w, http.StatusServiceUnavailable, "Server is shutting down")
		return
	}

	upgrader := s.newUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("Failed to upgrade WebSocket", logger.FieldError, err)
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	handler := NewGLSPHandler(s.langService, s)
	protocolHandler := protocol.Handler{
		Initialize:                     handler.Initialize,
		Initialized:                    handler.Initialized,
		Shutdown:                       handler.Shutdown,
		TextDocumentDidOpen:            handler.TextDocumentDidOpen,
		TextDocumentDidChange:          handler.TextDocumentDidChange,
		TextDocumentDidClose:           handler.TextDocumentDidClose,
		TextDocumentCompletion:         handler.TextDocumentCompletion,
		TextDocumentHover:              handler.TextDocumentHover,
		TextDocumentSemanticTokensFull: handler.TextDocumentSemanticTokensFull,
	}
	glspServer := glspserver.NewServer(&protocolHandler, languageServerName, false)

	// Closing the socket ends ServeWebSocket when the server stops
	done := make(chan struct{})
	go func() {
		select {
		case <-s.ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	s.logger.Infow("Serving LSP over WebSocket", "remote", r.RemoteAddr)
	glspServer.ServeWebSocket(conn)
	close(done)
	s.logger.Infow("LSP WebSocket connection closed", "remote", r.RemoteAddr)
}
