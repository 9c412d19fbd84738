package handlers

import (
	"bytes"
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/amiyamandal-dev/podsync/pkg/logger"
)

//go:embed help.md
var helpMarkdown []byte

// HelpHandler renders the operator guide
type HelpHandler struct {
	html   []byte
	logger *logger.Logger
}

// NewHelpHandler renders the embedded guide once
func NewHelpHandler(logger *logger.Logger) (*HelpHandler, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var buf bytes.Buffer
	buf.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>podsync help</title></head><body>`)
	if err := md.Convert(helpMarkdown, &buf); err != nil {
		return nil, err
	}
	buf.WriteString(`</body></html>`)

	return &HelpHandler{
		html:   buf.Bytes(),
		logger: logger.WithComponent("help-handler"),
	}, nil
}

// Get serves the rendered guide
func (h *HelpHandler) Get(c *gin.Context) {
	if c.Query("format") == "markdown" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", helpMarkdown)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", h.html)
}
