package renderer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/haidaraM/ansible-playbook-grapher/pkg/graph"
)

// LinkHandler turns a node's source position into a clickable URI
// embedded in the DOT output. Formats are URI templates with {path},
// {line} and {column} placeholders; file positions use the file format,
// role directories the folder one.
type LinkHandler struct {
	file   string
	folder string
}

// NewLinkHandler builds the handler for a protocol name: "default" (no
// links), "vscode", or "custom" with user-supplied formats, which must
// define both "file" and "folder".
func NewLinkHandler(name string, customFormats map[string]string) (*LinkHandler, error) {
	switch name {
	case "", "default":
		return &LinkHandler{}, nil
	case "vscode":
		return &LinkHandler{
			file:   "vscode://file/{path}:{line}:{column}",
			folder: "vscode://file/{path}",
		}, nil
	case "custom":
		file, folder := customFormats["file"], customFormats["folder"]
		if file == "" || folder == "" {
			return nil, fmt.Errorf(`custom open protocol formats must define both "file" and "folder"`)
		}
		return &LinkHandler{file: file, folder: folder}, nil
	default:
		return nil, fmt.Errorf("unknown open protocol handler %q, expected default, vscode or custom", name)
	}
}

// URL renders the link for a position, empty when the handler has no
// format for it or the position is unknown.
func (h *LinkHandler) URL(pos *graph.Position) string {
	if h == nil || pos == nil {
		return ""
	}
	format := h.file
	if pos.Type == "folder" {
		format = h.folder
	}
	if format == "" {
		return ""
	}
	r := strings.NewReplacer(
		"{path}", pos.Path,
		"{line}", strconv.Itoa(pos.Line),
		"{column}", strconv.Itoa(pos.Column),
	)
	return r.Replace(format)
}
