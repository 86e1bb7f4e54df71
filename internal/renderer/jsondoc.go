package renderer

import (
	"encoding/json"

	"github.com/haidaraM/ansible-playbook-grapher/pkg/graph"
)

// The JSON document mirrors the node model 1:1 and is the format meant
// for machine consumption: re-parsing it reconstructs the same node
// counts per kind as the in-memory model.

// Document is the top-level JSON output.
type Document struct {
	Version   int           `json:"version"`
	Playbooks []PlaybookDoc `json:"playbooks"`
}

// NodeDoc is the part every node serializes.
type NodeDoc struct {
	Type  string       `json:"type"`
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	When  string       `json:"when"`
	Index int          `json:"index"`
	Loc   *LocationDoc `json:"location"`
}

// LocationDoc is a node's source position.
type LocationDoc struct {
	Type   string `json:"type"`
	Path   string `json:"path"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

type PlaybookDoc struct {
	NodeDoc
	Plays []PlayDoc `json:"plays"`
}

type PlayDoc struct {
	NodeDoc
	Colors    ColorsDoc    `json:"colors"`
	PreTasks  []any        `json:"pre_tasks"`
	Roles     []RoleDoc    `json:"roles"`
	Tasks     []any        `json:"tasks"`
	PostTasks []any        `json:"post_tasks"`
	Handlers  []HandlerDoc `json:"handlers"`
}

type ColorsDoc struct {
	Main string `json:"main"`
	Font string `json:"font"`
}

type RoleDoc struct {
	NodeDoc
	IncludeRole bool         `json:"include_role"`
	Tasks       []any        `json:"tasks,omitempty"`
	Handlers    []HandlerDoc `json:"handlers,omitempty"`
}

type BlockDoc struct {
	NodeDoc
	Tasks []any `json:"tasks"`
}

type TaskDoc struct {
	NodeDoc
	Category string `json:"category"`
}

type HandlerDoc struct {
	TaskDoc
	NotifiedBy []string `json:"notified_by"`
}

// JSON renders the playbooks as the versioned document, indented for
// human diffing.
func JSON(playbooks []*graph.PlaybookNode) ([]byte, error) {
	return json.MarshalIndent(BuildDocument(playbooks), "", "  ")
}

// BuildDocument converts the trees into the document form without
// serializing, for consumers that marshal themselves.
func BuildDocument(playbooks []*graph.PlaybookNode) Document {
	doc := Document{Version: 1, Playbooks: make([]PlaybookDoc, 0, len(playbooks))}
	for _, pb := range playbooks {
		pbDoc := PlaybookDoc{NodeDoc: nodeDoc(pb), Plays: make([]PlayDoc, 0, len(pb.Plays))}
		for _, play := range pb.Plays {
			pbDoc.Plays = append(pbDoc.Plays, playDoc(play))
		}
		doc.Playbooks = append(doc.Playbooks, pbDoc)
	}
	return doc
}

func playDoc(play *graph.PlayNode) PlayDoc {
	colors := play.Colors()
	doc := PlayDoc{
		NodeDoc:   nodeDoc(play),
		Colors:    ColorsDoc{Main: colors.Main, Font: colors.Font},
		PreTasks:  taskListDoc(play.PreTasks),
		Roles:     make([]RoleDoc, 0, len(play.Roles)),
		Tasks:     taskListDoc(play.Tasks),
		PostTasks: taskListDoc(play.PostTasks),
		Handlers:  handlersDoc(play.Handlers),
	}
	for _, role := range play.Roles {
		doc.Roles = append(doc.Roles, roleDoc(role))
	}
	return doc
}

// taskListDoc converts a mixed task section; entries keep their
// concrete shape (task, block or role).
func taskListDoc(nodes []graph.Node) []any {
	out := make([]any, 0, len(nodes))
	for _, n := range nodes {
		switch t := n.(type) {
		case *graph.RoleNode:
			out = append(out, roleDoc(t))
		case *graph.BlockNode:
			out = append(out, BlockDoc{NodeDoc: nodeDoc(t), Tasks: taskListDoc(t.Tasks)})
		case *graph.HandlerNode:
			out = append(out, handlerDoc(t))
		case *graph.TaskNode:
			out = append(out, TaskDoc{NodeDoc: nodeDoc(t), Category: string(t.Category)})
		}
	}
	return out
}

func roleDoc(role *graph.RoleNode) RoleDoc {
	return RoleDoc{
		NodeDoc:     nodeDoc(role),
		IncludeRole: role.IncludeRole,
		Tasks:       taskListDoc(role.Tasks),
		Handlers:    handlersDoc(role.Handlers),
	}
}

func handlersDoc(handlers []*graph.HandlerNode) []HandlerDoc {
	out := make([]HandlerDoc, 0, len(handlers))
	for _, h := range handlers {
		out = append(out, handlerDoc(h))
	}
	return out
}

func handlerDoc(h *graph.HandlerNode) HandlerDoc {
	notified := h.NotifiedBy
	if notified == nil {
		notified = []string{}
	}
	return HandlerDoc{
		TaskDoc:    TaskDoc{NodeDoc: nodeDoc(h), Category: string(h.Category)},
		NotifiedBy: notified,
	}
}

func nodeDoc(n graph.Node) NodeDoc {
	return NodeDoc{
		Type:  typeName(n),
		ID:    n.ID(),
		Name:  n.Name(),
		When:  n.When(),
		Index: n.Index(),
		Loc:   locationDoc(n.Position()),
	}
}

func locationDoc(pos *graph.Position) *LocationDoc {
	if pos == nil {
		return nil
	}
	return &LocationDoc{Type: pos.Type, Path: pos.Path, Line: pos.Line, Column: pos.Column}
}

func typeName(n graph.Node) string {
	switch n.Kind() {
	case graph.KindPlaybook:
		return "PlaybookNode"
	case graph.KindPlay:
		return "PlayNode"
	case graph.KindRole:
		return "RoleNode"
	case graph.KindBlock:
		return "BlockNode"
	case graph.KindHandler:
		return "HandlerNode"
	default:
		return "TaskNode"
	}
}
