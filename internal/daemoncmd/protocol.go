package daemoncmd

import (
	"encoding/json"
	"fmt"
)

// Command is one request sent down the daemon's command socket.
type Command interface {
	GetID() string
	GetAction() string
}

// BaseCommand carries the fields every command shares; embedding it
// satisfies the Command interface for free.
type BaseCommand struct {
	ID     string `json:"id"`
	Action string `json:"action"`
}

func (c BaseCommand) GetID() string     { return c.ID }
func (c BaseCommand) GetAction() string { return c.Action }

// commandFactories maps an action name to a constructor for its concrete
// command type. Table-driven in place of a type switch, so adding a
// command is one line here rather than a parse-side case plus a dispatch
// side case.
var commandFactories = map[string]func() Command{
	"navigate": func() Command { return &NavigateCommand{} },
	"click":    func() Command { return &ClickCommand{} },
	"fill":     func() Command { return &FillCommand{} },
	"hover":    func() Command { return &HoverCommand{} },
	"press":    func() Command { return &PressCommand{} },
	"scroll":   func() Command { return &ScrollCommand{} },
	"snapshot": func() Command { return &SnapshotCommand{} },
	"evaluate": func() Command { return &EvaluateCommand{} },
	"gettext":  func() Command { return &GetTextCommand{} },
	"title":    func() Command { return &TitleCommand{} },
	"url":      func() Command { return &URLCommand{} },
	"back":     func() Command { return &BackCommand{} },
	"forward":  func() Command { return &ForwardCommand{} },
	"reload":   func() Command { return &ReloadCommand{} },
	"close":    func() Command { return &CloseCommand{} },
}

// ParseCommand decodes one newline-delimited JSON command from the wire.
func ParseCommand(data []byte) (Command, error) {
	var base BaseCommand
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("parse command: %w", err)
	}
	if base.ID == "" {
		return nil, fmt.Errorf("command missing id")
	}
	if base.Action == "" {
		return nil, fmt.Errorf("command missing action")
	}

	factory, ok := commandFactories[base.Action]
	if !ok {
		return nil, fmt.Errorf("unknown action: %s", base.Action)
	}

	cmd := factory()
	if err := json.Unmarshal(data, cmd); err != nil {
		return nil, fmt.Errorf("parse %s command: %w", base.Action, err)
	}
	return cmd, nil
}

// Response is the wire envelope sent back for every command.
type Response struct {
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// SuccessResponse builds a Response carrying the given result data.
func SuccessResponse(id string, data interface{}) Response {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return ErrorResponse(id, fmt.Sprintf("marshal response data: %v", err))
		}
		raw = encoded
	}
	return Response{ID: id, Success: true, Data: raw}
}

// ErrorResponse builds a Response carrying a failure message.
func ErrorResponse(id string, errMsg string) Response {
	return Response{ID: id, Success: false, Error: errMsg}
}

// SerializeResponse encodes a Response for writing to the socket.
func SerializeResponse(resp Response) ([]byte, error) {
	return json.Marshal(resp)
}
