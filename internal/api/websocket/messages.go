package websocket

import (
	"time"

	"github.com/KevinKickass/OpenBoardCore/internal/boards"
	"github.com/KevinKickass/OpenBoardCore/internal/streaming"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Server to client
	MessageTypeBoardList    MessageType = "board_list"
	MessageTypeSystemStatus MessageType = "system_status"
	MessageTypeError        MessageType = "error"
	MessageTypePong         MessageType = "pong"

	// Client to server
	MessageTypeGetBoardList MessageType = "get_board_list"
	MessageTypePing         MessageType = "ping"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data,omitempty"`
}

// BoardListData is the payload of a board_list message.
type BoardListData struct {
	Revision      string                 `json:"revision"`
	Sequence      uint64                 `json:"sequence"`
	Items         []boards.BoardListItem `json:"items"`
	SelectedIndex int                    `json:"selected_index"`
	BoardsConfig  boards.BoardsConfig    `json:"boards_config"`
}

type ErrorData struct {
	Message string `json:"message"`
}

// NewMessage creates a new message with current timestamp
func NewMessage(msgType MessageType, data any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func NewBoardListMessage(update *streaming.Update) Message {
	list := update.List
	msg := NewMessage(MessageTypeBoardList, BoardListData{
		Revision:      update.Revision.String(),
		Sequence:      update.Sequence,
		Items:         list.Items(),
		SelectedIndex: list.SelectedIndex(),
		BoardsConfig:  list.BoardsConfig(),
	})
	msg.Timestamp = update.Timestamp
	return msg
}

func NewErrorMessage(message string) Message {
	return NewMessage(MessageTypeError, ErrorData{Message: message})
}
