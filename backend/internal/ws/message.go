package ws

type ClientMessage struct {
	Type string `json:"type"`
}

// ServerMessage poke 只带版本号，客户端收到后自己发起 pull
type ServerMessage struct {
	Type    string `json:"type"`
	Version uint64 `json:"version,omitempty"`
}

const (
	TypeWelcome = "welcome"
	TypePoke    = "poke"
	TypePong    = "pong"
)
