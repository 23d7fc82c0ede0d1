package gateway

// Transport is a message-oriented client connection. ReadMessage is called
// from a single goroutine and WriteMessage from another; Close may be called
// from anywhere and more than once.
type Transport interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
	RemoteAddr() string
}
