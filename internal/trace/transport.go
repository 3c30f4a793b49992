// Package trace carries ordered progress events between cooperating processes
// and renders them as a line-per-event trace.
//
// A child process sends Events to its parent as length-prefixed MessagePack
// frames. The parent feeds them into its own Recorder, so the final trace shows
// every process's steps in the order the parent observed them.
package trace

// Serializer converts values to and from bytes.
type Serializer interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

// Transport sends and receives whole messages.
type Transport interface {
	// Send writes one message.
	Send(data []byte) error

	// Receive reads one message. It returns io.EOF once the peer has
	// closed its end cleanly.
	Receive() ([]byte, error)

	// Close closes both directions.
	Close() error

	// Flush pushes out buffered data.
	Flush() error
}
