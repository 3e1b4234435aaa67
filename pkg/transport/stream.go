package transport

import "io"

// Stream adapts a Conn to io.ReadWriteCloser so the connection can
// be wired into io.Copy style plumbing. Writes flush immediately and
// an EndOfFile failure surfaces as io.EOF.
type Stream struct {
	c *Conn
}

// Stream returns an io.ReadWriteCloser view of the connection.
func (c *Conn) Stream() *Stream {
	return &Stream{c: c}
}

// Stream returns an io.ReadWriteCloser view of a connected socket,
// or nil before Connect.
func (s *Socket) Stream() *Stream {
	if s.conn == nil {
		return nil
	}
	return s.conn.Stream()
}

func (st *Stream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	data, err := st.c.Read(len(p))
	if err != nil {
		if IsKind(err, EndOfFile) {
			return 0, io.EOF
		}
		return 0, err
	}

	return copy(p, data), nil
}

func (st *Stream) Write(p []byte) (int, error) {
	if err := st.c.Write(p); err != nil {
		return 0, err
	}
	if err := st.c.Flush(); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (st *Stream) Close() error {
	return st.c.Close()
}
