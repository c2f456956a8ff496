package protocol

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// maxFrameSize bounds the size of a response.
const maxFrameSize uint32 = 1 << 20

// tcpExchanger sends every request on its own connection. Frames are a 4
// bytes big endian length followed by the JSON payload.
type tcpExchanger struct {
	address string
	timeout time.Duration
	dialer  net.Dialer
}

func newTcpExchanger(options *ClientOptions) *tcpExchanger {
	return &tcpExchanger{
		address: net.JoinHostPort(options.Host, strconv.Itoa(options.Port)),
		timeout: options.Timeout,
	}
}

func (t *tcpExchanger) exchange(ctx context.Context, request Request) (Response, error) {
	if _, ok := ctx.Deadline(); !ok && t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	conn, err := t.dialer.DialContext(ctx, "tcp", t.address)
	if err != nil {
		return nil, fmt.Errorf("error connecting to %s: %w", t.address, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, err
		}
	}

	log.Trace().Str("address", t.address).Interface("request", request).Msg("Sending request")
	if err := writeFrame(conn, request); err != nil {
		return nil, fmt.Errorf("error writing request: %w", err)
	}
	var response Response
	if err := readFrame(conn, &response); err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	return response, nil
}

func (t *tcpExchanger) close() error {
	return nil
}

func writeFrame(w io.Writer, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	frame := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[4:], payload)
	_, err = w.Write(frame)
	return err
}

func readFrame(r io.Reader, value interface{}) error {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > maxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds the limit of %d bytes", size, maxFrameSize)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return err
	}
	return json.Unmarshal(payload, value)
}
