package protocol

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// websocketExchanger keeps one connection open to a websocket gateway and
// sends one JSON message per request. Requests are serialized.
type websocketExchanger struct {
	url     string
	timeout time.Duration

	mutex sync.Mutex
	conn  *websocket.Conn
}

func newWebsocketExchanger(options *ClientOptions) *websocketExchanger {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(options.Host, strconv.Itoa(options.Port)),
		Path:   "/",
	}
	return &websocketExchanger{
		url:     u.String(),
		timeout: options.Timeout,
	}
}

func (w *websocketExchanger) exchange(ctx context.Context, request Request) (Response, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.conn == nil {
		log.Trace().Str("url", w.url).Msg("Connecting to websocket")
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, nil)
		if err != nil {
			return nil, fmt.Errorf("unable to connect to websocket %s: %w", w.url, err)
		}
		w.conn = conn
	}

	deadline, ok := ctx.Deadline()
	if !ok && w.timeout > 0 {
		deadline = time.Now().Add(w.timeout)
	}
	if err := w.conn.SetWriteDeadline(deadline); err != nil {
		return nil, w.reset(err)
	}
	if err := w.conn.SetReadDeadline(deadline); err != nil {
		return nil, w.reset(err)
	}

	if err := w.conn.WriteJSON(request); err != nil {
		return nil, w.reset(fmt.Errorf("error writing to websocket: %w", err))
	}
	var response Response
	if err := w.conn.ReadJSON(&response); err != nil {
		return nil, w.reset(fmt.Errorf("error reading from websocket: %w", err))
	}
	return response, nil
}

// reset drops the connection after an error so that the next request
// reconnects.
func (w *websocketExchanger) reset(err error) error {
	log.Warn().Err(err).Str("url", w.url).Msg("Closing websocket")
	w.conn.Close()
	w.conn = nil
	return err
}

func (w *websocketExchanger) close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}
