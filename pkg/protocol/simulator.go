package protocol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Error codes returned by the simulator, following the device firmware.
const (
	errCodeModuleNotSupported int = -1
	errCodeMethodNotSupported int = -2
	errCodeInvalidChild       int = -14
)

type simulatedOutlet struct {
	id      string
	alias   string
	state   int
	onSince time.Time
}

// Simulator emulates a single relay device (one outlet) or a strip in
// memory. It answers the same requests as a real device and is safe for
// concurrent use.
type Simulator struct {
	mutex sync.Mutex

	deviceId    string
	alias       string
	ledOff      int
	energyMeter bool
	outlets     []*simulatedOutlet

	requests []Request
}

// NewSimulator creates a simulated device with the given number of outlets,
// all off.
func NewSimulator(alias string, outlets int, energyMeter bool) *Simulator {
	if outlets < 1 {
		outlets = 1
	}
	s := &Simulator{
		deviceId:    "8006SIMULATED0000",
		alias:       alias,
		energyMeter: energyMeter,
		outlets:     make([]*simulatedOutlet, outlets),
	}
	for i := range s.outlets {
		s.outlets[i] = &simulatedOutlet{
			id:    fmt.Sprintf("%s%02d", s.deviceId, i),
			alias: fmt.Sprintf("Outlet %d", i+1),
		}
	}
	return s
}

// NewSimulatedTransport returns a Transport answered by the given simulator.
func NewSimulatedTransport(s *Simulator) Transport {
	return &client{host: s.alias, exchanger: s}
}

// Requests returns every request handled so far.
func (s *Simulator) Requests() []Request {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]Request{}, s.requests...)
}

// ChildId returns the id of the outlet at the given position.
func (s *Simulator) ChildId(index int) string {
	return s.outlets[index].id
}

func (s *Simulator) exchange(ctx context.Context, request Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Handle(request), nil
}

func (s *Simulator) close() error {
	return nil
}

// Handle answers one request.
func (s *Simulator) Handle(request Request) Response {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.requests = append(s.requests, request)

	childIds, module, action, params, err := parseRequest(request)
	if err != nil {
		return Response{"err_code": errCodeModuleNotSupported, "err_msg": err.Error()}
	}

	outlets, err := s.scope(childIds)
	var result map[string]interface{}
	if err != nil {
		result = failure(errCodeInvalidChild, err.Error())
	} else {
		result = s.handle(module, action, childIds != nil, outlets, params)
	}
	return Response{module: map[string]interface{}{action: result}}
}

func (s *Simulator) scope(childIds []string) ([]*simulatedOutlet, error) {
	if childIds == nil {
		return s.outlets, nil
	}
	outlets := []*simulatedOutlet{}
	for _, id := range childIds {
		found := false
		for _, outlet := range s.outlets {
			if outlet.id == id {
				outlets = append(outlets, outlet)
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("no child with id %s", id)
		}
	}
	return outlets, nil
}

func (s *Simulator) handle(module string, action string, scoped bool, outlets []*simulatedOutlet, params map[string]interface{}) map[string]interface{} {
	switch module + "." + action {
	case "system.get_sysinfo":
		return s.sysInfo(scoped, outlets)
	case "system.set_relay_state":
		state := toInt(params["state"])
		for _, outlet := range outlets {
			if state != 0 && outlet.state == 0 {
				outlet.onSince = time.Now()
			}
			outlet.state = state
		}
		return success()
	case "system.set_led_off":
		s.ledOff = toInt(params["off"])
		return success()
	case "system.set_dev_alias":
		alias, _ := params["alias"].(string)
		if scoped {
			for _, outlet := range outlets {
				outlet.alias = alias
			}
		} else {
			s.alias = alias
		}
		return success()
	case "emeter.get_realtime":
		if !s.energyMeter {
			return failure(errCodeModuleNotSupported, "module not support")
		}
		return s.realtime(outlets)
	}
	if module != "system" && module != "emeter" {
		return failure(errCodeModuleNotSupported, "module not support")
	}
	return failure(errCodeMethodNotSupported, "method not support")
}

func (s *Simulator) sysInfo(scoped bool, outlets []*simulatedOutlet) map[string]interface{} {
	feature := "TIM"
	if s.energyMeter {
		feature = "TIM:ENE"
	}
	children := make([]interface{}, len(outlets))
	relay := 0
	for i, outlet := range outlets {
		children[i] = map[string]interface{}{
			"id":      outlet.id,
			"alias":   outlet.alias,
			"state":   outlet.state,
			"on_time": outlet.onTime(),
		}
		if outlet.state != 0 {
			relay = 1
		}
	}
	info := map[string]interface{}{
		"err_code":    0,
		"alias":       s.alias,
		"model":       "HS300(SIM)",
		"deviceId":    s.deviceId,
		"mac":         "00:00:5E:00:53:01",
		"hw_ver":      "1.0",
		"sw_ver":      "1.0.0",
		"rssi":        -50,
		"feature":     feature,
		"relay_state": relay,
		"led_off":     s.ledOff,
		"children":    children,
	}
	if scoped && len(outlets) == 1 {
		info["alias"] = outlets[0].alias
		info["on_time"] = outlets[0].onTime()
	}
	return info
}

func (s *Simulator) realtime(outlets []*simulatedOutlet) map[string]interface{} {
	power := 0
	for _, outlet := range outlets {
		if outlet.state != 0 {
			power += 60000
		}
	}
	return map[string]interface{}{
		"err_code":   0,
		"power_mw":   power,
		"voltage_mv": 230000,
		"current_ma": power / 230,
		"total_wh":   1200,
	}
}

func (o *simulatedOutlet) onTime() int64 {
	if o.state == 0 {
		return 0
	}
	return int64(time.Since(o.onSince) / time.Second)
}

func success() map[string]interface{} {
	return map[string]interface{}{"err_code": 0}
}

func failure(code int, message string) map[string]interface{} {
	return map[string]interface{}{"err_code": code, "err_msg": message}
}

// ServeTcp answers requests received on the listener until it is closed.
func (s *Simulator) ServeTcp(listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go func() {
			defer conn.Close()
			var request Request
			if err := readFrame(conn, &request); err != nil {
				log.Warn().Err(err).Msg("Error reading simulator request")
				return
			}
			if err := writeFrame(conn, s.Handle(request)); err != nil {
				log.Warn().Err(err).Msg("Error writing simulator response")
			}
		}()
	}
}

// WebsocketHandler answers requests received as websocket messages.
func (s *Simulator) WebsocketHandler() http.Handler {
	upgrader := websocket.Upgrader{}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("Error upgrading simulator connection")
			return
		}
		defer conn.Close()
		for {
			var request Request
			if err := conn.ReadJSON(&request); err != nil {
				return
			}
			if err := conn.WriteJSON(s.Handle(request)); err != nil {
				return
			}
		}
	})
}
