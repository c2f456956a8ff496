package smartdevice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Outlet is the proxy of one outlet of a strip. It shares the identity of
// its strip and scopes every call with the child id.
type Outlet struct {
	plug       *Plug
	index      int
	childIndex int
}

// Index returns the position of the outlet in the strip.
func (o *Outlet) Index() int {
	return o.index
}

// Id returns the child id of the outlet.
func (o *Outlet) Id() string {
	return o.plug.childId
}

func (o *Outlet) State(ctx context.Context) (SwitchState, error) {
	return o.plug.State(ctx)
}

func (o *Outlet) SetState(ctx context.Context, value interface{}) error {
	return o.plug.SetState(ctx, value)
}

func (o *Outlet) IsOn(ctx context.Context) (bool, error) {
	return o.plug.IsOn(ctx)
}

func (o *Outlet) TurnOn(ctx context.Context) error {
	return o.plug.TurnOn(ctx)
}

func (o *Outlet) TurnOff(ctx context.Context) error {
	return o.plug.TurnOff(ctx)
}

func (o *Outlet) OnSince(ctx context.Context) (time.Time, error) {
	return o.plug.OnSince(ctx, o.childIndex)
}

func (o *Outlet) EnergyRealtime(ctx context.Context) (EnergyReading, bool, error) {
	return o.plug.EnergyRealtime(ctx)
}

func (o *Outlet) SetAlias(ctx context.Context, alias string) error {
	return o.plug.SetAlias(ctx, alias)
}

// Strip is a power strip made of independently switchable outlets. Every
// operation applies either to all outlets or to exactly one of them.
type Strip struct {
	device *Plug

	outlets   []*Outlet
	positions map[string]int
}

// NewStrip fetches the status record once and builds one outlet proxy per
// child. The set of outlets is fixed afterwards.
func NewStrip(ctx context.Context, identity *Identity) (*Strip, error) {
	device := &Plug{identity: identity}
	info, err := device.SysInfo(ctx)
	if err != nil {
		return nil, err
	}
	return newStrip(identity, info)
}

func newStrip(identity *Identity, info *SysInfo) (*Strip, error) {
	features := info.Features()
	strip := &Strip{
		device:    newScopedPlug(identity, "", features),
		outlets:   make([]*Outlet, len(info.Children)),
		positions: make(map[string]int, len(info.Children)),
	}

	seen := map[int]string{}
	for position, child := range info.Children {
		childIndex, err := ChildIndex(child.Id)
		if err != nil {
			return nil, err
		}
		if other, ok := seen[childIndex]; ok {
			return nil, fmt.Errorf("children %q and %q share the index %d", other, child.Id, childIndex)
		}
		seen[childIndex] = child.Id
		if childIndex != position {
			log.Warn().
				Str("host", identity.Host).
				Str("child", child.Id).
				Int("position", position).
				Msg("Child id does not match its position.")
		}

		strip.outlets[position] = &Outlet{
			plug:       newScopedPlug(identity, child.Id, features),
			index:      position,
			childIndex: childIndex,
		}
		strip.positions[child.Id] = position
	}

	log.Debug().Str("host", identity.Host).Int("outlets", len(strip.outlets)).Msg("Strip initialized")
	return strip, nil
}

func (s *Strip) Host() string {
	return s.device.Host()
}

// NumOutlets returns the number of outlets of the strip.
func (s *Strip) NumOutlets() int {
	return len(s.outlets)
}

// Indices returns the index of every outlet, in order.
func (s *Strip) Indices() []int {
	return lo.Map(s.outlets, func(o *Outlet, _ int) int {
		return o.index
	})
}

// Outlet returns the proxy of the outlet with the given index.
func (s *Strip) Outlet(index int) (*Outlet, error) {
	if err := s.ValidateTarget(One(index)); err != nil {
		return nil, err
	}
	return s.outlets[index], nil
}

// ValidateIndex checks that the index is -1 or addresses a known outlet.
func (s *Strip) ValidateIndex(index int) error {
	if index == allIndex {
		return nil
	}
	return s.ValidateTarget(One(index))
}

// ValidateTarget checks that the target addresses known outlets. Indices are
// never clamped.
func (s *Strip) ValidateTarget(target Target) error {
	index, ok := target.Index()
	if !ok {
		return nil
	}
	if index < 0 || index >= len(s.outlets) {
		return &OutletRangeError{Value: index, Count: len(s.outlets)}
	}
	return nil
}

// ResolveTarget parses a loosely typed index (see ParseTarget) and validates
// it against the outlets of the strip.
func (s *Strip) ResolveTarget(value interface{}) (Target, error) {
	target, err := ParseTarget(value)
	if err != nil {
		var rangeErr *OutletRangeError
		if errors.As(err, &rangeErr) {
			rangeErr.Count = len(s.outlets)
		}
		return Target{}, err
	}
	if err := s.ValidateTarget(target); err != nil {
		return Target{}, err
	}
	return target, nil
}

// children fetches a fresh record and calls fn for every known outlet with
// its child record. Children unknown at construction are ignored.
func (s *Strip) children(ctx context.Context, fn func(position int, child *Child)) error {
	info, err := s.device.SysInfo(ctx)
	if err != nil {
		return err
	}
	for i := range info.Children {
		child := &info.Children[i]
		position, ok := s.positions[child.Id]
		if !ok {
			log.Warn().Str("host", s.Host()).Str("child", child.Id).Msg("Ignoring unknown child.")
			continue
		}
		fn(position, child)
	}
	return nil
}

// States returns the switch state of every outlet.
func (s *Strip) States(ctx context.Context) (map[int]SwitchState, error) {
	states := make(map[int]SwitchState, len(s.outlets))
	err := s.children(ctx, func(position int, child *Child) {
		states[position] = decodeRelay(child.relay())
	})
	if err != nil {
		return nil, err
	}
	return states, nil
}

// SetState sets the state of the target. The All target sends a single
// command to the strip itself.
func (s *Strip) SetState(ctx context.Context, value interface{}, target Target) error {
	state, err := EncodeState(value)
	if err != nil {
		return err
	}
	return s.switchTarget(ctx, target, state)
}

// IsOn returns whether each targeted outlet is on. The map holds a single
// entry when one outlet is targeted.
func (s *Strip) IsOn(ctx context.Context, target Target) (map[int]bool, error) {
	if target.IsAll() {
		isOn := make(map[int]bool, len(s.outlets))
		err := s.children(ctx, func(position int, child *Child) {
			isOn[position] = relayIsOn(child.relay())
		})
		if err != nil {
			return nil, err
		}
		return isOn, nil
	}
	outlet, err := s.outlet(target)
	if err != nil {
		return nil, err
	}
	on, err := outlet.IsOn(ctx)
	if err != nil {
		return nil, err
	}
	return map[int]bool{outlet.index: on}, nil
}

func (s *Strip) TurnOn(ctx context.Context, target Target) error {
	return s.switchTarget(ctx, target, SwitchStateOn)
}

func (s *Strip) TurnOff(ctx context.Context, target Target) error {
	return s.switchTarget(ctx, target, SwitchStateOff)
}

func (s *Strip) switchTarget(ctx context.Context, target Target, state SwitchState) error {
	if target.IsAll() {
		return s.device.setRelay(ctx, state)
	}
	outlet, err := s.outlet(target)
	if err != nil {
		return err
	}
	return outlet.plug.setRelay(ctx, state)
}

// OnTimes returns for how long every outlet has been on, as reported by the
// device.
func (s *Strip) OnTimes(ctx context.Context) (map[int]time.Duration, error) {
	onTimes := make(map[int]time.Duration, len(s.outlets))
	err := s.children(ctx, func(position int, child *Child) {
		onTimes[position] = time.Duration(child.OnTime) * time.Second
	})
	if err != nil {
		return nil, err
	}
	return onTimes, nil
}

// OnSince returns since when each targeted outlet is on.
func (s *Strip) OnSince(ctx context.Context, target Target) (map[int]time.Time, error) {
	if target.IsAll() {
		since := make(map[int]time.Time, len(s.outlets))
		err := s.children(ctx, func(position int, child *Child) {
			since[position] = onSince(child.OnTime)
		})
		if err != nil {
			return nil, err
		}
		return since, nil
	}
	outlet, err := s.outlet(target)
	if err != nil {
		return nil, err
	}
	since, err := outlet.OnSince(ctx)
	if err != nil {
		return nil, err
	}
	return map[int]time.Time{outlet.index: since}, nil
}

// StateInformation returns the LED state and the on since time of every
// outlet. Outlets are numbered from 1.
func (s *Strip) StateInformation(ctx context.Context) (map[string]interface{}, error) {
	led, err := s.LED(ctx)
	if err != nil {
		return nil, err
	}
	since, err := s.OnSince(ctx, All)
	if err != nil {
		return nil, err
	}
	state := map[string]interface{}{InfoLedState: led}
	for position, t := range since {
		state[OutletOnSinceKey(position)] = t
	}
	return state, nil
}

// OutletOnSinceKey is the StateInformation key of an outlet.
func OutletOnSinceKey(index int) string {
	return fmt.Sprintf("Outlet %d on since", index+1)
}

// EnergyRealtime returns the readings of the targeted outlets. The boolean is
// false, without any call to the device, when the strip has no energy meter.
func (s *Strip) EnergyRealtime(ctx context.Context, target Target) (map[int]EnergyReading, bool, error) {
	if !s.HasEnergyMeter() {
		return nil, false, nil
	}
	if target.IsAll() {
		readings := make(map[int]EnergyReading, len(s.outlets))
		for _, outlet := range s.outlets {
			reading, ok, err := outlet.EnergyRealtime(ctx)
			if err != nil {
				return nil, false, err
			}
			if ok {
				readings[outlet.index] = reading
			}
		}
		return readings, true, nil
	}
	outlet, err := s.outlet(target)
	if err != nil {
		return nil, false, err
	}
	reading, ok, err := outlet.EnergyRealtime(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}
	return map[int]EnergyReading{outlet.index: reading}, true, nil
}

func (s *Strip) LED(ctx context.Context) (bool, error) {
	return s.device.LED(ctx)
}

func (s *Strip) SetLED(ctx context.Context, on bool) error {
	return s.device.SetLED(ctx, on)
}

func (s *Strip) HasEnergyMeter() bool {
	return s.device.HasEnergyMeter()
}

func (s *Strip) SupportsDimming() bool {
	return s.device.SupportsDimming()
}

func (s *Strip) Info(ctx context.Context) (*DeviceInfo, error) {
	return s.device.Info(ctx)
}

// SetAlias renames the strip itself.
func (s *Strip) SetAlias(ctx context.Context, alias string) error {
	return s.device.SetAlias(ctx, alias)
}

func (s *Strip) outlet(target Target) (*Outlet, error) {
	if err := s.ValidateTarget(target); err != nil {
		return nil, err
	}
	index, _ := target.Index()
	return s.outlets[index], nil
}
