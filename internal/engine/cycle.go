package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// cycleInput is the immutable snapshot a cycle evaluates against.
// Configuration changes observed mid-cycle are deferred to the next
// cycle; a cycle is a pure function of (config, inputs, previous state).
type cycleInput struct {
	cfg       *ZonesConfig
	mode      Mode
	profile   Profile
	factors   ProfileFactors
	prev      map[string]Phase
	overrides map[string]roomOverride
	last      map[string]DeviceState
}

// desiredEntry is the decided state for one actuator this cycle.
type desiredEntry struct {
	state  DeviceState
	reason string

	// script realises the state for scripted actuators; empty for
	// climate devices.
	script string
}

// roomResult is one room's contribution to a cycle.
type roomResult struct {
	state    RoomState
	status   RoomStatus
	desired  map[string]desiredEntry
	requests map[string]float64
	gates    []GateStatus
}

// snapshot captures everything a cycle needs under one read lock.
func (o *Orchestrator) snapshot() cycleInput {
	o.mu.RLock()
	defer o.mu.RUnlock()

	in := cycleInput{
		cfg:       o.cfg,
		mode:      o.cfg.Global.Mode,
		profile:   o.cfg.Global.Profile,
		prev:      make(map[string]Phase, len(o.states)),
		overrides: make(map[string]roomOverride, len(o.roomOverrides)),
		last:      make(map[string]DeviceState, len(o.lastCommanded)),
	}
	if o.modeOverride != nil {
		in.mode = *o.modeOverride
	}
	if o.profOverride != nil {
		in.profile = *o.profOverride
	}
	in.factors = o.cfg.ProfileFactors(in.profile)

	for id, st := range o.states {
		in.prev[id] = st.Phase
	}
	for id, ov := range o.roomOverrides {
		in.overrides[id] = ov
	}
	for dev, state := range o.lastCommanded {
		in.last[dev] = state
	}
	return in
}

// runCycle executes one full evaluation cycle: aggregate → demand →
// tier → weather gate → arbitration / dumb devices → diff → emit.
//
//nolint:gocognit // the cycle is one linear pipeline
func (o *Orchestrator) runCycle(ctx context.Context) {
	started := time.Now().UTC()
	in := o.snapshot()

	outdoor, outdoorOK := o.sensors.ReadOutdoorTemperature()

	// Per-room evaluation is independent; rooms run concurrently while
	// arbitration below observes all results from this same cycle.
	results := make([]roomResult, len(in.cfg.Rooms))
	var wg sync.WaitGroup
	for i := range in.cfg.Rooms {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = o.evaluateRoom(in, &in.cfg.Rooms[idx], outdoor, outdoorOK)
		}(i)
	}
	wg.Wait()

	byRoom := make(map[string]*roomResult, len(results))
	for i := range results {
		byRoom[results[i].status.RoomID] = &results[i]
	}

	// Merge per-room decisions. A device referenced by multiple rooms
	// without a shared declaration is a misconfiguration (warned when
	// the configuration landed): on wins so a demanding room is never
	// starved by an idle neighbour.
	desired := make(map[string]desiredEntry)
	for i := range results {
		for dev, entry := range results[i].desired {
			if existing, ok := desired[dev]; ok && existing.state == StateOn {
				continue
			}
			desired[dev] = entry
		}
	}

	o.arbitrateShared(in, byRoom, desired)

	commands := o.diffCommands(in.last, desired)
	for _, cmd := range commands {
		o.emit(cmd)
	}

	status := o.buildStatus(in, results, outdoor, outdoorOK, len(commands), started)
	o.commit(results, desired, status)

	o.observe(ctx, in, results, status, commands, started)

	if o.onCycle != nil {
		o.onCycle(status)
	}
}

// arbitrateShared resolves every configured shared device from the
// requests collected across rooms this cycle, writing the outcome into
// the desired set and appending active shared devices to the status of
// the rooms that requested them.
func (o *Orchestrator) arbitrateShared(in cycleInput, byRoom map[string]*roomResult, desired map[string]desiredEntry) {
	for i := range in.cfg.SharedDevices {
		sd := &in.cfg.SharedDevices[i]

		// Collect requests in declared room order for determinism.
		var requests []sharedRequest
		for _, roomID := range sd.Rooms {
			res, ok := byRoom[roomID]
			if !ok {
				continue
			}
			if mag, requested := res.requests[sd.Device]; requested {
				requests = append(requests, sharedRequest{roomID: roomID, magnitude: mag})
			}
		}

		result := arbitrate(in.cfg.Global.Arbitration, requests)
		for _, roomID := range result.unmet {
			o.logger.Info("shared device request unmet",
				"device", sd.Device,
				"room_id", roomID,
				"strategy", string(in.cfg.Global.Arbitration.Strategy),
			)
		}

		desired[sd.Device] = desiredEntry{state: result.state, reason: result.reason}

		if result.state == StateOn {
			for _, req := range requests {
				res := byRoom[req.roomID]
				res.status.ActiveDevices = append(res.status.ActiveDevices, sd.Device)
			}
		}
	}
}

// diffCommands compares the desired set against the previously
// commanded state and returns only the changes, in stable device order.
// Re-running with unchanged inputs and phases therefore emits nothing.
func (o *Orchestrator) diffCommands(last map[string]DeviceState, desired map[string]desiredEntry) []ActuatorCommand {
	devices := make([]string, 0, len(desired))
	for dev := range desired {
		devices = append(devices, dev)
	}
	sort.Strings(devices)

	var commands []ActuatorCommand
	for _, dev := range devices {
		entry := desired[dev]
		if prev, ok := last[dev]; ok && prev == entry.state {
			continue
		}
		commands = append(commands, ActuatorCommand{
			Device: dev,
			State:  entry.state,
			Script: entry.script,
			Reason: entry.reason,
		})
	}
	return commands
}

// emit dispatches one command through the commander. Fire-and-forget:
// failures surface via the next cycle's sensor feedback, never here.
func (o *Orchestrator) emit(cmd ActuatorCommand) {
	if cmd.Script != "" {
		o.commander.RunScript(cmd.Script, cmd.Reason)
	} else {
		o.commander.SetDeviceState(cmd.Device, cmd.State == StateOn, cmd.Reason)
	}
	o.logger.Debug("command emitted",
		"device", cmd.Device,
		"state", string(cmd.State),
		"reason", cmd.Reason,
	)
}

// buildStatus assembles the read-only snapshot for this cycle.
func (o *Orchestrator) buildStatus(in cycleInput, results []roomResult, outdoor float64, outdoorOK bool, commandCount int, started time.Time) CycleStatus {
	status := CycleStatus{
		CycleID:        uuid.NewString(),
		Mode:           in.mode,
		Profile:        in.profile,
		CommandsIssued: commandCount,
		StartedAt:      started,
		DurationMS:     int(time.Since(started).Milliseconds()),
	}
	if outdoorOK {
		out := outdoor
		status.Outdoor = &out
	}
	for i := range results {
		// Arbitration appends shared devices after the room was
		// evaluated; sort here so the reported list is always ordered.
		sort.Strings(results[i].status.ActiveDevices)
		status.Rooms = append(status.Rooms, results[i].status)
		status.Gates = append(status.Gates, results[i].gates...)
	}
	return status
}

// commit writes the cycle's results back into orchestrator state.
// This is the only place RoomState and the commanded-state snapshot
// mutate, and it happens strictly between cycles.
func (o *Orchestrator) commit(results []roomResult, desired map[string]desiredEntry, status CycleStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i := range results {
		rs := results[i].state
		if st, ok := o.states[rs.RoomID]; ok {
			*st = rs
		}
	}
	for dev, entry := range desired {
		o.lastCommanded[dev] = entry.state
	}
	o.lastStatus = status
}

// observe feeds telemetry and history sinks. Both are best-effort:
// a failing sink never affects the decision loop.
func (o *Orchestrator) observe(ctx context.Context, in cycleInput, results []roomResult, status CycleStatus, commands []ActuatorCommand, started time.Time) {
	if o.metrics != nil {
		for i := range results {
			rs := &results[i].state
			tier := rs.HeatTier
			if rs.CoolTier > tier {
				tier = rs.CoolTier
			}
			target := results[i].status.Target
			o.metrics.WriteRoomMetric(rs.RoomID, string(rs.Phase), rs.Current, target, rs.Magnitude, tier)
		}
		for i := range results {
			for _, gate := range results[i].gates {
				outdoor := 0.0
				if status.Outdoor != nil {
					outdoor = *status.Outdoor
				}
				o.metrics.WriteWeatherMetric(gate.RoomID, outdoor, gate.Allowed, gate.Reason)
			}
		}
		o.metrics.WriteCycleMetric(len(results), len(commands), float64(time.Since(started).Microseconds())/1000.0)
	}

	if o.recorder != nil {
		record := CycleRecord{
			ID:             status.CycleID,
			StartedAt:      status.StartedAt,
			DurationMS:     status.DurationMS,
			Mode:           in.mode,
			Profile:        in.profile,
			RoomsEvaluated: len(results),
			CommandsIssued: len(commands),
		}
		now := time.Now().UTC()
		for _, cmd := range commands {
			record.Commands = append(record.Commands, CommandRecord{
				ID:       uuid.NewString(),
				CycleID:  status.CycleID,
				Device:   cmd.Device,
				State:    cmd.State,
				Scripted: cmd.Script != "",
				Reason:   cmd.Reason,
				IssuedAt: now,
			})
		}
		if err := o.recorder.RecordCycle(ctx, record); err != nil {
			// History is observability, not control: keep cycling.
			o.logger.Error("failed to record cycle", "cycle_id", status.CycleID, "error", err)
		}
	}
}

// evaluateRoom runs the per-room pipeline: aggregate sensor readings,
// advance the demand state machine, select the tier, gate
// weather-sensitive devices, and decide climate and dumb devices.
// Shared devices are not decided here; the room only registers requests.
//
//nolint:gocognit,gocyclo // the room pipeline is a linear sequence of stages
func (o *Orchestrator) evaluateRoom(in cycleInput, room *RoomConfig, outdoor float64, outdoorOK bool) roomResult {
	res := roomResult{
		desired:  make(map[string]desiredEntry),
		requests: make(map[string]float64),
	}

	ov := in.overrides[room.ID]
	enabled := room.IsEnabled()
	if ov.enabled != nil {
		enabled = *ov.enabled
	}

	target := in.cfg.Global.Target
	tolerance := in.cfg.Global.Tolerance
	if in.mode == ModePerRoom {
		target = room.Target
		tolerance = room.Tolerance
	}
	if ov.target != nil {
		target = *ov.target
	}
	if ov.tolerance != nil {
		tolerance = *ov.tolerance
	}
	effTolerance := tolerance * in.factors.Tolerance

	var values []float64
	for _, ref := range room.Sensors {
		if v, ok := o.sensors.ReadTemperature(ref); ok {
			values = append(values, v)
		}
	}
	current, available := Aggregate(values, room.Aggregation)

	phase := PhaseIdle
	magnitude := 0.0
	switch {
	case in.mode == ModeOff || !enabled:
		// Everything decided off; the diff below releases any device
		// commanded on by a previous cycle.
	case !available:
		o.logger.Warn("room sensors unavailable, forcing idle",
			"room_id", room.ID,
			"sensors", len(room.Sensors),
			"error", ErrSensorUnavailable.Error(),
		)
	default:
		hasHeat := roomHasPath(room, DeviceHeat)
		hasCool := roomHasPath(room, DeviceCool)
		phase, magnitude = computeDemand(in.prev[room.ID], current, target, effTolerance, hasHeat, hasCool)
	}

	heatTier := selectTier(phase == PhaseHeating, magnitude, scaleThresholds(in.cfg.Global.HeatThresholds, in.factors.Threshold))
	coolTier := selectTier(phase == PhaseCooling, magnitude, scaleThresholds(in.cfg.Global.CoolThresholds, in.factors.Threshold))

	shared := in.cfg.sharedDeviceSet()
	weatherSet := stringSet(room.WeatherSensitive)

	o.decideClimate(&res, room, DeviceHeat, room.Heat, heatTier, magnitude, shared, weatherSet, in.cfg.Global, outdoor, outdoorOK)
	o.decideClimate(&res, room, DeviceCool, room.Cool, coolTier, magnitude, shared, weatherSet, in.cfg.Global, outdoor, outdoorOK)

	for j := range room.DumbDevices {
		d := &room.DumbDevices[j]
		tier := heatTier
		if d.Type == DeviceCool {
			tier = coolTier
		}
		state, reason := evaluateDumbDevice(d, phase, tier)
		script := d.OnScript
		if state == StateOff {
			script = d.OffScript
		}
		res.desired[d.ID] = desiredEntry{state: state, reason: reason, script: script}
	}

	now := time.Now().UTC()
	res.state = RoomState{
		RoomID:      room.ID,
		Current:     current,
		Available:   available,
		Phase:       phase,
		HeatTier:    heatTier,
		CoolTier:    coolTier,
		Magnitude:   magnitude,
		EvaluatedAt: now,
	}

	res.status = RoomStatus{
		RoomID:      room.ID,
		Name:        room.Name,
		Enabled:     enabled,
		Target:      target,
		Tolerance:   tolerance,
		Phase:       phase,
		HeatTier:    heatTier,
		CoolTier:    coolTier,
		Magnitude:   magnitude,
		EvaluatedAt: now,
	}
	if available {
		cur := current
		res.status.Current = &cur
	}
	for dev, entry := range res.desired {
		if entry.state == StateOn {
			res.status.ActiveDevices = append(res.status.ActiveDevices, dev)
		}
	}

	return res
}

// decideClimate decides every climate device of one type in one room:
// devices in the cumulative tier union are on, the rest off, with
// weather-sensitive devices filtered by the gate. Shared devices are
// registered as requests instead of being decided directly.
func (o *Orchestrator) decideClimate(res *roomResult, room *RoomConfig, devType DeviceType, cats CategoryDevices, tier int, magnitude float64, shared, weatherSet map[string]bool, global GlobalConfig, outdoor float64, outdoorOK bool) {
	onSet := stringSet(tierDevices(cats, tier))

	for _, dev := range allDevices(cats) {
		state := StateOff
		reason := "no_demand"
		if onSet[dev] {
			state = StateOn
			reason = fmt.Sprintf("tier_%d_%s", tier, devType)
		} else if tier > 0 {
			reason = "above_active_tier"
		}

		if weatherSet[dev] {
			allowed, why := weatherPermitted(devType, outdoor, outdoorOK, global.OutdoorSafeRange, global.OutdoorPolicy)
			res.gates = append(res.gates, GateStatus{
				RoomID:  room.ID,
				Device:  dev,
				Allowed: allowed,
				Reason:  why,
			})
			if !allowed && state == StateOn {
				state = StateOff
				reason = "weather_blocked"
			}
		}

		if shared[dev] {
			if state == StateOn {
				res.requests[dev] = magnitude
			}
			continue
		}

		res.desired[dev] = desiredEntry{state: state, reason: reason}
	}
}

// roomHasPath reports whether the room has any actuation path for a
// device type: category devices or a participating dumb device.
func roomHasPath(room *RoomConfig, devType DeviceType) bool {
	cats := room.Heat
	if devType == DeviceCool {
		cats = room.Cool
	}
	if len(cats.Category1)+len(cats.Category2)+len(cats.Category3) > 0 {
		return true
	}
	for i := range room.DumbDevices {
		d := &room.DumbDevices[i]
		if d.Type == devType && d.Participation != ParticipationOff {
			return true
		}
	}
	return false
}

// scaleThresholds applies the profile's threshold factor.
func scaleThresholds(t TierThresholds, factor float64) TierThresholds {
	return TierThresholds{
		Tier2: t.Tier2 * factor,
		Tier3: t.Tier3 * factor,
	}
}

func stringSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
