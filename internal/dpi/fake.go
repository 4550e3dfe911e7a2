// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dpi

import "extfilter.io/worker/internal/types"

// FakeEngine is a deterministic stand-in for the real DPI engine,
// used by the worker package's tests and as cmd/packetworker's engine
// (something has to sit behind the Engine contract since the real
// engine is an external collaborator, §1). Flows are scripted ahead of
// time: a test seeds
// the per-flow result queue and FakeEngine plays it back one verdict
// per ProcessPacket call, then repeats the last verdict.
type FakeEngine struct {
	// Scripts maps a flow state pointer identity to a queue of
	// detected-protocol verdicts to return in order.
	Scripts map[*FakeFlowState][]types.DetectedProtocol

	// GiveUpAfter, if > 0, makes ShouldGiveUp true once a flow state
	// has seen at least that many ProcessPacket calls while still
	// unknown.
	GiveUpAfter int

	// GuessResult is returned by GuessUndetectedProtocol when a flow
	// remains unknown even after Giveup.
	GuessResult types.DetectedProtocol

	// FlowStateOverride, if set, is returned by every subsequent call
	// to NewFlowState instead of allocating a fresh *FakeFlowState —
	// lets a test pre-script one flow's HTTP/SSL info before the
	// worker under test ever calls NewFlowState itself.
	FlowStateOverride *FakeFlowState
}

// NewFakeEngine builds an empty FakeEngine; configure it via its
// exported fields before use.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{Scripts: make(map[*FakeFlowState][]types.DetectedProtocol)}
}

// FakeFlowState is FakeEngine's per-flow state.
type FakeFlowState struct {
	httpInfo HTTPInfo
	sslInfo  SSLInfo
	seen     int
	released bool
}

// HTTP implements FlowState.
func (f *FakeFlowState) HTTP() HTTPInfo { return f.httpInfo }

// SSL implements FlowState.
func (f *FakeFlowState) SSL() SSLInfo { return f.sslInfo }

// SetHTTP lets a test script the HTTP request surfaced by this flow.
func (f *FakeFlowState) SetHTTP(info HTTPInfo) { f.httpInfo = info }

// SetSSL lets a test script the TLS identity surfaced by this flow.
func (f *FakeFlowState) SetSSL(info SSLInfo) { f.sslInfo = info }

// NewFlowState implements Engine.
func (e *FakeEngine) NewFlowState() (FlowState, error) {
	if e.FlowStateOverride != nil {
		return e.FlowStateOverride, nil
	}
	return &FakeFlowState{}, nil
}

// ReleaseFlowState implements Engine.
func (e *FakeEngine) ReleaseFlowState(st FlowState) {
	st.(*FakeFlowState).released = true
}

// ProcessPacket implements Engine, playing back the scripted verdict
// queue for st (or ProtoUnknown with no queue configured).
func (e *FakeEngine) ProcessPacket(st FlowState, l3 []byte, ipTotalLen int, timestamp uint64, ipProto uint8) types.DetectedProtocol {
	fs := st.(*FakeFlowState)
	fs.seen++
	q := e.Scripts[fs]
	if len(q) == 0 {
		return types.DetectedProtocol{}
	}
	next := q[0]
	if len(q) > 1 {
		e.Scripts[fs] = q[1:]
	}
	return next
}

// Giveup implements Engine.
func (e *FakeEngine) Giveup(st FlowState) types.DetectedProtocol {
	return types.DetectedProtocol{}
}

// GuessUndetectedProtocol implements Engine.
func (e *FakeEngine) GuessUndetectedProtocol(ipProto uint8, zero1 uint32, srcPort uint16, zero2 uint32, dstPort uint16) types.DetectedProtocol {
	return e.GuessResult
}

// ShouldGiveUp implements Engine.
func (e *FakeEngine) ShouldGiveUp(st FlowState) bool {
	fs := st.(*FakeFlowState)
	return e.GiveUpAfter > 0 && fs.seen >= e.GiveUpAfter
}
