package app

import "github.com/dkeye/Presence/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	MarkSlow
	KickObserver
	DropEvent
)

type Policy interface {
	OnBackPressure(id core.ConnID, observer core.ObserverConn) BackpressureAction
}

// SimplePolicy evicts any observer that cannot keep up. A slow observer
// must never be allowed to backpressure the whole hub.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(id core.ConnID, observer core.ObserverConn) BackpressureAction {
	return KickObserver
}
