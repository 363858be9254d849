package events

import "github.com/atomicstack/tmux-popup-find/internal/logging"

type OverlayTracer struct{}

var Overlay = OverlayTracer{}

func (OverlayTracer) Key(key string, focused bool) {
	logging.Trace("overlay.key", map[string]interface{}{"key": key, "focused": focused})
}

func (OverlayTracer) Message(kind, text string) {
	logging.Trace("overlay.message", map[string]interface{}{"kind": kind, "text": text})
}

func (OverlayTracer) Command(kind string, active, total int) {
	logging.Trace("overlay.command", map[string]interface{}{"kind": kind, "active": active, "total": total})
}

func (OverlayTracer) Attach(attached bool) {
	logging.Trace("overlay.attach", map[string]interface{}{"attached": attached})
}
