package events

import "github.com/atomicstack/tmux-popup-find/internal/logging"

type PaneTracer struct{}

var Pane = PaneTracer{}

func (PaneTracer) Capture(target string, lines int) {
	logging.Trace("pane.capture", map[string]interface{}{"target": target, "lines": lines})
}

func (PaneTracer) Find(target, query string, token int64, step int) {
	logging.Trace("pane.find", map[string]interface{}{
		"target": target,
		"query":  query,
		"token":  token,
		"step":   step,
	})
}

func (PaneTracer) Stop(target, action string) {
	logging.Trace("pane.stop", map[string]interface{}{"target": target, "action": action})
}

func (PaneTracer) Error(target, op string, err error) {
	if err == nil {
		return
	}
	logging.Trace("pane.error", map[string]interface{}{"target": target, "op": op, "error": err.Error()})
}
