package events

import "github.com/atomicstack/tmux-popup-find/internal/logging"

type DocumentTracer struct{}

var Document = DocumentTracer{}

func (DocumentTracer) Find(name, query string, token int64, step int) {
	logging.Trace("document.find", map[string]interface{}{
		"name":  name,
		"query": query,
		"token": token,
		"step":  step,
	})
}

func (DocumentTracer) Stop(name, action string) {
	logging.Trace("document.stop", map[string]interface{}{"name": name, "action": action})
}

func (DocumentTracer) Reload(name string, lines int) {
	logging.Trace("document.reload", map[string]interface{}{"name": name, "lines": lines})
}
