package events

import "github.com/atomicstack/tmux-popup-find/internal/logging"

type AppTracer struct{}

var App = AppTracer{}

func (AppTracer) Start(payload map[string]interface{}) {
	logging.Trace("app.start", payload)
}

func (AppTracer) Watch(path, mode string) {
	logging.Trace("app.watch", map[string]interface{}{"path": path, "mode": mode})
}

func (AppTracer) Reload(source string, lines int) {
	logging.Trace("app.reload", map[string]interface{}{"source": source, "lines": lines})
}

func (AppTracer) Exit(err error) {
	if err == nil {
		logging.Trace("app.exit", nil)
		return
	}
	logging.Trace("app.exit", map[string]interface{}{"error": err.Error()})
}
