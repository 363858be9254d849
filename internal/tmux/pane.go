package tmux

import (
	"fmt"
	"strings"
	"sync"

	"github.com/atomicstack/tmux-popup-find/internal/findbar"
	"github.com/atomicstack/tmux-popup-find/internal/logging"
	"github.com/atomicstack/tmux-popup-find/internal/logging/events"
	"github.com/atomicstack/tmux-popup-find/internal/match"
	"github.com/charmbracelet/x/ansi"
)

const jobQueueSize = 32

type job struct {
	token  findbar.Token
	query  string
	step   int
	stop   bool
	action findbar.StopAction
}

type outcome struct {
	lines []string
	total int
	err   error
}

// Pane searches another tmux pane. Matches are counted over the pane's full
// history and the pane itself is driven through copy-mode search, so the
// user sees the active match highlighted in place.
//
// Find, StopFind, Lines and Close must be called from the event loop that
// deliver hands callbacks to. tmux I/O happens on a single worker goroutine so
// commands reach the server in request order.
type Pane struct {
	target    string
	matcher   *match.Matcher
	deliver   func(func())
	listeners []func(string, findbar.FoundResult)

	ioMu     sync.Mutex
	client   tmuxClient
	copyMode bool

	jobs   chan job
	done   chan struct{}
	closed bool

	nextID findbar.Token
	latest findbar.Token
	query  string
	active int
	total  int
	lines  []string

	// tmux moves once per queued command, so steps issued before the latest
	// result arrives are summed and applied to the ordinal together.
	pendingSteps int
	restart      bool
}

// OpenPane connects to the tmux server and returns a target for the pane
// identified by target (a pane id such as %3 or any tmux target string).
func OpenPane(socketPath, target string, matcher *match.Matcher, deliver func(func())) (*Pane, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, fmt.Errorf("pane target required")
	}
	client, err := newTmux(socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to tmux: %w", err)
	}
	return newPane(client, target, matcher, deliver), nil
}

func newPane(client tmuxClient, target string, matcher *match.Matcher, deliver func(func())) *Pane {
	if matcher == nil {
		matcher = match.New(match.Literal)
	}
	p := &Pane{
		target:  target,
		matcher: matcher,
		deliver: deliver,
		client:  client,
		jobs:    make(chan job, jobQueueSize),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// ID returns the tmux target the pane was opened with. It is also the sender
// reported to OnFound listeners.
func (p *Pane) ID() string { return p.target }

// Lines returns the content captured by the most recent completed search.
func (p *Pane) Lines() []string { return p.lines }

// Capture reads the pane's history synchronously.
func (p *Pane) Capture() ([]string, error) {
	p.ioMu.Lock()
	defer p.ioMu.Unlock()
	return p.capture()
}

// OnFound implements findbar.WindowTarget.
func (p *Pane) OnFound(fn func(sender string, result findbar.FoundResult)) {
	if fn != nil {
		p.listeners = append(p.listeners, fn)
	}
}

// Find implements findbar.Target. A fresh search starts from the bottom of the
// pane and moves up, so its active match is the last one.
func (p *Pane) Find(query string, opts *findbar.FindOptions) findbar.Token {
	p.nextID++
	token := p.nextID
	p.latest = token
	step := 0
	if opts != nil && opts.FindNext {
		step = 1
		if !opts.Forward {
			step = -1
		}
	}
	if step == 0 {
		p.restart = true
		p.pendingSteps = 0
	} else {
		p.pendingSteps += step
	}
	events.Pane.Find(p.target, query, int64(token), step)
	p.enqueue(job{token: token, query: query, step: step})
	return token
}

// StopFind implements findbar.Target. Clearing the selection leaves copy-mode;
// keeping it leaves the pane scrolled to the last match.
func (p *Pane) StopFind(action findbar.StopAction) {
	p.latest = 0
	p.pendingSteps = 0
	p.restart = false
	if action == findbar.StopClearSelection {
		p.query = ""
		p.active = 0
		p.total = 0
	}
	events.Pane.Stop(p.target, string(action))
	p.enqueue(job{stop: true, action: action})
}

// Close drains outstanding tmux commands and disconnects. The worker may be
// blocked handing a result to the event loop, so Close must not be called from
// a loop that is still expected to accept those callbacks.
func (p *Pane) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.jobs)
	<-p.done
	p.ioMu.Lock()
	defer p.ioMu.Unlock()
	return p.client.Close()
}

func (p *Pane) enqueue(j job) {
	if p.closed {
		return
	}
	p.jobs <- j
}

func (p *Pane) run() {
	defer close(p.done)
	for j := range p.jobs {
		p.ioMu.Lock()
		if j.stop {
			p.stop(j.action)
			p.ioMu.Unlock()
			continue
		}
		res := p.search(j)
		p.ioMu.Unlock()
		if res.err != nil {
			events.Pane.Error(p.target, "search", res.err)
			logging.Error(res.err)
		}
		p.deliver(func() { p.apply(j, res) })
	}
}

func (p *Pane) capture() ([]string, error) {
	out, err := p.client.Command("capture-pane", "-p", "-J", "-S", "-", "-t", p.target)
	if err != nil {
		return nil, fmt.Errorf("capture pane %s: %w", p.target, err)
	}
	out = strings.TrimRight(out, "\n")
	if out == "" {
		events.Pane.Capture(p.target, 0)
		return nil, nil
	}
	raw := strings.Split(out, "\n")
	lines := make([]string, len(raw))
	for i, line := range raw {
		lines[i] = ansi.Strip(strings.TrimRight(line, "\r"))
	}
	events.Pane.Capture(p.target, len(lines))
	return lines, nil
}

func (p *Pane) search(j job) outcome {
	lines, err := p.capture()
	if err != nil {
		return outcome{err: err}
	}
	total := p.matcher.Count(lines, j.query)
	if total == 0 {
		return outcome{lines: lines}
	}
	if j.step == 0 && p.copyMode {
		// Restart from the bottom so ordinals line up with the capture.
		if err := p.send("cancel"); err != nil {
			return outcome{lines: lines, total: total, err: err}
		}
	}
	if !p.copyMode {
		if _, err := p.client.Command("copy-mode", "-t", p.target); err != nil {
			return outcome{lines: lines, total: total, err: fmt.Errorf("enter copy-mode in %s: %w", p.target, err)}
		}
		p.copyMode = true
	}
	direction := "search-backward"
	if j.step > 0 {
		direction = "search-forward"
	}
	if err := p.send(direction, j.query); err != nil {
		return outcome{lines: lines, total: total, err: err}
	}
	return outcome{lines: lines, total: total}
}

func (p *Pane) stop(action findbar.StopAction) {
	if action != findbar.StopClearSelection || !p.copyMode {
		return
	}
	if err := p.send("cancel"); err != nil {
		events.Pane.Error(p.target, "stop", err)
		logging.Error(err)
	}
}

func (p *Pane) send(command string, args ...string) error {
	parts := append([]string{"send-keys", "-t", p.target, "-X", command}, args...)
	if _, err := p.client.Command(parts...); err != nil {
		return fmt.Errorf("%s in %s: %w", command, p.target, err)
	}
	if command == "cancel" {
		p.copyMode = false
	}
	return nil
}

func (p *Pane) apply(j job, res outcome) {
	current := j.token == p.latest
	if current {
		if res.lines != nil || res.err == nil {
			p.lines = res.lines
		}
		p.selectMatch(j, res.total)
		p.pendingSteps = 0
		p.restart = false
	}
	p.emit(findbar.FoundResult{RequestID: j.token, Matches: findbar.Int(res.total)})
	ordinal := 0
	if current {
		ordinal = p.active
	}
	p.emit(findbar.FoundResult{
		RequestID:          j.token,
		ActiveMatchOrdinal: findbar.Int(ordinal),
		Matches:            findbar.Int(res.total),
		FinalUpdate:        true,
	})
}

func (p *Pane) selectMatch(j job, total int) {
	steps := p.pendingSteps
	continuing := !p.restart && steps != 0 && j.query == p.query && p.total == total && p.active > 0
	p.query = j.query
	p.total = total
	switch {
	case total == 0:
		p.active = 0
	case continuing:
		p.active = wrap(p.active-1+steps, total) + 1
	case p.restart:
		// A fresh search lands on the last match.
		p.active = wrap(total-1+steps, total) + 1
	default:
		p.active = total
	}
}

func wrap(i, n int) int {
	return ((i % n) + n) % n
}

func (p *Pane) emit(result findbar.FoundResult) {
	for _, fn := range p.listeners {
		fn(p.target, result)
	}
}
