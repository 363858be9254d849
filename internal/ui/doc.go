// Package ui contains the Bubble Tea program that hosts the find bar. The
// Model is both the pager the user reads and the findbar.Container the
// session attaches its overlay to.
//
// Message flow:
//   - Key presses go to the overlay while it has focus, otherwise to the
//     pager bindings (/ opens the bar, n and N step through matches).
//   - Targets search off the loop and hand their results back through
//     Callback, which the app passes to tea.Program.Send. The session
//     therefore only ever sees results on the loop.
//   - The session's deferred and delayed focus tasks are turned into
//     tea.Cmds by loopScheduler and come back as taskMsg. Scheduling never
//     calls Program.Send, so Update cannot block on its own queue.
//   - A backend.Watcher streams reloads; applyBackendEvent swaps the content
//     and re-runs the active query.
//
// Rendering is lazy: handlers mark the model dirty and finishUpdate lays out
// and re-renders the pager once per message.
package ui
