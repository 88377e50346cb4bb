// Package console is the terminal surface of the demo: it renders the
// running event log and drives the session from user input.
package console

import (
	"context"
	"strings"

	"github.com/pterm/pterm"

	"github.com/voxterm/voxterm/internal/event"
	"github.com/voxterm/voxterm/internal/session"
)

// Console wires one session to the terminal.
type Console struct {
	sess *session.Session
}

// New creates a console over the given session and hooks the event log so
// new events render as they arrive.
func New(sess *session.Session) *Console {
	c := &Console{sess: sess}

	log := sess.Log()
	log.OnUpdate(func() {
		entries := log.Entries()
		if len(entries) == 0 {
			pterm.Println(pterm.Gray("— event log cleared —"))
			return
		}
		printEntry(entries[0])
	})

	return c
}

// Run is the interactive loop: plain text is sent to the model, /events
// dumps the log, /stop ends the session. It returns when the user stops,
// the session ends, or ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	pterm.Println()
	pterm.Println(pterm.Gray("Type a message and press enter. Commands: /events, /stop"))
	pterm.Println()

	inputCh := make(chan string)
	go func() {
		defer close(inputCh)
		for {
			line, _ := pterm.DefaultInteractiveTextInput.
				WithDefaultText(">").
				Show()
			select {
			case inputCh <- strings.TrimSpace(line):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-c.sess.Done():
			pterm.Println(pterm.Gray("session ended"))
			return nil

		case line, ok := <-inputCh:
			if !ok {
				return nil
			}
			switch line {
			case "":
			case "/stop", "/quit":
				return nil
			case "/events":
				c.renderLog()
			default:
				c.sess.SendText(line)
			}
		}
	}
}

// renderLog dumps the full event log, most recent first.
func (c *Console) renderLog() {
	entries := c.sess.Log().Entries()
	if len(entries) == 0 {
		pterm.Println(pterm.Gray("(no events)"))
		return
	}
	for _, e := range entries {
		printEntry(e)
	}
}

// printEntry renders one log entry: direction arrow, type, timestamp, id.
func printEntry(e event.Entry) {
	arrow := pterm.LightBlue("→")
	if e.Dir == event.Inbound {
		arrow = pterm.LightGreen("←")
	}

	id := e.Event.ID()
	if len(id) > 8 {
		id = id[:8]
	}

	pterm.Printf("%s %s %s %s\n",
		arrow,
		pterm.Gray(e.Event.Timestamp()),
		e.Event.Type(),
		pterm.Gray(id),
	)
}
