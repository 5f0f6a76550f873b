package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"pkt.systems/glass/internal/command"
	"pkt.systems/glass/schema"
)

const prompt = "> "

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// runConsole feeds stdin lines to the handler until EOF or ctx ends. Command
// errors are printed and do not stop the console.
func runConsole(ctx context.Context, handler *command.Handler, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	_, _ = fmt.Fprint(out, prompt)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			if _, err := handler.Handle(ctx, line); err != nil {
				if errors.Is(err, schema.ErrServiceClosed) {
					return nil
				}
				_, _ = fmt.Fprintf(out, "error: %v\n", err)
			}
			_, _ = fmt.Fprint(out, prompt)
		}
	}
}

func printEvents(out io.Writer, events <-chan schema.TabEvent) {
	for event := range events {
		if line, ok := formatEvent(event); ok {
			_, _ = fmt.Fprintln(out, line)
		}
	}
}

// formatEvent renders the tab events worth showing on a terminal. Frame
// and progress updates are dropped.
func formatEvent(event schema.TabEvent) (string, bool) {
	id := event.Tab.ID
	switch event.Type {
	case schema.TabEventCreated:
		return fmt.Sprintf("[%s] created %s", id, event.Tab.State.URL), true
	case schema.TabEventClosed:
		return fmt.Sprintf("[%s] closed", id), true
	case schema.TabEventActivated:
		return fmt.Sprintf("[%s] active", id), true
	case schema.TabEventNavigation:
		switch event.Cause.Type {
		case schema.EventAddressChanged:
			return fmt.Sprintf("[%s] address %s", id, event.Cause.URL), true
		case schema.EventTitleChanged:
			return fmt.Sprintf("[%s] title %q", id, event.Tab.State.Title), true
		}
		return "", false
	case schema.TabEventLoadError:
		if event.Tab.LastError == nil {
			return "", false
		}
		return fmt.Sprintf("[%s] %v", id, *event.Tab.LastError), true
	case schema.TabEventFind:
		find := event.Cause.Find
		if find == nil || !find.Final {
			return "", false
		}
		return fmt.Sprintf("[%s] find %d/%d", id, find.ActiveOrdinal, find.Count), true
	case schema.TabEventDownload:
		d := event.Cause.Download
		if d == nil || d.State == schema.DownloadInProgress {
			return "", false
		}
		return fmt.Sprintf("[%s] download %s %s", id, d.State, d.FullPath), true
	case schema.TabEventShortcut:
		return fmt.Sprintf("[%s] shortcut %s", id, event.Cause.Shortcut), true
	case schema.TabEventPinned:
		if event.Tab.Pinned {
			return fmt.Sprintf("[%s] pinned", id), true
		}
		return fmt.Sprintf("[%s] unpinned", id), true
	case schema.TabEventContextMenu:
		return fmt.Sprintf("[%s] context menu ready, /menu to list", id), true
	default:
		return "", false
	}
}
