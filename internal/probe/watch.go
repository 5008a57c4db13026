package probe

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// streamPath is the server-sent events endpoint.
const streamPath = "/api/stream"

// event is one parsed server-sent event.
type event struct {
	id   string
	name string
	data string
}

// watch follows the update stream until ctx ends, handing every update to
// fn. The stream client has no overall timeout.
func (c *HTTPClient) watch(ctx context.Context, fn func(wireUpdate)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+streamPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := (&http.Client{Transport: c.client.Transport}).Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", streamPath, resp.StatusCode)
	}

	err = readEvents(resp.Body, func(ev event) error {
		var u wireUpdate
		if err := json.Unmarshal([]byte(ev.data), &u); err != nil {
			return fmt.Errorf("event %s: %w", ev.id, err)
		}
		fn(u)
		return nil
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// readEvents parses an event stream, skipping comments. It returns nil when
// the stream ends cleanly.
func readEvents(r io.Reader, fn func(event) error) error {
	br := bufio.NewReader(r)
	var ev event
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if ev.data != "" {
				if err := fn(ev); err != nil {
					return err
				}
			}
			ev = event{}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "id:"):
			ev.id = strings.TrimSpace(line[3:])
		case strings.HasPrefix(line, "event:"):
			ev.name = strings.TrimSpace(line[6:])
		case strings.HasPrefix(line, "data:"):
			if ev.data != "" {
				ev.data += "\n"
			}
			ev.data += strings.TrimPrefix(line[5:], " ")
		}
	}
}
