package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// doneSentinel terminates stream consumption early.
const doneSentinel = "[DONE]"

// dataPrefix marks payload lines inside an event-stream frame.
const dataPrefix = "data:"

// streamPayload is the expected per-delta JSON shape. Backends that frame
// deltas differently fall through to raw-text handling.
type streamPayload struct {
	Response *string `json:"response"`
}

// Stream sends a streaming completion request and invokes onDelta for every
// non-empty text delta as it arrives. It returns the accumulated full text.
//
// Frame handling: raw bytes are split on blank-line frame boundaries; within
// a frame only lines carrying the data marker count, with the marker and
// leading whitespace stripped. Each payload is first tried as JSON with a
// "response" text field; on parse failure the raw payload itself is the delta.
// A [DONE] sentinel stops consumption.
//
// If the backend answers with a plain (non-stream) body, the entire text is
// returned with no deltas emitted. A mid-stream error stops consumption
// cleanly: the accumulated text is returned alongside the error so callers
// can keep partial output.
func (c *Client) Stream(ctx context.Context, req Request, onDelta func(string) error) (string, error) {
	body, err := json.Marshal(wireRequest{
		Model:     req.Model,
		Messages:  req.Messages,
		MaxTokens: req.MaxTokens,
		Stream:    true,
	})
	if err != nil {
		return "", fmt.Errorf("marshal stream request: %w", err)
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("model backend error [%d]: %s", resp.StatusCode, truncate(string(respBody), 300))
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		return c.readPlain(resp.Body)
	}

	var full strings.Builder
	reader := bufio.NewReader(resp.Body)
	var frame []string

	flushFrame := func() (done bool, err error) {
		defer func() { frame = frame[:0] }()
		for _, line := range frame {
			if !strings.HasPrefix(line, dataPrefix) {
				continue
			}
			payload := strings.TrimLeft(strings.TrimPrefix(line, dataPrefix), " \t")
			if payload == doneSentinel {
				return true, nil
			}
			delta := extractDelta(payload)
			if delta == "" {
				continue
			}
			full.WriteString(delta)
			if err := onDelta(delta); err != nil {
				return true, err
			}
		}
		return false, nil
	}

	for {
		select {
		case <-ctx.Done():
			return full.String(), ctx.Err()
		default:
		}

		line, readErr := reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")

		if line == "" && readErr == nil {
			// Blank line: frame boundary.
			done, err := flushFrame()
			if done || err != nil {
				return full.String(), err
			}
			continue
		}
		if line != "" {
			frame = append(frame, line)
		}

		if readErr != nil {
			// Flush whatever we have; EOF is normal termination.
			_, flushErr := flushFrame()
			if readErr == io.EOF {
				return full.String(), flushErr
			}
			return full.String(), fmt.Errorf("read stream: %w", readErr)
		}
	}
}

// extractDelta interprets one data payload. JSON with a response field wins;
// anything unparseable degrades to the raw text itself.
func extractDelta(payload string) string {
	var p streamPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return payload
	}
	if p.Response != nil {
		return *p.Response
	}
	return ""
}

// readPlain handles a backend that ignored stream mode and answered with a
// regular completion body.
func (c *Client) readPlain(r io.Reader) (string, error) {
	respBody, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	var wire wireResponse
	if err := json.Unmarshal(respBody, &wire); err != nil {
		// Not completion-shaped either; take the body as the text.
		return string(respBody), nil
	}
	if len(wire.Choices) > 0 && wire.Choices[0].Message != nil {
		return wire.Choices[0].Message.Content, nil
	}
	return "", nil
}
