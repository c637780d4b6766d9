package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var jsonOutput, useSSE bool

	cmd := &cobra.Command{
		Use:   "watch [game-id]",
		Short: "Follow a game's progress live",
		Long: `Subscribe to the game's progress topic and print every snapshot as it
arrives. The first snapshot is the current state.

WebSocket is used by default; --sse switches to Server-Sent Events.
The game defaults to the last game started or joined.

Press Ctrl+C to disconnect.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := resolveGameID(args)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			handle := func(payload []byte) error {
				return printSnapshotPayload(payload, jsonOutput)
			}

			if useSSE {
				err = streamSSE(ctx, client.BaseURL(), gameID, handle)
			} else {
				err = streamWebSocket(ctx, client.BaseURL(), gameID, handle)
			}
			if err != nil && ctx.Err() == nil {
				return err
			}

			if !jsonOutput {
				fmt.Println("Disconnected")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output snapshots as JSON lines")
	cmd.Flags().BoolVar(&useSSE, "sse", false, "Use Server-Sent Events instead of WebSocket")

	return cmd
}

// topicPath is the push topic for a game
func topicPath(gameID string) string {
	return "/topic/game-progress/" + gameID
}

// streamWebSocket reads snapshots from the game's WebSocket topic until ctx is
// done or the server closes the connection
func streamWebSocket(ctx context.Context, baseURL, gameID string, handle func([]byte) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	url := "ws" + strings.TrimPrefix(baseURL, "http") + topicPath(gameID)
	if cfg != nil && cfg.Verbose {
		fmt.Fprintf(os.Stderr, "Connecting to %s\n", url)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connection failed: HTTP %d", resp.StatusCode)
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// Unblock ReadMessage on cancel
	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}
		if err := handle(msg); err != nil {
			return err
		}
	}
}

// streamSSE reads game-progress events from the game's SSE topic until ctx
// is done or the stream ends
func streamSSE(ctx context.Context, baseURL, gameID string, handle func([]byte) error) error {
	url := baseURL + topicPath(gameID) + "/events"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// No timeout for SSE
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return readSSE(resp.Body, func(event, data string) error {
		if event != "game-progress" {
			return nil
		}
		return handle([]byte(data))
	})
}

// readSSE parses an SSE stream, calling handle once per complete event
func readSSE(r io.Reader, handle func(event, data string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var currentEvent string
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "event: "):
			currentEvent = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case line == "":
			// End of event
			if currentEvent != "" {
				if err := handle(currentEvent, strings.Join(dataLines, "\n")); err != nil {
					return err
				}
			}
			currentEvent = ""
			dataLines = nil
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stream error: %w", err)
	}
	return nil
}

func printSnapshotPayload(payload []byte, jsonOutput bool) error {
	if jsonOutput {
		fmt.Println(string(payload))
		return nil
	}

	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return fmt.Errorf("failed to parse snapshot: %w", err)
	}

	fmt.Printf("[%s]\n", time.Now().Format("2006-01-02 15:04:05"))
	NewOutput("text").Print(snap)
	fmt.Println()
	return nil
}
