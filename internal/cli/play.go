package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mcoot/blitzarena/internal/model"
)

func newPlayCmd() *cobra.Command {
	var (
		name  string
		until string
	)

	cmd := &cobra.Command{
		Use:   "play [gameType]",
		Short: "Connect over WebSocket, optionally join a queue, and play from stdin",
		Long: `Open a game connection and print every server message.

With a game type the command joins that queue (speedTicTacToe,
nineMensMorris or memoryMatch). Without one it only watches player counts.

Heartbeats are answered automatically. Lines read from stdin are sent:
  move <json>   make a move in the current room, e.g. move {"position":4}
  rematch       request a rematch after the match ends
  decline       decline a rematch
  leave         leave the match-end screen
  counts        request player counts
  quit          forfeit and disconnect

Press Ctrl+C to disconnect.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := PlayOptions{
				UserID:     cfg.UserID,
				PlayerName: name,
				Until:      model.MessageType(until),
				JSON:       cfg.Output == "json",
			}
			if len(args) == 1 {
				opts.GameType = args[0]
			}

			// Set up cancellation
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.WebSocketURL(), nil)
			if err != nil {
				return fmt.Errorf("connection failed: %w", err)
			}
			defer func() { _ = conn.Close() }()

			return Play(ctx, conn, opts, os.Stdin, os.Stdout)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name shown to the opponent")
	cmd.Flags().StringVar(&until, "until", "", "Exit after receiving this message type (e.g. match_end)")

	return cmd
}

// PlayOptions controls a game session
type PlayOptions struct {
	GameType   string
	UserID     string
	PlayerName string
	Until      model.MessageType
	JSON       bool
}

// ServerMessage is a received message with its arrival time
type ServerMessage struct {
	Time time.Time         `json:"time"`
	Type model.MessageType `json:"type"`
	Data json.RawMessage   `json:"data,omitempty"`
}

// Play drives a game connection until the server closes it, ctx ends, or the
// Until message arrives. All writes happen on the calling goroutine.
func Play(ctx context.Context, conn *websocket.Conn, opts PlayOptions, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages := make(chan ServerMessage)
	readErr := make(chan error, 1)
	go func() {
		for {
			var msg ServerMessage
			if err := conn.ReadJSON(&msg); err != nil {
				readErr <- err
				return
			}
			msg.Time = time.Now()
			select {
			case messages <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	lines := make(chan string)
	if in != nil {
		go func() {
			scanner := bufio.NewScanner(in)
			for scanner.Scan() {
				select {
				case lines <- scanner.Text():
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	s := &playSession{conn: conn, out: out, json: opts.JSON}

	switch {
	case opts.GameType != "":
		if err := s.send(model.MsgJoinQueue, model.JoinQueuePayload{
			GameType:   opts.GameType,
			UserID:     opts.UserID,
			PlayerName: opts.PlayerName,
		}); err != nil {
			return err
		}
	case opts.UserID != "":
		if err := s.send(model.MsgAuthenticate, model.AuthenticatePayload{UserID: opts.UserID}); err != nil {
			return err
		}
	}

	if !opts.JSON {
		fmt.Fprintln(out, "Connected")
	}

	for {
		select {
		case <-ctx.Done():
			s.close()
			if !opts.JSON {
				fmt.Fprintln(out, "\nDisconnected")
			}
			return nil

		case err := <-readErr:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if !opts.JSON {
					fmt.Fprintln(out, "Disconnected")
				}
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)

		case msg := <-messages:
			if err := s.receive(msg); err != nil {
				return err
			}
			if opts.Until != "" && msg.Type == opts.Until {
				s.close()
				return nil
			}

		case line := <-lines:
			done, err := s.command(line)
			if err != nil {
				fmt.Fprintf(out, "Error: %s\n", err)
				continue
			}
			if done {
				s.close()
				return nil
			}
		}
	}
}

type playSession struct {
	conn   *websocket.Conn
	out    io.Writer
	json   bool
	roomID model.RoomID
}

func (s *playSession) send(t model.MessageType, data any) error {
	if err := s.conn.WriteJSON(model.NewOutbound(t, data)); err != nil {
		return fmt.Errorf("send %s: %w", t, err)
	}
	return nil
}

func (s *playSession) close() {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

// receive tracks the current room, answers heartbeats and prints the message
func (s *playSession) receive(msg ServerMessage) error {
	switch msg.Type {
	case model.MsgHeartbeatPing:
		// Pings are answered silently
		return s.send(model.MsgHeartbeatAck, nil)
	case model.MsgGameStart, model.MsgReconnected:
		var room model.RoomPayload
		if err := json.Unmarshal(msg.Data, &room); err == nil && room.RoomID != "" {
			s.roomID = room.RoomID
		}
	}

	printMessage(s.out, msg, s.json)
	return nil
}

// command sends the message for one line of user input; done reports a quit
func (s *playSession) command(line string) (bool, error) {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	room := model.RoomPayload{RoomID: s.roomID}

	switch strings.ToLower(verb) {
	case "":
		return false, nil
	case "move":
		if s.roomID == "" {
			return false, fmt.Errorf("not in a room")
		}
		move := json.RawMessage(strings.TrimSpace(rest))
		if !json.Valid(move) {
			return false, fmt.Errorf("move must be JSON, e.g. {\"position\":4}")
		}
		return false, s.send(model.MsgGameMove, model.GameMovePayload{RoomID: s.roomID, Move: move})
	case "rematch":
		return false, s.send(model.MsgRequestRematch, room)
	case "decline":
		return false, s.send(model.MsgDeclineRematch, room)
	case "leave":
		return false, s.send(model.MsgLeaveMatchEnd, room)
	case "counts":
		return false, s.send(model.MsgRequestPlayerCounts, nil)
	case "quit":
		return true, s.send(model.MsgQuit, nil)
	default:
		return false, fmt.Errorf("unknown command %q", verb)
	}
}

func printMessage(w io.Writer, msg ServerMessage, jsonOutput bool) {
	if jsonOutput {
		data, _ := json.Marshal(msg)
		fmt.Fprintln(w, string(data))
		return
	}

	timestamp := msg.Time.Format("2006-01-02 15:04:05")
	displayData := string(msg.Data)
	if len(displayData) > 200 {
		displayData = displayData[:200] + "..."
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", timestamp, msg.Type, displayData)
}
