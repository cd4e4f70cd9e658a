// Wattnest chat CLI - command line client for the mentor chat relay.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/nexus-FayazKhan/Wattnest/chatsession"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	serverURL := getenv("WATTNEST_URL", "http://localhost:3001")
	self := chatsession.Identity{
		ID:        os.Getenv("WATTNEST_USER_ID"),
		Name:      os.Getenv("WATTNEST_USER_NAME"),
		Email:     os.Getenv("WATTNEST_USER_EMAIL"),
		AvatarURL: os.Getenv("WATTNEST_USER_IMAGE"),
	}

	switch os.Args[1] {
	case "connections":
		requireIdentity(self)
		listConnections(serverURL, self)

	case "with":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: chat with <partner-id>")
			os.Exit(1)
		}
		requireIdentity(self)
		converse(serverURL, self, os.Args[2])

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func listConnections(serverURL string, self chatsession.Identity) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := chatsession.NewConnectionsClient(serverURL)
	participants, err := client.Connections(ctx, self)
	exitOnError(err)

	if len(participants) == 0 {
		fmt.Println("No connections found")
		return
	}
	for _, p := range participants {
		fmt.Printf("  %-24s %-8s %s\n", p.ID, p.Role, p.Name)
	}
}

func converse(serverURL string, self chatsession.Identity, partnerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Resolve the partner through the connections directory
	client := chatsession.NewConnectionsClient(serverURL)
	participants, err := client.Connections(ctx, self)
	exitOnError(err)

	var partner *chatsession.Participant
	for i, p := range participants {
		if p.ID == partnerID {
			partner = &participants[i]
			break
		}
	}
	if partner == nil {
		fmt.Fprintf(os.Stderr, "Error: %s is not in your connections\n", partnerID)
		os.Exit(1)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Logger()

	opts := []chatsession.Option{
		chatsession.WithCallbacks(chatsession.Callbacks{
			OnAppend:  func(msg chatsession.Message) { printMessage(self, msg) },
			OnHistory: func(msgs []chatsession.Message) { printHistory(self, msgs) },
			OnNotice:  func(text string) { fmt.Fprintln(os.Stderr, "!", text) },
		}),
	}
	if v := os.Getenv("JOIN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid JOIN_TIMEOUT %q\n", v)
			os.Exit(1)
		}
		opts = append(opts, chatsession.WithJoinTimeout(d))
	}

	transport := chatsession.NewWSTransport(wsURL(serverURL), logger)
	session := chatsession.NewManager(transport, self, logger, opts...)
	defer session.Close()

	exitOnError(session.Connect(ctx))
	exitOnError(session.SelectConversation(*partner))

	fmt.Printf("Chatting with %s (%s). Type a message and press enter; /quit to leave.\n",
		partner.Name, partner.Role)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "/quit" {
			return
		}
		if line == "" {
			continue
		}
		if err := session.SendMessage(line); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
}

func printHistory(self chatsession.Identity, msgs []chatsession.Message) {
	if len(msgs) == 0 {
		fmt.Println("(no messages yet)")
		return
	}
	for _, msg := range msgs {
		printMessage(self, msg)
	}
}

func printMessage(self chatsession.Identity, msg chatsession.Message) {
	ts := time.UnixMilli(msg.Timestamp).Format("15:04:05")
	name := msg.SenderName
	if msg.SenderID == self.ID {
		name = "You"
	}
	fmt.Printf("[%s] %s: %s\n", ts, name, msg.Body)
}

// wsURL converts the server base URL to its websocket endpoint.
func wsURL(serverURL string) string {
	u := serverURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return strings.TrimRight(u, "/") + "/ws"
}

func requireIdentity(self chatsession.Identity) {
	if self.ID == "" || self.Name == "" {
		fmt.Fprintln(os.Stderr, "Error: WATTNEST_USER_ID and WATTNEST_USER_NAME must be set")
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`Wattnest chat - mentor chat client

Usage: chat <command> [options]

Commands:
  connections         List your mentor/mentee connections
  with <partner-id>   Open a conversation with a connection

Environment:
  WATTNEST_URL          Relay URL (default: http://localhost:3001)
  WATTNEST_USER_ID      Your stable user id (required)
  WATTNEST_USER_NAME    Your display name (required)
  WATTNEST_USER_EMAIL   Your email
  WATTNEST_USER_IMAGE   Your avatar URL
  JOIN_TIMEOUT          Room join timeout, e.g. 5s (default: 10s)`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func getenv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
