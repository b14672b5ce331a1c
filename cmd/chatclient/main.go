// Command chatclient is a terminal client for the relay. It joins one chat as one user,
// sends each line read from stdin and prints the chat's messages as they arrive.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"marketchat/internal/app/chat"
	"marketchat/internal/app/session"
	"marketchat/internal/pkg/logx"
)

type terminalNotifier struct{}

func (terminalNotifier) ServerError(message string) {
	fmt.Fprintf(os.Stderr, "! %s\n", message)
}

func (terminalNotifier) ConnectionLost() {
	fmt.Fprintln(os.Stderr, "! Connection Lost: unable to reach the chat server.")
}

func main() {
	os.Exit(run())
}

// run returns the process exit code once every deferred cleanup has run.
func run() int {
	url := flag.String("url", "ws://localhost:8080/ws", "relay WebSocket URL")
	userID := flag.Int64("user", 0, "user id to authenticate as")
	chatID := flag.Int64("chat", 0, "chat id to follow and post to")
	verbose := flag.Bool("v", false, "log connection events")
	flag.Parse()

	if *userID <= 0 || *chatID <= 0 {
		flag.Usage()
		return 2
	}

	logx.InitGlobalLogger(*verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := session.New(session.Config{
		URL:    *url,
		UserID: *userID,
		ChatID: *chatID,
		Retry:  session.DefaultRetryPolicy(),
		OnMessage: func(m chat.Message) {
			who := "them"
			if m.SenderID == *userID {
				who = "you"
			}
			fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04:05"), who, m.Content)
		},
	}, terminalNotifier{})

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			err := s.Send(scanner.Text())
			switch {
			case errors.Is(err, session.ErrEmptyContent):
			case errors.Is(err, session.ErrNotAuthenticated):
				fmt.Fprintln(os.Stderr, "! Not connected yet, message not sent.")
			case err != nil:
				fmt.Fprintf(os.Stderr, "! %v\n", err)
			}
		}
		stop()
	}()

	if err := s.Run(ctx); err != nil {
		return 1
	}

	return 0
}
