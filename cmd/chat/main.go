package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"

	"main/internal/api"
	"main/internal/chat"
	"main/internal/chat/wire"
	"main/internal/ops"
	"main/pkg/wsclient"
)

const notificationPollInterval = 2 * time.Second

func main() {
	if err := run(); err != nil {
		log.Printf("chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	gatewayFlag := flag.String("gateway", "", "chat gateway URL (overrides env)")
	apiFlag := flag.String("api", "", "REST API base URL (overrides env)")
	chatFlag := flag.String("chat", "", "chat id to open on start")
	flag.Parse()

	cfg, err := ops.Load()
	if err != nil {
		return err
	}
	if *gatewayFlag != "" {
		cfg.GatewayURL = *gatewayFlag
	}
	if *apiFlag != "" {
		cfg.APIBaseURL = *apiFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.PyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "chat/client",
			ServerAddress:   cfg.PyroscopeAddr,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return fmt.Errorf("start profiler: %w", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	tokens := cfg.TokenSource()
	backend := api.New(cfg.APIBaseURL, tokens)

	client, err := chat.New(chat.Option{
		GatewayURL:     cfg.GatewayURL,
		Tokens:         tokens,
		ReconnectDelay: cfg.ReconnectDelay,
		OnStatus: func(state wsclient.State) {
			logs.Infof("connection %s", state)
		},
	})
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect gateway: %w", err)
	}

	me, err := backend.Me(ctx)
	if err != nil {
		return err
	}

	chats, err := backend.MyChats(ctx)
	if err != nil {
		return err
	}
	all := append(append([]api.Chat{}, chats.LCChats...), chats.GroupChats...)
	if len(all) == 0 {
		return errors.New("no chats for this account; create one first")
	}
	current := pickChat(all, *chatFlag)

	view := chat.NewMessageView(current.ID)
	if history, err := backend.ChatHistory(ctx, current.ID); err != nil {
		logs.Errorf("fetch history, err: %+v", err)
	} else {
		view.Replace(history)
	}

	// Live messages for the open chat: mark foreign messages read, refresh
	// the view from history, print.
	sub := chat.NewSubscriber(func(msg wire.ChatMessage) {
		if msg.ChatID != current.ID {
			return
		}
		if msg.SenderID != me.ID {
			if err := backend.MarkRead(ctx, msg.ID); err != nil {
				logs.Errorf("mark read, err: %+v", err)
			}
		}
		if history, err := backend.ChatHistory(ctx, current.ID); err == nil {
			view.Replace(history)
		}
		fmt.Printf("%s: %s\n", msg.Sender.Name(), msg.Content)
	})
	client.Subscribe(sub)
	defer client.Unsubscribe(sub)

	go showNotifications(ctx, client.Notifications(), view)

	fmt.Printf("chat %q (%s) as %s — /help for commands\n", current.Name, current.ID, me.Name())
	return prompt(ctx, client, backend, view, current, me)
}

// pickChat returns the chat matching the flag by either identifier, or the
// first chat when unset or unmatched.
func pickChat(all []api.Chat, want string) api.Chat {
	if want != "" {
		for _, c := range all {
			if c.ID.String() == want || c.ChatID.String() == want {
				return c
			}
		}
		logs.Infof("chat %q not found, opening %q", want, all[0].Name)
	}
	return all[0]
}

// showNotifications drains the store periodically: read receipts fold into
// the message view, everything gets printed once and dismissed.
func showNotifications(ctx context.Context, store *chat.NotificationStore, view *chat.MessageView) {
	ticker := time.NewTicker(notificationPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, n := range store.Snapshot() {
				view.MergeReadReceipt(n)
				if n.Content != "" {
					fmt.Printf("* %s\n", strings.TrimSpace(n.Content))
				}
				store.Remove(n)
			}
		}
	}
}

func prompt(ctx context.Context, client *chat.Client, backend *api.Client, view *chat.MessageView, current api.Chat, me api.User) error {
	rl, err := readline.New("> ")
	if err != nil {
		return fmt.Errorf("init prompt: %w", err)
	}
	defer rl.Close()
	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	channelType, receiver := sendTarget(current, me)

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case line == "/quit":
			return nil
		case line == "/status":
			fmt.Println(client.State())
		case line == "/history":
			for _, msg := range view.Messages() {
				fmt.Printf("%s: %s (read by %d)\n", msg.Sender.Name(), msg.Content, len(msg.ReadBy))
			}
		case line == "/users":
			users, err := backend.Users(ctx)
			if err != nil {
				logs.Errorf("list users, err: %+v", err)
				continue
			}
			for _, u := range users {
				fmt.Printf("%s %s\n", u.ID, u.Name())
			}
		case line == "/help":
			fmt.Println("/status /history /users /quit — anything else is sent as a message")
		default:
			if err := client.Send(line, channelType, receiver); err != nil {
				logs.Errorf("send failed, err: %+v", err)
			}
		}
	}
}

// sendTarget resolves the outbound channel for a chat: groups are addressed
// by chat uuid, private chats by the peer's user id.
func sendTarget(current api.Chat, me api.User) (channelType string, receiver wire.ID) {
	if current.IsGroup {
		return wire.TypeGroup, current.ChatID
	}
	for _, u := range current.Users {
		if u.ID != me.ID {
			return wire.TypeLC, u.ID
		}
	}
	return wire.TypeLC, current.ChatID
}
