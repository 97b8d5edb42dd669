// Command client is a terminal chat client. It logs in, connects to the
// push channel, and runs the optimistic send pipeline against the selected
// conversation.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"lingochat/internal/chatclient"
	"lingochat/internal/domain"
)

type clientConfig struct {
	Server   string `yaml:"server"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func loadConfig(path string) (*clientConfig, error) {
	cfg := &clientConfig{Server: "http://localhost:8000"}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// terminalNotifier prints send failures and rings the terminal bell for
// incoming messages.
type terminalNotifier struct{}

func (terminalNotifier) PlayIncoming() error {
	_, err := fmt.Print("\a")
	return err
}

func (terminalNotifier) SendFailed(reason string) {
	fmt.Printf("!! %s\n", reason)
}

func main() {
	configPath := flag.String("config", "client.yaml", "path to client config file")
	server := flag.String("server", "", "server base URL (overrides config)")
	username := flag.String("user", "", "username (overrides config)")
	password := flag.String("pass", "", "password (overrides config)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *server != "" {
		cfg.Server = *server
	}
	if *username != "" {
		cfg.Username = *username
	}
	if *password != "" {
		cfg.Password = *password
	}
	if cfg.Username == "" || cfg.Password == "" {
		fmt.Fprintln(os.Stderr, "username and password are required (flags or config file)")
		os.Exit(1)
	}

	ctx := context.Background()

	api := chatclient.NewClient(cfg.Server)
	if err := api.Login(ctx, cfg.Username, cfg.Password); err != nil {
		fmt.Fprintf(os.Stderr, "login: %v\n", err)
		os.Exit(1)
	}

	socket, err := chatclient.DialSocket(ctx, cfg.Server, api.Token(), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer socket.Close()

	contacts, err := api.Contacts(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "contacts: %v\n", err)
		os.Exit(1)
	}
	byUsername := make(map[string]*domain.User, len(contacts))
	byID := make(map[int64]*domain.User, len(contacts))
	for _, u := range contacts {
		byUsername[u.Username] = u
		byID[u.ID] = u
	}

	// Print messages from the counterpart as the sequence mutates. Muted
	// while a conversation switch replays history, and tracking the last
	// printed ID so own sends and in-place mutations stay quiet.
	var (
		conv          *chatclient.Conversation
		muted         atomic.Bool
		printMu       sync.Mutex
		lastPrintedID string
	)
	onUpdate := func() {
		if muted.Load() {
			return
		}
		msgs := conv.Messages()
		if len(msgs) == 0 {
			return
		}
		last := msgs[len(msgs)-1]
		printMu.Lock()
		defer printMu.Unlock()
		if last.SenderID == api.CurrentUserID() || last.ID == lastPrintedID {
			return
		}
		lastPrintedID = last.ID
		sender := "them"
		if u, ok := byID[last.SenderID]; ok {
			sender = u.Username
		}
		fmt.Printf("[%s] %s\n", sender, last.Text)
	}

	conv = chatclient.New(chatclient.Deps{
		API:        api,
		Translator: api,
		Push:       socket,
		Identity:   api,
		Settings:   api,
		Notifier:   terminalNotifier{},
		Logger:     logger,
		OnUpdate:   onUpdate,
	})
	defer conv.Close()

	if err := conv.SyncSettings(ctx); err != nil {
		logger.Warn("settings sync failed", "err", err)
	}

	fmt.Printf("logged in as %s. commands: /chat <username>, /sound, /translate, /quit\n", cfg.Username)
	for _, u := range contacts {
		fmt.Printf("  contact: %s (%s)\n", u.Username, u.FullName)
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "/quit":
			return
		case line == "/sound":
			if err := conv.ToggleSound(ctx); err != nil {
				fmt.Printf("!! %v\n", err)
				continue
			}
			fmt.Printf("sound enabled: %v\n", conv.SoundEnabled())
		case line == "/translate":
			if err := conv.ToggleAutoTranslate(ctx); err != nil {
				fmt.Printf("!! %v\n", err)
				continue
			}
			fmt.Printf("auto-translate enabled: %v\n", conv.AutoTranslateEnabled())
		case strings.HasPrefix(line, "/chat "):
			name := strings.TrimSpace(strings.TrimPrefix(line, "/chat "))
			user, ok := byUsername[name]
			if !ok {
				fmt.Printf("!! unknown user %q\n", name)
				continue
			}
			muted.Store(true)
			if err := conv.SetCounterpart(ctx, user.ID); err != nil {
				muted.Store(false)
				fmt.Printf("!! %v\n", err)
				continue
			}
			conv.Subscribe()
			history := conv.Messages()
			for _, m := range history {
				who := name
				if m.SenderID == api.CurrentUserID() {
					who = "me"
				}
				fmt.Printf("[%s] %s\n", who, m.Text)
			}
			printMu.Lock()
			if len(history) > 0 {
				lastPrintedID = history[len(history)-1].ID
			}
			printMu.Unlock()
			muted.Store(false)
		case line == "":
			// ignore blank lines
		default:
			if _, err := conv.Send(line, ""); err != nil {
				fmt.Printf("!! %v\n", err)
			}
		}
	}
}
