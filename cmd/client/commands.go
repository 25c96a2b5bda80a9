package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"linkinbio-service/internal/client"
	"linkinbio-service/internal/protocol"

	"github.com/spf13/cobra"
)

func (o *options) userToken() string {
	if o.token != "" {
		return o.token
	}
	return o.user
}

func (o *options) requireUser() error {
	if o.user == "" {
		return errors.New("--user is required")
	}
	return nil
}

// websocketURL turns http(s)://host into ws(s)://host/<wsPath>.
func (o *options) websocketURL() (string, error) {
	u, err := url.Parse(o.server)
	if err != nil {
		return "", fmt.Errorf("invalid --server: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + o.wsPath
	return u.String(), nil
}

// follow connects, subscribes to the user channel and prints every update
// until ctx ends.
func follow(ctx context.Context, o *options, ready chan<- struct{}) error {
	wsURL, err := o.websocketURL()
	if err != nil {
		return err
	}

	c := client.New(client.Config{URL: wsURL, WebsocketToken: o.websocketToken})
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Disconnect(shutdown)
	}()

	if err := c.Subscribe(ctx, o.user, o.userToken()); err != nil {
		return err
	}
	fmt.Printf("subscribed to %s as client %s\n", protocol.UserChannel(o.user), c.ClientID())
	if ready != nil {
		close(ready)
	}

	lost := make(chan error, 1)
	go func() {
		_, err := c.AwaitState(ctx, func(s client.State) bool { return s == client.Disconnected })
		lost <- err
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-lost:
			if err != nil {
				return nil
			}
			return client.ErrClientClosed
		case ev := <-c.Updates():
			post := ev.Data.Data.Post
			fmt.Printf("<- %s %s url=%s image=%s\n", ev.Data.Name, post.ID, post.URL, post.Image)
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func watchCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print post updates of a user until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.requireUser(); err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			return follow(ctx, o, nil)
		},
	}
}

func listCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the posts of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.requireUser(); err != nil {
				return err
			}
			api := client.NewPostsAPI(o.server, o.userToken(), nil)
			posts, err := api.List(cmd.Context(), o.user)
			if err != nil {
				return err
			}
			for _, p := range posts {
				fmt.Printf("%s\t%s\t%s\n", p.ID, p.URL, p.Image)
			}
			return nil
		},
	}
}

func demoCmd(o *options) *cobra.Command {
	var (
		rounds int
		pause  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Create, list, update and delete posts while printing pushed updates",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.requireUser(); err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			ready := make(chan struct{})
			done := make(chan error, 1)
			go func() { done <- follow(ctx, o, ready) }()

			select {
			case <-ready:
			case err := <-done:
				return err
			}

			api := client.NewPostsAPI(o.server, o.userToken(), nil)
			for i := 0; i < rounds && ctx.Err() == nil; i++ {
				if err := demoRound(ctx, api, o.user, i); err != nil {
					cancel()
					<-done
					return err
				}
				time.Sleep(pause)
			}

			cancel()
			return <-done
		},
	}

	cmd.Flags().IntVar(&rounds, "rounds", 3, "number of create/update/delete rounds")
	cmd.Flags().DurationVar(&pause, "pause", time.Second, "pause between rounds")

	return cmd
}

func demoRound(ctx context.Context, api *client.PostsAPI, user string, i int) error {
	created, err := api.Create(ctx, fmt.Sprintf("https://example.com/%d", i), "")
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	fmt.Printf("-> created %s\n", created.ID)

	posts, err := api.List(ctx, user)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	fmt.Printf("-> %d posts\n", len(posts))

	if _, err := api.Update(ctx, created.ID, fmt.Sprintf("https://example.com/%d/edited", i), "cover.png"); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	fmt.Printf("-> updated %s\n", created.ID)

	if _, err := api.Delete(ctx, created.ID); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	fmt.Printf("-> deleted %s\n", created.ID)
	return nil
}
