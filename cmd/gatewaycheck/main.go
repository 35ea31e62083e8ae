package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/park285/cheese-board-client/internal/boardcodec"
	"github.com/park285/cheese-board-client/internal/gateway"
)

func main() {
	session := flag.String("session", "", "lobby/session id to join")
	watch := flag.Duration("watch", 10*time.Second, "how long to observe the push channel")
	flag.Parse()

	baseURL := os.Getenv("GAME_BASE_URL")
	pushURL := os.Getenv("GAME_PUSH_URL")
	playerID := os.Getenv("PLAYER_ID")
	token := os.Getenv("AUTH_TOKEN")

	if baseURL == "" {
		log.Fatal("GAME_BASE_URL is required")
	}

	headers := func() map[string]string {
		m := map[string]string{}
		if playerID != "" {
			m["X-Player-Id"] = playerID
		}
		if token != "" {
			m["Authorization"] = "Bearer " + token
		}
		return m
	}

	client := gateway.NewClient(baseURL,
		gateway.WithHeaderProvider(headers),
		gateway.WithTimeout(8*time.Second),
	)

	if *session != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		resp, err := client.Join(ctx, *session)
		cancel()
		switch {
		case err != nil:
			log.Printf("/join error: %v", err)
		case resp.Error != "":
			log.Printf("/join rejected: %s", resp.Error)
		default:
			if snap, err := boardcodec.Decode(resp.Board); err != nil {
				log.Printf("/join board undecodable: %v", err)
			} else {
				log.Printf("/join ok: pieces=%d board=%s", snap.Len(), boardcodec.Encode(snap))
			}
		}
	}

	if pushURL == "" {
		log.Println("GAME_PUSH_URL not set; skipping push check")
		return
	}

	push := gateway.NewPushChannel(pushURL, 5, time.Second, gateway.WithPushHeaders(headers))
	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := push.Subscribe(cctx); err != nil {
		log.Printf("push subscribe error: %v", err)
		return
	}

	timer := time.NewTimer(*watch)
	defer timer.Stop()
	for {
		select {
		case ev, ok := <-push.Events():
			if !ok {
				return
			}
			fmt.Printf("push event: %#v\n", ev)
		case <-timer.C:
			_ = push.Close(context.Background())
			return
		}
	}
}
