package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/upward-game/leaderboard/internal/remote"
)

// Config
const (
	DEFAULT_URL = "http://localhost:8080"
	RUNS        = 25
)

var names = []string{"Ada", "Bo", "Cyd", "Dee", "Eli", "Fox", "", "Gus", "Hal", "Ivy"}

func main() {
	baseURL := flag.String("url", DEFAULT_URL, "leaderboard database URL")
	runs := flag.Int("n", RUNS, "number of runs to submit")
	flag.Parse()

	client := remote.NewClient(remote.ClientConfig{BaseURL: *baseURL, Timeout: 5 * time.Second})
	ctx := context.Background()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	ok := 0
	for i := 0; i < *runs; i++ {
		name := names[rng.Intn(len(names))]
		// Runs between 45s and 6m
		seconds := 45 + rng.Float64()*315

		if client.Submit(ctx, name, seconds) {
			ok++
		} else {
			log.Printf("Submit %d (%q, %.3f) failed", i, name, seconds)
		}
	}
	fmt.Printf("Submitted %d/%d runs to %s\n", ok, *runs, client.BaseURL())

	top, err := client.FetchTop(ctx, 10)
	if err != nil {
		log.Fatalf("Fetch failed: %v", err)
	}
	for i, rec := range top {
		fmt.Printf("%2d. %-12s %.3f\n", i+1, rec.DisplayName(), rec.Time)
	}
}
