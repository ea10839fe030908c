package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/upward-game/leaderboard/internal/leaderboard"
)

func TestExtract(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader(`{"a":{"name":"X","time":1},"b":{"name":"Y","time":2}}`)
	if err := extract(in, &out); err != nil {
		t.Fatalf("extract: %v", err)
	}

	want := "{\"name\":\"X\",\"time\":1}\n{\"name\":\"Y\",\"time\":2}\n"
	if out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
}

func TestTerminalDisplay(t *testing.T) {
	var out, status bytes.Buffer
	d := terminalDisplay{out: &out, status: &status}

	d.SetText(leaderboard.LoadingText)
	d.SetText(leaderboard.EmptyText)

	if !strings.Contains(status.String(), leaderboard.LoadingText) {
		t.Errorf("loading text not on status writer: %q", status.String())
	}
	if out.String() != leaderboard.EmptyText+"\n" {
		t.Errorf("board = %q", out.String())
	}
}
