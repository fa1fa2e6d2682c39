package main

import (
	"errors"
	"testing"

	"github.com/park285/cheese-relay/pkg/chessproto"
)

func TestChooseTail(t *testing.T) {
	open := &chessproto.StateSnapshot{White: true}
	full := &chessproto.StateSnapshot{White: true, Black: true}

	cases := []struct {
		name  string
		snap  *chessproto.StateSnapshot
		redis string
		join  bool
		want  tailMode
		err   error
	}{
		{"free seat refuses socket", open, "", false, tailNone, errSeatOpen},
		{"free seat with join", open, "", true, tailSocket, nil},
		{"both seats taken", full, "", false, tailSocket, nil},
		{"redis preferred", open, "redis://localhost:6379", false, tailRedis, nil},
		{"redis preferred even with join", full, "redis://localhost:6379", true, tailRedis, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := chooseTail(tc.snap, tc.redis, tc.join)
			if got != tc.want || !errors.Is(err, tc.err) {
				t.Fatalf("chooseTail = %v, %v; want %v, %v", got, err, tc.want, tc.err)
			}
		})
	}
}

func TestHeaderFlags(t *testing.T) {
	h := headerFlags{}
	if err := h.Set("Authorization: Bearer abc:def"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := h.provider()()["Authorization"]; got != "Bearer abc:def" {
		t.Fatalf("header value: %q", got)
	}
	for _, bad := range []string{"NoColon", ": value", "Name:"} {
		if err := h.Set(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestWSURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:3000":  "ws://localhost:3000/ws",
		"https://chess.example/": "wss://chess.example/ws",
	}
	for in, want := range cases {
		if got := wsURL(in); got != want {
			t.Fatalf("wsURL(%q) = %q, want %q", in, got, want)
		}
	}
}
