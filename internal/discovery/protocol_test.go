package discovery

import (
	"reflect"
	"testing"
)

func TestIsRequest(t *testing.T) {
	cases := map[string]bool{
		RequestMarker:                  true,
		RequestMarker + "\n":           false,
		"discover_localbrowser_server": false,
		"":                             false,
	}
	for in, want := range cases {
		if got := IsRequest([]byte(in)); got != want {
			t.Errorf("IsRequest(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestEncodeResponse(t *testing.T) {
	if got := string(EncodeResponse(nil)); got != ResponseMarker {
		t.Errorf("empty list encoded as %q", got)
	}
	got := string(EncodeResponse([]string{"192.168.1.10", "10.0.0.5"}))
	if got != "LOCALBROWSER_SERVER_HERE:192.168.1.10,10.0.0.5" {
		t.Errorf("unexpected encoding %q", got)
	}
}

func TestParseResponse(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		addrs []string
		ok    bool
	}{
		{"bare legacy", "LOCALBROWSER_SERVER_HERE", nil, true},
		{"single", "LOCALBROWSER_SERVER_HERE:192.168.1.10", []string{"192.168.1.10"}, true},
		{"multiple", "LOCALBROWSER_SERVER_HERE:192.168.1.10,10.0.0.5", []string{"192.168.1.10", "10.0.0.5"}, true},
		{"spaces and duplicates", "LOCALBROWSER_SERVER_HERE: 10.0.0.5 ,10.0.0.5", []string{"10.0.0.5"}, true},
		{"invalid entries dropped", "LOCALBROWSER_SERVER_HERE:bogus,::1,10.0.0.7", []string{"10.0.0.7"}, true},
		{"empty list", "LOCALBROWSER_SERVER_HERE:", nil, true},
		{"glued suffix", "LOCALBROWSER_SERVER_HEREX", nil, false},
		{"unrelated", "hello", nil, false},
		{"request echoed", RequestMarker, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			addrs, ok := ParseResponse([]byte(tc.in))
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if !reflect.DeepEqual(addrs, tc.addrs) {
				t.Fatalf("addrs = %v, want %v", addrs, tc.addrs)
			}
		})
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	in := []string{"192.168.0.2", "172.16.4.1"}
	out, ok := ParseResponse(EncodeResponse(in))
	if !ok || !reflect.DeepEqual(out, in) {
		t.Fatalf("round trip = %v, %v", out, ok)
	}
}

func TestOrderForPutsArrivalInterfaceFirst(t *testing.T) {
	addrs := []InterfaceAddr{
		{IP: "10.0.0.1", Index: 2},
		{IP: "192.168.1.5", Index: 3},
		{IP: "192.168.1.6", Index: 3},
	}
	got := orderFor(addrs, 3)
	want := []string{"192.168.1.5", "192.168.1.6", "10.0.0.1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("orderFor = %v, want %v", got, want)
	}
	if got := orderFor(addrs, 0); got[0] != "10.0.0.1" {
		t.Errorf("unknown interface should keep enumeration order, got %v", got)
	}
}

func TestLocalIPv4AddrsExcludesLoopback(t *testing.T) {
	addrs, err := LocalIPv4Addrs()
	if err != nil {
		t.Fatalf("enumerate: %v", err)
	}
	for _, a := range addrs {
		if a.IP == "127.0.0.1" {
			t.Fatalf("loopback address returned: %+v", addrs)
		}
	}
}
