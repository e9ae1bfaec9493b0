package anysim

import "testing"

func TestMessageEqualAndHash(t *testing.T) {
	a := Message{Tag: "PING", Data: "0"}
	b := Message{Tag: "PING", Data: "0"}
	c := Message{Tag: "PING", Data: "1"}

	if !a.Equal(b) {
		t.Fatalf("expected %v to equal %v", a, b)
	}
	if a.Hash() != b.Hash() {
		t.Fatalf("expected equal messages to hash equal: %d != %d", a.Hash(), b.Hash())
	}
	if a.Equal(c) {
		t.Fatalf("expected %v to differ from %v", a, c)
	}
	if a.Hash() == c.Hash() {
		t.Fatalf("expected differing messages to hash differently (collision is allowed but this case should not collide)")
	}
}

func TestMessageString(t *testing.T) {
	m := Message{Tag: "PONG", Data: "7"}
	if got, want := m.String(), "PONG{7}"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
