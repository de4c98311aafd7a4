package ergot

import "testing"

func TestNewKeyDeterministic(t *testing.T) {
	a := NewKey("uint32", "ergot/.well-known/ping")
	b := NewKey("uint32", "ergot/.well-known/ping")
	if a != b {
		t.Fatalf("NewKey not deterministic: %v != %v", a, b)
	}
}

func TestNewKeyDistinguishesPathAndSchema(t *testing.T) {
	ping := NewKey("uint32", "ergot/.well-known/ping")
	other := NewKey("uint32", "ergot/.well-known/other")
	if ping == other {
		t.Fatal("different paths collided")
	}
	reschema := NewKey("string", "ergot/.well-known/ping")
	if ping == reschema {
		t.Fatal("different schemas collided")
	}
}

func TestNewNameHashDeterministic(t *testing.T) {
	a := NewNameHash("left-motor")
	b := NewNameHash("left-motor")
	if a != b {
		t.Fatalf("NewNameHash not deterministic: %v != %v", a, b)
	}
	if a == NewNameHash("right-motor") {
		t.Fatal("different names collided")
	}
}
