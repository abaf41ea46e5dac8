package address

import "testing"

func TestCanonicalizeAppendsDefaultPort(t *testing.T) {
	if got, want := Address("localhost").Canonicalize(), Address("localhost:27017"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCanonicalizeKeepsExplicitPort(t *testing.T) {
	if got, want := Address("db1:27018").Canonicalize(), Address("db1:27018"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCanonicalizeLowercases(t *testing.T) {
	if got, want := Address("DB1.Example.com:27017").Canonicalize(), Address("db1.example.com:27017"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParseSeedList(t *testing.T) {
	got := ParseSeedList("a:1,b,c:3")
	want := []Address{"a:1", "b:27017", "c:3"}
	if len(got) != len(want) {
		t.Fatalf("got %d addresses, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseSeedListEmpty(t *testing.T) {
	if got := ParseSeedList(""); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

func TestParseSeedListSkipsBlankEntries(t *testing.T) {
	got := ParseSeedList("a:1,, b:2 ,")
	want := []Address{"a:1", "b:2"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
