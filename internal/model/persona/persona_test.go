package persona

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSeedPoolsAreLargeEnough(t *testing.T) {
	p := Seed()[0]
	pools := map[string][]string{
		"greetings":        p.Greetings,
		"farewells":        p.Farewells,
		"positiveMood":     p.PositiveMood,
		"reciprocation":    p.Reciprocation,
		"casualDeflection": p.CasualDeflection,
		"shortInput":       p.ShortInput,
		"apologies":        p.Apologies,
	}
	for name, pool := range pools {
		if len(pool) < 5 {
			t.Fatalf("pool %s has %d entries", name, len(pool))
		}
	}
}

func TestLoadFileFillsMissingPools(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	content := `personas:
  - id: sunny
    name: Sunny
    greetings:
      - "Hey sunshine!"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	items, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 persona, got %d", len(items))
	}
	p := items[0]
	if p.ID != "sunny" || p.Name != "Sunny" {
		t.Fatalf("unexpected persona %+v", p)
	}
	if len(p.Greetings) != 1 || p.Greetings[0] != "Hey sunshine!" {
		t.Fatalf("greetings overwritten: %v", p.Greetings)
	}
	if len(p.Farewells) != len(Lumi().Farewells) {
		t.Fatalf("expected default farewells, got %v", p.Farewells)
	}
	if p.Identity != Lumi().Identity {
		t.Fatal("expected default identity text")
	}
}

func TestLoadFileRejectsMissingID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	if err := os.WriteFile(path, []byte("personas:\n  - name: Nobody\n"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadFile(path); !errors.Is(err, ErrInvalidPersona) {
		t.Fatalf("expected ErrInvalidPersona, got %v", err)
	}
}

func TestMemoryStoreFind(t *testing.T) {
	store := NewMemoryStore(Seed())
	if _, ok := store.FindByID(DefaultID); !ok {
		t.Fatal("expected lumi persona")
	}
	if _, ok := store.FindByID("missing"); ok {
		t.Fatal("expected missing persona lookup to fail")
	}
	list := store.List()
	list[0].Name = "changed"
	if p, _ := store.FindByID(DefaultID); p.Name != "Lumi" {
		t.Fatal("List leaked internal slice")
	}
}
