package vm

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sampleModule(greeting string) *Module {
	b := NewModuleBuilder("sample")
	b.DeclareStaticField("count", "i64")
	main, body := b.DeclareMethod("main", nil, "void")
	body.DeclareLocal("x", "f64")
	body.Append(Ins(OpPushConst, b.Constant(StringConst(greeting))))
	body.Append(Ins(OpCallNative, b.Native("std.io.println(string)")))
	body.Append(Ins(OpPushConst, b.Constant(FloatConst(-0.5))))
	body.Append(Ins(OpStoreLocal, 0))
	body.Append(Ins(OpPOP, 0))
	body.Append(Ins(OpReturnVoid, 0))
	b.SetEntry(main)
	return b.Module()
}

func TestImageRoundTrip(t *testing.T) {
	m := sampleModule("hi")
	path := filepath.Join(t.TempDir(), "sample.ternc")
	if err := SaveImage(path, m); err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if m.ID == "" {
		t.Fatal("SaveImage did not stamp the module id")
	}

	loaded, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if loaded.ID != m.ID {
		t.Errorf("ID = %s, want %s", loaded.ID, m.ID)
	}
	if got, want := DisassembleModule(loaded), DisassembleModule(m); got != want {
		t.Errorf("loaded module differs:\n%s\nwant:\n%s", got, want)
	}

	var out bytes.Buffer
	machine, err := NewMachine(loaded, WithOutput(&out))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := machine.Run(); err != nil || out.String() != "hi\n" {
		t.Errorf("run loaded image: %q, %v", out.String(), err)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestModuleIDIsContentDerived(t *testing.T) {
	a, err := ModuleID(sampleModule("hi"))
	if err != nil {
		t.Fatal(err)
	}
	b, _ := ModuleID(sampleModule("hi"))
	c, _ := ModuleID(sampleModule("bye"))
	if a != b {
		t.Errorf("equal modules have different ids: %s, %s", a, b)
	}
	if a == c {
		t.Error("different modules share an id")
	}

	stamped := sampleModule("hi")
	stamped.ID = "something"
	if id, _ := ModuleID(stamped); id != a {
		t.Error("the id must not depend on the previous id")
	}
}

func TestDecodeRejectsBadImages(t *testing.T) {
	if _, err := DecodeImage([]byte("MAGG\x01rest")); !errors.Is(err, ErrBadImage) {
		t.Errorf("bad magic: err = %v", err)
	}
	if _, err := DecodeImage(append(append([]byte(nil), ImageMagic...), 0xff, 0x00)); err == nil {
		t.Error("garbage body should fail")
	}

	// Content altered after stamping no longer matches its id.
	m := sampleModule("hi")
	if _, err := EncodeImage(m); err != nil {
		t.Fatal(err)
	}
	m.Name = "tampered"
	body, err := cborEncMode.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	_, err = DecodeImage(append(append([]byte(nil), ImageMagic...), body...))
	if !errors.Is(err, ErrBadImage) || !strings.Contains(err.Error(), "does not match") {
		t.Errorf("tampered image: err = %v", err)
	}

	// An image whose id was stripped cannot be verified.
	m.ID = ""
	body, err = cborEncMode.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	_, err = DecodeImage(append(append([]byte(nil), ImageMagic...), body...))
	if !errors.Is(err, ErrBadImage) || !strings.Contains(err.Error(), "no id") {
		t.Errorf("image without id: err = %v", err)
	}
}

func TestLoadImageMissingFile(t *testing.T) {
	if _, err := LoadImage(filepath.Join(t.TempDir(), "nope.ternc")); err == nil {
		t.Error("missing file should fail")
	}
}
