package vm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Module images
// ---------------------------------------------------------------------------

// ImageMagic prefixes every module image.
var ImageMagic = []byte("TERN\x01")

// ErrBadImage reports data that is not a module image.
var ErrBadImage = errors.New("not a tern module image")

// cborEncMode uses canonical encoding so equal modules encode identically.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// ModuleID derives the content identity of a module: a SHA-1 name-based
// UUID of its canonical encoding with the ID field cleared.
func ModuleID(m *Module) (string, error) {
	clone := *m
	clone.ID = ""
	body, err := cborEncMode.Marshal(&clone)
	if err != nil {
		return "", fmt.Errorf("vm: encode module %s: %w", m.Name, err)
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, body).String(), nil
}

// EncodeImage stamps m with its ID and serializes it.
func EncodeImage(m *Module) ([]byte, error) {
	id, err := ModuleID(m)
	if err != nil {
		return nil, err
	}
	m.ID = id
	body, err := cborEncMode.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("vm: encode module %s: %w", m.Name, err)
	}
	return append(append([]byte(nil), ImageMagic...), body...), nil
}

// DecodeImage parses an image and checks its ID against its content.
func DecodeImage(data []byte) (*Module, error) {
	if !bytes.HasPrefix(data, ImageMagic) {
		return nil, ErrBadImage
	}
	var m Module
	if err := cbor.Unmarshal(data[len(ImageMagic):], &m); err != nil {
		return nil, fmt.Errorf("vm: decode image: %w", err)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("%w: module %s has no id", ErrBadImage, m.Name)
	}
	id, err := ModuleID(&m)
	if err != nil {
		return nil, err
	}
	if id != m.ID {
		return nil, fmt.Errorf("%w: module %s: content does not match id %s", ErrBadImage, m.Name, m.ID)
	}
	return &m, nil
}

// WriteImage writes m to w.
func WriteImage(w io.Writer, m *Module) error {
	data, err := EncodeImage(m)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// SaveImage writes m to path atomically: the image is written to a
// temporary file in the same directory and renamed into place.
func SaveImage(path string, m *Module) error {
	data, err := EncodeImage(m)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tern-image-*")
	if err != nil {
		return fmt.Errorf("vm: save image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("vm: save image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("vm: save image: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("vm: save image: %w", err)
	}
	return nil
}

// LoadImage reads an image file.
func LoadImage(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vm: load image: %w", err)
	}
	m, err := DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
