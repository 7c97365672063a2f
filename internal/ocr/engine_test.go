package ocr

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestPresets_OrderAndCoverage(t *testing.T) {
	presets := Presets()

	wantNames := []string{"single-default", "single-lstm-title", "block-default", "raw-lstm"}
	if len(presets) != len(wantNames) {
		t.Fatalf("preset count: got %d, want %d", len(presets), len(wantNames))
	}
	for i, p := range presets {
		if p.Name != wantNames[i] {
			t.Errorf("preset %d: got %q, want %q", i, p.Name, wantNames[i])
		}
	}

	lineModes := map[LineMode]bool{}
	engineModes := map[EngineMode]bool{}
	whitelisted := false
	for _, p := range presets {
		lineModes[p.LineMode] = true
		engineModes[p.EngineMode] = true
		if p.Whitelist != "" {
			whitelisted = true
		}
	}
	if len(lineModes) < 3 {
		t.Errorf("line modes covered: got %d, want 3", len(lineModes))
	}
	if len(engineModes) < 2 {
		t.Errorf("engine modes covered: got %d, want 2", len(engineModes))
	}
	if !whitelisted {
		t.Error("no preset carries the title whitelist")
	}
}

func TestPresets_Stable(t *testing.T) {
	a, b := Presets(), Presets()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("preset %d differs between calls: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestLineModeString(t *testing.T) {
	tests := []struct {
		mode LineMode
		want string
	}{
		{LineSingle, "single-line"},
		{LineBlock, "block"},
		{LineRaw, "raw-line"},
		{LineMode(9), "line-mode(9)"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("LineMode(%d).String(): got %q, want %q", int(tt.mode), got, tt.want)
		}
	}
}

func TestEngineModeString(t *testing.T) {
	tests := []struct {
		mode EngineMode
		want string
	}{
		{EngineDefault, "default"},
		{EngineLSTM, "lstm"},
		{EngineMode(7), "engine-mode(7)"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("EngineMode(%d).String(): got %q, want %q", int(tt.mode), got, tt.want)
		}
	}
}

func TestEncodePNG(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 6))
	img.SetGray(3, 2, color.Gray{Y: 200})

	data, err := encodePNG(img)
	if err != nil {
		t.Fatalf("encodePNG failed: %v", err)
	}

	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding output failed: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
		t.Errorf("decoded size: got %dx%d, want 8x6", b.Dx(), b.Dy())
	}
	if g, _, _, _ := decoded.At(3, 2).RGBA(); uint8(g>>8) != 200 {
		t.Errorf("decoded pixel: got %d, want 200", uint8(g>>8))
	}
}

func TestNew_KnownBackends(t *testing.T) {
	eng, err := New(context.Background(), BackendTesseract, Options{})
	if err != nil {
		t.Fatalf("tesseract backend: %v", err)
	}
	if eng.Name() != BackendTesseract {
		t.Errorf("name: got %q, want %q", eng.Name(), BackendTesseract)
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	if _, err := New(context.Background(), "clippy", Options{}); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}
