package capture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"net"
	"testing"
	"time"

	"zonewatch/internal/config"
	"zonewatch/internal/logger"
)

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func chunks(data []byte, size int) [][]byte {
	var out [][]byte
	for len(data) > size {
		out = append(out, data[:size])
		data = data[size:]
	}
	return append(out, data)
}

func TestFrameAssembler_Push(t *testing.T) {
	a := newFrameAssembler()
	frame := []byte{0xFF, 0xD8, 1, 2, 3, 4, 0xFF, 0xD9}

	if _, ok := a.Push("cam", frame[:3]); ok {
		t.Fatal("frame completed early")
	}
	if _, ok := a.Push("cam", frame[3:6]); ok {
		t.Fatal("frame completed early")
	}
	got, ok := a.Push("cam", frame[6:])
	if !ok || !bytes.Equal(got, frame) {
		t.Fatalf("expected %v, got %v (%v)", frame, got, ok)
	}
}

func TestFrameAssembler_NewHeaderRestartsFrame(t *testing.T) {
	a := newFrameAssembler()
	a.Push("cam", []byte{0xFF, 0xD8, 9, 9})

	frame := []byte{0xFF, 0xD8, 1, 0xFF, 0xD9}
	got, ok := a.Push("cam", frame)
	if !ok || !bytes.Equal(got, frame) {
		t.Fatalf("expected %v, got %v", frame, got)
	}
}

func TestFrameAssembler_IgnoresOrphanPackets(t *testing.T) {
	a := newFrameAssembler()
	if _, ok := a.Push("cam", []byte{1, 2, 0xFF, 0xD9}); ok {
		t.Fatal("orphan tail produced a frame")
	}
}

func TestFrameAssembler_SeparatesCameras(t *testing.T) {
	a := newFrameAssembler()
	a.Push("front", []byte{0xFF, 0xD8, 1})
	a.Push("back", []byte{0xFF, 0xD8, 2})

	got, ok := a.Push("front", []byte{3, 0xFF, 0xD9})
	if !ok || !bytes.Equal(got, []byte{0xFF, 0xD8, 1, 3, 0xFF, 0xD9}) {
		t.Fatalf("unexpected front frame %v", got)
	}
}

func TestUDPSource_ReceivesFrame(t *testing.T) {
	cfg := &config.Config{CamerasPort: 0, CameraNames: map[string]string{"127.0.0.1": "porch"}}
	src := NewUDPSource(cfg, logger.NewDiscard())
	if err := src.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	port := src.Addr().(*net.UDPAddr).Port
	conn, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	data := testJPEG(t, 64, 48)
	for _, packet := range chunks(data, 512) {
		if _, err := conn.Write(packet); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	frame, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if frame.Camera != "porch" {
		t.Errorf("expected camera porch, got %q", frame.Camera)
	}
	if frame.Width != 64 || frame.Height != 48 {
		t.Errorf("expected 64x48, got %dx%d", frame.Width, frame.Height)
	}
	if !bytes.Equal(frame.Data, data) || frame.Seq != 1 {
		t.Errorf("frame data or sequence mismatch (seq %d)", frame.Seq)
	}
}

func TestUDPSource_NextHonorsContext(t *testing.T) {
	src := NewUDPSource(&config.Config{}, logger.NewDiscard())
	if err := src.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := src.Next(ctx); err == nil {
		t.Fatal("expected context error")
	}
}

func TestUDPSource_NextBeforeOpen(t *testing.T) {
	src := NewUDPSource(&config.Config{}, logger.NewDiscard())
	if _, err := src.Next(context.Background()); err == nil {
		t.Fatal("expected error from unopened source")
	}
}
