package capture

import "bytes"

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

// frameAssembler rebuilds JPEG frames from per-camera packet streams.
// A packet starting with the JPEG SOI marker starts a new frame; a packet
// ending with the EOI marker completes it.
type frameAssembler struct {
	buffers map[string]*bytes.Buffer
}

func newFrameAssembler() *frameAssembler {
	return &frameAssembler{buffers: make(map[string]*bytes.Buffer)}
}

// Push adds a packet for camera and returns the frame it completes, if any.
func (a *frameAssembler) Push(camera string, packet []byte) ([]byte, bool) {
	buf, ok := a.buffers[camera]
	if !ok {
		buf = new(bytes.Buffer)
		a.buffers[camera] = buf
	}

	if bytes.HasPrefix(packet, jpegHeader) {
		buf.Reset()
	} else if buf.Len() == 0 {
		// middle of a frame we never saw the start of
		return nil, false
	}
	buf.Write(packet)

	if !bytes.HasSuffix(packet, jpegFooter) {
		return nil, false
	}
	frame := make([]byte, buf.Len())
	copy(frame, buf.Bytes())
	buf.Reset()
	return frame, true
}
