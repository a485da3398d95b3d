package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"net"
	"strconv"
	"time"

	"zonewatch/internal/config"
	"zonewatch/internal/logger"
	"zonewatch/internal/service"
)

const (
	maxPacketSize = 65507
	pollInterval  = 500 * time.Millisecond
)

// UDPSource receives JPEG frames that cameras send as a stream of UDP packets.
type UDPSource struct {
	port        int
	cameraNames map[string]string
	logger      *logger.Logger

	conn      *net.UDPConn
	assembler *frameAssembler
	buffer    []byte
	seq       uint64
}

func NewUDPSource(cfg *config.Config, logger *logger.Logger) *UDPSource {
	return &UDPSource{
		port:        cfg.CamerasPort,
		cameraNames: cfg.CameraNames,
		logger:      logger,
	}
}

func (s *UDPSource) Open(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", ":"+strconv.Itoa(s.port))
	if err != nil {
		return fmt.Errorf("resolve udp address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listen on udp port %d: %w", s.port, err)
	}

	s.conn = conn
	s.assembler = newFrameAssembler()
	s.buffer = make([]byte, maxPacketSize)
	s.logger.Info("UDP camera source listening on %s", conn.LocalAddr())
	return nil
}

// Addr returns the bound address once the source is open.
func (s *UDPSource) Addr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Next blocks until a complete frame arrives from any camera.
func (s *UDPSource) Next(ctx context.Context) (service.Frame, error) {
	if s.conn == nil {
		return service.Frame{}, errors.New("udp source is not open")
	}

	for {
		if err := ctx.Err(); err != nil {
			return service.Frame{}, err
		}

		if err := s.conn.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
			return service.Frame{}, fmt.Errorf("set read deadline: %w", err)
		}
		n, remoteAddr, err := s.conn.ReadFromUDP(s.buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return service.Frame{}, fmt.Errorf("read udp packet: %w", err)
		}

		camera := s.cameraName(remoteAddr)
		data, complete := s.assembler.Push(camera, s.buffer[:n])
		if !complete {
			continue
		}

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			s.logger.Warning("Dropping corrupt frame from camera %s: %v", camera, err)
			continue
		}

		s.seq++
		return service.Frame{
			Data:       data,
			Width:      cfg.Width,
			Height:     cfg.Height,
			Camera:     camera,
			Seq:        s.seq,
			CapturedAt: time.Now(),
		}, nil
	}
}

func (s *UDPSource) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *UDPSource) cameraName(addr *net.UDPAddr) string {
	ip := addr.IP.String()
	if name, ok := s.cameraNames[ip]; ok {
		return name
	}
	return "unknown_" + ip
}
