package hardware

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/domain"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/errors"
)

// readTimeout bounds each serial read so the polling loop stays responsive
// to shutdown.
const readTimeout = 50 * time.Millisecond

// PN532Config tunes the UART reader.
type PN532Config struct {
	// PortName is the UART device, e.g. /dev/ttyAMA0.
	PortName string
	// BaudRate defaults to 115200.
	BaudRate int
	// PollInterval between InListPassiveTarget polls (default 200ms).
	PollInterval time.Duration
	// RemovalThreshold is how many consecutive empty polls count as the
	// tag leaving the field (default 3).
	RemovalThreshold int
}

// PN532Reader drives a PN532 NFC board over UART.
type PN532Reader struct {
	cfg    PN532Config
	logger *slog.Logger

	onDetected TagDetectedFunc
	onRemoved  TagRemovedFunc

	mu        sync.Mutex
	port      serial.Port
	detecting bool
	cancel    context.CancelFunc
	done      chan struct{}

	currentTag domain.TagIdentifier
	missPolls  int
	lastError  string
}

var _ ReaderPort = (*PN532Reader)(nil)

// NewPN532Reader creates a reader; the device is not opened until
// StartDetection.
func NewPN532Reader(cfg PN532Config, logger *slog.Logger) *PN532Reader {
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = 115200
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 200 * time.Millisecond
	}
	if cfg.RemovalThreshold <= 0 {
		cfg.RemovalThreshold = 3
	}
	return &PN532Reader{cfg: cfg, logger: logger}
}

// OnTagDetected registers the detection callback.
func (r *PN532Reader) OnTagDetected(fn TagDetectedFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDetected = fn
}

// OnTagRemoved registers the removal callback.
func (r *PN532Reader) OnTagRemoved(fn TagRemovedFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRemoved = fn
}

// StartDetection opens the UART device, wakes and configures the board,
// and starts the polling goroutine.
func (r *PN532Reader) StartDetection(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.detecting {
		return nil
	}

	port, err := serial.Open(r.cfg.PortName, &serial.Mode{
		BaudRate: r.cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		r.lastError = err.Error()
		return errors.HardwareUnavailable("open " + r.cfg.PortName + ": " + err.Error())
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()
		r.lastError = err.Error()
		return errors.HardwareUnavailable("set read timeout: " + err.Error())
	}
	r.port = port

	if err := r.initBoard(); err != nil {
		_ = port.Close()
		r.port = nil
		r.lastError = err.Error()
		return errors.HardwareUnavailable("initialize PN532: " + err.Error())
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	r.detecting = true
	r.lastError = ""

	go r.pollLoop(loopCtx)

	r.logger.Info("NFC detection started",
		"port", r.cfg.PortName,
		"baud_rate", r.cfg.BaudRate,
		"poll_interval", r.cfg.PollInterval,
	)
	return nil
}

// StopDetection halts the polling loop and closes the device.
func (r *PN532Reader) StopDetection() error {
	r.mu.Lock()
	if !r.detecting {
		r.mu.Unlock()
		return nil
	}
	r.detecting = false
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	cancel()
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.port != nil {
		err := r.port.Close()
		r.port = nil
		if err != nil {
			return fmt.Errorf("close serial port: %w", err)
		}
	}
	r.logger.Info("NFC detection stopped", "port", r.cfg.PortName)
	return nil
}

// IsDetecting reports whether the polling loop is running.
func (r *PN532Reader) IsDetecting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.detecting
}

// Status returns a snapshot of the reader state.
func (r *PN532Reader) Status() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := map[string]any{
		"type":          "pn532-uart",
		"port":          r.cfg.PortName,
		"baud_rate":     r.cfg.BaudRate,
		"detecting":     r.detecting,
		"poll_interval": r.cfg.PollInterval.String(),
	}
	if r.currentTag != "" {
		status["current_tag"] = r.currentTag.String()
	}
	if r.lastError != "" {
		status["last_error"] = r.lastError
	}
	return status
}

// initBoard wakes the PN532 and switches its SAM to normal mode. The
// firmware version query doubles as a liveness check.
func (r *PN532Reader) initBoard() error {
	if _, err := r.port.Write(wakeupSequence); err != nil {
		return fmt.Errorf("wakeup write: %w", err)
	}
	time.Sleep(10 * time.Millisecond)

	// SAMConfiguration: normal mode, 1s timeout, no IRQ pin.
	if _, err := r.command(cmdSamConfiguration, []byte{0x01, 0x14, 0x00}); err != nil {
		return fmt.Errorf("sam configuration: %w", err)
	}

	version, err := r.command(cmdGetFirmwareVersion, nil)
	if err != nil {
		return fmt.Errorf("firmware version: %w", err)
	}
	if len(version) >= 3 {
		r.logger.Info("PN532 firmware detected",
			"ic", fmt.Sprintf("0x%02X", version[0]),
			"version", fmt.Sprintf("%d.%d", version[1], version[2]),
		)
	}
	return nil
}

// command sends one frame and reads back the ACK plus the response frame.
func (r *PN532Reader) command(cmd byte, args []byte) ([]byte, error) {
	if _, err := r.port.Write(buildFrame(cmd, args)); err != nil {
		return nil, fmt.Errorf("write command 0x%02X: %w", cmd, err)
	}

	raw, err := r.readFrame()
	if err != nil {
		return nil, err
	}

	// The ACK precedes the response; strip it when present.
	if idx := bytes.Index(raw, ackFrame); idx >= 0 {
		raw = raw[idx+len(ackFrame):]
	}
	return parseFrame(raw, cmd)
}

// readFrame accumulates serial input until a parseable frame arrived or the
// read attempts run out.
func (r *PN532Reader) readFrame() ([]byte, error) {
	buf := make([]byte, 0, 64)
	chunk := make([]byte, 32)

	for attempts := 0; attempts < 40; attempts++ {
		n, err := r.port.Read(chunk)
		if err != nil {
			return nil, fmt.Errorf("serial read: %w", err)
		}
		if n == 0 {
			continue
		}
		buf = append(buf, chunk[:n]...)

		// A complete response holds at least the ACK and a minimal frame.
		if len(buf) >= len(ackFrame)+9 {
			return buf, nil
		}
	}
	if len(buf) > 0 {
		return buf, nil
	}
	return nil, fmt.Errorf("no response from PN532")
}

func (r *PN532Reader) pollLoop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pollOnce()
		}
	}
}

// pollOnce runs one InListPassiveTarget scan and resolves presence edges
// into detected/removed callbacks.
func (r *PN532Reader) pollOnce() {
	r.mu.Lock()
	port := r.port
	r.mu.Unlock()
	if port == nil {
		return
	}

	// One target, 106 kbps type A.
	payload, err := r.command(cmdInListPassiveTarget, []byte{0x01, 0x00})
	if err != nil {
		r.mu.Lock()
		r.lastError = err.Error()
		r.mu.Unlock()
		return
	}

	uid := parsePassiveTarget(payload)
	if uid == nil {
		r.handleFieldEmpty()
		return
	}

	identifier, err := domain.TagIdentifierFromHardware(hex.EncodeToString(uid))
	if err != nil {
		r.logger.Warn("Discarding unusable tag UID", "uid", hex.EncodeToString(uid), "error", err)
		return
	}
	r.handleTagPresent(identifier)
}

func (r *PN532Reader) handleTagPresent(identifier domain.TagIdentifier) {
	r.mu.Lock()
	previous := r.currentTag
	r.currentTag = identifier
	r.missPolls = 0
	onDetected := r.onDetected
	onRemoved := r.onRemoved
	r.mu.Unlock()

	if previous == identifier {
		// Same tag still on the reader; detection already reported.
		return
	}
	if previous != "" && onRemoved != nil {
		onRemoved(previous)
	}
	r.logger.Debug("Tag entered field", "tag_id", identifier.String())
	if onDetected != nil {
		onDetected(identifier)
	}
}

func (r *PN532Reader) handleFieldEmpty() {
	r.mu.Lock()
	if r.currentTag == "" {
		r.mu.Unlock()
		return
	}
	r.missPolls++
	if r.missPolls < r.cfg.RemovalThreshold {
		r.mu.Unlock()
		return
	}
	removed := r.currentTag
	r.currentTag = ""
	r.missPolls = 0
	onRemoved := r.onRemoved
	r.mu.Unlock()

	r.logger.Debug("Tag left field", "tag_id", removed.String())
	if onRemoved != nil {
		onRemoved(removed)
	}
}
