package hardware

import (
	"bytes"
	"fmt"
)

// PN532 protocol constants.
const (
	hostToPn532 = 0xD4
	pn532ToHost = 0xD5

	cmdSamConfiguration    = 0x14
	cmdGetFirmwareVersion  = 0x02
	cmdInListPassiveTarget = 0x4A
)

// ackFrame is the fixed acknowledgement the PN532 sends after a valid
// command frame.
var ackFrame = []byte{0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00}

// wakeupSequence is the dummy preamble that brings the PN532 out of
// low-power mode over UART.
var wakeupSequence = []byte{
	0x55, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

// buildFrame wraps a command and its arguments in the PN532 normal
// information frame: preamble, length + checksum, TFI, payload, data
// checksum, postamble.
func buildFrame(cmd byte, args []byte) []byte {
	length := byte(len(args) + 2) // TFI + command

	frame := make([]byte, 0, len(args)+9)
	frame = append(frame, 0x00, 0x00, 0xFF)
	frame = append(frame, length, ^length+1)
	frame = append(frame, hostToPn532, cmd)
	frame = append(frame, args...)

	sum := hostToPn532 + cmd
	for _, b := range args {
		sum += b
	}
	frame = append(frame, ^sum+1, 0x00)
	return frame
}

// parseFrame extracts the response payload (command echo stripped) from a
// raw PN532 information frame. It tolerates leading garbage before the
// 00 00 FF start sequence, which the UART link commonly produces.
func parseFrame(raw []byte, cmd byte) ([]byte, error) {
	start := bytes.Index(raw, []byte{0x00, 0x00, 0xFF})
	if start < 0 {
		return nil, fmt.Errorf("no frame start in %d bytes", len(raw))
	}
	frame := raw[start+3:]
	if len(frame) < 2 {
		return nil, fmt.Errorf("frame truncated before length")
	}

	length := frame[0]
	if byte(length+frame[1]) != 0 {
		return nil, fmt.Errorf("length checksum mismatch")
	}
	if len(frame) < int(length)+3 {
		return nil, fmt.Errorf("frame truncated: want %d payload bytes, have %d", length, len(frame)-2)
	}

	payload := frame[2 : 2+length]
	if payload[0] != pn532ToHost {
		return nil, fmt.Errorf("unexpected frame direction 0x%02X", payload[0])
	}
	if payload[1] != cmd+1 {
		return nil, fmt.Errorf("response 0x%02X does not match command 0x%02X", payload[1], cmd)
	}

	var sum byte
	for _, b := range payload {
		sum += b
	}
	if byte(sum+frame[2+length]) != 0 {
		return nil, fmt.Errorf("data checksum mismatch")
	}

	return payload[2:], nil
}

// parsePassiveTarget extracts the UID bytes from an InListPassiveTarget
// response. Returns nil when no target was found.
func parsePassiveTarget(payload []byte) []byte {
	// NbTg, Tg, SENS_RES (2), SEL_RES, NFCIDLength, NFCID1...
	if len(payload) < 1 || payload[0] == 0 {
		return nil
	}
	if len(payload) < 6 {
		return nil
	}
	uidLen := int(payload[5])
	if uidLen == 0 || len(payload) < 6+uidLen {
		return nil
	}
	return payload[6 : 6+uidLen]
}
