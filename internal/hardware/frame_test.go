package hardware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFrame(t *testing.T) {
	frame := buildFrame(cmdGetFirmwareVersion, nil)

	// Preamble and start code.
	assert.Equal(t, []byte{0x00, 0x00, 0xFF}, frame[:3])
	// Length covers TFI + command; its checksum must cancel it.
	assert.Equal(t, byte(2), frame[3])
	assert.Zero(t, byte(frame[3]+frame[4]))
	// Direction byte and command.
	assert.Equal(t, byte(hostToPn532), frame[5])
	assert.Equal(t, byte(cmdGetFirmwareVersion), frame[6])
	// Data checksum cancels the payload sum; postamble closes the frame.
	assert.Zero(t, byte(hostToPn532+cmdGetFirmwareVersion+frame[7]))
	assert.Equal(t, byte(0x00), frame[8])
}

func TestBuildFrame_WithArgs(t *testing.T) {
	args := []byte{0x01, 0x00}
	frame := buildFrame(cmdInListPassiveTarget, args)

	assert.Equal(t, byte(4), frame[3])

	var sum byte
	for _, b := range frame[5 : 5+4] {
		sum += b
	}
	assert.Zero(t, byte(sum+frame[9]))
}

// responseFrame builds a PN532-to-host frame the way the board would.
func responseFrame(cmd byte, data []byte) []byte {
	length := byte(len(data) + 2)
	frame := []byte{0x00, 0x00, 0xFF, length, ^length + 1, pn532ToHost, cmd + 1}
	frame = append(frame, data...)

	sum := byte(pn532ToHost + cmd + 1)
	for _, b := range data {
		sum += b
	}
	return append(frame, ^sum+1, 0x00)
}

func TestParseFrame(t *testing.T) {
	raw := responseFrame(cmdGetFirmwareVersion, []byte{0x32, 0x01, 0x06, 0x07})

	payload, err := parseFrame(raw, cmdGetFirmwareVersion)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x32, 0x01, 0x06, 0x07}, payload)
}

func TestParseFrame_LeadingGarbage(t *testing.T) {
	raw := append([]byte{0x80, 0x80, 0x01}, responseFrame(cmdSamConfiguration, nil)...)

	payload, err := parseFrame(raw, cmdSamConfiguration)
	require.NoError(t, err)
	assert.Empty(t, payload)
}

func TestParseFrame_WrongCommand(t *testing.T) {
	raw := responseFrame(cmdGetFirmwareVersion, []byte{0x32})

	_, err := parseFrame(raw, cmdInListPassiveTarget)
	require.Error(t, err)
}

func TestParseFrame_CorruptedChecksum(t *testing.T) {
	raw := responseFrame(cmdGetFirmwareVersion, []byte{0x32, 0x01})
	raw[len(raw)-2]++

	_, err := parseFrame(raw, cmdGetFirmwareVersion)
	require.Error(t, err)
}

func TestParsePassiveTarget(t *testing.T) {
	// One target, SENS_RES 0x0004, SEL_RES 0x08, 4-byte UID.
	payload := []byte{0x01, 0x01, 0x00, 0x04, 0x08, 0x04, 0xA1, 0xB2, 0xC3, 0xD4}

	uid := parsePassiveTarget(payload)
	assert.Equal(t, []byte{0xA1, 0xB2, 0xC3, 0xD4}, uid)
}

func TestParsePassiveTarget_NoTarget(t *testing.T) {
	assert.Nil(t, parsePassiveTarget([]byte{0x00}))
	assert.Nil(t, parsePassiveTarget(nil))
	assert.Nil(t, parsePassiveTarget([]byte{0x01, 0x01, 0x00}))
}
