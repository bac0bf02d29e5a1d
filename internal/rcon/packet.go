package rcon

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Packet types. Minecraft reuses 2 for both command requests and auth responses.
const (
	TypeResponseValue int32 = 0
	TypeExecCommand   int32 = 2
	TypeAuthResponse  int32 = 2
	TypeAuth          int32 = 3
)

const (
	// id + type
	headerSize = 8
	// body terminator + empty string terminator
	paddingSize = 2

	// MaxCommandLength is the largest body a Minecraft server accepts from a client.
	MaxCommandLength = 1446
	// MaxResponseLength is the largest body a Minecraft server sends in one packet.
	MaxResponseLength = 4096
)

// AuthFailedID is the request id a server answers with when the password is wrong.
const AuthFailedID int32 = -1

var (
	ErrPacketTooLarge = errors.New("rcon: packet too large")
	ErrMalformed      = errors.New("rcon: malformed packet")
)

// Packet is one length-prefixed RCON frame. All integers are little-endian.
//
//	int32 length (bytes that follow)
//	int32 request id
//	int32 type
//	[]byte body, 0x00, 0x00
type Packet struct {
	ID   int32
	Type int32
	Body string
}

// MarshalBinary encodes p into its wire form.
func (p Packet) MarshalBinary() ([]byte, error) {
	if len(p.Body) > MaxResponseLength {
		return nil, ErrPacketTooLarge
	}
	length := int32(headerSize + len(p.Body) + paddingSize)

	buf := bytes.NewBuffer(make([]byte, 0, 4+length))
	_ = binary.Write(buf, binary.LittleEndian, length)
	_ = binary.Write(buf, binary.LittleEndian, p.ID)
	_ = binary.Write(buf, binary.LittleEndian, p.Type)
	buf.WriteString(p.Body)
	buf.Write([]byte{0, 0})
	return buf.Bytes(), nil
}

// WritePacket writes p to w in a single Write call.
func WritePacket(w io.Writer, p Packet) error {
	data, err := p.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ReadPacket reads exactly one frame from r.
func ReadPacket(r io.Reader) (Packet, error) {
	var length int32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return Packet{}, err
	}
	if length < headerSize+paddingSize {
		return Packet{}, fmt.Errorf("%w: length %d", ErrMalformed, length)
	}
	if length > headerSize+MaxResponseLength+paddingSize {
		return Packet{}, fmt.Errorf("%w: length %d", ErrPacketTooLarge, length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Packet{}, err
	}

	body := payload[headerSize : length-paddingSize]
	if payload[length-2] != 0 || payload[length-1] != 0 {
		return Packet{}, fmt.Errorf("%w: missing terminator", ErrMalformed)
	}

	return Packet{
		ID:   int32(binary.LittleEndian.Uint32(payload[0:4])),
		Type: int32(binary.LittleEndian.Uint32(payload[4:8])),
		Body: string(body),
	}, nil
}
