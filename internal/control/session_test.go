package control

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/relabs-tech/xrone-go/internal/xerr"
	"github.com/stretchr/testify/require"
)

func TestMagicConstants(t *testing.T) {
	require.Equal(t, Magic(0x2829), MagicSetScene)
	require.Equal(t, Magic(0x2822), MagicSetDisplayInput)
	require.Equal(t, Magic(0x271C), MagicSetBrightness)
	require.Equal(t, Magic(0x2727), MagicSetDimmer)
	require.Equal(t, Magic(0x271F), MagicGetConfig)
	require.Equal(t, Magic(0x271D), MagicGetSoftwareVersion)
	require.Equal(t, Magic(0x272D), MagicGetDSPVersion)
	require.Equal(t, Magic(0x2729), MagicGetID)
	require.Equal(t, Magic(0x272E), MagicKeyStateChange)
}

// readFrame reads one control frame off conn in test-harness form:
// magic, the 4-byte wire tx-id, and the property body.
func readFrame(t *testing.T, conn net.Conn) (Magic, uint32, []byte) {
	t.Helper()
	header, err := readFull(conn, 6)
	require.NoError(t, err)
	magic := Magic(binary.BigEndian.Uint16(header[0:2]))
	length := binary.BigEndian.Uint32(header[2:6])
	body, err := readFull(conn, int(length))
	require.NoError(t, err)
	wireTxID := binary.BigEndian.Uint32(body[0:4])
	return magic, wireTxID, body[4:]
}

// writeResponseFrame writes a server-side response for the given (already
// wire-formatted) tx-id and magic, mirroring Session.writeFrame.
func writeResponseFrame(t *testing.T, conn net.Conn, magic Magic, wireTxID uint32, payload []byte) {
	t.Helper()
	frame := make([]byte, 6+4+len(payload))
	binary.BigEndian.PutUint16(frame[0:2], uint16(magic))
	binary.BigEndian.PutUint32(frame[2:6], uint32(4+len(payload)))
	binary.BigEndian.PutUint32(frame[6:10], wireTxID)
	copy(frame[10:], payload)
	_, err := conn.Write(frame)
	require.NoError(t, err)
}

func TestSendTransactionRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	s := NewSession(client)
	defer s.Close()

	go func() {
		magic, wireTxID, body := readFrame(t, server)
		require.Equal(t, MagicGetID, magic)
		require.Equal(t, []byte{0x18, 0x00}, body)
		writeResponseFrame(t, server, magic, wireTxID, []byte{0x22, 0x02, 0x10, 0x05})
	}()

	resp, err := s.SendTransaction(MagicGetID, []byte{0x18, 0x00}, time.Second)
	require.NoError(t, err)
	require.Equal(t, []byte{0x22, 0x02, 0x10, 0x05}, resp)
}

func TestSendTransactionTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	s := NewSession(client)
	defer s.Close()

	go func() {
		_, _, _ = readFrame(t, server)
		// never respond
	}()

	_, err := s.SendTransaction(MagicGetID, []byte{0x18, 0x00}, 30*time.Millisecond)
	require.Error(t, err)
	var xe *xerr.Error
	require.ErrorAs(t, err, &xe)
	require.Equal(t, xerr.KindTimeout, xe.Kind)
}

func TestSendTransactionRejectsNonPositiveTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	s := NewSession(client)
	defer s.Close()

	_, err := s.SendTransaction(MagicGetID, nil, 0)
	require.Error(t, err)
	var xe *xerr.Error
	require.ErrorAs(t, err, &xe)
	require.Equal(t, xerr.KindInvalidArgument, xe.Kind)
}

func TestCloseFailsPendingTransactions(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	s := NewSession(client)

	go func() {
		_, _, _ = readFrame(t, server)
	}()

	resultCh := make(chan error, 1)
	go func() {
		_, err := s.SendTransaction(MagicGetID, []byte{0x18, 0x00}, 5*time.Second)
		resultCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Close())

	err := <-resultCh
	require.Error(t, err)
	var xe *xerr.Error
	require.ErrorAs(t, err, &xe)
	require.Equal(t, xerr.KindConnectionClosed, xe.Kind)
}

func TestSendTransactionAfterCloseIsConnectionClosed(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	s := NewSession(client)
	require.NoError(t, s.Close())

	_, err := s.SendTransaction(MagicGetID, []byte{0x18, 0x00}, time.Second)
	require.Error(t, err)
	var xe *xerr.Error
	require.ErrorAs(t, err, &xe)
	require.Equal(t, xerr.KindConnectionClosed, xe.Kind)
}

func TestUnknownInboundPublished(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	s := NewSession(client)
	defer s.Close()

	go func() {
		body := []byte{0xAA, 0xBB} // too short to carry a tx-id
		frame := make([]byte, 6+len(body))
		binary.BigEndian.PutUint16(frame[0:2], uint16(MagicSetScene))
		binary.BigEndian.PutUint32(frame[2:6], uint32(len(body)))
		copy(frame[6:], body)
		_, _ = server.Write(frame)
	}()

	select {
	case evt := <-s.Events():
		require.Equal(t, EventUnknownInbound, evt.Kind)
		require.Equal(t, MagicSetScene, evt.Magic)
		require.Equal(t, []byte{0xAA, 0xBB}, evt.Raw)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for unknown-inbound event")
	}
}

func TestKeyStateEventDecoded(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	s := NewSession(client)
	defer s.Close()

	payload := make([]byte, 64)
	binary.LittleEndian.PutUint32(payload[0:4], uint32(KeyTypeTopSingle))
	binary.LittleEndian.PutUint32(payload[4:8], uint32(KeyStateDown))
	binary.LittleEndian.PutUint32(payload[8:12], 123456)

	go func() {
		frame := make([]byte, 6+len(payload))
		binary.BigEndian.PutUint16(frame[0:2], uint16(MagicKeyStateChange))
		binary.BigEndian.PutUint32(frame[2:6], uint32(len(payload)))
		copy(frame[6:], payload)
		_, _ = server.Write(frame)
	}()

	select {
	case evt := <-s.Events():
		require.Equal(t, EventKeyState, evt.Kind)
		require.NoError(t, evt.Err)
		require.Equal(t, KeyTypeTopSingle, evt.KeyState.KeyType)
		require.Equal(t, KeyStateDown, evt.KeyState.KeyState)
		require.Equal(t, uint32(123456), evt.KeyState.DeviceTimeNs)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for key-state event")
	}
}

func TestTransactionCollisionDetected(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	s := NewSession(client)
	defer s.Close()

	key := pendingKey{txID: 1, magic: MagicGetID}
	require.NoError(t, s.register(key, make(chan pendingResult, 1)))
	err := s.register(key, make(chan pendingResult, 1))
	require.Error(t, err)
	var xe *xerr.Error
	require.ErrorAs(t, err, &xe)
	require.Equal(t, xerr.KindTransactionCollision, xe.Kind)
}
