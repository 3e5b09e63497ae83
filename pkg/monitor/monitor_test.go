package monitor

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thelolagemann/nescore/internal/nes"
	"github.com/thelolagemann/nescore/pkg/log"
)

func testRom() []byte {
	rom := []byte{'N', 'E', 'S', 0x1a, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	prg := make([]byte, 0x4000)
	// JMP $8000
	copy(prg, []byte{0x4c, 0x00, 0x80})
	prg[0x3ffd] = 0x80
	rom = append(rom, prg...)
	return append(rom, make([]byte, 0x2000)...)
}

func TestStatusOf(t *testing.T) {
	n, err := nes.New(testRom())
	require.NoError(t, err)
	n.Frame()

	s := StatusOf(n)
	assert.Equal(t, uint32(1), s.Frame)
	assert.Equal(t, "NROM", s.Mapper)
	assert.Equal(t, 3*s.CpuCycles, s.PpuCycles)
	assert.NotZero(t, s.Hash)
}

func TestHub(t *testing.T) {
	h := NewHub(log.NewNullLogger())
	go h.Run()
	defer h.Close()

	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, time.Millisecond)

	want := Status{Frame: 42, Hash: 0xdeadbeef, CpuCycles: 100, PpuCycles: 300, Mapper: "MMC3", IrqLine: true}
	h.Publish(want)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var got Status
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, want, got)

	conn.Close()
	require.Eventually(t, func() bool { return h.Clients() == 0 }, time.Second, time.Millisecond)
}
