package cheats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thelolagemann/nescore/pkg/log"
)

func TestParseGameGenie(t *testing.T) {
	c, err := ParseGameGenie("SXIOPO")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x91d9), c.Address)
	assert.Equal(t, uint8(0xad), c.Value)
	assert.False(t, c.HasCompare)

	c, err = ParseGameGenie("sxio-poap")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x91d9), c.Address)
	assert.Equal(t, uint8(0xa5), c.Value)
	assert.Equal(t, uint8(0x18), c.Compare)
	assert.True(t, c.HasCompare)
	assert.Equal(t, "SXIOPOAP", c.String())

	for _, code := range []string{"SXIOP", "SXIOPOA", "SXIOPB"} {
		_, err := ParseGameGenie(code)
		assert.Error(t, err, code)
	}
}

func TestParseRaw(t *testing.T) {
	c, err := ParseRaw("0075:07")
	require.NoError(t, err)
	assert.Equal(t, Code{Address: 0x75, Value: 7, raw: "0075:07"}, c)

	c, err = ParseRaw("c010?a9:ea")
	require.NoError(t, err)
	assert.Equal(t, uint16(0xc010), c.Address)
	assert.Equal(t, uint8(0xea), c.Value)
	assert.Equal(t, uint8(0xa9), c.Compare)
	assert.True(t, c.HasCompare)

	for _, code := range []string{"0075", "6000:01", "zz75:01", "0075:100", "8000?x:01"} {
		_, err := ParseRaw(code)
		assert.Error(t, err, code)
	}
}

func TestEngine(t *testing.T) {
	e := New(log.NewNullLogger())
	require.NoError(t, e.Load("patch", "8010:42", "8020?01:02"))
	require.NoError(t, e.Load("lives", "0075:09"))
	assert.Error(t, e.Load("patch", "8010:43"))
	assert.Error(t, e.Load("broken", "8010"))

	// disabled by default
	assert.Equal(t, uint8(0x10), e.Read(0x8010, 0x10))

	require.NoError(t, e.Enable("patch"))
	assert.Equal(t, uint8(0x42), e.Read(0x8010, 0x10))
	assert.Equal(t, uint8(0x02), e.Read(0x8020, 0x01))
	assert.Equal(t, uint8(0x05), e.Read(0x8020, 0x05))
	assert.Equal(t, uint8(0x33), e.Read(0x8030, 0x33))

	ram := make([]byte, 0x800)
	e.Apply(ram)
	assert.Zero(t, ram[0x75])
	require.NoError(t, e.Enable("lives"))
	e.Apply(ram)
	assert.Equal(t, uint8(9), ram[0x75])

	require.NoError(t, e.Disable("patch"))
	assert.Equal(t, uint8(0x10), e.Read(0x8010, 0x10))
	assert.Error(t, e.Enable("missing"))
}

func TestCheatFile(t *testing.T) {
	const file = `# +Infinite lives
SXIOPO

# Start on world 8
0075:07
0076?00:01
`
	cheats, err := ParseCheatFile(strings.NewReader(file))
	require.NoError(t, err)
	require.Len(t, cheats, 2)
	assert.Equal(t, "Infinite lives", cheats[0].Name)
	assert.True(t, cheats[0].Enabled)
	assert.Len(t, cheats[0].Codes, 1)
	assert.Equal(t, "Start on world 8", cheats[1].Name)
	assert.False(t, cheats[1].Enabled)
	assert.Len(t, cheats[1].Codes, 2)

	var buf bytes.Buffer
	require.NoError(t, WriteCheatFile(&buf, cheats))
	again, err := ParseCheatFile(&buf)
	require.NoError(t, err)
	assert.Equal(t, cheats, again)

	_, err = ParseCheatFile(strings.NewReader("SXIOPO\n"))
	assert.Error(t, err)
	_, err = ParseCheatFile(strings.NewReader("# bad\nQQQQQQ\n"))
	assert.Error(t, err)
}
