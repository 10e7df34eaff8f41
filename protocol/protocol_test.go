package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legamerdc/gsm"
)

func TestCommands(t *testing.T) {
	assert.Equal(t, "AT+USOCR=6", CreateTCPSocket())
	assert.Equal(t, "AT+USOLI=7,80", Listen(7, 80))
	assert.Equal(t, "AT+USOCL=3", CloseSocket(3))
	assert.Equal(t, "AT+USORD=2,0", Read(2, 0))
	assert.Equal(t, `AT+USOWR=1,5,"68656C6C6F"`, Write(1, []byte("hello")))
}

func TestFinal(t *testing.T) {
	tests := []struct {
		line  string
		want  gsm.Readiness
		final bool
	}{
		{"OK", gsm.OK, true},
		{"ERROR", gsm.Error, true},
		{"+CME ERROR: operation not allowed", gsm.Error, true},
		{"+CMS ERROR: 500", gsm.Error, true},
		{"NO CARRIER", gsm.NoCarrier, true},
		{"+USOCR: 0", gsm.NotReady, false},
		{"OKAY", gsm.NotReady, false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, final := Final(tt.line)
			assert.Equal(t, tt.final, final)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCreated(t *testing.T) {
	id, ok := ParseCreated("+USOCR: 7")
	require.True(t, ok)
	assert.Equal(t, 7, id)

	_, ok = ParseCreated("+USOCR: x")
	assert.False(t, ok)
	_, ok = ParseCreated("+USOLI: 7")
	assert.False(t, ok)
}

func TestParseURC(t *testing.T) {
	id, ok := ParseAcceptURC(`+UUSOLI: 3,"151.9.34.66",39912,0,"10.0.0.2",80`)
	require.True(t, ok)
	assert.Equal(t, 3, id)

	id, ok = ParseAcceptURC("+UUSOLI: 4")
	require.True(t, ok)
	assert.Equal(t, 4, id)

	id, ok = ParseCloseURC("+UUSOCL: 3")
	require.True(t, ok)
	assert.Equal(t, 3, id)

	_, ok = ParseCloseURC("+UUSOLI: 3")
	assert.False(t, ok)

	assert.True(t, IsURC("+UUSORD: 0,12"))
	assert.False(t, IsURC("+USORD: 0,12"))
}

func TestParseRead(t *testing.T) {
	s, n, data, err := ParseRead(`+USORD: 1,5,"68656C6C6F"`)
	require.NoError(t, err)
	assert.Equal(t, 1, s)
	assert.Equal(t, 5, n)
	assert.Equal(t, []byte("hello"), data)

	s, n, data, err = ParseRead("+USORD: 2,42")
	require.NoError(t, err)
	assert.Equal(t, 2, s)
	assert.Equal(t, 42, n)
	assert.Nil(t, data)

	_, _, _, err = ParseRead(`+USORD: 1,4,"68656C6C6F"`)
	assert.Error(t, err)
}

func TestParseWritten(t *testing.T) {
	s, n, err := ParseWritten("+USOWR: 3,256")
	require.NoError(t, err)
	assert.Equal(t, 3, s)
	assert.Equal(t, 256, n)

	_, _, err = ParseWritten("+USOWR: 3")
	assert.Error(t, err)
}
