package server

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/legamerdc/gsm"
)

func TestStep(t *testing.T) {
	tests := []struct {
		name  string
		from  phase
		r     gsm.Readiness
		lines []string
		want  transition
	}{
		{"idle is terminal", phaseIdle, gsm.OK, nil,
			transition{next: phaseIdle, result: Terminal}},
		{"create sends", phaseCreateSocket, gsm.OK, nil,
			transition{next: phaseWaitCreate, act: actSendCreate, result: Advancing}},
		{"create ok", phaseWaitCreate, gsm.OK, []string{"+USOCR: 7"},
			transition{next: phaseListen, act: actSetSocket, result: Advancing, socket: 7}},
		{"create error", phaseWaitCreate, gsm.Error, []string{"+USOCR: 7"},
			transition{next: phaseIdle, result: Terminal}},
		{"create timeout", phaseWaitCreate, gsm.Timeout, nil,
			transition{next: phaseIdle, result: Terminal}},
		{"create no carrier", phaseWaitCreate, gsm.NoCarrier, []string{"+USOCR: 7"},
			transition{next: phaseIdle, result: Terminal}},
		{"create malformed", phaseWaitCreate, gsm.OK, []string{"+USOCR: x"},
			transition{next: phaseIdle, result: Terminal}},
		{"create wrong prefix", phaseWaitCreate, gsm.OK, []string{"+USOLI: 7"},
			transition{next: phaseIdle, result: Terminal}},
		{"create extra lines", phaseWaitCreate, gsm.OK, []string{"+USOCR: 7", "+USOCR: 8"},
			transition{next: phaseIdle, result: Terminal}},
		{"create empty", phaseWaitCreate, gsm.OK, nil,
			transition{next: phaseIdle, result: Terminal}},
		{"listen sends", phaseListen, gsm.OK, nil,
			transition{next: phaseWaitListen, act: actSendListen, result: Advancing}},
		{"listen ok", phaseWaitListen, gsm.OK, nil,
			transition{next: phaseIdle, result: Terminal}},
		{"listen error closes", phaseWaitListen, gsm.Error, nil,
			transition{next: phaseCloseSocket, result: Advancing}},
		{"listen timeout closes", phaseWaitListen, gsm.Timeout, nil,
			transition{next: phaseCloseSocket, result: Advancing}},
		{"close sends", phaseCloseSocket, gsm.OK, nil,
			transition{next: phaseWaitClose, act: actSendClose, result: Advancing}},
		{"close ok releases", phaseWaitClose, gsm.OK, nil,
			transition{next: phaseIdle, act: actReleaseSocket, result: Terminal}},
		{"close error releases", phaseWaitClose, gsm.Error, nil,
			transition{next: phaseIdle, act: actReleaseSocket, result: Terminal}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, step(tt.from, tt.r, tt.lines))
		})
	}
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "wait-listen", phaseWaitListen.String())
	assert.Equal(t, "unknown", phase(42).String())
	assert.Equal(t, "terminal", Terminal.String())
}
