package protocol_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monai/internal/protocol"
)

func TestNewEnvelope(t *testing.T) {
	env, err := protocol.NewEnvelope(protocol.MsgJoin, protocol.JoinMsg{DisplayName: "ann", RoomCode: "abcd"})
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgJoin, env.Type)
	assert.JSONEq(t, `{"display_name":"ann","room_code":"abcd"}`, string(env.Payload))

	_, err = protocol.NewEnvelope(protocol.MsgEvent, make(chan int))
	require.Error(t, err)
	assert.Panics(t, func() { protocol.MustEnvelope(protocol.MsgEvent, make(chan int)) })
}

func TestValidate(t *testing.T) {
	v := protocol.MustValidator()

	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"join", `{"type":"join","payload":{"display_name":"ann","room_code":"abcd"}}`, nil},
		{"join missing room", `{"type":"join","payload":{"display_name":"ann"}}`, protocol.ErrInvalidPayload},
		{"join blank name", `{"type":"join","payload":{"display_name":"","room_code":"abcd"}}`, protocol.ErrInvalidPayload},
		{"join leading space", `{"type":"join","payload":{"display_name":" ann","room_code":"abcd"}}`, protocol.ErrInvalidPayload},
		{"sell", `{"type":"sell_ownable","payload":{"tile_id":7}}`, nil},
		{"sell fractional tile", `{"type":"sell_ownable","payload":{"tile_id":7.5}}`, protocol.ErrInvalidPayload},
		{"sell string tile", `{"type":"sell_ownable","payload":{"tile_id":"7"}}`, protocol.ErrInvalidPayload},
		{"end turn without payload", `{"type":"end_turn"}`, nil},
		{"buy with null payload", `{"type":"buy_ownable","payload":null}`, nil},
		{"ready with extra field", `{"type":"ready","payload":{"ready":true}}`, protocol.ErrInvalidPayload},
		{"forfeit", `{"type":"forfeit","payload":{}}`, nil},
		{"unknown", `{"type":"mortgage","payload":{}}`, protocol.ErrUnknownMessage},
		{"server type", `{"type":"begin_turn","payload":{}}`, protocol.ErrUnknownMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var env protocol.Envelope
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &env))
			err := v.Validate(env)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseAndDecode(t *testing.T) {
	env, err := protocol.Parse([]byte(`{"type":"sell_ownable","payload":{"tile_id":12}}`))
	require.NoError(t, err)

	var sell protocol.SellMsg
	require.NoError(t, env.Decode(&sell))
	assert.Equal(t, 12, sell.TileID)

	_, err = protocol.Parse([]byte(`{"payload":{}}`))
	require.ErrorIs(t, err, protocol.ErrInvalidPayload)
	_, err = protocol.Parse([]byte(`not json`))
	require.ErrorIs(t, err, protocol.ErrInvalidPayload)

	bare := protocol.MustEnvelope(protocol.MsgEndTurn, nil)
	assert.Empty(t, bare.Payload)
	require.NoError(t, bare.Decode(&sell))
}
