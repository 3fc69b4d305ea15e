package pion

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfferAnswerCarryAudio(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	caller, err := New(Config{})
	require.NoError(t, err)
	defer caller.Close()
	callee, err := New(Config{})
	require.NoError(t, err)
	defer callee.Close()

	offer, err := caller.CreateOffer(ctx)
	require.NoError(t, err)
	var desc webrtc.SessionDescription
	require.NoError(t, json.Unmarshal(offer, &desc))
	assert.Equal(t, webrtc.SDPTypeOffer, desc.Type)
	assert.True(t, strings.Contains(desc.SDP, "m=audio"), "offer must carry an audio section")

	answer, err := callee.AcceptOffer(ctx, offer)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(answer, &desc))
	assert.Equal(t, webrtc.SDPTypeAnswer, desc.Type)

	require.NoError(t, caller.AcceptAnswer(answer))
}

func TestRejectsGarbage(t *testing.T) {
	tr, err := New(Config{})
	require.NoError(t, err)
	defer tr.Close()

	_, err = tr.AcceptOffer(context.Background(), []byte("not json"))
	assert.Error(t, err)
	assert.Error(t, tr.AcceptAnswer([]byte(`{"type":"answer","sdp":""}`)))
	assert.NoError(t, tr.Close())
	assert.NoError(t, tr.Close())
}

func TestCountsInboundPayload(t *testing.T) {
	tr, err := New(Config{})
	require.NoError(t, err)
	defer tr.Close()

	tr.count(&rtp.Packet{Header: rtp.Header{SequenceNumber: 1}, Payload: make([]byte, 160)})
	tr.count(&rtp.Packet{Header: rtp.Header{SequenceNumber: 2}, Payload: make([]byte, 40)})
	assert.Equal(t, uint64(2), tr.Stats().Packets)
	assert.Equal(t, uint64(200), tr.Stats().Bytes)
}
